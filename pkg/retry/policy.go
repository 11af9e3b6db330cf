// Package retry runs operations under an explicit retry policy.
package retry

import (
	"context"
	"time"
)

// BackoffFunc returns the delay before the given retry. attempt starts at 1
// for the delay that follows the first failure.
type BackoffFunc func(attempt int) time.Duration

// Policy bounds how an operation is retried.
type Policy struct {
	MaxAttempts int
	Backoff     BackoffFunc
	// Retryable reports whether err may succeed on another attempt.
	// A nil Retryable retries every error.
	Retryable func(err error) bool
}

// NoRetry runs the operation exactly once.
func NoRetry() Policy {
	return Policy{MaxAttempts: 1}
}

// Constant waits d between attempts.
func Constant(d time.Duration) BackoffFunc {
	return func(int) time.Duration { return d }
}

// Exponential doubles initial after every attempt, capped at max.
func Exponential(initial, max time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		d := initial
		for i := 1; i < attempt; i++ {
			d *= 2
			if d >= max {
				return max
			}
		}
		if d > max {
			return max
		}
		return d
	}
}

// MaxDuration is the longest Do can run when every attempt takes perAttempt
// and fails, backoff included.
func (p Policy) MaxDuration(perAttempt time.Duration) time.Duration {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	total := time.Duration(attempts) * perAttempt
	if p.Backoff != nil {
		for attempt := 1; attempt < attempts; attempt++ {
			total += p.Backoff(attempt)
		}
	}
	return total
}

// Do calls fn until it succeeds, returns a non-retryable error, the attempts
// are exhausted or ctx is done. The last error from fn is returned.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx, attempt); err == nil {
			return nil
		}
		if attempt == attempts || (p.Retryable != nil && !p.Retryable(err)) {
			return err
		}

		var delay time.Duration
		if p.Backoff != nil {
			delay = p.Backoff(attempt)
		}
		if delay <= 0 {
			if ctx.Err() != nil {
				return err
			}
			continue
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
	return err
}
