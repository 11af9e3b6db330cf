// Package lock provides the short-lived named locks used to claim receipt delivery.
package lock

import (
	"context"
	"sync"
	"time"
)

// LocalLocker serialises holders within one process. Use RedisLocker when
// more than one instance serves webhooks.
type LocalLocker struct {
	mu    sync.Mutex
	held  map[string]localEntry
	now   func() time.Time
	token uint64
}

type localEntry struct {
	token     uint64
	expiresAt time.Time
}

// NewLocalLocker creates an in-process locker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{
		held: make(map[string]localEntry),
		now:  time.Now,
	}
}

// TryLock claims key until release is called or ttl passes
func (l *LocalLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	if err := ctx.Err(); err != nil {
		return func() {}, false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if entry, ok := l.held[key]; ok && now.Before(entry.expiresAt) {
		return func() {}, false, nil
	}

	l.token++
	token := l.token
	l.held[key] = localEntry{token: token, expiresAt: now.Add(ttl)}

	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		// an expired claim may already belong to someone else
		if entry, ok := l.held[key]; ok && entry.token == token {
			delete(l.held, key)
		}
	}
	return release, true, nil
}
