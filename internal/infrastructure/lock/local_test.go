package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()

	t.Run("second claim fails until release", func(t *testing.T) {
		locker := NewLocalLocker()

		release, ok, err := locker.TryLock(ctx, "receipt:1", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		_, ok, err = locker.TryLock(ctx, "receipt:1", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, _ = locker.TryLock(ctx, "receipt:2", time.Minute)
		assert.True(t, ok, "keys are independent")

		release()
		_, ok, _ = locker.TryLock(ctx, "receipt:1", time.Minute)
		assert.True(t, ok)
	})

	t.Run("expired claim can be taken over", func(t *testing.T) {
		locker := NewLocalLocker()
		now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		locker.now = func() time.Time { return now }

		staleRelease, ok, _ := locker.TryLock(ctx, "k", time.Second)
		require.True(t, ok)

		now = now.Add(2 * time.Second)
		_, ok, _ = locker.TryLock(ctx, "k", time.Minute)
		require.True(t, ok)

		staleRelease()
		_, ok, _ = locker.TryLock(ctx, "k", time.Minute)
		assert.False(t, ok, "a stale release must not free the new holder's claim")
	})

	t.Run("exactly one concurrent winner", func(t *testing.T) {
		locker := NewLocalLocker()
		var winners int32
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, ok, _ := locker.TryLock(ctx, "race", time.Minute); ok {
					atomic.AddInt32(&winners, 1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), winners)
	})

	t.Run("cancelled context", func(t *testing.T) {
		locker := NewLocalLocker()
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, ok, err := locker.TryLock(cancelled, "k", time.Minute)
		assert.Error(t, err)
		assert.False(t, ok)
	})
}
