package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock_AcquireRelease(t *testing.T) {
	t.Parallel()
	r := NewLockRegistry(3, time.Millisecond)

	require.NoError(t, r.Acquire(context.Background(), "/a"))
	assert.True(t, r.Held("/a"))

	r.Release("/a")
	assert.False(t, r.Held("/a"))

	// releasing a free path is harmless
	r.Release("/a")
	require.NoError(t, r.Acquire(context.Background(), "/a"))
}

func TestLock_Timeout(t *testing.T) {
	t.Parallel()
	r := NewLockRegistry(4, 2*time.Millisecond)
	require.NoError(t, r.Acquire(context.Background(), "/busy"))

	start := time.Now()
	err := r.Acquire(context.Background(), "/busy")

	require.ErrorIs(t, err, ErrLockTimeout)
	assert.Contains(t, err.Error(), "/busy")
	assert.GreaterOrEqual(t, time.Since(start), 6*time.Millisecond, "three pauses between four attempts")
	assert.True(t, r.Held("/busy"), "a timed out waiter must not steal the lock")
}

func TestLock_SingleAttempt(t *testing.T) {
	t.Parallel()
	r := NewLockRegistry(1, time.Hour)
	require.NoError(t, r.Acquire(context.Background(), "/busy"))

	done := make(chan error, 1)
	go func() { done <- r.Acquire(context.Background(), "/busy") }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrLockTimeout)
	case <-time.After(time.Second):
		t.Fatal("single attempt registry must not wait")
	}
}

func TestLock_DistinctPathsIndependent(t *testing.T) {
	t.Parallel()
	r := NewLockRegistry(1, time.Millisecond)

	require.NoError(t, r.Acquire(context.Background(), "/users/1.json"))
	require.NoError(t, r.Acquire(context.Background(), "/users/2.json"))
	assert.True(t, r.Held("/users/1.json"))
	assert.True(t, r.Held("/users/2.json"))
}

func TestLock_WaitsForRelease(t *testing.T) {
	t.Parallel()
	r := NewLockRegistry(1000, time.Millisecond)
	require.NoError(t, r.Acquire(context.Background(), "/p"))

	go func() {
		time.Sleep(20 * time.Millisecond)
		r.Release("/p")
	}()

	require.NoError(t, r.Acquire(context.Background(), "/p"))
	assert.True(t, r.Held("/p"))
}

func TestLock_ContextCancel(t *testing.T) {
	t.Parallel()
	r := NewLockRegistry(10000, 5*time.Millisecond)
	require.NoError(t, r.Acquire(context.Background(), "/p"))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(15 * time.Millisecond)
		cancel()
	}()

	err := r.Acquire(ctx, "/p")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrLockTimeout)
}

func TestLock_MutualExclusion(t *testing.T) {
	t.Parallel()
	r := NewLockRegistry(10000, 100*time.Microsecond)

	var inside, overlaps atomic.Int32
	var wg sync.WaitGroup
	for range 32 {
		wg.Go(func() {
			if err := r.Acquire(context.Background(), "/shared"); err != nil {
				t.Error(err)
				return
			}
			if inside.Add(1) > 1 {
				overlaps.Add(1)
			}
			time.Sleep(50 * time.Microsecond)
			inside.Add(-1)
			r.Release("/shared")
		})
	}
	wg.Wait()

	assert.Zero(t, overlaps.Load())
	assert.False(t, r.Held("/shared"))
}
