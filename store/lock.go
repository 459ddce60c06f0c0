package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/brettbedarf/docfs/internal/util"
	"github.com/brettbedarf/docfs/metrics"
)

var errLockHeld = errors.New("lock held")

// LockRegistry is an in-process set of held paths. Acquisition polls a test-and-set
// with a constant delay, so waiters are not served in arrival order.
// Locks are advisory and not reentrant.
type LockRegistry struct {
	held        *xsync.Map[string, struct{}]
	maxAttempts int
	delay       time.Duration
	metrics     *metrics.Collector
}

// NewLockRegistry returns a registry that tries maxAttempts times, delay apart, before
// giving up with [ErrLockTimeout]. maxAttempts below 1 is treated as 1.
func NewLockRegistry(maxAttempts int, delay time.Duration) *LockRegistry {
	return &LockRegistry{
		held:        xsync.NewMap[string, struct{}](),
		maxAttempts: max(1, maxAttempts),
		delay:       max(0, delay),
	}
}

func (r *LockRegistry) tryAcquire(path string) bool {
	_, loaded := r.held.LoadOrStore(path, struct{}{})
	return !loaded
}

// Acquire takes the lock on path. It returns [ErrLockTimeout] once the retry budget is spent,
// or the context's error if ctx ends first.
func (r *LockRegistry) Acquire(ctx context.Context, path string) error {
	logger := util.GetLogger("LockRegistry.Acquire")
	start := time.Now()

	if r.tryAcquire(path) {
		r.metrics.ObserveLockWait(0, nil)
		return nil
	}
	if r.maxAttempts == 1 {
		return r.timeout(path, start)
	}
	logger.Trace().Str("path", path).Msg("Lock held, waiting")

	// WithMaxRetries treats 0 as unlimited, hence the early return above.
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.delay), uint64(r.maxAttempts-1)),
		ctx,
	)
	// The first attempt above already failed, so the retry loop opens with a pause.
	first := true
	err := backoff.Retry(func() error {
		if first {
			first = false
			return errLockHeld
		}
		if r.tryAcquire(path) {
			return nil
		}
		return errLockHeld
	}, policy)

	if err == nil {
		r.metrics.ObserveLockWait(time.Since(start), nil)
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		r.metrics.ObserveLockWait(time.Since(start), ctxErr)
		return ctxErr
	}
	return r.timeout(path, start)
}

func (r *LockRegistry) timeout(path string, start time.Time) error {
	err := fmt.Errorf("%w: %s still held after %d attempts", ErrLockTimeout, path, r.maxAttempts)
	r.metrics.ObserveLockWait(time.Since(start), err)
	util.GetLogger("LockRegistry.Acquire").Warn().
		Str("path", path).
		Int("attempts", r.maxAttempts).
		Msg("Lock acquisition timed out")
	return err
}

// Release frees path. Releasing a free path is a no-op.
func (r *LockRegistry) Release(path string) {
	r.held.Delete(path)
}

// Held reports whether path is currently locked
func (r *LockRegistry) Held(path string) bool {
	_, ok := r.held.Load(path)
	return ok
}
