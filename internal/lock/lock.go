// Package lock serializes issuance per certificate ID across concurrent requests.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned when the lock is still held by someone else after the wait budget.
var ErrTimeout = errors.New("lock wait timeout")

// Release gives a lock back. It is safe to call once; the context bounds the release round trip.
type Release func(ctx context.Context) error

// Locker acquires exclusive, per-key locks.
type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

const defaultRetry = 50 * time.Millisecond

// poll retries try until it succeeds, fails, ctx ends, or wait elapses.
func poll(ctx context.Context, wait, every time.Duration, try func() (bool, error)) error {
	deadline := time.Now().Add(wait)
	for {
		ok, err := try()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			return ErrTimeout
		}
		t := time.NewTimer(every)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
