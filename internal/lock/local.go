package lock

import (
	"context"
	"sync"
	"time"
)

// Local is an in-process Locker. It only coordinates callers inside one process.
type Local struct {
	mu    sync.Mutex
	held  map[string]struct{}
	wait  time.Duration
	retry time.Duration
}

func NewLocal(wait time.Duration) *Local {
	return &Local{held: make(map[string]struct{}), wait: wait, retry: defaultRetry}
}

func (l *Local) tryAcquire(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[key]; busy {
		return false
	}
	l.held[key] = struct{}{}
	return true
}

func (l *Local) Acquire(ctx context.Context, key string) (Release, error) {
	err := poll(ctx, l.wait, l.retry, func() (bool, error) {
		return l.tryAcquire(key), nil
	})
	if err != nil {
		return nil, err
	}
	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
		return nil
	}, nil
}
