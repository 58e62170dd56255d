package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLocker(t *testing.T, ttl, wait time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	l := NewRedis(client, ttl, wait)
	l.retry = 5 * time.Millisecond
	return l, mr
}

func TestLockers_MutualExclusion(t *testing.T) {
	lockers := map[string]func(t *testing.T) Locker{
		"local": func(t *testing.T) Locker {
			l := NewLocal(2 * time.Second)
			l.retry = time.Millisecond
			return l
		},
		"redis": func(t *testing.T) Locker {
			l, _ := newRedisLocker(t, time.Minute, 2*time.Second)
			return l
		},
	}

	for name, build := range lockers {
		t.Run(name, func(t *testing.T) {
			l := build(t)
			ctx := context.Background()

			var inside, maxInside int32
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					release, err := l.Acquire(ctx, "42")
					if !assert.NoError(t, err) {
						return
					}
					n := atomic.AddInt32(&inside, 1)
					for {
						m := atomic.LoadInt32(&maxInside)
						if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
							break
						}
					}
					time.Sleep(2 * time.Millisecond)
					atomic.AddInt32(&inside, -1)
					assert.NoError(t, release(ctx))
				}()
			}
			wg.Wait()

			assert.Equal(t, int32(1), maxInside)
		})
	}
}

func TestLocal_Timeout(t *testing.T) {
	l := NewLocal(10 * time.Millisecond)
	l.retry = time.Millisecond
	ctx := context.Background()

	release, err := l.Acquire(ctx, "42")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "42")
	assert.ErrorIs(t, err, ErrTimeout)

	other, err := l.Acquire(ctx, "43")
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	require.NoError(t, release(ctx))
	require.NoError(t, release(ctx))

	again, err := l.Acquire(ctx, "42")
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestLocal_ContextCancelled(t *testing.T) {
	l := NewLocal(time.Minute)
	release, err := l.Acquire(context.Background(), "42")
	require.NoError(t, err)
	defer release(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = l.Acquire(ctx, "42")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedis_AcquireSetsTTLAndReleases(t *testing.T) {
	l, mr := newRedisLocker(t, 30*time.Second, 50*time.Millisecond)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "42")
	require.NoError(t, err)

	assert.True(t, mr.Exists(keyPrefix+"42"))
	assert.Equal(t, 30*time.Second, mr.TTL(keyPrefix+"42"))

	_, err = l.Acquire(ctx, "42")
	assert.ErrorIs(t, err, ErrTimeout)

	require.NoError(t, release(ctx))
	assert.False(t, mr.Exists(keyPrefix+"42"))
}

func TestRedis_ReleaseAfterExpiryDoesNotStealLock(t *testing.T) {
	l, mr := newRedisLocker(t, time.Second, 50*time.Millisecond)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "42")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	second, err := l.Acquire(ctx, "42")
	require.NoError(t, err)

	assert.ErrorIs(t, release(ctx), ErrNotHeld)
	assert.True(t, mr.Exists(keyPrefix+"42"))

	require.NoError(t, second(ctx))
}

func TestRedis_Unavailable(t *testing.T) {
	l, mr := newRedisLocker(t, time.Second, 50*time.Millisecond)
	mr.Close()

	_, err := l.Acquire(context.Background(), "42")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrTimeout)
}
