package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis key prefix for issuance locks
const keyPrefix = "certapi:lock:"

// ErrNotHeld is returned on release when the lock expired or was taken over.
var ErrNotHeld = errors.New("lock not held")

// releaseScript deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every instance pointing at the same Redis.
// Locks expire after ttl so a crashed holder cannot block an ID forever.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

func NewRedis(client redis.UniversalClient, ttl, wait time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl, wait: wait, retry: defaultRetry}
}

func (r *Redis) Acquire(ctx context.Context, key string) (Release, error) {
	k := keyPrefix + key
	token := uuid.NewString()

	err := poll(ctx, r.wait, r.retry, func() (bool, error) {
		return r.client.SetNX(ctx, k, token, r.ttl).Result()
	})
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) error {
		n, err := releaseScript.Run(ctx, r.client, []string{k}, token).Int()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotHeld
		}
		return nil
	}, nil
}
