package inventory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/lithammer/shortuuid/v3"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it is still owned by the caller's
// token, so an expired lease never releases somebody else's lock.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

const (
	defaultLockTTL       = 5 * time.Second
	defaultRetryInterval = 25 * time.Millisecond
	releaseTimeout       = 2 * time.Second
)

// RedisLocker shares departure locks between several engine instances. Each
// lock is a lease: it expires after TTL even if its holder dies.
type RedisLocker struct {
	client        redis.Cmdable
	prefix        string
	ttl           time.Duration
	retryInterval time.Duration
	token         func() string
}

type RedisLockerConfig struct {
	Prefix        string
	TTL           time.Duration
	RetryInterval time.Duration
}

func NewRedisLocker(client redis.Cmdable, config RedisLockerConfig) *RedisLocker {
	if client == nil {
		panic("missing redis client")
	}
	if config.Prefix == "" {
		config.Prefix = "seat-lock:"
	}
	if config.TTL <= 0 {
		config.TTL = defaultLockTTL
	}
	if config.RetryInterval <= 0 {
		config.RetryInterval = defaultRetryInterval
	}

	return &RedisLocker{
		client:        client,
		prefix:        config.Prefix,
		ttl:           config.TTL,
		retryInterval: config.RetryInterval,
		token:         shortuuid.New,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := l.prefix + key
	token := l.token()

	for {
		acquired, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("could not acquire lock %s: %w", lockKey, err)
		}
		if acquired {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryInterval):
		}
	}

	logger := log.FromContext(ctx).WithField("lock_key", lockKey)

	var once sync.Once
	return func() {
		once.Do(func() {
			// the caller's context may already be cancelled at this point
			releaseCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()

			if err := l.client.Eval(releaseCtx, releaseScript, []string{lockKey}, token).Err(); err != nil {
				logger.WithError(err).Warn("Could not release seat lock, it will expire")
			}
		})
	}, nil
}
