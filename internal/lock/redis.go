package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/robotter-ai/ccxt-telegram-api/internal/logger"
)

const (
	defaultTTL   = 30 * time.Second
	retryBackoff = 50 * time.Millisecond
	keyPrefix    = "ccxt-telegram-api:lock:"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX and a token checked on release.
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisLocker connects to the instance described by url, for example
// redis://localhost:6379/0.
func NewRedisLocker(url string, ttl time.Duration) (*RedisLocker, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisLocker{client: redis.NewClient(options), ttl: ttl}, nil
}

// Ping checks the connection.
func (r *RedisLocker) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	redisKey := keyPrefix + key
	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryBackoff):
		}
	}

	return func() {
		err := releaseScript.Run(context.Background(), r.client, []string{redisKey}, token).Err()
		if err != nil && err != redis.Nil {
			logger.LogError(fmt.Errorf("failed to release lock %s: %w", key, err))
		}
	}, nil
}

// Close closes the Redis client.
func (r *RedisLocker) Close() error {
	return r.client.Close()
}
