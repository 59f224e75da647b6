// Package lock provides a Redis-backed partition lock for deployments where
// several instances share one database.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	dErrors "custody/pkg/domain-errors"
)

const (
	lockKeyPrefix = "custody:lock:"

	defaultTTL        = 10 * time.Second
	defaultWait       = 5 * time.Second
	defaultRetryDelay = 10 * time.Millisecond
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock re-acquired by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements ports.PartitionLocker with SET NX PX.
type RedisLocker struct {
	client     *redis.Client
	ttl        time.Duration
	wait       time.Duration
	retryDelay time.Duration
}

type Option func(*RedisLocker)

// WithTTL bounds how long a crashed holder can block a partition.
func WithTTL(ttl time.Duration) Option {
	return func(l *RedisLocker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithWait bounds how long Lock retries before giving up.
func WithWait(wait time.Duration) Option {
	return func(l *RedisLocker) {
		if wait > 0 {
			l.wait = wait
		}
	}
}

func NewRedis(client *redis.Client, opts ...Option) *RedisLocker {
	l := &RedisLocker{
		client:     client,
		ttl:        defaultTTL,
		wait:       defaultWait,
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Lock retries SET NX until it wins, ctx ends or the wait bound passes.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := lockKeyPrefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "lock aborted: context cancelled")
			}
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return l.unlockFunc(redisKey, token), nil
		}
		if time.Now().After(deadline) {
			return nil, dErrors.New(dErrors.CodeTimeout, "timed out waiting for partition lock")
		}

		timer := time.NewTimer(l.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "lock aborted: context cancelled")
		case <-timer.C:
		}
	}
}

func (l *RedisLocker) unlockFunc(redisKey, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			// fresh context: the caller's may already be cancelled
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			// on failure the TTL frees the key
			_ = releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err()
		})
	}
}
