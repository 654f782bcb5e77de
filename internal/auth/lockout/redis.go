package lockout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTracker keeps failure counters in Redis so lockout state survives
// restarts and is shared across instances.
type RedisTracker struct {
	client    *redis.Client
	threshold int64
	window    time.Duration
}

func NewRedisTracker(client *redis.Client, threshold int64, window time.Duration) *RedisTracker {
	return &RedisTracker{
		client:    client,
		threshold: threshold,
		window:    window,
	}
}

func key(username string) string {
	return "lockout:" + username
}

func (t *RedisTracker) RecordFailure(ctx context.Context, username string) (int64, error) {
	pipe := t.client.TxPipeline()
	incr := pipe.Incr(ctx, key(username))
	pipe.Expire(ctx, key(username), t.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("record login failure: %w", err)
	}
	return incr.Val(), nil
}

func (t *RedisTracker) Locked(ctx context.Context, username string) (bool, error) {
	count, err := t.client.Get(ctx, key(username)).Int64()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read lockout counter: %w", err)
	}
	return count >= t.threshold, nil
}

func (t *RedisTracker) Clear(ctx context.Context, username string) error {
	if err := t.client.Del(ctx, key(username)).Err(); err != nil {
		return fmt.Errorf("clear lockout counter: %w", err)
	}
	return nil
}
