// Package ratelimit implements fixed-window request limits backed by Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "ratelimit:"
	defaultWindow = time.Minute
)

// Limiter decides whether another attempt is allowed for key.
type Limiter interface {
	// AllowWithDetails counts one attempt. remaining is -1 and resetAt is zero
	// when limit is 0 (unlimited).
	AllowWithDetails(ctx context.Context, key string, limit int) (allowed bool, remaining int, resetAt time.Time, err error)
}

// RateLimiter counts attempts per key in fixed windows. Counters live in
// Redis so every instance shares them.
type RateLimiter struct {
	client *redis.Client
	window time.Duration
	now    func() time.Time
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{
		client: client,
		window: defaultWindow,
		now:    time.Now,
	}
}

// windowKey returns the counter key for the window containing t and the window end
func (l *RateLimiter) windowKey(key string, t time.Time) (string, time.Time) {
	start := t.Truncate(l.window)
	return fmt.Sprintf("%s%s:%d", keyPrefix, key, start.Unix()), start.Add(l.window)
}

func (l *RateLimiter) AllowWithDetails(ctx context.Context, key string, limit int) (bool, int, time.Time, error) {
	if limit <= 0 {
		return true, -1, time.Time{}, nil
	}

	redisKey, resetAt := l.windowKey(key, l.now())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, time.Time{}, fmt.Errorf("failed to count attempt: %w", err)
	}

	count := int(incr.Val())
	if count > limit {
		return false, 0, resetAt, nil
	}
	return true, limit - count, resetAt, nil
}

// GetCurrentUsage returns the attempts counted in the current window
func (l *RateLimiter) GetCurrentUsage(ctx context.Context, key string) (int64, error) {
	redisKey, _ := l.windowKey(key, l.now())
	n, err := l.client.Get(ctx, redisKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read usage: %w", err)
	}
	return n, nil
}

// Reset clears the current window for key, e.g. after a successful login
func (l *RateLimiter) Reset(ctx context.Context, key string) error {
	redisKey, _ := l.windowKey(key, l.now())
	if err := l.client.Del(ctx, redisKey).Err(); err != nil {
		return fmt.Errorf("failed to reset limit: %w", err)
	}
	return nil
}

// NoopLimiter allows everything. Used when Redis is not configured.
type NoopLimiter struct{}

func NewNoopLimiter() *NoopLimiter {
	return &NoopLimiter{}
}

func (l *NoopLimiter) Allow(ctx context.Context, key string) bool {
	return true
}

func (l *NoopLimiter) AllowWithDetails(ctx context.Context, key string, limit int) (bool, int, time.Time, error) {
	return true, -1, time.Time{}, nil
}
