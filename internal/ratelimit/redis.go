package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a fixed-window counter shared by every server instance.
type Redis struct {
	client *redis.Client
	limit  int64
	window time.Duration
	prefix string
}

// NewRedis allows perMinute requests per key per one-minute window.
func NewRedis(client *redis.Client, perMinute int) *Redis {
	return &Redis{
		client: client,
		limit:  int64(perMinute),
		window: time.Minute,
		prefix: "dishrank:ratelimit:",
	}
}

// Allow increments the window counter for key.
func (s *Redis) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := s.prefix + key

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("ratelimit: redis pipeline: %w", err)
	}

	remaining := ttl.Val()
	if remaining < 0 {
		// first hit in this window, or a key that lost its expiry
		if err := s.client.PExpire(ctx, k, s.window).Err(); err != nil {
			return false, 0, fmt.Errorf("ratelimit: redis expire: %w", err)
		}
		remaining = s.window
	}

	if incr.Val() > s.limit {
		if remaining < time.Second {
			remaining = time.Second
		}
		return false, remaining, nil
	}
	return true, 0, nil
}
