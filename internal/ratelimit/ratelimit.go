// Package ratelimit implements a fixed-window request limiter backed by Redis,
// so the limit holds across replicas.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/intinc/interact-engine/internal/config"
	"github.com/intinc/interact-engine/pkg/logger"
)

// Limiter counts requests per key in fixed windows. The window starts on the
// first request for a key and expires with the Redis TTL.
type Limiter struct {
	client *redis.Client
	max    int
	window time.Duration
	log    *logger.Logger
}

// NewClient creates a Redis client from configuration and verifies the
// connection.
func NewClient(cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// NewLimiter creates a limiter allowing max requests per window per key.
func NewLimiter(client *redis.Client, max int, window time.Duration, log *logger.Logger) *Limiter {
	return &Limiter{client: client, max: max, window: window, log: log}
}

// Allow consumes one request for key and reports whether it fits the window.
// A Redis failure fails open: limiting is protection, not a correctness
// guarantee, and a dead Redis must not take the API down with it.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := "ratelimit:" + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		l.log.Error().Err(err).Str("key", key).Msg("Rate limiter unavailable, allowing request")
		return true, err
	}

	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			l.log.Error().Err(err).Str("key", key).Msg("Failed to set rate limit window TTL")
		}
	}

	return count <= int64(l.max), nil
}

// Remaining reports how many requests the key has left in the current window.
func (l *Limiter) Remaining(ctx context.Context, key string) (int, error) {
	count, err := l.client.Get(ctx, "ratelimit:"+key).Int64()
	if err == redis.Nil {
		return l.max, nil
	}
	if err != nil {
		return 0, err
	}
	remaining := int(int64(l.max) - count)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
