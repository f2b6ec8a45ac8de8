// ABOUTME: Redis-backed fixed-window limiter for multi-instance deployments.
// ABOUTME: INCR with expiry on first hit keeps increment-and-check atomic across processes.

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "studybuddy:ratelimit:"

// Redis is a fixed-window limiter shared across gateway instances.
type Redis struct {
	client    *redis.Client
	maxEvents int
	window    time.Duration
}

// NewRedis creates a Redis-backed limiter using the given client.
func NewRedis(client *redis.Client, maxEvents int, window time.Duration) *Redis {
	return &Redis{
		client:    client,
		maxEvents: maxEvents,
		window:    window,
	}
}

// Allow increments the identity's window counter and checks it against
// the limit. The key expires with the window, so counting restarts
// automatically once the window elapses.
func (r *Redis) Allow(ctx context.Context, identity string) (bool, error) {
	key := redisKeyPrefix + identity

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("incrementing rate counter: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, r.window).Err(); err != nil {
			return false, fmt.Errorf("setting rate window expiry: %w", err)
		}
	}

	return count <= int64(r.maxEvents), nil
}

// Ping verifies the Redis connection at startup.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	return nil
}
