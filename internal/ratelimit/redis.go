package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter shares the interval window between processes using SETNX
// with an expiry. Redis errors fail open.
type RedisLimiter struct {
	client      *redis.Client
	prefix      string
	minInterval time.Duration
}

func NewRedis(client *redis.Client, prefix string, minInterval time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, minInterval: minInterval}
}

func (l *RedisLimiter) Allow(key string) bool {
	if l.client == nil {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ok, err := l.client.SetNX(ctx, l.prefix+key, 1, l.minInterval).Result()
	if err != nil {
		return true
	}
	return ok
}
