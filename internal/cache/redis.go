package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "content:"

// Redis is a content cache shared between replicas, evicted by TTL. Errors
// degrade to cache misses; the serving path re-scrapes instead of failing.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, url string) (string, bool) {
	text, err := r.client.Get(ctx, redisKeyPrefix+url).Result()
	if err != nil {
		return "", false
	}
	return text, true
}

func (r *Redis) Set(ctx context.Context, url, text string) {
	_ = r.client.Set(ctx, redisKeyPrefix+url, text, r.ttl).Err()
}
