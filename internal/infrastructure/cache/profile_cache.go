package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"propertychat/internal/domain/entity"
)

func profileKey(id string) string { return "profile:" + id }

// RedisProfileCache keeps hydrated user profiles for a short TTL so list
// endpoints polled every few seconds do not hit the user directory each time.
type RedisProfileCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisProfileCache(client *redis.Client, ttl time.Duration) *RedisProfileCache {
	return &RedisProfileCache{client: client, ttl: ttl}
}

// Get returns nil, nil on a miss.
func (c *RedisProfileCache) Get(ctx context.Context, id string) (*entity.UserProfile, error) {
	b, err := c.client.Get(ctx, profileKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var p entity.UserProfile
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *RedisProfileCache) Set(ctx context.Context, p *entity.UserProfile) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, profileKey(p.ID), b, c.ttl).Err()
}

func (c *RedisProfileCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// NoopProfileCache is used when no Redis address is configured.
type NoopProfileCache struct{}

func (NoopProfileCache) Get(ctx context.Context, id string) (*entity.UserProfile, error) {
	return nil, nil
}

func (NoopProfileCache) Set(ctx context.Context, p *entity.UserProfile) error {
	return nil
}
