package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"propertychat/internal/domain/entity"
)

func TestProfileKey(t *testing.T) {
	assert.Equal(t, "profile:u1", profileKey("u1"))
}

func TestNoopProfileCache_AlwaysMisses(t *testing.T) {
	c := NoopProfileCache{}
	ctx := context.Background()

	assert.NoError(t, c.Set(ctx, &entity.UserProfile{ID: "u1"}))
	p, err := c.Get(ctx, "u1")
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestRedisProfileCache_SurfacesConnectionErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	c := NewRedisProfileCache(client, time.Minute)
	ctx := context.Background()

	p, err := c.Get(ctx, "u1")
	assert.Error(t, err)
	assert.Nil(t, p)
	assert.Error(t, c.Set(ctx, &entity.UserProfile{ID: "u1"}))
	assert.Error(t, c.Ping(ctx))
}
