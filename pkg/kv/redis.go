package kv

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/cloudcore-storefront/pkg/redis"
)

type redisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	CartKey(sessionID, name string) string
}

var _ redisClient = (*redis.Client)(nil)

// Redis stores snapshots under the storefront's redis key namespace.
type Redis struct {
	client redisClient
}

// NewRedis adapts the shared redis client to Store.
func NewRedis(client redisClient) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, r.client.CartKey(key, ""))
	if errors.Is(err, goredis.Nil) {
		return "", ErrNotFound
	}
	return value, err
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, r.client.CartKey(key, ""), value, ttl)
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.client.CartKey(key, ""))
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}
