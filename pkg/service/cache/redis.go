package cache

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "newsrag:search:"

// Redis stores cached responses in a Redis server shared by all API instances
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to redisURL. A value that is not a redis:// URL is used as a plain address.
func NewRedis(ctx context.Context, redisURL string) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{Addr: redisURL}
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, goerr.Wrap(err, "failed to connect to redis", goerr.V("addr", opt.Addr))
	}

	return &Redis{client: client, prefix: defaultKeyPrefix}, nil
}

func (c *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to get cached response", goerr.V("key", key))
	}
	return value, true, nil
}

func (c *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return goerr.Wrap(err, "failed to set cached response", goerr.V("key", key))
	}
	return nil
}

func (c *Redis) Close() error {
	return c.client.Close()
}
