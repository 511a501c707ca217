package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kdimtricp/faik/internal/detection"
)

type RedisOptions struct {
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

// redisClient is the part of *redis.Client the cache uses.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

type RedisCache struct {
	client redisClient
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection with PING.
func NewRedisCache(ctx context.Context, opts RedisOptions) (*RedisCache, error) {
	if opts.Address == "" {
		opts.Address = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Address, err)
	}

	return &RedisCache{client: client, ttl: opts.TTL}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (*detection.AnalysisResult, error) {
	b, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	return decode(b)
}

func (c *RedisCache) Set(ctx context.Context, key string, result *detection.AnalysisResult) error {
	b, err := encode(result)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, b, c.ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
