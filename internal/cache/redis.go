package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	TTL       time.Duration
	KeyPrefix string
}

// RedisCache shares finished translations across instances. Lookups and
// writes are best effort: Redis trouble degrades to cache misses.
type RedisCache struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
	logger    *log.Logger
}

func NewRedisCache(ctx context.Context, cfg RedisConfig, logger *log.Logger) (*RedisCache, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "translate:segment:"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisCache{
		client:    client,
		ttl:       cfg.TTL,
		keyPrefix: cfg.KeyPrefix,
		logger:    logger,
	}, nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Get(ctx context.Context, signature string) (string, bool) {
	value, err := c.client.Get(ctx, c.keyPrefix+signature).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && c.logger != nil {
			c.logger.Printf("redis cache get failed: %v", err)
		}
		return "", false
	}
	return value, true
}

func (c *RedisCache) Set(ctx context.Context, signature, text string) {
	if err := c.client.Set(ctx, c.keyPrefix+signature, text, c.ttl).Err(); err != nil {
		if c.logger != nil {
			c.logger.Printf("redis cache set failed: %v", err)
		}
	}
}
