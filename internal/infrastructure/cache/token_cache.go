package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTokenCache stores short-lived access tokens in Redis so instances
// share one token per provider account.
type RedisTokenCache struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisTokenCache creates a token cache on an existing Redis client
func NewRedisTokenCache(client redis.UniversalClient, keyPrefix string) *RedisTokenCache {
	if keyPrefix == "" {
		keyPrefix = "token:"
	}
	return &RedisTokenCache{client: client, keyPrefix: keyPrefix}
}

// Get returns the cached token, if present
func (c *RedisTokenCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, c.keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cached token: %w", err)
	}
	return val, true, nil
}

// Set stores a token for ttl, replacing any previous value
func (c *RedisTokenCache) Set(ctx context.Context, key, token string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.keyPrefix+key, token, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache token: %w", err)
	}
	return nil
}

// InMemoryTokenCache keeps tokens in process memory
type InMemoryTokenCache struct {
	entries *ttlMap
}

// NewInMemoryTokenCache creates an in-memory token cache
func NewInMemoryTokenCache() *InMemoryTokenCache {
	return &InMemoryTokenCache{entries: newTTLMap(time.Minute)}
}

// Get returns the cached token, if present and not expired
func (c *InMemoryTokenCache) Get(_ context.Context, key string) (string, bool, error) {
	val, ok := c.entries.get(key)
	return val, ok, nil
}

// Set stores a token for ttl. Last writer wins.
func (c *InMemoryTokenCache) Set(_ context.Context, key, token string, ttl time.Duration) error {
	c.entries.set(key, token, ttl)
	return nil
}

// Close stops the cleanup goroutine
func (c *InMemoryTokenCache) Close() error {
	c.entries.close()
	return nil
}
