package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/agricoop/backend/internal/domain/shared"
	"github.com/agricoop/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// TokenStore is the cache the payment gateway keeps its access token in
type TokenStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, token string, ttl time.Duration) error
}

// Stores bundles the caches the service needs
type Stores struct {
	Idempotency shared.IdempotencyStore
	Tokens      TokenStore
	client      *redis.Client
	closers     []func() error
}

// Close releases every store and the Redis client, if any
func (s *Stores) Close() error {
	var firstErr error
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.client != nil {
		if err := s.client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// StoreFactory creates caches based on configuration
type StoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// StoreFactoryOption is a functional option for configuring the factory
type StoreFactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory stores when Redis is unavailable.
// Default is true (allow fallback)
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStoreFactory creates a new factory
func NewStoreFactory(cfg config.RedisConfig, opts ...StoreFactoryOption) *StoreFactory {
	f := &StoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// CreateStores returns Redis-backed stores when Redis is enabled and
// reachable, otherwise in-memory ones if fallback is allowed.
func (f *StoreFactory) CreateStores() (*Stores, error) {
	if f.redisConfig.Enabled {
		client, err := NewRedisClient(f.redisConfig)
		if err == nil {
			f.logger.Info("Using Redis for callback idempotency and token cache",
				zap.String("addr", f.redisConfig.Addr()))
			return &Stores{
				Idempotency: NewRedisIdempotencyStore(client, DefaultCallbackKeyPrefix),
				Tokens:      NewRedisTokenCache(client, "momo:token:"),
				client:      client,
			}, nil
		}
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("redis required but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory stores. "+
			"Callback dedupe and token caching will be per instance.",
			zap.Error(err))
	}
	return f.CreateInMemoryStores(), nil
}

// CreateInMemoryStores returns process-local stores
func (f *StoreFactory) CreateInMemoryStores() *Stores {
	idem := NewInMemoryIdempotencyStore()
	tokens := NewInMemoryTokenCache()
	return &Stores{
		Idempotency: idem,
		Tokens:      tokens,
		closers:     []func() error{idem.Close, tokens.Close},
	}
}
