package cache

import (
	"context"
	"fmt"

	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/erp/ordersync/internal/infrastructure/config"
	"go.uber.org/zap"
)

// IdempotencyStoreFactory picks the payment-event store from configuration
type IdempotencyStoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// IdempotencyStoreFactoryOption configures the factory
type IdempotencyStoreFactoryOption func(*IdempotencyStoreFactory)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls the fallback when Redis is enabled but unreachable
func WithInMemoryFallback(allow bool) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewIdempotencyStoreFactory creates a factory; fallback is allowed by default
func NewIdempotencyStoreFactory(cfg config.RedisConfig, opts ...IdempotencyStoreFactoryOption) *IdempotencyStoreFactory {
	f := &IdempotencyStoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns a Redis store when Redis is enabled and reachable,
// otherwise an in-memory one (unless fallback is disabled)
func (f *IdempotencyStoreFactory) CreateStore(ctx context.Context) (shared.IdempotencyStore, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(), nil
	}

	store, err := NewRedisIdempotencyStore(ctx, RedisOptions{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err == nil {
		f.logger.Info("Using Redis idempotency store", zap.String("addr", f.redisConfig.Addr()))
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for payment event deduplication: %w", err)
	}
	f.logger.Warn("Redis unavailable, falling back to in-memory idempotency store; "+
		"redelivered payment events may be applied twice across instances",
		zap.Error(err),
	)
	return NewInMemoryIdempotencyStore(), nil
}
