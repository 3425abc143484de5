package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces payment event ids in a shared Redis
const DefaultKeyPrefix = "ordersync:payment-event:"

// RedisIdempotencyStore shares processed event ids across instances with SET NX
type RedisIdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
}

// RedisOptions holds the Redis connection settings
type RedisOptions struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// NewRedisIdempotencyStore connects and pings Redis
func NewRedisIdempotencyStore(ctx context.Context, opts RedisOptions) (*RedisIdempotencyStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: opts.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	return NewRedisIdempotencyStoreWithClient(client, ""), nil
}

// NewRedisIdempotencyStoreWithClient wraps an existing client
func NewRedisIdempotencyStoreWithClient(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &RedisIdempotencyStore{client: client, keyPrefix: keyPrefix}
}

// MarkProcessed sets the key only if absent; false means a redelivery
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.key(eventID), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark event %s: %w", eventID, err)
	}
	return ok, nil
}

// IsProcessed reports whether the key exists
func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check event %s: %w", eventID, err)
	}
	return n > 0, nil
}

// Forget deletes the key
func (s *RedisIdempotencyStore) Forget(ctx context.Context, eventID string) error {
	if err := s.client.Del(ctx, s.key(eventID)).Err(); err != nil {
		return fmt.Errorf("failed to forget event %s: %w", eventID, err)
	}
	return nil
}

// Close closes the client
func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}

func (s *RedisIdempotencyStore) key(eventID string) string {
	return s.keyPrefix + eventID
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
