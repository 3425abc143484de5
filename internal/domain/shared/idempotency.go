package shared

import (
	"context"
	"time"
)

// IdempotencyStore records which payment events were already applied.
// Keys expire after a TTL; the implementations are Redis and in-process.
type IdempotencyStore interface {
	// MarkProcessed claims eventID. It reports false if the ID was already claimed.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	// Forget releases a claim whose processing failed, so a redelivery is applied
	Forget(ctx context.Context, eventID string) error
	Close() error
}

// IdempotencyConfig controls duplicate suppression for payment events
type IdempotencyConfig struct {
	// TTL must exceed the payment provider's redelivery window
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig keeps claims for a day
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{TTL: 24 * time.Hour, Enabled: true}
}
