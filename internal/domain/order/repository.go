package order

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PendingSyncQuery selects orders the reconciliation sweep should push
type PendingSyncQuery struct {
	// UnpaidCreatedBefore includes unsynced unpaid orders older than this
	UnpaidCreatedBefore time.Time
	Limit               int
}

// Repository persists orders together with their lines and history
type Repository interface {
	// FindByID loads an order with lines and full history
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// FindByExternalIDs loads the orders that carry any of the given ERP ids
	FindByExternalIDs(ctx context.Context, externalIDs []string) ([]*Order, error)
	// FindPendingSync returns orders lacking an ERP id or an ERP payment,
	// paid orders first, oldest first
	FindPendingSync(ctx context.Context, q PendingSyncQuery) ([]*Order, error)
	// Create inserts a new order with its lines and history
	Create(ctx context.Context, o *Order) error
	// Save writes the mutable state with an optimistic version check and appends new history
	Save(ctx context.Context, o *Order) error
	// AssignExternalID stores the ERP id only if none is stored yet.
	// Returns false when another id was already present.
	AssignExternalID(ctx context.Context, id uuid.UUID, externalID string, at time.Time) (bool, error)
	// MarkPaidSynced records that the ERP has the payment
	MarkPaidSynced(ctx context.Context, id uuid.UUID, at time.Time) error
	// RecordSyncError stores the last push failure for admins; empty clears it
	RecordSyncError(ctx context.Context, id uuid.UUID, message string) error
}
