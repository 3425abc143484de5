package inventory

import (
	"context"
	"time"

	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/google/uuid"
)

// InventoryRecord is the local stock of one product variant.
// Products without variants use uuid.Nil as VariantID.
type InventoryRecord struct {
	ProductID uuid.UUID
	VariantID uuid.UUID
	// Quantity is owned stock
	Quantity int
	// Reserved is held by orders that have not shipped yet
	Reserved  int
	UpdatedAt time.Time
}

// Available returns quantity minus reserved.
// reserved <= quantity is a target, not an invariant; the result may be negative
// until the next stock sync reconciles it.
func (r *InventoryRecord) Available() int {
	return r.Quantity - r.Reserved
}

// IsOversold returns true when more is reserved than owned
func (r *InventoryRecord) IsOversold() bool {
	return r.Reserved > r.Quantity
}

// Key identifies a stock row
type Key struct {
	ProductID uuid.UUID
	VariantID uuid.UUID
}

// Adjustment is a relative change to one stock row.
// Deltas are applied with atomic column arithmetic, never read-modify-write.
type Adjustment struct {
	ProductID     uuid.UUID
	VariantID     uuid.UUID
	QuantityDelta int
	ReservedDelta int
}

// IsZero returns true if the adjustment changes nothing
func (a Adjustment) IsZero() bool {
	return a.QuantityDelta == 0 && a.ReservedDelta == 0
}

// Validate checks the adjustment references a product
func (a Adjustment) Validate() error {
	if a.ProductID == uuid.Nil {
		return shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	return nil
}

// Repository persists inventory records
type Repository interface {
	// Find returns one record
	Find(ctx context.Context, productID, variantID uuid.UUID) (*InventoryRecord, error)
	// FindMany returns the records for the given keys that exist
	FindMany(ctx context.Context, keys []Key) ([]InventoryRecord, error)
	// Apply performs the adjustments atomically, creating missing rows at zero first
	Apply(ctx context.Context, adjustments ...Adjustment) error
	// SetQuantity overwrites owned stock. Returns true if the stored value changed.
	SetQuantity(ctx context.Context, productID, variantID uuid.UUID, quantity int) (bool, error)
}
