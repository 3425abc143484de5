package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/ordersync/internal/domain/inventory"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/erp/ordersync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInventoryRepository implements inventory.Repository using GORM.
// Counters are only changed with column arithmetic in a single UPDATE.
type GormInventoryRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormInventoryRepository creates a new GormInventoryRepository
func NewGormInventoryRepository(db *gorm.DB) *GormInventoryRepository {
	return &GormInventoryRepository{db: db, now: time.Now}
}

// Find returns one stock record
func (r *GormInventoryRepository) Find(ctx context.Context, productID, variantID uuid.UUID) (*inventory.InventoryRecord, error) {
	var model models.InventoryRecordModel
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND variant_id = ?", productID, variantID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindMany returns the records for the given keys that exist
func (r *GormInventoryRepository) FindMany(ctx context.Context, keys []inventory.Key) ([]inventory.InventoryRecord, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	productIDs := make([]uuid.UUID, 0, len(keys))
	wanted := make(map[inventory.Key]bool, len(keys))
	for _, k := range keys {
		if !wanted[k] {
			productIDs = append(productIDs, k.ProductID)
		}
		wanted[k] = true
	}

	var rows []models.InventoryRecordModel
	if err := r.db.WithContext(ctx).
		Where("product_id IN ?", productIDs).
		Order("product_id, variant_id").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]inventory.InventoryRecord, 0, len(rows))
	for i := range rows {
		if wanted[inventory.Key{ProductID: rows[i].ProductID, VariantID: rows[i].VariantID}] {
			records = append(records, *rows[i].ToDomain())
		}
	}
	return records, nil
}

// Apply performs the adjustments in one transaction.
// Missing rows are created at zero first so the relative update always lands.
func (r *GormInventoryRepository) Apply(ctx context.Context, adjustments ...inventory.Adjustment) error {
	for _, a := range adjustments {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	now := r.now()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, a := range adjustments {
			if a.IsZero() {
				continue
			}
			if err := r.ensureRow(tx, a.ProductID, a.VariantID, now); err != nil {
				return err
			}
			if err := tx.Model(&models.InventoryRecordModel{}).
				Where("product_id = ? AND variant_id = ?", a.ProductID, a.VariantID).
				Updates(map[string]any{
					"quantity":   gorm.Expr("quantity + ?", a.QuantityDelta),
					"reserved":   gorm.Expr("reserved + ?", a.ReservedDelta),
					"updated_at": now,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SetQuantity overwrites owned stock and reports whether the stored value changed
func (r *GormInventoryRepository) SetQuantity(ctx context.Context, productID, variantID uuid.UUID, quantity int) (bool, error) {
	now := r.now()
	db := r.db.WithContext(ctx)

	result := db.Model(&models.InventoryRecordModel{}).
		Where("product_id = ? AND variant_id = ? AND quantity <> ?", productID, variantID, quantity).
		Updates(map[string]any{
			"quantity":   quantity,
			"updated_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	// no row changed: either the value matched or the row does not exist yet
	created := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.InventoryRecordModel{
		ProductID: productID,
		VariantID: variantID,
		Quantity:  quantity,
		UpdatedAt: now,
	})
	if created.Error != nil {
		return false, created.Error
	}
	return created.RowsAffected > 0, nil
}

func (r *GormInventoryRepository) ensureRow(tx *gorm.DB, productID, variantID uuid.UUID, now time.Time) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.InventoryRecordModel{
		ProductID: productID,
		VariantID: variantID,
		UpdatedAt: now,
	}).Error
}

// Ensure GormInventoryRepository implements inventory.Repository
var _ inventory.Repository = (*GormInventoryRepository)(nil)
