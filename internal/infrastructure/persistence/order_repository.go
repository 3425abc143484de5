package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/ordersync/internal/domain/order"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/erp/ordersync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) withAssociations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Lines").
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("at ASC")
		})
}

// FindByID finds an order by its ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var model models.OrderModel
	if err := r.withAssociations(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByExternalIDs loads the orders carrying any of the given ERP ids
func (r *GormOrderRepository) FindByExternalIDs(ctx context.Context, externalIDs []string) ([]*order.Order, error) {
	if len(externalIDs) == 0 {
		return nil, nil
	}
	var rows []models.OrderModel
	if err := r.withAssociations(ctx).
		Where("external_order_id IN ?", externalIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainOrders(rows), nil
}

// FindPendingSync returns orders the reconciliation sweep should push:
// unsynced paid orders, unsynced unpaid orders past the grace period,
// and synced paid orders whose payment has not reached the ERP.
func (r *GormOrderRepository) FindPendingSync(ctx context.Context, q order.PendingSyncQuery) ([]*order.Order, error) {
	closed := []order.OrderStatus{order.OrderStatusCancelled, order.OrderStatusRefunded}
	paid := order.PaymentStatusPaid

	unsynced := r.db.Where("external_order_id IS NULL AND status NOT IN ?", closed).
		Where(r.db.Where("payment_status = ?", paid).Or("created_at < ?", q.UnpaidCreatedBefore))
	lagging := r.db.Where("external_order_id IS NOT NULL AND payment_status = ? AND paid_synced_at IS NULL", paid)

	query := r.db.WithContext(ctx).
		Preload("Lines").
		Where(unsynced).Or(lagging).
		Order(clause.OrderBy{Expression: clause.Expr{
			SQL:  "CASE WHEN payment_status = ? THEN 0 ELSE 1 END, created_at ASC",
			Vars: []any{paid},
		}})
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var rows []models.OrderModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainOrders(rows), nil
}

// Create inserts a new order with its lines and initial history
func (r *GormOrderRepository) Create(ctx context.Context, o *order.Order) error {
	model := models.OrderModelFromDomain(o)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
			return err
		}
		if len(model.Lines) > 0 {
			if err := tx.Create(&model.Lines).Error; err != nil {
				return err
			}
		}
		return r.appendHistory(tx, model.History)
	})
}

// Save writes the status and payment state with an optimistic version check and
// appends history entries not stored yet.
// ERP sync columns are owned by AssignExternalID, MarkPaidSynced and RecordSyncError
// and are never written here, so a stale copy cannot clear them.
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	model := models.OrderModelFromDomain(o)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.OrderModel{}).
			Where("id = ? AND version = ?", o.ID, o.Version).
			Updates(map[string]any{
				"payment_status": model.PaymentStatus,
				"status":         model.Status,
				"paid_at":        model.PaidAt,
				"shipped_at":     model.ShippedAt,
				"delivered_at":   model.DeliveredAt,
				"cancelled_at":   model.CancelledAt,
				"refunded_at":    model.RefundedAt,
				"updated_at":     model.UpdatedAt,
				"version":        gorm.Expr("version + 1"),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return r.missingOrConflict(tx, o.ID)
		}
		if err := r.appendHistory(tx, model.History); err != nil {
			return err
		}
		o.IncrementVersion()
		return nil
	})
}

// appendHistory inserts entries, skipping those already stored
func (r *GormOrderRepository) appendHistory(tx *gorm.DB, history []models.OrderStatusHistoryModel) error {
	if len(history) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&history).Error
}

func (r *GormOrderRepository) missingOrConflict(tx *gorm.DB, id uuid.UUID) error {
	var count int64
	if err := tx.Model(&models.OrderModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return shared.ErrNotFound
	}
	return shared.ErrConcurrencyConflict
}

// AssignExternalID stores the ERP id only if none is stored yet.
// Storing the same id again reports true.
func (r *GormOrderRepository) AssignExternalID(ctx context.Context, id uuid.UUID, externalID string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("id = ? AND external_order_id IS NULL", id).
		Updates(map[string]any{
			"external_order_id":  externalID,
			"external_synced_at": at,
			"sync_error":         "",
			"updated_at":         at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 1 {
		return true, nil
	}

	var stored struct{ ExternalOrderID *string }
	if err := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Select("external_order_id").
		Where("id = ?", id).
		Take(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, shared.ErrNotFound
		}
		return false, err
	}
	return stored.ExternalOrderID != nil && *stored.ExternalOrderID == externalID, nil
}

// MarkPaidSynced records that the ERP has the payment
func (r *GormOrderRepository) MarkPaidSynced(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("id = ? AND paid_synced_at IS NULL", id).
		Updates(map[string]any{
			"paid_synced_at": at,
			"sync_error":     "",
		}).Error
}

// RecordSyncError stores the last push failure; empty clears it
func (r *GormOrderRepository) RecordSyncError(ctx context.Context, id uuid.UUID, message string) error {
	if len(message) > 2000 {
		message = message[:2000]
	}
	return r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("id = ?", id).
		Update("sync_error", message).Error
}

func toDomainOrders(rows []models.OrderModel) []*order.Order {
	orders := make([]*order.Order, len(rows))
	for i := range rows {
		orders[i] = rows[i].ToDomain()
	}
	return orders
}

// Ensure GormOrderRepository implements order.Repository
var _ order.Repository = (*GormOrderRepository)(nil)
