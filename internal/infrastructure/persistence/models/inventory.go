package models

import (
	"time"

	"github.com/erp/ordersync/internal/domain/inventory"
	"github.com/google/uuid"
)

// InventoryRecordModel is the persistence model for one product variant's stock.
// Products without variants store the nil UUID as variant id.
type InventoryRecordModel struct {
	ProductID uuid.UUID `gorm:"type:uuid;primaryKey"`
	VariantID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Quantity  int       `gorm:"not null;default:0"`
	Reserved  int       `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InventoryRecordModel) TableName() string {
	return "inventory_records"
}

// ToDomain converts the persistence model to a domain InventoryRecord.
func (m *InventoryRecordModel) ToDomain() *inventory.InventoryRecord {
	return &inventory.InventoryRecord{
		ProductID: m.ProductID,
		VariantID: m.VariantID,
		Quantity:  m.Quantity,
		Reserved:  m.Reserved,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain InventoryRecord.
func (m *InventoryRecordModel) FromDomain(r *inventory.InventoryRecord) {
	m.ProductID = r.ProductID
	m.VariantID = r.VariantID
	m.Quantity = r.Quantity
	m.Reserved = r.Reserved
	m.UpdatedAt = r.UpdatedAt
}
