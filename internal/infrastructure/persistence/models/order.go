package models

import (
	"time"

	"github.com/erp/ordersync/internal/domain/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for the Order aggregate root.
type OrderModel struct {
	AggregateModel
	OrderNumber      string              `gorm:"type:varchar(50);not null;uniqueIndex:idx_orders_order_number"`
	CustomerName     string              `gorm:"type:varchar(200)"`
	CustomerEmail    string              `gorm:"type:varchar(200)"`
	CustomerPhone    string              `gorm:"type:varchar(50)"`
	ShipStreet       string              `gorm:"type:varchar(300)"`
	ShipCity         string              `gorm:"type:varchar(100)"`
	ShipPostalCode   string              `gorm:"type:varchar(20)"`
	ShipCountryCode  string              `gorm:"type:varchar(2)"`
	Currency         string              `gorm:"type:varchar(3);not null"`
	PaymentMethod    string              `gorm:"type:varchar(50)"`
	ShippingCost     decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	PaymentStatus    order.PaymentStatus `gorm:"type:varchar(20);not null;index:idx_orders_sync"`
	Status           order.OrderStatus   `gorm:"type:varchar(20);not null;index"`
	ExternalOrderID  *string             `gorm:"type:varchar(50);uniqueIndex:idx_orders_external_order_id"`
	ExternalSyncedAt *time.Time
	PaidSyncedAt     *time.Time `gorm:"index:idx_orders_sync"`
	SyncError        string     `gorm:"type:text"`
	PaidAt           *time.Time
	ShippedAt        *time.Time
	DeliveredAt      *time.Time
	CancelledAt      *time.Time
	RefundedAt       *time.Time
	Lines            []OrderLineModel          `gorm:"foreignKey:OrderID;references:ID"`
	History          []OrderStatusHistoryModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order aggregate.
func (m *OrderModel) ToDomain() *order.Order {
	o := &order.Order{
		BaseAggregateRoot: m.AggregateModel.ToDomainAggregateRoot(),
		OrderNumber:       m.OrderNumber,
		Customer: order.Customer{
			Name:  m.CustomerName,
			Email: m.CustomerEmail,
			Phone: m.CustomerPhone,
		},
		ShippingAddress: order.Address{
			Street:      m.ShipStreet,
			City:        m.ShipCity,
			PostalCode:  m.ShipPostalCode,
			CountryCode: m.ShipCountryCode,
		},
		Currency:         m.Currency,
		PaymentMethod:    m.PaymentMethod,
		ShippingCost:     m.ShippingCost,
		PaymentStatus:    m.PaymentStatus,
		Status:           m.Status,
		ExternalOrderID:  m.ExternalOrderID,
		ExternalSyncedAt: m.ExternalSyncedAt,
		PaidSyncedAt:     m.PaidSyncedAt,
		SyncError:        m.SyncError,
		PaidAt:           m.PaidAt,
		ShippedAt:        m.ShippedAt,
		DeliveredAt:      m.DeliveredAt,
		CancelledAt:      m.CancelledAt,
		RefundedAt:       m.RefundedAt,
		Lines:            make([]order.OrderLine, len(m.Lines)),
		History:          make([]order.StatusHistoryEntry, len(m.History)),
	}
	for i := range m.Lines {
		o.Lines[i] = m.Lines[i].ToDomain()
	}
	for i := range m.History {
		o.History[i] = m.History[i].ToDomain()
	}
	return o
}

// FromDomain populates the persistence model from a domain Order aggregate.
func (m *OrderModel) FromDomain(o *order.Order) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.OrderNumber = o.OrderNumber
	m.CustomerName = o.Customer.Name
	m.CustomerEmail = o.Customer.Email
	m.CustomerPhone = o.Customer.Phone
	m.ShipStreet = o.ShippingAddress.Street
	m.ShipCity = o.ShippingAddress.City
	m.ShipPostalCode = o.ShippingAddress.PostalCode
	m.ShipCountryCode = o.ShippingAddress.CountryCode
	m.Currency = o.Currency
	m.PaymentMethod = o.PaymentMethod
	m.ShippingCost = o.ShippingCost
	m.PaymentStatus = o.PaymentStatus
	m.Status = o.Status
	m.ExternalOrderID = o.ExternalOrderID
	m.ExternalSyncedAt = o.ExternalSyncedAt
	m.PaidSyncedAt = o.PaidSyncedAt
	m.SyncError = o.SyncError
	m.PaidAt = o.PaidAt
	m.ShippedAt = o.ShippedAt
	m.DeliveredAt = o.DeliveredAt
	m.CancelledAt = o.CancelledAt
	m.RefundedAt = o.RefundedAt

	m.Lines = make([]OrderLineModel, len(o.Lines))
	for i := range o.Lines {
		m.Lines[i].FromDomain(o.Lines[i])
	}
	m.History = make([]OrderStatusHistoryModel, len(o.History))
	for i := range o.History {
		m.History[i].FromDomain(o.History[i])
	}
}

// OrderModelFromDomain creates a new persistence model from a domain Order aggregate.
func OrderModelFromDomain(o *order.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// OrderLineModel is the persistence model for an order line.
type OrderLineModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index"`
	VariantID uuid.UUID       `gorm:"type:uuid;not null"`
	SKU       string          `gorm:"column:sku;type:varchar(100)"`
	Name      string          `gorm:"type:varchar(300);not null"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LineTotal decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (OrderLineModel) TableName() string {
	return "order_lines"
}

// ToDomain converts the persistence model to a domain OrderLine.
func (m *OrderLineModel) ToDomain() order.OrderLine {
	return order.OrderLine{
		ID:        m.ID,
		OrderID:   m.OrderID,
		ProductID: m.ProductID,
		VariantID: m.VariantID,
		SKU:       m.SKU,
		Name:      m.Name,
		Quantity:  m.Quantity,
		UnitPrice: m.UnitPrice,
		LineTotal: m.LineTotal,
	}
}

// FromDomain populates the persistence model from a domain OrderLine.
func (m *OrderLineModel) FromDomain(l order.OrderLine) {
	m.ID = l.ID
	m.OrderID = l.OrderID
	m.ProductID = l.ProductID
	m.VariantID = l.VariantID
	m.SKU = l.SKU
	m.Name = l.Name
	m.Quantity = l.Quantity
	m.UnitPrice = l.UnitPrice
	m.LineTotal = l.LineTotal
}

// OrderStatusHistoryModel is an append-only row of the order audit trail.
type OrderStatusHistoryModel struct {
	ID            uuid.UUID           `gorm:"type:uuid;primary_key"`
	OrderID       uuid.UUID           `gorm:"type:uuid;not null;index:idx_order_history_order,priority:1"`
	FromStatus    order.OrderStatus   `gorm:"type:varchar(20)"`
	ToStatus      order.OrderStatus   `gorm:"type:varchar(20);not null"`
	PaymentStatus order.PaymentStatus `gorm:"type:varchar(20);not null"`
	Source        order.HistorySource `gorm:"type:varchar(20);not null"`
	Note          string              `gorm:"type:text"`
	At            time.Time           `gorm:"not null;index:idx_order_history_order,priority:2"`
}

// TableName returns the table name for GORM
func (OrderStatusHistoryModel) TableName() string {
	return "order_status_history"
}

// ToDomain converts the persistence model to a domain history entry.
func (m *OrderStatusHistoryModel) ToDomain() order.StatusHistoryEntry {
	return order.StatusHistoryEntry{
		ID:            m.ID,
		OrderID:       m.OrderID,
		FromStatus:    m.FromStatus,
		ToStatus:      m.ToStatus,
		PaymentStatus: m.PaymentStatus,
		Source:        m.Source,
		Note:          m.Note,
		At:            m.At,
	}
}

// FromDomain populates the persistence model from a domain history entry.
func (m *OrderStatusHistoryModel) FromDomain(e order.StatusHistoryEntry) {
	m.ID = e.ID
	m.OrderID = e.OrderID
	m.FromStatus = e.FromStatus
	m.ToStatus = e.ToStatus
	m.PaymentStatus = e.PaymentStatus
	m.Source = e.Source
	m.Note = e.Note
	m.At = e.At
}
