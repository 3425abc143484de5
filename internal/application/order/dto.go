package order

import (
	"time"

	"github.com/erp/ordersync/internal/domain/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlaceOrderRequest is a checkout submitted by the storefront
type PlaceOrderRequest struct {
	OrderNumber   string           `json:"order_number" validate:"required,max=50"`
	CustomerName  string           `json:"customer_name" validate:"required,max=200"`
	Email         string           `json:"email" validate:"required,email"`
	Phone         string           `json:"phone" validate:"omitempty,max=50"`
	Street        string           `json:"street" validate:"required"`
	City          string           `json:"city" validate:"required"`
	PostalCode    string           `json:"postal_code" validate:"required"`
	CountryCode   string           `json:"country_code" validate:"required,len=2"`
	Currency      string           `json:"currency" validate:"required,len=3"`
	PaymentMethod string           `json:"payment_method" validate:"required"`
	ShippingCost  decimal.Decimal  `json:"shipping_cost"`
	Lines         []PlaceOrderLine `json:"lines" validate:"required,min=1,dive"`
}

// PlaceOrderLine is one requested item. Price, SKU and name come from the catalog.
type PlaceOrderLine struct {
	ProductID uuid.UUID  `json:"product_id" validate:"required"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int        `json:"quantity" validate:"required,min=1"`
}

// OrderLineResponse is an order line view
type OrderLineResponse struct {
	ProductID uuid.UUID       `json:"product_id"`
	VariantID *uuid.UUID      `json:"variant_id,omitempty"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// HistoryResponse is a status history entry view
type HistoryResponse struct {
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status"`
	Source     string    `json:"source"`
	Note       string    `json:"note,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// OrderResponse is the order view returned by the API
type OrderResponse struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"order_number"`
	Status          string              `json:"status"`
	PaymentStatus   string              `json:"payment_status"`
	Currency        string              `json:"currency"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	ShippingCost    decimal.Decimal     `json:"shipping_cost"`
	Total           decimal.Decimal     `json:"total"`
	ExternalOrderID string              `json:"external_order_id,omitempty"`
	SyncError       string              `json:"sync_error,omitempty"`
	PaidAt          *time.Time          `json:"paid_at,omitempty"`
	PaidSyncedAt    *time.Time          `json:"paid_synced_at,omitempty"`
	Lines           []OrderLineResponse `json:"lines"`
	History         []HistoryResponse   `json:"history"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// ToOrderResponse converts a domain order
func ToOrderResponse(o *order.Order) OrderResponse {
	resp := OrderResponse{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		Status:        o.Status.String(),
		PaymentStatus: o.PaymentStatus.String(),
		Currency:      o.Currency,
		Subtotal:      o.Subtotal(),
		ShippingCost:  o.ShippingCost,
		Total:         o.Total(),
		SyncError:     o.SyncError,
		PaidAt:        o.PaidAt,
		PaidSyncedAt:  o.PaidSyncedAt,
		Lines:         make([]OrderLineResponse, 0, len(o.Lines)),
		History:       make([]HistoryResponse, 0, len(o.History)),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	if o.ExternalOrderID != nil {
		resp.ExternalOrderID = *o.ExternalOrderID
	}
	for _, l := range o.Lines {
		line := OrderLineResponse{
			ProductID: l.ProductID,
			SKU:       l.SKU,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			LineTotal: l.LineTotal,
		}
		if l.VariantID != uuid.Nil {
			v := l.VariantID
			line.VariantID = &v
		}
		resp.Lines = append(resp.Lines, line)
	}
	for _, h := range o.History {
		resp.History = append(resp.History, HistoryResponse{
			FromStatus: h.FromStatus.String(),
			ToStatus:   h.ToStatus.String(),
			Source:     string(h.Source),
			Note:       h.Note,
			OccurredAt: h.At,
		})
	}
	return resp
}
