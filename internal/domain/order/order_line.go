package order

import (
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLine is an immutable order item
type OrderLine struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	// VariantID is uuid.Nil for products without variants
	VariantID uuid.UUID
	SKU       string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal // UnitPrice * Quantity
}

// LineInput describes a line at checkout
type LineInput struct {
	ProductID uuid.UUID
	VariantID uuid.UUID
	SKU       string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// NewOrderLine creates an order line, computing its total
func NewOrderLine(orderID uuid.UUID, in LineInput) (OrderLine, error) {
	if in.ProductID == uuid.Nil {
		return OrderLine{}, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if in.Name == "" {
		return OrderLine{}, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if in.Quantity <= 0 {
		return OrderLine{}, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if in.UnitPrice.IsNegative() {
		return OrderLine{}, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}

	return OrderLine{
		ID:        uuid.New(),
		OrderID:   orderID,
		ProductID: in.ProductID,
		VariantID: in.VariantID,
		SKU:       in.SKU,
		Name:      in.Name,
		Quantity:  in.Quantity,
		UnitPrice: in.UnitPrice,
		LineTotal: in.UnitPrice.Mul(decimal.NewFromInt(int64(in.Quantity))),
	}, nil
}
