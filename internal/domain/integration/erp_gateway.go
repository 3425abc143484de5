package integration

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// ERP Payload Types
// ---------------------------------------------------------------------------

// ErpOrderProduct is one order line in the ERP representation
type ErpOrderProduct struct {
	// InventoryID is the ERP inventory the line is taken from
	InventoryID string
	// ProductID is the ERP product id (empty for unlinked products)
	ProductID string
	// VariantID is the ERP variant id
	VariantID string
	SKU       string
	Name      string
	Quantity  int
	// UnitPriceGross includes tax
	UnitPriceGross decimal.Decimal
}

// ErpPackage groups the lines shipped from one inventory
type ErpPackage struct {
	InventoryID  string
	ShippingCost decimal.Decimal
	Products     []ErpOrderProduct
}

// ErpAddress is a delivery address
type ErpAddress struct {
	FullName    string
	Street      string
	City        string
	PostalCode  string
	CountryCode string
}

// ErpNewOrder is the addOrder payload
type ErpNewOrder struct {
	// ShopOrderID is the local order number, echoed back by the ERP for reconciliation
	ShopOrderID   string
	StatusID      int
	Currency      string
	PaymentMethod string
	// Paid is true when the payment is already confirmed
	Paid         bool
	Email        string
	Phone        string
	Address      ErpAddress
	ShippingCost decimal.Decimal
	Packages     []ErpPackage
	CreatedAt    time.Time
}

// ErpPayment is the setOrderPayment payload
type ErpPayment struct {
	Amount  decimal.Decimal
	PaidAt  time.Time
	Comment string
}

// ErpOrderState is the ERP-side state of an order, as returned by getOrders
type ErpOrderState struct {
	OrderID     string
	ShopOrderID string
	StatusID    int
	ChangedAt   time.Time
}

// ErpStatusChange is one status-change event from the ERP order journal
type ErpStatusChange struct {
	// LogID increases monotonically and is the journal cursor
	LogID   int64
	OrderID string
	At      time.Time
}

// ErpStockEntry is the stock of one product or variant in one inventory
type ErpStockEntry struct {
	ProductID string
	VariantID string
	Quantity  int
}

// ErpCategory is a catalog category
type ErpCategory struct {
	CategoryID string
	Name       string
	ParentID   string
}

// ErpProduct is a catalog product summary with its images
type ErpProduct struct {
	ProductID  string
	SKU        string
	EAN        string
	Name       string
	CategoryID string
	Price      decimal.Decimal
	Tags       []string
	ImageURLs  []string
	Variants   []ErpVariant
}

// ErpVariant is a product variant
type ErpVariant struct {
	VariantID string
	SKU       string
	Name      string
}

// ---------------------------------------------------------------------------
// ErpGateway Port Interface
// ---------------------------------------------------------------------------

// ErpGateway is the port for the ERP's remote procedure endpoint.
// Every implementation call is rate limited and retried by the adapter;
// errors are ErpApiError, TransportError or ConfigurationError.
type ErpGateway interface {
	// AddOrder creates an order and returns its ERP id
	AddOrder(ctx context.Context, o ErpNewOrder) (string, error)
	// SetOrderStatus moves an order to a status id
	SetOrderStatus(ctx context.Context, erpOrderID string, statusID int) error
	// SetOrderPayment records the paid amount and date
	SetOrderPayment(ctx context.Context, erpOrderID string, payment ErpPayment) error
	// SetOrderFields writes free-form order fields (e.g. a refund reason)
	SetOrderFields(ctx context.Context, erpOrderID string, fields map[string]string) error
	// OrderStatusChanges returns journal status-change events after the given log id, oldest first
	OrderStatusChanges(ctx context.Context, afterLogID int64) ([]ErpStatusChange, error)
	// GetOrdersByID returns the current state of the given orders; unknown ids are omitted
	GetOrdersByID(ctx context.Context, erpOrderIDs []string) ([]ErpOrderState, error)
	// ListInventoryStock returns every stock entry of an inventory
	ListInventoryStock(ctx context.Context, inventoryID string) ([]ErpStockEntry, error)
	// ListCategories returns the categories of an inventory
	ListCategories(ctx context.Context, inventoryID string) ([]ErpCategory, error)
	// ListProducts returns the products of an inventory with details
	ListProducts(ctx context.Context, inventoryID string) ([]ErpProduct, error)
}

// ErpConnector opens a gateway bound to a decrypted token.
// The token is held only for the lifetime of the returned gateway.
type ErpConnector interface {
	Connect(token string) ErpGateway
}
