package erp

import (
	"github.com/shopspring/decimal"
)

// BaseLinker method names
const (
	MethodAddOrder                  = "addOrder"
	MethodSetOrderStatus            = "setOrderStatus"
	MethodSetOrderPayment           = "setOrderPayment"
	MethodSetOrderFields            = "setOrderFields"
	MethodGetOrders                 = "getOrders"
	MethodGetJournalList            = "getJournalList"
	MethodGetInventoryProductsStock = "getInventoryProductsStock"
	MethodGetInventoryCategories    = "getInventoryCategories"
	MethodGetInventoryProductsList  = "getInventoryProductsList"
	MethodGetInventoryProductsData  = "getInventoryProductsData"
	productsDataChunk               = 100
	journalStatusChange             = 18
	inventoryStorage                = "bl"
)

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

type blOrderProduct struct {
	Storage     string  `json:"storage"`
	StorageID   string  `json:"storage_id"`
	ProductID   string  `json:"product_id"`
	VariantID   string  `json:"variant_id,omitempty"`
	Name        string  `json:"name"`
	SKU         string  `json:"sku,omitempty"`
	PriceBrutto float64 `json:"price_brutto"`
	Quantity    int     `json:"quantity"`
}

type blAddOrderRequest struct {
	OrderStatusID       int              `json:"order_status_id"`
	DateAdd             int64            `json:"date_add"`
	Currency            string           `json:"currency"`
	PaymentMethod       string           `json:"payment_method,omitempty"`
	Paid                int              `json:"paid"`
	Email               string           `json:"email,omitempty"`
	Phone               string           `json:"phone,omitempty"`
	AdminComments       string           `json:"admin_comments,omitempty"`
	DeliveryPrice       float64          `json:"delivery_price"`
	DeliveryFullname    string           `json:"delivery_fullname,omitempty"`
	DeliveryAddress     string           `json:"delivery_address,omitempty"`
	DeliveryCity        string           `json:"delivery_city,omitempty"`
	DeliveryPostcode    string           `json:"delivery_postcode,omitempty"`
	DeliveryCountryCode string           `json:"delivery_country_code,omitempty"`
	ExtraField1         string           `json:"extra_field_1,omitempty"`
	ExtraField2         string           `json:"extra_field_2,omitempty"`
	Products            []blOrderProduct `json:"products"`
}

type blAddOrderResponse struct {
	OrderID int64 `json:"order_id"`
}

type blSetOrderStatusRequest struct {
	OrderID  string `json:"order_id"`
	StatusID int    `json:"status_id"`
}

type blSetOrderPaymentRequest struct {
	OrderID        string  `json:"order_id"`
	PaymentDone    float64 `json:"payment_done"`
	PaymentDate    int64   `json:"payment_date"`
	PaymentComment string  `json:"payment_comment,omitempty"`
}

type blGetOrdersRequest struct {
	OrderID              int64 `json:"order_id"`
	GetUnconfirmedOrders bool  `json:"get_unconfirmed_orders"`
}

type blGetJournalListRequest struct {
	LastLogID int64 `json:"last_log_id"`
	LogsTypes []int `json:"logs_types"`
}

type blJournalEntry struct {
	LogID   int64 `json:"log_id"`
	LogType int   `json:"log_type"`
	OrderID int64 `json:"order_id"`
	Date    int64 `json:"date"`
}

type blGetJournalListResponse struct {
	Logs []blJournalEntry `json:"logs"`
}

type blOrder struct {
	OrderID       int64  `json:"order_id"`
	OrderStatusID int    `json:"order_status_id"`
	DateInStatus  int64  `json:"date_in_status"`
	ExtraField2   string `json:"extra_field_2"`
}

type blGetOrdersResponse struct {
	Orders []blOrder `json:"orders"`
}

// ---------------------------------------------------------------------------
// Inventory
// ---------------------------------------------------------------------------

type blInventoryPageRequest struct {
	InventoryID string `json:"inventory_id"`
	Page        int    `json:"page"`
}

type blStockProduct struct {
	ProductID int64                         `json:"product_id"`
	Stock     map[string]float64            `json:"stock"`
	Variants  map[string]map[string]float64 `json:"variants"`
}

type blStockResponse struct {
	Products map[string]blStockProduct `json:"products"`
}

type blCategoriesRequest struct {
	InventoryID string `json:"inventory_id"`
}

type blCategory struct {
	CategoryID int64  `json:"category_id"`
	Name       string `json:"name"`
	ParentID   int64  `json:"parent_id"`
}

type blCategoriesResponse struct {
	Categories []blCategory `json:"categories"`
}

type blListedProduct struct {
	ID   int64  `json:"id"`
	SKU  string `json:"sku"`
	Name string `json:"name"`
}

type blProductsListResponse struct {
	Products map[string]blListedProduct `json:"products"`
}

type blProductsDataRequest struct {
	InventoryID string  `json:"inventory_id"`
	Products    []int64 `json:"products"`
}

type blVariant struct {
	Name string `json:"name"`
	SKU  string `json:"sku"`
}

type blProductData struct {
	SKU        string                     `json:"sku"`
	EAN        string                     `json:"ean"`
	CategoryID int64                      `json:"category_id"`
	Tags       []string                   `json:"tags"`
	TextFields map[string]any             `json:"text_fields"`
	Prices     map[string]decimal.Decimal `json:"prices"`
	Images     map[string]string          `json:"images"`
	Variants   map[string]blVariant       `json:"variants"`
}

type blProductsDataResponse struct {
	Products map[string]blProductData `json:"products"`
}
