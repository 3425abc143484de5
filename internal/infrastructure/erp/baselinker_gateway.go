package erp

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erp/ordersync/internal/domain/integration"
)

// Ensure BaselinkerGateway implements ErpGateway
var _ integration.ErpGateway = (*BaselinkerGateway)(nil)

// Ensure Client implements ErpConnector
var _ integration.ErpConnector = (*Client)(nil)

// BaselinkerGateway maps ErpGateway operations onto BaseLinker methods for one token
type BaselinkerGateway struct {
	client *Client
	token  string
}

// NewBaselinkerGateway creates a gateway bound to token
func NewBaselinkerGateway(client *Client, token string) *BaselinkerGateway {
	return &BaselinkerGateway{client: client, token: token}
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// AddOrder creates the ERP order. Packages are flattened into products bound
// to their inventory; the package shipping split goes into the admin comment.
func (g *BaselinkerGateway) AddOrder(ctx context.Context, o integration.ErpNewOrder) (string, error) {
	req := blAddOrderRequest{
		OrderStatusID:       o.StatusID,
		DateAdd:             o.CreatedAt.Unix(),
		Currency:            o.Currency,
		PaymentMethod:       o.PaymentMethod,
		Email:               o.Email,
		Phone:               o.Phone,
		DeliveryPrice:       o.ShippingCost.InexactFloat64(),
		DeliveryFullname:    o.Address.FullName,
		DeliveryAddress:     o.Address.Street,
		DeliveryCity:        o.Address.City,
		DeliveryPostcode:    o.Address.PostalCode,
		DeliveryCountryCode: o.Address.CountryCode,
		ExtraField2:         o.ShopOrderID,
		AdminComments:       packageSummary(o.Packages),
	}
	if o.Paid {
		req.Paid = 1
	}
	for _, pkg := range o.Packages {
		for _, p := range pkg.Products {
			req.Products = append(req.Products, blOrderProduct{
				Storage:     inventoryStorage,
				StorageID:   pkg.InventoryID,
				ProductID:   p.ProductID,
				VariantID:   p.VariantID,
				Name:        p.Name,
				SKU:         p.SKU,
				PriceBrutto: p.UnitPriceGross.InexactFloat64(),
				Quantity:    p.Quantity,
			})
		}
	}
	if len(req.Products) == 0 {
		return "", integration.ErrEmptyOrder
	}

	var resp blAddOrderResponse
	if err := g.client.Call(ctx, g.token, MethodAddOrder, req, &resp); err != nil {
		return "", err
	}
	if resp.OrderID <= 0 {
		return "", &integration.ErpApiError{Method: MethodAddOrder, Code: "INVALID_RESPONSE", Message: "missing order_id"}
	}
	return strconv.FormatInt(resp.OrderID, 10), nil
}

// SetOrderStatus moves an ERP order to statusID
func (g *BaselinkerGateway) SetOrderStatus(ctx context.Context, erpOrderID string, statusID int) error {
	return g.client.Call(ctx, g.token, MethodSetOrderStatus, blSetOrderStatusRequest{
		OrderID:  erpOrderID,
		StatusID: statusID,
	}, nil)
}

// SetOrderPayment records the paid amount
func (g *BaselinkerGateway) SetOrderPayment(ctx context.Context, erpOrderID string, payment integration.ErpPayment) error {
	return g.client.Call(ctx, g.token, MethodSetOrderPayment, blSetOrderPaymentRequest{
		OrderID:        erpOrderID,
		PaymentDone:    payment.Amount.InexactFloat64(),
		PaymentDate:    payment.PaidAt.Unix(),
		PaymentComment: payment.Comment,
	}, nil)
}

// SetOrderFields writes order fields such as extra_field_1
func (g *BaselinkerGateway) SetOrderFields(ctx context.Context, erpOrderID string, fields map[string]string) error {
	params := make(map[string]string, len(fields)+1)
	for k, v := range fields {
		params[k] = v
	}
	params["order_id"] = erpOrderID
	return g.client.Call(ctx, g.token, MethodSetOrderFields, params, nil)
}

// OrderStatusChanges pages through the order journal after afterLogID, keeping
// status-change events only. The journal must be enabled on the ERP account.
func (g *BaselinkerGateway) OrderStatusChanges(ctx context.Context, afterLogID int64) ([]integration.ErpStatusChange, error) {
	last := afterLogID
	entries, err := Paginate(ctx, JournalPageSize, func(ctx context.Context, _ int) ([]blJournalEntry, error) {
		var resp blGetJournalListResponse
		err := g.client.Call(ctx, g.token, MethodGetJournalList, blGetJournalListRequest{
			LastLogID: last,
			LogsTypes: []int{journalStatusChange},
		}, &resp)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Logs {
			if e.LogID > last {
				last = e.LogID
			}
		}
		return resp.Logs, nil
	})
	if err != nil {
		return nil, err
	}

	changes := make([]integration.ErpStatusChange, 0, len(entries))
	for _, e := range entries {
		if e.LogType != journalStatusChange || e.LogID <= afterLogID {
			continue
		}
		changes = append(changes, integration.ErpStatusChange{
			LogID:   e.LogID,
			OrderID: strconv.FormatInt(e.OrderID, 10),
			At:      time.Unix(e.Date, 0).UTC(),
		})
	}
	return changes, nil
}

// GetOrdersByID fetches orders one id at a time; getOrders filters by a single order_id
func (g *BaselinkerGateway) GetOrdersByID(ctx context.Context, erpOrderIDs []string) ([]integration.ErpOrderState, error) {
	states := make([]integration.ErpOrderState, 0, len(erpOrderIDs))
	for _, id := range erpOrderIDs {
		orderID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			// addOrder only hands out numeric ids, so this one cannot exist in the ERP
			continue
		}
		var resp blGetOrdersResponse
		if err := g.client.Call(ctx, g.token, MethodGetOrders, blGetOrdersRequest{
			OrderID:              orderID,
			GetUnconfirmedOrders: true,
		}, &resp); err != nil {
			return nil, err
		}
		for _, o := range resp.Orders {
			if o.OrderID != orderID {
				continue
			}
			state := integration.ErpOrderState{
				OrderID:     id,
				ShopOrderID: o.ExtraField2,
				StatusID:    o.OrderStatusID,
			}
			if o.DateInStatus > 0 {
				state.ChangedAt = time.Unix(o.DateInStatus, 0).UTC()
			}
			states = append(states, state)
		}
	}
	return states, nil
}

// ---------------------------------------------------------------------------
// Inventory
// ---------------------------------------------------------------------------

// ListInventoryStock returns product and variant stock summed across the
// inventory's warehouses
func (g *BaselinkerGateway) ListInventoryStock(ctx context.Context, inventoryID string) ([]integration.ErpStockEntry, error) {
	products, err := Paginate(ctx, g.client.cfg.PageSize, func(ctx context.Context, page int) ([]blStockProduct, error) {
		var resp blStockResponse
		err := g.client.Call(ctx, g.token, MethodGetInventoryProductsStock, blInventoryPageRequest{
			InventoryID: inventoryID,
			Page:        page,
		}, &resp)
		if err != nil {
			return nil, err
		}
		items := make([]blStockProduct, 0, len(resp.Products))
		for _, key := range sortedKeys(resp.Products) {
			p := resp.Products[key]
			if p.ProductID == 0 {
				p.ProductID, _ = strconv.ParseInt(key, 10, 64)
			}
			items = append(items, p)
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}

	entries := make([]integration.ErpStockEntry, 0, len(products))
	for _, p := range products {
		productID := strconv.FormatInt(p.ProductID, 10)
		entries = append(entries, integration.ErpStockEntry{ProductID: productID, Quantity: sumStock(p.Stock)})
		for _, variantID := range sortedKeys(p.Variants) {
			entries = append(entries, integration.ErpStockEntry{
				ProductID: productID,
				VariantID: variantID,
				Quantity:  sumStock(p.Variants[variantID]),
			})
		}
	}
	return entries, nil
}

// ListCategories returns the inventory's categories
func (g *BaselinkerGateway) ListCategories(ctx context.Context, inventoryID string) ([]integration.ErpCategory, error) {
	var resp blCategoriesResponse
	if err := g.client.Call(ctx, g.token, MethodGetInventoryCategories, blCategoriesRequest{InventoryID: inventoryID}, &resp); err != nil {
		return nil, err
	}
	categories := make([]integration.ErpCategory, 0, len(resp.Categories))
	for _, c := range resp.Categories {
		cat := integration.ErpCategory{
			CategoryID: strconv.FormatInt(c.CategoryID, 10),
			Name:       c.Name,
		}
		if c.ParentID > 0 {
			cat.ParentID = strconv.FormatInt(c.ParentID, 10)
		}
		categories = append(categories, cat)
	}
	return categories, nil
}

// ListProducts pages the product list, then loads details in chunks
func (g *BaselinkerGateway) ListProducts(ctx context.Context, inventoryID string) ([]integration.ErpProduct, error) {
	listed, err := Paginate(ctx, g.client.cfg.PageSize, func(ctx context.Context, page int) ([]blListedProduct, error) {
		var resp blProductsListResponse
		err := g.client.Call(ctx, g.token, MethodGetInventoryProductsList, blInventoryPageRequest{
			InventoryID: inventoryID,
			Page:        page,
		}, &resp)
		if err != nil {
			return nil, err
		}
		items := make([]blListedProduct, 0, len(resp.Products))
		for _, key := range sortedKeys(resp.Products) {
			items = append(items, resp.Products[key])
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}

	products := make([]integration.ErpProduct, 0, len(listed))
	for start := 0; start < len(listed); start += productsDataChunk {
		end := min(start+productsDataChunk, len(listed))
		ids := make([]int64, 0, end-start)
		for _, p := range listed[start:end] {
			ids = append(ids, p.ID)
		}

		var resp blProductsDataResponse
		err := g.client.Call(ctx, g.token, MethodGetInventoryProductsData, blProductsDataRequest{
			InventoryID: inventoryID,
			Products:    ids,
		}, &resp)
		if err != nil {
			return nil, fmt.Errorf("products data chunk at %d: %w", start, err)
		}

		for _, p := range listed[start:end] {
			id := strconv.FormatInt(p.ID, 10)
			data, ok := resp.Products[id]
			if !ok {
				products = append(products, integration.ErpProduct{ProductID: id, SKU: p.SKU, Name: p.Name})
				continue
			}
			products = append(products, toErpProduct(id, p, data))
		}
	}
	return products, nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func toErpProduct(id string, listed blListedProduct, data blProductData) integration.ErpProduct {
	p := integration.ErpProduct{
		ProductID: id,
		SKU:       firstNonEmpty(data.SKU, listed.SKU),
		EAN:       data.EAN,
		Name:      firstNonEmpty(textField(data.TextFields, "name"), listed.Name),
		Tags:      data.Tags,
		Price:     lowestGroupPrice(data.Prices),
	}
	if data.CategoryID > 0 {
		p.CategoryID = strconv.FormatInt(data.CategoryID, 10)
	}
	for _, k := range sortedNumericKeys(data.Images) {
		if url := strings.TrimSpace(data.Images[k]); url != "" {
			p.ImageURLs = append(p.ImageURLs, url)
		}
	}
	for _, k := range sortedKeys(data.Variants) {
		v := data.Variants[k]
		p.Variants = append(p.Variants, integration.ErpVariant{VariantID: k, SKU: v.SKU, Name: v.Name})
	}
	return p
}

// packageSummary renders the per-inventory shipping split for the ERP operator
func packageSummary(packages []integration.ErpPackage) string {
	if len(packages) < 2 {
		return ""
	}
	parts := make([]string, 0, len(packages))
	for _, pkg := range packages {
		parts = append(parts, fmt.Sprintf("inventory %s: shipping %s", pkg.InventoryID, pkg.ShippingCost.StringFixed(2)))
	}
	return "Packages: " + strings.Join(parts, "; ")
}

func sumStock(byWarehouse map[string]float64) int {
	var total float64
	for _, q := range byWarehouse {
		total += q
	}
	return int(math.Round(total))
}

// lowestGroupPrice picks the price of the lowest-numbered price group
func lowestGroupPrice(prices map[string]decimal.Decimal) decimal.Decimal {
	keys := sortedNumericKeys(prices)
	if len(keys) == 0 {
		return decimal.Zero
	}
	return prices[keys[0]]
}

func textField(fields map[string]any, name string) string {
	if v, ok := fields[name].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sortedNumericKeys orders numeric keys by value, others after them lexically
func sortedNumericKeys[V any](m map[string]V) []string {
	keys := sortedKeys(m)
	sort.SliceStable(keys, func(i, j int) bool {
		a, errA := strconv.ParseInt(keys[i], 10, 64)
		b, errB := strconv.ParseInt(keys[j], 10, 64)
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		default:
			return false
		}
	})
	return keys
}
