package erp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/ordersync/internal/domain/integration"
)

type recordedCall struct {
	Method string
	Params map[string]any
}

// fakeBaselinker routes by method name and records decoded parameters
type fakeBaselinker struct {
	mu       sync.Mutex
	calls    []recordedCall
	handlers map[string]func(params map[string]any) any
}

func newFakeBaselinker(t *testing.T) (*fakeBaselinker, *httptest.Server) {
	t.Helper()
	f := &fakeBaselinker{handlers: map[string]func(map[string]any) any{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		method := r.PostForm.Get("method")
		var params map[string]any
		require.NoError(t, json.Unmarshal([]byte(r.PostForm.Get("parameters")), &params))

		f.mu.Lock()
		f.calls = append(f.calls, recordedCall{Method: method, Params: params})
		handler, ok := f.handlers[method]
		f.mu.Unlock()

		body := map[string]any{"status": "SUCCESS"}
		if ok {
			if extra, isMap := handler(params).(map[string]any); isMap {
				for k, v := range extra {
					body[k] = v
				}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeBaselinker) on(method string, h func(params map[string]any) any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method] = h
}

func (f *fakeBaselinker) callsTo(method string) []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedCall
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func newTestGateway(t *testing.T) (*fakeBaselinker, integration.ErpGateway) {
	t.Helper()
	fake, srv := newFakeBaselinker(t)
	c := newTestClient(t, srv, newFakeClock())
	return fake, c.Connect("token")
}

func TestBaselinkerGateway_AddOrder(t *testing.T) {
	fake, gw := newTestGateway(t)
	fake.on(MethodAddOrder, func(map[string]any) any {
		return map[string]any{"order_id": 987}
	})

	id, err := gw.AddOrder(context.Background(), integration.ErpNewOrder{
		ShopOrderID:  "SO-1",
		StatusID:     11,
		Currency:     "PLN",
		Paid:         true,
		ShippingCost: decimal.NewFromInt(15),
		CreatedAt:    time.Unix(1700000000, 0),
		Packages: []integration.ErpPackage{
			{InventoryID: "2001", ShippingCost: decimal.NewFromInt(10), Products: []integration.ErpOrderProduct{
				{ProductID: "55", Name: "Mug", Quantity: 2, UnitPriceGross: decimal.RequireFromString("12.50")},
			}},
			{InventoryID: "3001", ShippingCost: decimal.NewFromInt(5), Products: []integration.ErpOrderProduct{
				{ProductID: "66", VariantID: "7", Name: "Shirt", Quantity: 1, UnitPriceGross: decimal.NewFromInt(40)},
			}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "987", id)

	calls := fake.callsTo(MethodAddOrder)
	require.Len(t, calls, 1)
	params := calls[0].Params
	assert.Equal(t, float64(11), params["order_status_id"])
	assert.Equal(t, float64(1), params["paid"])
	assert.Equal(t, "SO-1", params["extra_field_2"])
	assert.Contains(t, params["admin_comments"], "inventory 2001: shipping 10.00")

	products := params["products"].([]any)
	require.Len(t, products, 2)
	first := products[0].(map[string]any)
	assert.Equal(t, "bl", first["storage"])
	assert.Equal(t, "2001", first["storage_id"])
	second := products[1].(map[string]any)
	assert.Equal(t, "3001", second["storage_id"])
	assert.Equal(t, "7", second["variant_id"])
}

func TestBaselinkerGateway_AddOrderRejectsEmptyOrder(t *testing.T) {
	fake, gw := newTestGateway(t)
	_, err := gw.AddOrder(context.Background(), integration.ErpNewOrder{Currency: "PLN"})
	assert.ErrorIs(t, err, integration.ErrEmptyOrder)
	assert.Empty(t, fake.callsTo(MethodAddOrder))
}

func TestBaselinkerGateway_OrderUpdates(t *testing.T) {
	fake, gw := newTestGateway(t)
	ctx := context.Background()

	require.NoError(t, gw.SetOrderStatus(ctx, "987", 19))
	require.NoError(t, gw.SetOrderPayment(ctx, "987", integration.ErpPayment{
		Amount: decimal.RequireFromString("80.00"),
		PaidAt: time.Unix(1700000500, 0),
	}))
	require.NoError(t, gw.SetOrderFields(ctx, "987", map[string]string{"extra_field_1": "damaged"}))

	status := fake.callsTo(MethodSetOrderStatus)
	require.Len(t, status, 1)
	assert.Equal(t, "987", status[0].Params["order_id"])
	assert.Equal(t, float64(19), status[0].Params["status_id"])

	payment := fake.callsTo(MethodSetOrderPayment)
	require.Len(t, payment, 1)
	assert.Equal(t, float64(1700000500), payment[0].Params["payment_date"])

	fields := fake.callsTo(MethodSetOrderFields)
	require.Len(t, fields, 1)
	assert.Equal(t, "damaged", fields[0].Params["extra_field_1"])
	assert.Equal(t, "987", fields[0].Params["order_id"])
}

func TestBaselinkerGateway_OrderStatusChanges(t *testing.T) {
	fake, gw := newTestGateway(t)
	fake.on(MethodGetJournalList, func(params map[string]any) any {
		if params["last_log_id"] == float64(500) {
			logs := make([]map[string]any, 0, JournalPageSize)
			for i := 1; i <= JournalPageSize; i++ {
				logs = append(logs, map[string]any{"log_id": 500 + i, "log_type": 18, "order_id": 9000 + i, "date": 1700000000})
			}
			return map[string]any{"logs": logs}
		}
		return map[string]any{"logs": []map[string]any{
			{"log_id": 601, "log_type": 18, "order_id": 42, "date": 1700003600},
			{"log_id": 602, "log_type": 3, "order_id": 43, "date": 1700003700},
		}}
	})

	changes, err := gw.OrderStatusChanges(context.Background(), 500)
	require.NoError(t, err)
	require.Len(t, changes, JournalPageSize+1, "other log types are dropped")
	assert.Equal(t, int64(501), changes[0].LogID)
	last := changes[len(changes)-1]
	assert.Equal(t, int64(601), last.LogID)
	assert.Equal(t, "42", last.OrderID)
	assert.Equal(t, int64(1700003600), last.At.Unix())

	calls := fake.callsTo(MethodGetJournalList)
	require.Len(t, calls, 2)
	assert.Equal(t, float64(500), calls[0].Params["last_log_id"])
	assert.Equal(t, []any{float64(18)}, calls[0].Params["logs_types"])
	assert.Equal(t, float64(600), calls[1].Params["last_log_id"], "the next page starts after the highest log id")
}

func TestBaselinkerGateway_GetOrdersByID(t *testing.T) {
	fake, gw := newTestGateway(t)
	fake.on(MethodGetOrders, func(params map[string]any) any {
		if params["order_id"] == float64(11) {
			return map[string]any{"orders": []map[string]any{}}
		}
		return map[string]any{"orders": []map[string]any{
			{"order_id": params["order_id"], "order_status_id": 13, "date_in_status": 1700000000, "extra_field_2": "SO-1"},
		}}
	})

	orders, err := gw.GetOrdersByID(context.Background(), []string{"10", "11", "not-a-number"})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "10", orders[0].OrderID)
	assert.Equal(t, "SO-1", orders[0].ShopOrderID)
	assert.Equal(t, 13, orders[0].StatusID)
	assert.Equal(t, int64(1700000000), orders[0].ChangedAt.Unix())

	calls := fake.callsTo(MethodGetOrders)
	require.Len(t, calls, 2, "ids that cannot exist are not requested")
	assert.Equal(t, float64(10), calls[0].Params["order_id"])
	assert.NotContains(t, calls[0].Params, "date_from")
	assert.Equal(t, true, calls[0].Params["get_unconfirmed_orders"])
}

func TestBaselinkerGateway_ListInventoryStock(t *testing.T) {
	fake, gw := newTestGateway(t)
	fake.on(MethodGetInventoryProductsStock, func(params map[string]any) any {
		if params["page"] == float64(1) {
			return map[string]any{"products": map[string]any{
				"100": map[string]any{"product_id": 100, "stock": map[string]any{"bl_1": 3, "bl_2": 4}},
				"101": map[string]any{"product_id": 101, "stock": map[string]any{"bl_1": 0},
					"variants": map[string]any{"5": map[string]any{"bl_1": 2}}},
			}}
		}
		return map[string]any{"products": map[string]any{
			"102": map[string]any{"product_id": 102, "stock": map[string]any{"bl_1": 9}},
		}}
	})

	entries, err := gw.ListInventoryStock(context.Background(), "2001")
	require.NoError(t, err)
	assert.Equal(t, []integration.ErpStockEntry{
		{ProductID: "100", Quantity: 7},
		{ProductID: "101", Quantity: 0},
		{ProductID: "101", VariantID: "5", Quantity: 2},
		{ProductID: "102", Quantity: 9},
	}, entries)

	calls := fake.callsTo(MethodGetInventoryProductsStock)
	require.Len(t, calls, 2)
	assert.Equal(t, "2001", calls[0].Params["inventory_id"])
}

func TestBaselinkerGateway_ListCategories(t *testing.T) {
	fake, gw := newTestGateway(t)
	fake.on(MethodGetInventoryCategories, func(map[string]any) any {
		return map[string]any{"categories": []map[string]any{
			{"category_id": 1, "name": "Kitchen", "parent_id": 0},
			{"category_id": 2, "name": "Mugs", "parent_id": 1},
		}}
	})

	cats, err := gw.ListCategories(context.Background(), "2001")
	require.NoError(t, err)
	assert.Equal(t, []integration.ErpCategory{
		{CategoryID: "1", Name: "Kitchen"},
		{CategoryID: "2", Name: "Mugs", ParentID: "1"},
	}, cats)
}

func TestBaselinkerGateway_ListProducts(t *testing.T) {
	fake, gw := newTestGateway(t)
	fake.on(MethodGetInventoryProductsList, func(map[string]any) any {
		return map[string]any{"products": map[string]any{
			"55": map[string]any{"id": 55, "sku": "MUG", "name": "Mug"},
		}}
	})
	fake.on(MethodGetInventoryProductsData, func(map[string]any) any {
		return map[string]any{"products": map[string]any{
			"55": map[string]any{
				"sku":         "MUG-1",
				"ean":         "5901234123457",
				"category_id": 2,
				"tags":        []string{"acme"},
				"text_fields": map[string]any{"name": "Big Mug"},
				"prices":      map[string]any{"10": "19.99", "2": "12.50"},
				"images":      map[string]any{"2": "https://img/b.jpg", "1": "https://img/a.jpg"},
				"variants":    map[string]any{"7": map[string]any{"name": "Blue", "sku": "MUG-B"}},
			},
		}}
	})

	products, err := gw.ListProducts(context.Background(), "2001")
	require.NoError(t, err)
	require.Len(t, products, 1)
	p := products[0]
	assert.Equal(t, "55", p.ProductID)
	assert.Equal(t, "MUG-1", p.SKU)
	assert.Equal(t, "Big Mug", p.Name)
	assert.Equal(t, "2", p.CategoryID)
	assert.True(t, decimal.RequireFromString("12.50").Equal(p.Price))
	assert.Equal(t, []string{"acme"}, p.Tags)
	assert.Equal(t, []string{"https://img/a.jpg", "https://img/b.jpg"}, p.ImageURLs)
	assert.Equal(t, []integration.ErpVariant{{VariantID: "7", SKU: "MUG-B", Name: "Blue"}}, p.Variants)

	data := fake.callsTo(MethodGetInventoryProductsData)
	require.Len(t, data, 1)
	assert.Equal(t, []any{float64(55)}, data[0].Params["products"])
}
