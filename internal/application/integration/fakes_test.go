package integration

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	inventoryapp "github.com/erp/ordersync/internal/application/inventory"
	"github.com/erp/ordersync/internal/domain/catalog"
	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/inventory"
	"github.com/erp/ordersync/internal/domain/order"
	"github.com/erp/ordersync/internal/domain/shared"
)

// MockErpGateway is a mock implementation of integration.ErpGateway
type MockErpGateway struct {
	mock.Mock
}

func (m *MockErpGateway) AddOrder(ctx context.Context, o integration.ErpNewOrder) (string, error) {
	args := m.Called(ctx, o)
	return args.String(0), args.Error(1)
}

func (m *MockErpGateway) SetOrderStatus(ctx context.Context, erpOrderID string, statusID int) error {
	args := m.Called(ctx, erpOrderID, statusID)
	return args.Error(0)
}

func (m *MockErpGateway) SetOrderPayment(ctx context.Context, erpOrderID string, payment integration.ErpPayment) error {
	args := m.Called(ctx, erpOrderID, payment)
	return args.Error(0)
}

func (m *MockErpGateway) SetOrderFields(ctx context.Context, erpOrderID string, fields map[string]string) error {
	args := m.Called(ctx, erpOrderID, fields)
	return args.Error(0)
}

func (m *MockErpGateway) OrderStatusChanges(ctx context.Context, afterLogID int64) ([]integration.ErpStatusChange, error) {
	args := m.Called(ctx, afterLogID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.ErpStatusChange), args.Error(1)
}

func (m *MockErpGateway) GetOrdersByID(ctx context.Context, erpOrderIDs []string) ([]integration.ErpOrderState, error) {
	args := m.Called(ctx, erpOrderIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.ErpOrderState), args.Error(1)
}

func (m *MockErpGateway) ListInventoryStock(ctx context.Context, inventoryID string) ([]integration.ErpStockEntry, error) {
	args := m.Called(ctx, inventoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.ErpStockEntry), args.Error(1)
}

func (m *MockErpGateway) ListCategories(ctx context.Context, inventoryID string) ([]integration.ErpCategory, error) {
	args := m.Called(ctx, inventoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.ErpCategory), args.Error(1)
}

func (m *MockErpGateway) ListProducts(ctx context.Context, inventoryID string) ([]integration.ErpProduct, error) {
	args := m.Called(ctx, inventoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.ErpProduct), args.Error(1)
}

type fakeConnector struct {
	gw     integration.ErpGateway
	tokens []string
}

func (c *fakeConnector) Connect(token string) integration.ErpGateway {
	c.tokens = append(c.tokens, token)
	return c.gw
}

// plainCipher stores tokens reversed so tests can tell sealed from plain values
type plainCipher struct{}

func (plainCipher) Encrypt(plaintext string) (integration.EncryptedSecret, error) {
	return integration.EncryptedSecret{Ciphertext: reverse(plaintext), IV: "iv", AuthTag: "tag"}, nil
}

func (plainCipher) Decrypt(secret integration.EncryptedSecret) (string, error) {
	if secret.AuthTag != "tag" {
		return "", shared.NewDomainError("DECRYPTION_FAILED", "bad tag")
	}
	return reverse(secret.Ciphertext), nil
}

func (plainCipher) Mask(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

// ---------------------------------------------------------------------------
// in-memory repositories
// ---------------------------------------------------------------------------

type memOrders struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*order.Order
}

func newMemOrders(orders ...*order.Order) *memOrders {
	r := &memOrders{orders: map[uuid.UUID]*order.Order{}}
	for _, o := range orders {
		r.orders[o.ID] = o
	}
	return r
}

func cloneOrder(o *order.Order) *order.Order {
	c := *o
	c.Lines = append([]order.OrderLine(nil), o.Lines...)
	c.History = append([]order.StatusHistoryEntry(nil), o.History...)
	return &c
}

func (r *memOrders) get(id uuid.UUID) *order.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneOrder(r.orders[id])
}

func (r *memOrders) FindByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (r *memOrders) FindByExternalIDs(_ context.Context, ids []string) ([]*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []*order.Order
	for _, o := range r.orders {
		if o.IsSynced() && want[*o.ExternalOrderID] {
			out = append(out, cloneOrder(o))
		}
	}
	return out, nil
}

func (r *memOrders) FindPendingSync(_ context.Context, q order.PendingSyncQuery) ([]*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*order.Order
	for _, o := range r.orders {
		switch {
		case o.Status == order.OrderStatusCancelled || o.Status == order.OrderStatusRefunded:
		case o.PaymentStatus == order.PaymentStatusPaid && (!o.IsSynced() || o.PaidSyncedAt == nil):
			out = append(out, cloneOrder(o))
		case !o.IsSynced() && o.CreatedAt.Before(q.UnpaidCreatedBefore):
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *memOrders) Create(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = cloneOrder(o)
	return nil
}

func (r *memOrders) Save(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[o.ID]
	if !ok {
		return shared.ErrNotFound
	}
	c := cloneOrder(o)
	// sync columns are owned by the dedicated methods
	c.ExternalOrderID = stored.ExternalOrderID
	c.ExternalSyncedAt = stored.ExternalSyncedAt
	c.PaidSyncedAt = stored.PaidSyncedAt
	r.orders[o.ID] = c
	return nil
}

func (r *memOrders) AssignExternalID(_ context.Context, id uuid.UUID, externalID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return false, shared.ErrNotFound
	}
	if o.IsSynced() {
		return false, nil
	}
	if err := o.AssignExternalID(externalID, at); err != nil {
		return false, err
	}
	return true, nil
}

func (r *memOrders) MarkPaidSynced(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[id].PaidSyncedAt = &at
	return nil
}

func (r *memOrders) RecordSyncError(_ context.Context, id uuid.UUID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[id].SyncError = message
	return nil
}

type memStock struct {
	mu   sync.Mutex
	rows map[inventory.Key]*inventory.InventoryRecord
}

func newMemStock() *memStock {
	return &memStock{rows: map[inventory.Key]*inventory.InventoryRecord{}}
}

func (r *memStock) row(productID, variantID uuid.UUID) inventory.InventoryRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.rows[inventory.Key{ProductID: productID, VariantID: variantID}]; ok {
		return *rec
	}
	return inventory.InventoryRecord{ProductID: productID, VariantID: variantID}
}

func (r *memStock) Find(_ context.Context, productID, variantID uuid.UUID) (*inventory.InventoryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.rows[inventory.Key{ProductID: productID, VariantID: variantID}]
	if !ok {
		return nil, shared.ErrNotFound
	}
	c := *rec
	return &c, nil
}

func (r *memStock) FindMany(_ context.Context, keys []inventory.Key) ([]inventory.InventoryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []inventory.InventoryRecord
	for _, k := range keys {
		if rec, ok := r.rows[k]; ok {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (r *memStock) Apply(_ context.Context, adjustments ...inventory.Adjustment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range adjustments {
		k := inventory.Key{ProductID: a.ProductID, VariantID: a.VariantID}
		rec, ok := r.rows[k]
		if !ok {
			rec = &inventory.InventoryRecord{ProductID: a.ProductID, VariantID: a.VariantID}
			r.rows[k] = rec
		}
		rec.Quantity += a.QuantityDelta
		rec.Reserved += a.ReservedDelta
	}
	return nil
}

func (r *memStock) SetQuantity(_ context.Context, productID, variantID uuid.UUID, quantity int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := inventory.Key{ProductID: productID, VariantID: variantID}
	rec, ok := r.rows[k]
	if !ok {
		r.rows[k] = &inventory.InventoryRecord{ProductID: productID, VariantID: variantID, Quantity: quantity}
		return true, nil
	}
	if rec.Quantity == quantity {
		return false, nil
	}
	rec.Quantity = quantity
	return true, nil
}

type memJobs struct {
	mu   sync.Mutex
	jobs []*integration.SyncJob
}

func (r *memJobs) all() []*integration.SyncJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*integration.SyncJob(nil), r.jobs...)
}

func (r *memJobs) Enqueue(_ context.Context, jobs ...*integration.SyncJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, jobs...)
	return nil
}

func (r *memJobs) ClaimDue(_ context.Context, now time.Time, limit int) ([]*integration.SyncJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*integration.SyncJob
	for _, j := range r.jobs {
		if len(out) >= limit {
			break
		}
		if j.IsDue(now) {
			if err := j.MarkProcessing(); err == nil {
				out = append(out, j)
			}
		}
	}
	return out, nil
}

func (r *memJobs) Update(context.Context, *integration.SyncJob) error { return nil }

func (r *memJobs) FindByID(_ context.Context, id uuid.UUID) (*integration.SyncJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.ID == id {
			return j, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memJobs) HasOpenJob(_ context.Context, jobType integration.SyncJobType, orderID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.Type != jobType || j.OrderID == nil || *j.OrderID != orderID {
			continue
		}
		switch j.Status {
		case integration.SyncJobStatusPending, integration.SyncJobStatusFailed, integration.SyncJobStatusProcessing:
			return true, nil
		}
	}
	return false, nil
}

func (r *memJobs) ReleaseStale(context.Context, time.Time) (int64, error)         { return 0, nil }
func (r *memJobs) DeleteFinishedBefore(context.Context, time.Time) (int64, error) { return 0, nil }

func (r *memJobs) CountByStatus(context.Context) (map[integration.SyncJobStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[integration.SyncJobStatus]int64{}
	for _, j := range r.jobs {
		out[j.Status]++
	}
	return out, nil
}

func (r *memJobs) ListByStatus(_ context.Context, status integration.SyncJobStatus, _, _ int) ([]*integration.SyncJob, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*integration.SyncJob
	for _, j := range r.jobs {
		if j.Status == status {
			out = append(out, j)
		}
	}
	return out, int64(len(out)), nil
}

type memLogs struct {
	mu   sync.Mutex
	logs map[uuid.UUID]integration.SyncLog
	// onSave runs after each SaveProgress, used to simulate a concurrent cancel
	onSave func(id uuid.UUID)
}

func newMemLogs() *memLogs {
	return &memLogs{logs: map[uuid.UUID]integration.SyncLog{}}
}

func (r *memLogs) StartRun(_ context.Context, log *integration.SyncLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.logs {
		if l.Type == log.Type && l.Status == integration.SyncLogStatusRunning {
			return integration.ErrSyncAlreadyRunning
		}
	}
	r.logs[log.ID] = *log
	return nil
}

func (r *memLogs) SaveProgress(_ context.Context, log *integration.SyncLog) error {
	r.mu.Lock()
	stored := r.logs[log.ID]
	stored.ItemsProcessed = log.ItemsProcessed
	stored.ItemsChanged = log.ItemsChanged
	stored.ItemsSkipped = log.ItemsSkipped
	stored.Details = append([]integration.SyncFailure(nil), log.Details...)
	r.logs[log.ID] = stored
	hook := r.onSave
	r.mu.Unlock()
	if hook != nil {
		hook(log.ID)
	}
	return nil
}

func (r *memLogs) Finish(_ context.Context, log *integration.SyncLog) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.logs[log.ID].Status != integration.SyncLogStatusRunning {
		return false, nil
	}
	r.logs[log.ID] = *log
	return true, nil
}

func (r *memLogs) FindByID(_ context.Context, id uuid.UUID) (*integration.SyncLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logs[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &l, nil
}

func (r *memLogs) List(_ context.Context, f integration.SyncLogFilter) ([]*integration.SyncLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*integration.SyncLog
	for _, l := range r.logs {
		if f.Type != "" && l.Type != f.Type {
			continue
		}
		l := l
		out = append(out, &l)
	}
	return out, int64(len(out)), nil
}

func (r *memLogs) FindRunning(context.Context) ([]*integration.SyncLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*integration.SyncLog
	for _, l := range r.logs {
		if l.Status == integration.SyncLogStatusRunning {
			l := l
			out = append(out, &l)
		}
	}
	return out, nil
}

func (r *memLogs) LastCursor(_ context.Context, syncType integration.SyncType) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var cursor int64
	for _, l := range r.logs {
		if l.Type == syncType && l.Status == integration.SyncLogStatusSuccess {
			cursor = max(cursor, l.Cursor)
		}
	}
	return cursor, nil
}

func (r *memLogs) cancel(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := r.logs[id]
	_ = l.Cancel("operator")
	r.logs[id] = l
}

type memProducts struct {
	mu       sync.Mutex
	products map[uuid.UUID]*catalog.Product
}

func newMemProducts(products ...*catalog.Product) *memProducts {
	r := &memProducts{products: map[uuid.UUID]*catalog.Product{}}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *memProducts) byExternal(ext string) *catalog.Product {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		if p.ExternalID == ext {
			return p
		}
	}
	return nil
}

func (r *memProducts) FindByID(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (r *memProducts) FindByIDs(_ context.Context, ids []uuid.UUID) ([]*catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*catalog.Product
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memProducts) FindByExternalIDs(_ context.Context, ids []string) ([]*catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []*catalog.Product
	for _, p := range r.products {
		if want[p.ExternalID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memProducts) FindNeedingImageMirror(_ context.Context, limit int) ([]*catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*catalog.Product
	for _, p := range r.products {
		if p.NeedsImageMirror() && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memProducts) Save(_ context.Context, p *catalog.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p
	return nil
}

type memCategories struct {
	mu         sync.Mutex
	categories map[uuid.UUID]*catalog.Category
}

func newMemCategories() *memCategories {
	return &memCategories{categories: map[uuid.UUID]*catalog.Category{}}
}

func (r *memCategories) FindByExternalIDs(_ context.Context, ids []string) ([]*catalog.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []*catalog.Category
	for _, c := range r.categories {
		if want[c.ExternalID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memCategories) FindByID(_ context.Context, id uuid.UUID) (*catalog.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.categories[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return c, nil
}

func (r *memCategories) Save(_ context.Context, c *catalog.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.categories[c.ID] = c
	return nil
}

type memConfigs struct {
	cfg *integration.ErpConfiguration
}

func (r *memConfigs) FindActive(context.Context) (*integration.ErpConfiguration, error) {
	if r.cfg == nil || !r.cfg.SyncEnabled {
		return nil, integration.NewConfigurationError("configuration", "no active ERP configuration")
	}
	return r.cfg, nil
}

func (r *memConfigs) FindByID(_ context.Context, id uuid.UUID) (*integration.ErpConfiguration, error) {
	if r.cfg == nil || r.cfg.ID != id {
		return nil, shared.ErrNotFound
	}
	return r.cfg, nil
}

func (r *memConfigs) FindAll(context.Context) ([]*integration.ErpConfiguration, error) {
	if r.cfg == nil {
		return nil, nil
	}
	return []*integration.ErpConfiguration{r.cfg}, nil
}

func (r *memConfigs) Save(_ context.Context, cfg *integration.ErpConfiguration) error {
	r.cfg = cfg
	return nil
}

// ---------------------------------------------------------------------------
// fixtures
// ---------------------------------------------------------------------------

const (
	testToken     = "secret-api-token-1234"
	testInventory = "inv-default"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	orders     *memOrders
	stock      *memStock
	jobs       *memJobs
	logs       *memLogs
	products   *memProducts
	categories *memCategories
	configs    *memConfigs
	gw         *MockErpGateway
	connector  *fakeConnector
	conns      *ConnectionResolver
	txScope    inventoryapp.TransactionScope
	router     *integration.WarehouseRouter
	statuses   *integration.StatusMapping
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sealed, err := plainCipher{}.Encrypt(testToken)
	require.NoError(t, err)
	cfg, err := integration.NewErpConfiguration("main", sealed, testInventory, 15)
	require.NoError(t, err)

	router, err := integration.NewWarehouseRouter(integration.RoutingConfig{
		PrefixMappings: []integration.PrefixMapping{{Prefix: "WH-", InventoryID: "inv-wholesale"}},
		TagMappings:    []integration.TagMapping{{Wholesaler: "Acme", InventoryID: "inv-acme"}},
	})
	require.NoError(t, err)
	statuses, err := integration.NewStatusMapping(10, 20, 30, 40, map[int]integration.ErpStatusBucket{
		50: integration.ErpBucketShipped,
	})
	require.NoError(t, err)

	f := &fixture{
		orders:     newMemOrders(),
		stock:      newMemStock(),
		jobs:       &memJobs{},
		logs:       newMemLogs(),
		products:   newMemProducts(),
		categories: newMemCategories(),
		configs:    &memConfigs{cfg: cfg},
		gw:         &MockErpGateway{},
		router:     router,
		statuses:   statuses,
	}
	f.connector = &fakeConnector{gw: f.gw}
	f.conns = NewConnectionResolver(f.configs, plainCipher{}, f.connector)
	f.txScope = inventoryapp.NewNoOpTransactionScope(f.orders, f.stock, f.jobs)
	return f
}

func (f *fixture) outbound() *OutboundOrderSync {
	return NewOutboundOrderSync(f.orders, f.products, f.txScope, f.conns, f.router, f.statuses,
		OutboundConfig{}, WithOutboundClock(func() time.Time { return testNow }))
}

func (f *fixture) inbound(cfg InboundConfig) *InboundSync {
	return NewInboundSync(InboundDeps{
		Connections: f.conns,
		Logs:        f.logs,
		TxScope:     f.txScope,
		Orders:      f.orders,
		Stock:       f.stock,
		Products:    f.products,
		Categories:  f.categories,
		Statuses:    f.statuses,
		Now:         func() time.Time { return testNow },
	}, cfg)
}

// addProduct stores a catalog product with the given ERP id and tags
func (f *fixture) addProduct(t *testing.T, ext string, price string, tags ...string) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(ext, "SKU-"+strings.ToUpper(ext), "Product "+ext, decimal.RequireFromString(price))
	require.NoError(t, err)
	p.Tags = tags
	require.NoError(t, f.products.Save(context.Background(), p))
	return p
}

// addOrder stores an OPEN order with one line per product, quantity 1
func (f *fixture) addOrder(t *testing.T, shipping string, products ...*catalog.Product) *order.Order {
	t.Helper()
	lines := make([]order.LineInput, 0, len(products))
	for _, p := range products {
		lines = append(lines, order.LineInput{
			ProductID: p.ID,
			SKU:       p.SKU,
			Name:      p.Name,
			Quantity:  1,
			UnitPrice: p.Price,
		})
	}
	o, err := order.NewOrder(order.NewOrderInput{
		OrderNumber:     "SO-" + uuid.NewString()[:8],
		Customer:        order.Customer{Name: "Jane Doe", Email: "jane@example.com"},
		ShippingAddress: order.Address{Street: "Main 1", City: "Berlin", PostalCode: "10115", CountryCode: "DE"},
		Currency:        "EUR",
		PaymentMethod:   "card",
		ShippingCost:    decimal.RequireFromString(shipping),
		Lines:           lines,
	})
	require.NoError(t, err)
	require.NoError(t, f.orders.Create(context.Background(), o))
	require.NoError(t, f.stock.Apply(context.Background(), o.Adjustments(order.StockEffectReserve)...))
	return o
}

// pay marks a stored order paid
func (f *fixture) pay(t *testing.T, id uuid.UUID) {
	t.Helper()
	o, err := f.orders.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NoError(t, o.MarkPaid(testNow))
	require.NoError(t, f.orders.Save(context.Background(), o))
}
