package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	integrationapp "github.com/erp/ordersync/internal/application/integration"
	orderapp "github.com/erp/ordersync/internal/application/order"
	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/erp/ordersync/internal/infrastructure/auth"
	"github.com/erp/ordersync/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockSyncQueue implements SyncQueue
type MockSyncQueue struct {
	mock.Mock
}

func (m *MockSyncQueue) EnqueueInboundSync(ctx context.Context, syncType integration.SyncType, mode integration.SyncMode, trigger integration.SyncTrigger) (*integration.SyncJob, error) {
	args := m.Called(ctx, syncType, mode, trigger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SyncJob), args.Error(1)
}

func (m *MockSyncQueue) EnqueuePendingSweep(ctx context.Context, limit int, trigger integration.SyncTrigger) (*integration.SyncJob, error) {
	args := m.Called(ctx, limit, trigger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SyncJob), args.Error(1)
}

// MockJobQueue implements JobQueue
type MockJobQueue struct {
	mock.Mock
}

func (m *MockJobQueue) Get(ctx context.Context, id uuid.UUID) (*integration.SyncJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SyncJob), args.Error(1)
}

func (m *MockJobQueue) List(ctx context.Context, status integration.SyncJobStatus, page, pageSize int) (shared.Paginated[*integration.SyncJob], error) {
	args := m.Called(ctx, status, page, pageSize)
	return args.Get(0).(shared.Paginated[*integration.SyncJob]), args.Error(1)
}

func (m *MockJobQueue) Stats(ctx context.Context) (map[integration.SyncJobStatus]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[integration.SyncJobStatus]int64), args.Error(1)
}

func (m *MockJobQueue) Retry(ctx context.Context, id uuid.UUID) (*integration.SyncJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SyncJob), args.Error(1)
}

// MockSyncLogs implements SyncLogs
type MockSyncLogs struct {
	mock.Mock
}

func (m *MockSyncLogs) GetLog(ctx context.Context, id uuid.UUID) (*integration.SyncLog, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SyncLog), args.Error(1)
}

func (m *MockSyncLogs) ListLogs(ctx context.Context, filter integration.SyncLogFilter) (shared.Paginated[*integration.SyncLog], error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(shared.Paginated[*integration.SyncLog]), args.Error(1)
}

func (m *MockSyncLogs) CancelRun(ctx context.Context, id uuid.UUID, reason string) (*integration.SyncLog, error) {
	args := m.Called(ctx, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SyncLog), args.Error(1)
}

// MockOrderPusher implements OrderPusher
type MockOrderPusher struct {
	mock.Mock
}

func (m *MockOrderPusher) SyncOrderToBaselinker(ctx context.Context, orderID uuid.UUID, opts integrationapp.SyncOptions) (integrationapp.SyncOrderResult, error) {
	args := m.Called(ctx, orderID, opts)
	return args.Get(0).(integrationapp.SyncOrderResult), args.Error(1)
}

// MockPaymentResults implements PaymentResults
type MockPaymentResults struct {
	mock.Mock
}

func (m *MockPaymentResults) Handle(ctx context.Context, in integrationapp.PaymentResult) (integrationapp.PaymentHandleResult, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(integrationapp.PaymentHandleResult), args.Error(1)
}

// MockErpConfigurations implements ErpConfigurations
type MockErpConfigurations struct {
	mock.Mock
}

func (m *MockErpConfigurations) Get(ctx context.Context) (*integrationapp.ConfigurationView, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integrationapp.ConfigurationView), args.Error(1)
}

func (m *MockErpConfigurations) List(ctx context.Context) ([]integrationapp.ConfigurationView, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integrationapp.ConfigurationView), args.Error(1)
}

func (m *MockErpConfigurations) Save(ctx context.Context, in integrationapp.SaveConfigurationInput) (*integrationapp.ConfigurationView, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integrationapp.ConfigurationView), args.Error(1)
}

// MockOrders implements Orders
type MockOrders struct {
	mock.Mock
}

func (m *MockOrders) result(args mock.Arguments) (*orderapp.OrderResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderapp.OrderResponse), args.Error(1)
}

func (m *MockOrders) Get(ctx context.Context, id uuid.UUID) (*orderapp.OrderResponse, error) {
	return m.result(m.Called(ctx, id))
}

func (m *MockOrders) PlaceOrder(ctx context.Context, req orderapp.PlaceOrderRequest) (*orderapp.OrderResponse, error) {
	return m.result(m.Called(ctx, req))
}

func (m *MockOrders) Cancel(ctx context.Context, id uuid.UUID, reason string) (*orderapp.OrderResponse, error) {
	return m.result(m.Called(ctx, id, reason))
}

func (m *MockOrders) StartProcessing(ctx context.Context, id uuid.UUID) (*orderapp.OrderResponse, error) {
	return m.result(m.Called(ctx, id))
}

func (m *MockOrders) Ship(ctx context.Context, id uuid.UUID) (*orderapp.OrderResponse, error) {
	return m.result(m.Called(ctx, id))
}

func (m *MockOrders) Deliver(ctx context.Context, id uuid.UUID) (*orderapp.OrderResponse, error) {
	return m.result(m.Called(ctx, id))
}

// withRoles simulates an authenticated caller without a signed token
func withRoles(subject string, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := &auth.Claims{Roles: roles}
		claims.Subject = subject
		c.Set(middleware.JWTClaimsKey, claims)
		c.Set(middleware.JWTSubjectKey, subject)
		c.Next()
	}
}

func jsonRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}
