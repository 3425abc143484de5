package handler

import (
	"context"

	integrationapp "github.com/erp/ordersync/internal/application/integration"
	orderapp "github.com/erp/ordersync/internal/application/order"
	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/google/uuid"
)

// The handlers depend on these narrow views of the application services.

// SyncQueue enqueues background sync work
type SyncQueue interface {
	EnqueueInboundSync(ctx context.Context, syncType integration.SyncType, mode integration.SyncMode, trigger integration.SyncTrigger) (*integration.SyncJob, error)
	EnqueuePendingSweep(ctx context.Context, limit int, trigger integration.SyncTrigger) (*integration.SyncJob, error)
}

// JobQueue is the operator view of the job queue
type JobQueue interface {
	Get(ctx context.Context, id uuid.UUID) (*integration.SyncJob, error)
	List(ctx context.Context, status integration.SyncJobStatus, page, pageSize int) (shared.Paginated[*integration.SyncJob], error)
	Stats(ctx context.Context) (map[integration.SyncJobStatus]int64, error)
	Retry(ctx context.Context, id uuid.UUID) (*integration.SyncJob, error)
}

// SyncLogs reads and cancels inbound sync runs
type SyncLogs interface {
	GetLog(ctx context.Context, id uuid.UUID) (*integration.SyncLog, error)
	ListLogs(ctx context.Context, filter integration.SyncLogFilter) (shared.Paginated[*integration.SyncLog], error)
	CancelRun(ctx context.Context, id uuid.UUID, reason string) (*integration.SyncLog, error)
}

// OrderPusher pushes a single order to the ERP
type OrderPusher interface {
	SyncOrderToBaselinker(ctx context.Context, orderID uuid.UUID, opts integrationapp.SyncOptions) (integrationapp.SyncOrderResult, error)
}

// PaymentResults applies verified payment facts
type PaymentResults interface {
	Handle(ctx context.Context, in integrationapp.PaymentResult) (integrationapp.PaymentHandleResult, error)
}

// ErpConfigurations manages the stored ERP connection
type ErpConfigurations interface {
	Get(ctx context.Context) (*integrationapp.ConfigurationView, error)
	List(ctx context.Context) ([]integrationapp.ConfigurationView, error)
	Save(ctx context.Context, in integrationapp.SaveConfigurationInput) (*integrationapp.ConfigurationView, error)
}

// Orders drives the storefront order lifecycle
type Orders interface {
	Get(ctx context.Context, id uuid.UUID) (*orderapp.OrderResponse, error)
	PlaceOrder(ctx context.Context, req orderapp.PlaceOrderRequest) (*orderapp.OrderResponse, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) (*orderapp.OrderResponse, error)
	StartProcessing(ctx context.Context, id uuid.UUID) (*orderapp.OrderResponse, error)
	Ship(ctx context.Context, id uuid.UUID) (*orderapp.OrderResponse, error)
	Deliver(ctx context.Context, id uuid.UUID) (*orderapp.OrderResponse, error)
}
