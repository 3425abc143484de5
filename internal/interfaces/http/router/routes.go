package router

import (
	"time"

	"github.com/erp/ordersync/internal/infrastructure/auth"
	"github.com/erp/ordersync/internal/infrastructure/logger"
	"github.com/erp/ordersync/internal/interfaces/http/handler"
	"github.com/erp/ordersync/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Handlers are the endpoint handlers mounted by New
type Handlers struct {
	System    *handler.SystemHandler
	Sync      *handler.SyncHandler
	Jobs      *handler.JobHandler
	OrderSync *handler.OrderSyncHandler
	Orders    *handler.OrderHandler
	Payments  *handler.PaymentHandler
	ErpConfig *handler.ErpConfigHandler
}

// Options configure the engine
type Options struct {
	ServiceName    string
	TracingEnabled bool
	// Meter records HTTP metrics; nil disables them
	Meter          metric.Meter
	MaxBodySize    int64
	CORS           middleware.CORSConfig
	TrustedProxies []string
	// TriggerRateLimit bounds manual sync triggers per caller; 0 disables the limit
	TriggerRateLimit  int
	TriggerRateWindow time.Duration
	JWT               *auth.JWTService
	Logger            *zap.Logger
}

// New builds the engine with the full middleware chain and every route.
//
// Public:   GET /health, GET /ready
// Service:  /api/v1/payments, /api/v1/orders (service or admin)
// Operator: /api/v1/admin/sync, /api/v1/admin/jobs, /api/v1/admin/orders (operator or admin)
// Admin:    /api/v1/admin/erp
func New(opts Options, h Handlers) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(opts.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(opts.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		logger.GinMiddleware(log),
	)
	engine.Use(middleware.Tracing(opts.ServiceName, opts.TracingEnabled)...)
	engine.Use(
		middleware.HTTPMetrics(opts.Meter),
		middleware.Secure(),
		middleware.CORSWithConfig(opts.CORS),
		middleware.BodyLimit(opts.MaxBodySize),
	)

	engine.GET("/health", h.System.Health)
	engine.GET("/ready", h.System.Ready)

	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Use(middleware.JWTAuthWithConfig(middleware.JWTMiddlewareConfig{JWTService: opts.JWT, Logger: log}))

	system := NewDomainGroup("system", "/system")
	system.GET("/info", h.System.GetSystemInfo)

	payments := NewDomainGroup("payments", "/payments").
		Use(middleware.RequireRole(auth.RoleService, auth.RoleAdmin))
	payments.POST("/results", h.Payments.Receive)

	orders := NewDomainGroup("orders", "/orders").
		Use(middleware.RequireRole(auth.RoleService, auth.RoleAdmin))
	orders.POST("", h.Orders.Place).
		GET("/:id", h.Orders.Get).
		POST("/:id/cancel", h.Orders.Cancel).
		POST("/:id/start-processing", h.Orders.StartProcessing).
		POST("/:id/ship", h.Orders.Ship).
		POST("/:id/deliver", h.Orders.Deliver)

	admin := NewDomainGroup("admin", "/admin").
		Use(middleware.RequireRole(auth.RoleOperator, auth.RoleAdmin))

	trigger := []gin.HandlerFunc{h.Sync.Trigger}
	if opts.TriggerRateLimit > 0 {
		limiter := middleware.NewRateLimiter(opts.TriggerRateLimit, opts.TriggerRateWindow)
		trigger = append([]gin.HandlerFunc{middleware.RateLimit(limiter)}, trigger...)
	}
	admin.Group("sync", "/sync").
		POST("/trigger", trigger...).
		GET("/logs", h.Sync.ListLogs).
		GET("/logs/:id", h.Sync.GetLog).
		POST("/logs/:id/cancel", h.Sync.CancelLog)

	admin.Group("jobs", "/jobs").
		GET("", h.Jobs.List).
		GET("/stats", h.Jobs.Stats).
		GET("/:id", h.Jobs.Get).
		POST("/:id/retry", h.Jobs.Retry)

	admin.Group("order-sync", "/orders").
		POST("/sync-pending", h.OrderSync.SyncPending).
		POST("/:id/sync", h.OrderSync.SyncOrder)

	admin.Group("erp", "/erp").
		Use(middleware.RequireRole(auth.RoleAdmin)).
		GET("/configuration", h.ErpConfig.Get).
		PUT("/configuration", h.ErpConfig.Save).
		GET("/configurations", h.ErpConfig.List)

	r.Register(system).
		Register(payments).
		Register(orders).
		Register(admin).
		Setup()

	return engine
}
