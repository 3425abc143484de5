package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	integrationapp "github.com/erp/ordersync/internal/application/integration"
	orderapp "github.com/erp/ordersync/internal/application/order"
	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/erp/ordersync/internal/infrastructure/auth"
	"github.com/erp/ordersync/internal/infrastructure/cache"
	"github.com/erp/ordersync/internal/infrastructure/config"
	"github.com/erp/ordersync/internal/infrastructure/erp"
	"github.com/erp/ordersync/internal/infrastructure/logger"
	"github.com/erp/ordersync/internal/infrastructure/persistence"
	"github.com/erp/ordersync/internal/infrastructure/scheduler"
	"github.com/erp/ordersync/internal/infrastructure/storage"
	"github.com/erp/ordersync/internal/infrastructure/telemetry"
	"github.com/erp/ordersync/internal/infrastructure/vault"
	"github.com/erp/ordersync/internal/interfaces/http/handler"
	"github.com/erp/ordersync/internal/interfaces/http/middleware"
	"github.com/erp/ordersync/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// Telemetry first so the logger can tee into the OTLP log pipeline
	providers, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		Insecure:          cfg.Telemetry.Insecure,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	if providers.Enabled() {
		level, _ := logger.ParseLevel(cfg.Log.Level)
		if teed, err := logger.New(logCfg, logger.WithTee(providers.LogCore(level))); err == nil {
			log = teed
		} else {
			log.Warn("Failed to attach OTLP log core", zap.Error(err))
		}
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting order sync engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	metrics, err := telemetry.NewSyncMetrics(providers.Meter())
	if err != nil {
		log.Fatal("Failed to create sync metrics", zap.Error(err))
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithGormLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:               cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		IncludeQueryVariables: cfg.Telemetry.DBLogFullSQL,
		DBName:                cfg.Database.DBName,
	}, log); err != nil {
		log.Warn("Failed to enable database tracing", zap.Error(err))
	}
	// Postgres schemas come from cmd/migrate; the sqlite dev database is created in place
	if db.Driver() == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate sqlite database", zap.Error(err))
		}
	}
	log.Info("Database connected", zap.String("driver", db.Driver()))

	// Repositories
	erpConfigRepo := persistence.NewGormErpConfigurationRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	stockRepo := persistence.NewGormInventoryRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	categoryRepo := persistence.NewGormCategoryRepository(db.DB)
	jobRepo := persistence.NewGormSyncJobRepository(db.DB)
	syncLogRepo := persistence.NewGormSyncLogRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Credential vault and ERP client
	secretVault, err := vault.NewVault(cfg.Vault.MasterKey)
	if err != nil {
		log.Fatal("Failed to initialize credential vault", zap.Error(err))
	}
	erpClient, err := erp.NewClient(erp.Config{
		BaseURL:           cfg.ERP.BaseURL,
		RequestsPerMinute: cfg.ERP.RequestsPerMinute,
		Timeout:           cfg.ERP.Timeout,
		MaxAttempts:       cfg.ERP.MaxAttempts,
		BaseBackoff:       cfg.ERP.BaseBackoff,
		MaxBackoff:        cfg.ERP.MaxBackoff,
		RateLimitFallback: cfg.ERP.RateLimitFallback,
		MaxRateLimitWaits: cfg.ERP.MaxRateLimitWaits,
		PageSize:          cfg.ERP.PageSize,
	}, erp.WithLogger(log), erp.WithRecorder(metrics))
	if err != nil {
		log.Fatal("Failed to create ERP client", zap.Error(err))
	}
	connections := integrationapp.NewConnectionResolver(erpConfigRepo, secretVault, erpClient)

	// Routing table and status mapping
	routing, err := cfg.Routing.ToDomain()
	if err != nil {
		log.Fatal("Invalid routing configuration", zap.Error(err))
	}
	warehouseRouter, err := integration.NewWarehouseRouter(routing)
	if err != nil {
		log.Fatal("Invalid routing configuration", zap.Error(err))
	}
	statuses, err := cfg.Status.Build()
	if err != nil {
		log.Fatal("Invalid status mapping", zap.Error(err))
	}

	// Payment idempotency
	idemStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idemStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// Image mirroring
	var (
		images  integrationapp.ImageStore
		fetcher integrationapp.ImageFetcher
	)
	if cfg.Sync.ImageSyncEnabled {
		images = storage.NewStubImageStore()
		if cfg.Storage.Type == "s3" {
			s3Store, err := storage.NewS3ImageStore(&cfg.Storage, storage.WithLogger(log))
			if err != nil {
				log.Fatal("Failed to create image store", zap.Error(err))
			}
			if err := s3Store.EnsureBucket(ctx); err != nil {
				log.Fatal("Failed to prepare image bucket", zap.Error(err))
			}
			images = s3Store
		}
		fetcher = storage.NewHTTPImageFetcher(&http.Client{Timeout: 30 * time.Second})
	}

	// Application services
	inbound := integrationapp.NewInboundSync(integrationapp.InboundDeps{
		Connections: connections,
		Logs:        syncLogRepo,
		TxScope:     txScope,
		Orders:      orderRepo,
		Stock:       stockRepo,
		Products:    productRepo,
		Categories:  categoryRepo,
		Statuses:    statuses,
		Images:      images,
		Fetcher:     fetcher,
		Recorder:    metrics,
		Logger:      log,
	}, integrationapp.InboundConfig{
		StatusWindow: cfg.Sync.StatusWindow,
	})
	outbound := integrationapp.NewOutboundOrderSync(
		orderRepo, productRepo, txScope, connections, warehouseRouter, statuses,
		integrationapp.OutboundConfig{
			PendingGrace:      cfg.Sync.PendingGrace,
			PendingSweepLimit: cfg.Sync.PendingSweepLimit,
		},
		integrationapp.WithOutboundLogger(log),
	)
	payments := integrationapp.NewPaymentEventHandler(txScope, idemStore, shared.DefaultIdempotencyConfig(), log)
	dispatcher := integrationapp.NewJobDispatcher(jobRepo, log)
	erpConfigs := integrationapp.NewConfigurationService(erpConfigRepo, secretVault, log)
	orders := orderapp.NewOrderService(orderRepo, productRepo, txScope, log)

	// Background work
	var worker *scheduler.SyncWorker
	if cfg.Sync.WorkerEnabled {
		workerCfg := scheduler.DefaultSyncWorkerConfig()
		workerCfg.PollInterval = cfg.Sync.PollInterval
		workerCfg.ClaimBatch = cfg.Sync.ClaimBatch
		workerCfg.BaseBackoff = cfg.Sync.JobBaseBackoff
		workerCfg.MaxAttempts = cfg.Sync.JobMaxAttempts
		workerCfg.StaleAfter = cfg.Sync.StaleJobAfter
		workerCfg.Retention = cfg.Sync.JobRetention

		worker = scheduler.NewSyncWorker(workerCfg, jobRepo,
			integrationapp.NewJobRunner(outbound, inbound),
			integrationapp.IsPermanentJobError, metrics, log)
		if err := worker.Start(ctx); err != nil {
			log.Fatal("Failed to start sync worker", zap.Error(err))
		}
	} else {
		log.Info("Sync worker disabled; jobs stay queued until a worker runs")
	}

	cron, err := scheduler.NewCronTrigger(scheduler.DefaultCronTriggerConfig(), log,
		scheduler.SyncTasks(scheduler.SyncScheduleConfig{
			StockSyncHour:        cfg.Sync.StockSyncHour,
			StatusSyncInterval:   cfg.Sync.StatusSyncInterval,
			PendingSweepInterval: cfg.Sync.PendingSweepInterval,
			PendingSweepLimit:    cfg.Sync.PendingSweepLimit,
			StuckRunThreshold:    cfg.Sync.StuckRunThreshold,
			StuckCheckInterval:   cfg.Sync.StuckCheckInterval,
			ImageSyncEnabled:     cfg.Sync.ImageSyncEnabled,
		}, dispatcher, inbound, log)...)
	if err != nil {
		log.Fatal("Failed to create sync schedule", zap.Error(err))
	}
	if err := cron.Start(ctx); err != nil {
		log.Fatal("Failed to start sync schedule", zap.Error(err))
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := router.New(router.Options{
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: providers.Enabled(),
		Meter:          providers.Meter(),
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		CORS: middleware.CORSConfig{
			AllowOrigins: cfg.HTTP.CORSAllowOrigins,
			AllowMethods: cfg.HTTP.CORSAllowMethods,
			AllowHeaders: cfg.HTTP.CORSAllowHeaders,
			MaxAge:       12 * time.Hour,
		},
		TrustedProxies:    cfg.HTTP.TrustedProxies,
		TriggerRateLimit:  cfg.HTTP.TriggerRateLimit,
		TriggerRateWindow: cfg.HTTP.TriggerRateWindow,
		JWT:               auth.NewJWTService(cfg.JWT),
		Logger:            log,
	}, router.Handlers{
		System: handler.NewSystemHandler(cfg.App.Name, version, map[string]handler.ReadinessCheck{
			"database": func(context.Context) error { return db.Ping() },
			"cache": func(ctx context.Context) error {
				_, err := idemStore.IsProcessed(ctx, "readiness-probe")
				return err
			},
		}),
		Sync:      handler.NewSyncHandler(dispatcher, inbound),
		Jobs:      handler.NewJobHandler(dispatcher),
		OrderSync: handler.NewOrderSyncHandler(outbound, dispatcher, cfg.Sync.PendingSweepLimit),
		Orders:    handler.NewOrderHandler(orders),
		Payments:  handler.NewPaymentHandler(payments),
		ErpConfig: handler.NewErpConfigHandler(erpConfigs),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := cron.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping sync schedule", zap.Error(err))
	}
	if worker != nil {
		if err := worker.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping sync worker", zap.Error(err))
		}
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down telemetry", zap.Error(err))
	}

	log.Info("Server exited")
}
