package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	inventoryapp "github.com/retailchain/inventory/internal/application/inventory"
	transferapp "github.com/retailchain/inventory/internal/application/transfer"
	"github.com/retailchain/inventory/internal/domain/shared"
	"github.com/retailchain/inventory/internal/infrastructure/cache"
	"github.com/retailchain/inventory/internal/infrastructure/config"
	"github.com/retailchain/inventory/internal/infrastructure/logger"
	"github.com/retailchain/inventory/internal/infrastructure/persistence"
	"github.com/retailchain/inventory/internal/infrastructure/telemetry"
	"github.com/retailchain/inventory/internal/interfaces/http/handler"
	"github.com/retailchain/inventory/internal/interfaces/http/middleware"
	"github.com/retailchain/inventory/internal/interfaces/http/router"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting inventory core",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize tracing
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Database connection with zap-backed GORM logging
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := telemetry.RegisterDBTracing(db.DB, cfg.Database.DBName, log); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}

	// Initialize repositories
	batchRepo := persistence.NewGormProductBatchRepository(db.DB)
	mutationRepo := persistence.NewGormStockMutationRepository(db.DB)
	branchInventoryRepo := persistence.NewGormBranchInventoryRepository(db.DB)
	saleAllocationRepo := persistence.NewGormSaleItemAllocationRepository(db.DB)
	transferRepo := persistence.NewGormTransferRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Initialize application services
	ledgerService := inventoryapp.NewLedgerService(mutationRepo, branchInventoryRepo, txScope)
	batchService := inventoryapp.NewBatchService(batchRepo, txScope)
	allocationService := inventoryapp.NewAllocationService(batchRepo, branchInventoryRepo, saleAllocationRepo, txScope)
	branchInventoryService := inventoryapp.NewBranchInventoryService(branchInventoryRepo)
	transferService := transferapp.NewTransferService(transferRepo, branchInventoryRepo, txScope)

	if cfg.Transfer.ManagerApprovalThreshold > 0 {
		transferService.SetApprovalThreshold(decimal.NewFromFloat(cfg.Transfer.ManagerApprovalThreshold))
	}

	// Idempotency store guards transfer ship/receive retries
	if cfg.Transfer.IdempotencyEnabled {
		storeFactory := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log))
		idempotencyStore, err := storeFactory.CreateStore()
		if err != nil {
			log.Fatal("Failed to create idempotency store", zap.Error(err))
		}
		defer func() {
			if err := idempotencyStore.Close(); err != nil {
				log.Error("Error closing idempotency store", zap.Error(err))
			}
		}()

		transferService.SetIdempotencyStore(idempotencyStore, shared.IdempotencyConfig{
			TTL:     cfg.Transfer.IdempotencyTTL,
			Enabled: true,
		})
	}

	// Background expiry sweep
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go runExpirySweep(sweepCtx, batchService, cfg.Batch.ExpirySweepInterval, log)

	// Initialize HTTP handlers
	batchHandler := handler.NewBatchHandler(batchService)
	ledgerHandler := handler.NewLedgerHandler(ledgerService)
	allocationHandler := handler.NewAllocationHandler(allocationService)
	branchInventoryHandler := handler.NewBranchInventoryHandler(branchInventoryService)
	transferHandler := handler.NewTransferHandler(transferService)
	systemHandler := handler.NewSystemHandler(cfg.App.Name, version)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.ActorContext())

	// Health check outside the versioned API
	engine.GET("/health", healthHandler(db))

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Ledger domain: the append-only stock mutation journal
	ledgerRoutes := router.NewDomainGroup("ledger", "/ledger")
	ledgerRoutes.POST("/mutations", ledgerHandler.Append)
	ledgerRoutes.GET("/mutations/:id", ledgerHandler.GetByID)
	ledgerRoutes.GET("/mutations/reference/:reference", ledgerHandler.GetByReference)
	ledgerRoutes.GET("/products/:product_id/history", ledgerHandler.History)
	ledgerRoutes.GET("/products/:product_id/replay-check", ledgerHandler.VerifyReplay)
	ledgerRoutes.GET("/products/:product_id/stock", ledgerHandler.ProductStock)

	// Batch domain: lot tracking, expiry lifecycle
	batchRoutes := router.NewDomainGroup("batches", "/batches")
	batchRoutes.POST("", batchHandler.Create)
	batchRoutes.GET("/expiring", batchHandler.ListExpiring)
	batchRoutes.POST("/sweep-expired", batchHandler.SweepExpired)
	batchRoutes.GET("/products/:product_id", batchHandler.ListForProduct)
	batchRoutes.GET("/:id", batchHandler.GetByID)
	batchRoutes.POST("/:id/block", batchHandler.Block)
	batchRoutes.POST("/:id/unblock", batchHandler.Unblock)
	batchRoutes.POST("/:id/mark-expired", batchHandler.MarkExpired)
	batchRoutes.POST("/:id/dispose", batchHandler.Dispose)

	// Allocation domain: FIFO consumption for sales
	allocationRoutes := router.NewDomainGroup("allocations", "/allocations")
	allocationRoutes.POST("", allocationHandler.Allocate)
	allocationRoutes.POST("/preview", allocationHandler.Preview)
	allocationRoutes.GET("/sale-items/:sale_item_id", allocationHandler.TraceSaleItem)

	// Branch inventory domain: per-branch stock projection
	branchRoutes := router.NewDomainGroup("branch-inventory", "/branches")
	branchRoutes.GET("/restock-alerts", branchInventoryHandler.ListNeedingRestock)
	branchRoutes.GET("/:branch_id/inventory", branchInventoryHandler.ListByBranch)
	branchRoutes.GET("/:branch_id/inventory/:product_id", branchInventoryHandler.Get)
	branchRoutes.PUT("/:branch_id/inventory/:product_id/thresholds", branchInventoryHandler.SetThresholds)
	branchRoutes.PUT("/:branch_id/inventory/:product_id/prices", branchInventoryHandler.SetPrices)

	// Transfer domain: inter-branch stock movements
	transferRoutes := router.NewDomainGroup("transfers", "/transfers")
	transferRoutes.POST("", transferHandler.Create)
	transferRoutes.GET("", transferHandler.List)
	transferRoutes.GET("/number/:transfer_number", transferHandler.GetByNumber)
	transferRoutes.GET("/:id", transferHandler.GetByID)
	transferRoutes.POST("/:id/approve", transferHandler.Approve)
	transferRoutes.POST("/:id/reject", transferHandler.Reject)
	transferRoutes.POST("/:id/cancel", transferHandler.Cancel)
	transferRoutes.POST("/:id/ship", transferHandler.Ship)
	transferRoutes.POST("/:id/receive", transferHandler.Receive)

	// System routes
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/ping", systemHandler.Ping)
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)

	r.Register(ledgerRoutes).
		Register(batchRoutes).
		Register(allocationRoutes).
		Register(branchRoutes).
		Register(transferRoutes).
		Register(systemRoutes)

	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// runExpirySweep periodically flags batches whose expiry date has passed.
func runExpirySweep(ctx context.Context, batchService *inventoryapp.BatchService, interval time.Duration, log *zap.Logger) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := batchService.SweepExpired(ctx)
			if err != nil {
				log.Warn("Expiry sweep failed", zap.Error(err))
				continue
			}
			if count > 0 {
				log.Info("Expiry sweep flagged batches", zap.Int("count", count))
			}
		}
	}
}

func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
