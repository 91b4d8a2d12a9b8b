// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"caravan/internal/core/codegen"
	"caravan/internal/domain/catalogs/variant"
	"caravan/internal/domain/fulfillment"
	"caravan/internal/domain/inventory"
	"caravan/internal/domain/receiving"
	"caravan/internal/infrastructure/http/v1/handlers"
	"caravan/internal/infrastructure/http/v1/middleware"
	"caravan/internal/infrastructure/storage/postgres"
	"caravan/internal/infrastructure/storage/postgres/catalog_repo"
	"caravan/internal/infrastructure/storage/postgres/document_repo"
	"caravan/internal/infrastructure/storage/postgres/register_repo"
	"caravan/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks)
	Pool *postgres.Pool

	// TxManager owns transaction lifecycle for all write paths
	TxManager *postgres.TxManager

	// Logger for request logging
	Logger *logger.Logger

	// TokenValidator for token validation
	TokenValidator middleware.TokenValidator

	// Codes allocates document numbers and variant code sequences
	Codes codegen.Generator

	// Audit records committed receipts; optional
	Audit receiving.AuditSink

	// AuditHistory serves the recorded receipt trail; optional
	AuditHistory handlers.AuditHistory
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1
	v1 := router.Group("/api/v1")
	{
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.TokenValidator))

		registerReceivingRoutes(protected, cfg)
		registerStockRoutes(protected, cfg)
	}

	return router
}

// registerReceivingRoutes wires the receiving engine and its endpoints.
func registerReceivingRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	baseHandler := handlers.NewBaseHandler()

	productRepo := catalog_repo.NewProductRepo(cfg.TxManager)
	variantRepo := catalog_repo.NewVariantRepo(cfg.TxManager)
	inventoryRepo := register_repo.NewInventoryRepo(cfg.TxManager)
	purchaseRepo := document_repo.NewPurchaseRepo(cfg.TxManager)
	receiptRepo := document_repo.NewGoodsReceiptRepo(cfg.TxManager)
	saleRepo := document_repo.NewSaleRepo(cfg.TxManager)
	backorderRepo := document_repo.NewBackorderRepo(cfg.TxManager)

	stockService := inventory.NewService(inventoryRepo)
	variantResolver := variant.NewResolver(variantRepo, cfg.Codes)
	backorderResolver := fulfillment.NewBackorderResolver(backorderRepo, saleRepo, stockService)
	preorderConverter := fulfillment.NewPreorderConverter(saleRepo, stockService)

	receivingService := receiving.NewService(
		cfg.TxManager,
		purchaseRepo,
		productRepo,
		variantResolver,
		stockService,
		backorderResolver,
		preorderConverter,
		receiptRepo,
		cfg.Codes,
		cfg.Audit,
	)

	handler := handlers.NewReceivingHandler(baseHandler, receivingService, cfg.AuditHistory)
	purchases := rg.Group("/purchases")
	purchases.Use(middleware.RequireRole("warehouse", "admin"))
	handler.RegisterRoutes(purchases)
}

// registerStockRoutes wires the read-only inventory endpoints.
func registerStockRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	baseHandler := handlers.NewBaseHandler()

	inventoryRepo := register_repo.NewInventoryRepo(cfg.TxManager)
	stockService := inventory.NewService(inventoryRepo)

	handler := handlers.NewStockHandler(baseHandler, stockService)
	handler.RegisterRoutes(rg.Group("/variants"))
}
