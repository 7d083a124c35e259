// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	playground "github.com/go-playground/validator/v10"

	"stockcost/internal/core/idempotency"
	"stockcost/internal/domain/catalogs/product"
	"stockcost/internal/domain/documents/purchase_order"
	"stockcost/internal/domain/documents/receiving"
	"stockcost/internal/domain/registers/stock"
	"stockcost/internal/infrastructure/http/v1/handlers"
	"stockcost/internal/infrastructure/http/v1/middleware"
	"stockcost/pkg/logger"
	"stockcost/pkg/validator"
)

// Services bundles the domain services exposed over HTTP.
type Services struct {
	Products       *product.Service
	PurchaseOrders *purchase_order.Service
	Receiving      *receiving.Service
	Stock          *stock.Service
}

// RouterConfig holds router configuration.
type RouterConfig struct {
	Services Services

	// Logger for request logging
	Logger *logger.Logger

	// DB is pinged by /health/ready; nil for the memory store.
	DB handlers.Pinger

	// Storage names the storage driver in health output.
	Storage string

	// Idempotency, when set, enables X-Idempotency-Key handling on mutations.
	Idempotency idempotency.Store

	// Development enables gin debug mode.
	Development bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if v, ok := binding.Validator.Engine().(*playground.Validate); ok {
		validator.Register(v)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace(cfg.Logger))
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Storage)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	api := router.Group("/api/v1")
	if cfg.Idempotency != nil {
		api.Use(middleware.Idempotency(cfg.Idempotency))
	}

	base := handlers.NewBaseHandler()
	registerCatalogRoutes(api, base, cfg.Services)
	registerDocumentRoutes(api, base, cfg.Services)
	registerRegisterRoutes(api, base, cfg.Services)

	return router
}

func registerCatalogRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, svc Services) {
	h := handlers.NewProductHandler(base, svc.Products)

	products := rg.Group("/catalog/products")
	{
		products.POST("", h.Create)
		products.GET("", h.List)
		products.GET("/:id", h.Get)
		products.POST("/:id/uoms", h.AddUOM)
		products.GET("/:id/convert", h.Convert)
	}
}

func registerDocumentRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, svc Services) {
	po := handlers.NewPurchaseOrderHandler(base, svc.PurchaseOrders)
	orders := rg.Group("/document/purchase-orders")
	{
		orders.POST("", po.Create)
		orders.GET("", po.List)
		orders.GET("/:id", po.Get)
		orders.POST("/:id/cancel", po.Cancel)
	}

	rv := handlers.NewReceivingHandler(base, svc.Receiving)
	vouchers := rg.Group("/document/receiving")
	{
		vouchers.POST("", rv.Receive)
		vouchers.POST("/receive-stock", rv.ReceiveStock)
		vouchers.GET("", rv.List)
		vouchers.GET("/:id", rv.Get)
		vouchers.POST("/:id/cancel", rv.Cancel)
	}
}

func registerRegisterRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, svc Services) {
	h := handlers.NewStockHandler(base, svc.Stock)

	st := rg.Group("/registers/stock")
	{
		st.GET("/balances", h.GetBalances)
		st.GET("/movements", h.GetMovements)
		st.POST("/adjustments", h.Adjust)
	}
}
