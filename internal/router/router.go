package router

import (
	"context"
	"time"

	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/config"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/handler"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/infra"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/middleware"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/repository"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/service"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
// dispatcher may be nil, in which case no background jobs are enqueued.
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, rdb *redis.Client, metrics *infra.Metrics, dispatcher service.JobDispatcher) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	apiLimiter := middleware.NewRateLimiter(1000, time.Minute)
	writeLimiter := middleware.NewRateLimiter(120, time.Minute)
	apiLimiter.StartPurge(ctx, 5*time.Minute)
	writeLimiter.StartPurge(ctx, 5*time.Minute)

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	if metrics != nil {
		r.Use(middleware.Metrics(metrics))
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(apiLimiter.Middleware())

	// ── Repositories ─────────────────────────────────────────────────────────
	tx := repository.NewTransactor(db)
	productRepo := repository.NewProductRepository(db)
	lotRepo := repository.NewLotRepository(db)
	movementRepo := repository.NewStockMovementRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	returnRepo := repository.NewReturnRepository(db)
	clientRepo := repository.NewClientRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	var cache service.ProductCache
	if rdb != nil {
		cache = infra.NewProductCache(rdb, time.Duration(cfg.ProductCacheTTLSeconds)*time.Second)
	}
	reconciler := service.NewStockReconciler(productRepo, lotRepo, time.Now)
	ledger := service.NewLotLedger(productRepo, lotRepo, movementRepo, reconciler, time.Now)
	pricing := service.NewPricingEngine()

	productSvc := service.NewProductService(tx, productRepo, ledger, cache, time.Now)
	inventorySvc := service.NewInventoryService(tx, productRepo, movementRepo, ledger, dispatcher, cache, metrics, time.Now)
	purchaseSvc := service.NewPurchaseService(tx, purchaseRepo, productRepo, clientRepo, ledger, pricing, dispatcher, cache, metrics, time.Now)
	returnSvc := service.NewReturnService(tx, returnRepo, purchaseRepo, productRepo, ledger, cache, metrics, time.Now)

	// ── Handlers ─────────────────────────────────────────────────────────────
	productsH := handler.NewProductsHandler(productSvc)
	inventoryH := handler.NewInventoryHandler(inventorySvc)
	purchasesH := handler.NewPurchasesHandler(purchaseSvc)
	returnsH := handler.NewReturnsHandler(returnSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))
	if metrics != nil && cfg.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	// Protected routes
	staff := middleware.RequireRole(middleware.RoleCashier, middleware.RoleAdmin)
	admin := middleware.RequireRole(middleware.RoleAdmin)
	write := writeLimiter.Middleware()

	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		v1.POST("/purchases", staff, write, purchasesH.Create)
		v1.GET("/purchases", staff, purchasesH.List)
		v1.GET("/purchases/:id", staff, purchasesH.Get)
		v1.PUT("/purchases/:id/payment", staff, write, purchasesH.AddPayment)
		v1.GET("/purchases/:id/returns", staff, returnsH.ListByPurchase)

		v1.POST("/returns", staff, write, returnsH.Create)
		v1.GET("/returns/:id", staff, returnsH.Get)

		v1.GET("/products", staff, productsH.List)
		v1.GET("/products/:id", staff, productsH.Get)
		v1.GET("/products/:id/lots", staff, inventoryH.ListLots)
		prods := v1.Group("/products", admin, write)
		{
			prods.POST("", productsH.Create)
			prods.DELETE("/:id", productsH.Delete)
			prods.PATCH("/:id/deactivate", productsH.Deactivate)
			prods.POST("/:id/stock", inventoryH.Restock)
			prods.POST("/:id/withdraw", inventoryH.Withdraw)
		}

		inv := v1.Group("/inventory", admin)
		{
			inv.GET("/alerts", inventoryH.Alerts)
			inv.GET("/movements", inventoryH.Movements)
		}
	}

	return r
}
