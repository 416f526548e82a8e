package router

import (
	"time"

	"github.com/reinaldoagf/servimarket-back/internal/config"
	"github.com/reinaldoagf/servimarket-back/internal/handler"
	"github.com/reinaldoagf/servimarket-back/internal/infra"
	"github.com/reinaldoagf/servimarket-back/internal/middleware"
	"github.com/reinaldoagf/servimarket-back/internal/repository"
	"github.com/reinaldoagf/servimarket-back/internal/service"
	"github.com/reinaldoagf/servimarket-back/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, dispatcher *worker.Dispatcher, mailCB *infra.CircuitBreaker) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	stockRepo := repository.NewStockRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	aggRepo := repository.NewAggregateRepository(db)
	registerRepo := repository.NewCashRegisterRepository(db)
	clientRepo := repository.NewClientRepository(db)
	pendingRepo := repository.NewPendingRepository(db)
	productRepo := repository.NewProductRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	summaryCache := service.NewSummaryCache(rdb)
	ledger := service.NewStockLedger(stockRepo)

	authSvc := service.NewAuthService(userRepo, cfg)
	stockSvc := service.NewStockService(stockRepo, ledger)
	saleSvc := service.NewSaleService(saleRepo, ledger, aggRepo, registerRepo, clientRepo,
		dispatcher, summaryCache, cfg.VATRatePct, cfg.StrictSplitValidation)
	summarySvc := service.NewSummaryService(saleRepo, aggRepo, summaryCache)
	pendingSvc := service.NewPendingService(pendingRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	salesH := handler.NewSalesHandler(saleSvc)
	stockH := handler.NewStockHandler(stockSvc)
	summaryH := handler.NewSummaryHandler(summarySvc)
	pendingsH := handler.NewPendingsHandler(pendingSvc)
	catalogH := handler.NewCatalogHandler(productRepo)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, mailCB))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		// Roles: cashier, supervisor, admin — declared per-endpoint
		anyStaff := middleware.RequireRole("cashier", "supervisor", "admin")

		v1.POST("/sales", anyStaff, salesH.Create)
		v1.GET("/sales", anyStaff, salesH.List)
		// Static paths before the :id wildcard
		v1.GET("/sales/summary", anyStaff, summaryH.Summary)
		v1.GET("/sales/my-last-purchase", anyStaff, summaryH.MyLastPurchase)
		v1.GET("/sales/my-last-sale", anyStaff, summaryH.MyLastSale)
		v1.GET("/sales/:id", anyStaff, salesH.Get)
		v1.PUT("/sales/:id", middleware.RequireRole("supervisor", "admin"), salesH.Update)
		v1.PATCH("/sales/:id/payment", anyStaff, salesH.RecordPayment)
		v1.PATCH("/sales/:id/approve", anyStaff, salesH.Approve)

		v1.GET("/aggregates", anyStaff, summaryH.CategoryTotals)

		// Stock — read for all staff, writes for supervisor/admin
		v1.GET("/stock", anyStaff, stockH.List)
		v1.GET("/stock/:id", anyStaff, stockH.Get)
		stock := v1.Group("/stock", middleware.RequireRole("supervisor", "admin"))
		{
			stock.POST("", stockH.Create)
			stock.PUT("/:id", stockH.Update)
			stock.DELETE("/:id", stockH.Delete)
		}
		v1.DELETE("/branches/:branchId/products/:productId/stock",
			middleware.RequireRole("supervisor", "admin"), stockH.DeleteByBranchProduct)

		v1.GET("/products/:id", anyStaff, catalogH.GetProduct)
		v1.GET("/categories", anyStaff, catalogH.ListCategories)

		v1.GET("/pendings", anyStaff, pendingsH.List)
		v1.DELETE("/pendings/:id", anyStaff, pendingsH.Dismiss)

		users := v1.Group("/users", middleware.RequireRole("admin"))
		{
			users.POST("", authH.CreateUser)
			users.GET("", authH.ListUsers)
			users.DELETE("/:id", authH.DeactivateUser)
			users.PATCH("/:id/reactivate", authH.ReactivateUser)
		}
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
