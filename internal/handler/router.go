package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flicky/storefront-api/internal/metrics"
	"github.com/flicky/storefront-api/internal/middleware"
	"github.com/flicky/storefront-api/internal/model"
	"github.com/flicky/storefront-api/internal/repository"
)

// RouterConfig carries everything NewRouter wires into the engine. Health
// may be nil, in which case the health routes are not registered.
type RouterConfig struct {
	Log           *slog.Logger
	JWTSecret     string
	Denylist      repository.TokenDenylist
	SessionCookie string
	SessionTTL    time.Duration

	Auth     *AuthHandler
	Catalog  *CatalogHandler
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Orders   *OrderHandler
	Admin    *AdminHandler
	Health   *HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(cfg.Log), metrics.Middleware())

	if cfg.Health != nil {
		router.GET("/healthz", cfg.Health.Healthz)
		router.GET("/readyz", cfg.Health.Readyz)
	}
	router.GET("/metrics", metrics.Handler())

	authRequired := middleware.AuthMiddleware(cfg.JWTSecret, cfg.Denylist)
	session := middleware.Session(cfg.SessionCookie, cfg.SessionTTL)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", cfg.Auth.Register)
		auth.POST("/login", cfg.Auth.Login)
		auth.POST("/logout", authRequired, cfg.Auth.Logout)
		auth.GET("/me", authRequired, cfg.Auth.Me)

		stores := v1.Group("/stores")
		stores.GET("", cfg.Catalog.ListStores)
		stores.GET("/:id", cfg.Catalog.GetStore)

		cart := v1.Group("/cart", session)
		cart.GET("", cfg.Cart.GetCart)
		cart.POST("/items", cfg.Cart.AddItem)
		cart.PUT("/items/:id", cfg.Cart.UpdateItem)
		cart.DELETE("/items/:id", cfg.Cart.DeleteItem)
		cart.DELETE("", cfg.Cart.Clear)

		co := v1.Group("/checkout", session, authRequired)
		co.GET("", cfg.Checkout.State)
		co.PUT("/address", cfg.Checkout.SubmitAddress)
		co.PUT("/payment", cfg.Checkout.SubmitPayment)
		co.POST("/back", cfg.Checkout.Back)
		co.DELETE("", cfg.Checkout.Cancel)
		co.POST("/confirm", cfg.Checkout.Confirm)

		orders := v1.Group("/orders", authRequired)
		orders.GET("", cfg.Orders.ListOrders)
		orders.GET("/:id", cfg.Orders.GetOrder)

		admin := v1.Group("/admin", authRequired, middleware.RequireRole(model.RoleSuperAdmin, model.RoleManager))
		admin.GET("/stores", cfg.Admin.ListStores)
		admin.POST("/stores", cfg.Admin.CreateStore)
		admin.DELETE("/stores/:id", cfg.Admin.DeleteStore)
		admin.POST("/stores/:id/products", cfg.Admin.AddProduct)
		admin.DELETE("/stores/:id/products/:productId", cfg.Admin.DeleteProduct)
		admin.GET("/managers", cfg.Admin.ListManagers)
		admin.POST("/products/describe", cfg.Admin.DescribeProduct)
	}

	return router
}
