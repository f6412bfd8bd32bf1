package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/handlers"
	"github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	sessionmw "github.com/Skotchmaster/storefront/internal/middleware/session"
)

type Deps struct {
	DB    *gorm.DB
	Redis *redis.Client

	Auth    *auth.Middleware
	Session sessionmw.Config
	CSRF    csrf.Config

	AuthHandler     *handlers.AuthHTTP
	CatalogHandler  *handlers.CatalogHTTP
	CartHandler     *handlers.CartHTTP
	CheckoutHandler *handlers.CheckoutHTTP
	OrderHandler    *handlers.OrderHTTP
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", d.ready)

	v1 := e.Group("/api/v1", csrf.Middleware(d.CSRF))

	authGroup := v1.Group("/auth")
	authGroup.POST("/register", d.AuthHandler.Register)
	authGroup.POST("/login", d.AuthHandler.Login)
	authGroup.POST("/logout", d.AuthHandler.LogOut)

	v1.GET("/categories", d.CatalogHandler.Categories)

	products := v1.Group("/products")
	products.GET("", d.CatalogHandler.Products)
	products.GET("/search", d.CatalogHandler.Search)
	products.GET("/:id/:slug", d.CatalogHandler.Product)

	session := sessionmw.Middleware(d.Session)

	cart := v1.Group("/cart", session)
	cart.GET("", d.CartHandler.Get)
	cart.POST("/clear", d.CartHandler.Clear)
	cart.POST("/:product_id", d.CartHandler.Add)
	cart.POST("/:product_id/ajax", d.CartHandler.AddAJAX)
	cart.POST("/:product_id/remove", d.CartHandler.Remove)

	orders := v1.Group("/orders", d.Auth.RequireAuth)
	orders.GET("/checkout", d.CheckoutHandler.Form, session)
	orders.POST("/checkout", d.CheckoutHandler.Submit, session)
	orders.GET("", d.OrderHandler.List)
	orders.GET("/:id", d.OrderHandler.Get)

	admin := v1.Group("/admin", d.Auth.RequireAdmin)
	admin.PATCH("/orders/:id/status", d.OrderHandler.UpdateStatus)

	payments := v1.Group("/payments")
	payments.GET("/pix/webhook", handlers.PixWebhook)
	payments.POST("/pix/webhook", handlers.PixWebhook)
}

func (d *Deps) ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if d.DB != nil {
		sqlDB, err := d.DB.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "db unavailable"})
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Ping(ctx).Err(); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "redis unavailable"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
