// Package router wires handlers and middleware onto an echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-reservation/internal/config"
	"github.com/iliyamo/hotel-reservation/internal/handler"
	"github.com/iliyamo/hotel-reservation/internal/middleware"
	"github.com/iliyamo/hotel-reservation/internal/model"
)

// Handlers is everything the routes need.
type Handlers struct {
	Health    echo.HandlerFunc
	Auth      *handler.AuthHandler
	Catalog   *handler.CatalogHandler
	Bookings  *handler.BookingHandler
	Payments  *handler.PaymentHandler
	Coupons   *handler.CouponHandler
	Inventory *handler.InventoryHandler
}

// Options carries the shared middleware settings.  Redis may be nil, which
// disables rate limiting and caching.
type Options struct {
	JWTSecret string
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Redis     *redis.Client
	Log       logrus.FieldLogger
}

// New builds the echo instance with all routes registered.
func New(h Handlers, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = middleware.NewValidator()

	e.Use(echomw.Recover())
	e.Use(middleware.RequestIDMiddleware())
	e.Use(middleware.Logger(opts.Log))

	var (
		limiter = middleware.NewTokenBucket(opts.RateLimit, nil, opts.Log)
		cache   = middleware.NewRedisCache(opts.Cache, nil)
	)
	if opts.Redis != nil {
		limiter = middleware.NewTokenBucket(opts.RateLimit, opts.Redis, opts.Log)
		cache = middleware.NewRedisCache(opts.Cache, opts.Redis)
	}

	e.GET("/healthz", h.Health)

	registerAuth(e, h.Auth, opts.JWTSecret, limiter)
	registerPublic(e, h, opts.JWTSecret, limiter, cache)
	registerCustomer(e, h, opts.JWTSecret, limiter)
	registerAdmin(e, h, opts.JWTSecret)
	return e
}

func registerAuth(e *echo.Echo, a *handler.AuthHandler, secret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limiter)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout, middleware.OptionalJWT(secret))

	e.GET("/v1/me", a.Me, middleware.JWTAuth(secret))
}

// registerPublic mounts guest endpoints.  Bookings may carry an optional
// token so signed-in customers get the booking linked to their account.
func registerPublic(e *echo.Echo, h Handlers, secret string, limiter, cache echo.MiddlewareFunc) {
	g := e.Group("/v1", limiter)

	g.GET("/hotels", h.Catalog.ListHotels, cache)
	g.GET("/hotels/:id/rooms", h.Catalog.ListRooms, cache)
	g.GET("/hotels/:id/availability", h.Catalog.HotelAvailability)
	g.GET("/rooms/:id/availability", h.Catalog.RoomAvailability)

	g.POST("/bookings", h.Bookings.Create, middleware.OptionalJWT(secret))
	g.GET("/bookings/:id", h.Bookings.Get, middleware.OptionalJWT(secret))

	g.POST("/coupons/verify", h.Coupons.Verify)

	g.POST("/payments/orders", h.Payments.CreateOrder)
	g.POST("/payments/razorpay/verify", h.Payments.RazorpayVerify)
	g.POST("/payments/plural/callback", h.Payments.PluralCallback)
}

func registerCustomer(e *echo.Echo, h Handlers, secret string, limiter echo.MiddlewareFunc) {
	// per-route middleware keeps unknown /v1 paths answering 404 rather than 401
	auth := []echo.MiddlewareFunc{limiter, middleware.JWTAuth(secret), middleware.RequireRole(model.RoleCustomer, model.RoleAdmin)}
	e.GET("/v1/my-bookings", h.Bookings.Mine, auth...)
	e.POST("/v1/bookings/:id/cancel", h.Bookings.Cancel, auth...)
}

func registerAdmin(e *echo.Echo, h Handlers, secret string) {
	g := e.Group("/v1/admin", middleware.JWTAuth(secret), middleware.RequireRole(model.RoleAdmin))

	g.GET("/bookings", h.Bookings.AdminList)
	g.PATCH("/bookings/:id/status", h.Bookings.Override)
	g.DELETE("/bookings/:id", h.Bookings.Delete)

	g.PATCH("/rooms/inventory", h.Inventory.Update)
	g.POST("/hotels", h.Catalog.CreateHotel)
	g.POST("/rooms", h.Catalog.CreateRoom)

	g.GET("/coupons", h.Coupons.List)
	g.POST("/coupons", h.Coupons.Create)
}
