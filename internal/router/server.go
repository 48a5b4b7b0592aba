package router

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/gearshare/internal/config"
	"github.com/iliyamo/gearshare/internal/handler"
	"github.com/iliyamo/gearshare/internal/middleware"
)

// Deps is everything New needs to assemble the server.
type Deps struct {
	Logger    *slog.Logger
	Renderer  echo.Renderer
	Sessions  *middleware.Sessions
	Redis     *redis.Client // nil disables rate limiting and the page cache
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig

	Auth          *handler.AuthHandler
	Browse        *handler.BrowseHandler
	Customer      *handler.CustomerHandler
	Listings      *handler.ListingHandler
	OwnerBookings *handler.OwnerBookingHandler
}

// New builds the echo instance with the middleware stack and every route.
//
// Order matters: the request id exists before the request is logged, and
// the session is loaded before the rate limiter and the cache look at it.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = d.Renderer
	e.HTTPErrorHandler = handler.ErrorHandler(d.Logger)

	e.Pre(echomw.RemoveTrailingSlashWithConfig(echomw.TrailingSlashConfig{RedirectCode: 301}))
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLog(d.Logger))
	e.Use(echomw.Recover())
	e.Use(echomw.SecureWithConfig(echomw.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "same-origin",
	}))
	e.Use(echomw.BodyLimit("1M"))
	e.Use(d.Sessions.Load)
	e.Use(middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Logger))
	e.Use(middleware.NewRedisCache(d.Cache, d.Redis))

	RegisterRoutes(e)
	RegisterAuth(e, d.Auth)
	RegisterPublic(e, d.Browse)
	RegisterCustomer(e, d.Customer)
	RegisterOwner(e, d.Listings, d.OwnerBookings)
	return e
}
