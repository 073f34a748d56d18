package router // package router defines how HTTP routes are registered for the control API

import (
	"github.com/labstack/echo/v4"   // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9" // rate limiter and response cache backend
	"go.uber.org/zap"              // limiter logging

	"github.com/iliyamo/irctc-booking-supporter/internal/config"     // rate limit and cache settings
	"github.com/iliyamo/irctc-booking-supporter/internal/handler"    // the handlers that implement each endpoint
	"github.com/iliyamo/irctc-booking-supporter/internal/middleware" // JWT authentication, role, rate limit and cache
	"github.com/iliyamo/irctc-booking-supporter/internal/utils"      // shell role name
)

// Deps bundles everything the routes need.  Rdb may be nil, which turns
// the rate limiter and the cache into pass-throughs.
type Deps struct {
	Cfg       config.Config
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Rdb       *redis.Client
	Log       *zap.Logger

	Auth     *handler.AuthHandler
	Messages *handler.MessageHandler
	Configs  *handler.ConfigHandler
	Status   *handler.StatusHandler
	Checks   map[string]handler.Check
}

// RegisterRoutes registers routes that do not require authentication: the
// liveness and readiness checks.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(d.Checks))
}

// RegisterAuth registers the pairing endpoint under /v1/auth.  It is rate
// limited per IP so the passphrase cannot be brute forced quickly.
func RegisterAuth(e *echo.Echo, d Deps) {
	rl := d.RateLimit
	rl.KeyStrategy = "ip_route"
	g := e.Group("/v1/auth", middleware.NewTokenBucket(rl, d.Rdb, d.Log))
	g.POST("/pair", d.Auth.Pair)
}

// RegisterControl registers the protected /v1 routes.  Every handler runs
// behind JWTAuth and the shell role; the rate limiter keys on the shell.
// Saved configuration reads are cached and writes invalidate the cache.
func RegisterControl(e *echo.Echo, d Deps) {
	g := e.Group("/v1",
		middleware.JWTAuth(d.Cfg.JWTSecret),
		middleware.RequireRole(utils.RoleShell),
		middleware.NewTokenBucket(d.RateLimit, d.Rdb, d.Log),
	)
	g.GET("/me", d.Auth.Me)

	// control messages
	g.POST("/messages", d.Messages.Post)
	g.POST("/booking/start", d.Messages.StartBooking)
	g.POST("/irctc/open", d.Messages.OpenIRCTC)

	// status and history
	g.GET("/status", d.Status.Status)
	g.GET("/runs", d.Status.Runs)
	g.GET("/runs/:id", d.Status.Run)

	// saved configurations
	cfgs := g.Group("/configurations",
		middleware.NewRedisCache(d.Cache, d.Rdb),
		middleware.InvalidateOnWrite(d.Cache, d.Rdb),
	)
	cfgs.GET("", d.Configs.List)
	cfgs.GET("/latest", d.Configs.Latest)
	cfgs.GET("/:label", d.Configs.Get)
	cfgs.PUT("/:label", d.Configs.Put)
	cfgs.DELETE("/:label", d.Configs.Delete)
}
