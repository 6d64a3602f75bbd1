package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/parking-lot/internal/config"
	"github.com/iliyamo/parking-lot/internal/handler"
	"github.com/iliyamo/parking-lot/internal/middleware"
)

// MetricsPath is where the Prometheus handler is mounted.  The metrics
// middleware skips it.
const MetricsPath = "/metrics"

// RegisterRoutes registers the operational endpoints: liveness, readiness
// and Prometheus metrics.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	if db != nil {
		e.GET("/readyz", handler.Ready(db))
	}
	e.GET(MetricsPath, echo.WrapHandler(promhttp.Handler()))
}

// RegisterParking registers the lot, parking and session routes.  Routes
// that change slot state go through the token bucket limiter; a nil redis
// client disables it.
func RegisterParking(e *echo.Echo, h *handler.ParkingHandler, rl config.RateLimitConfig, rdb *redis.Client, log logrus.FieldLogger) {
	limit := middleware.TokenBucket(rl, rdb, log)

	e.GET("/parking_lot", h.Lot)
	e.POST("/park_car", h.ParkCar, limit)
	e.DELETE("/remove_car_by_ticket", h.RemoveCarByTicket, limit)

	slots := e.Group("/slots", limit)
	slots.POST("/:id/park", h.ParkAtSlot)
	slots.PUT("/:id/status", h.SetSlotStatus)

	e.GET("/parking_sessions", h.ListSessions)
	e.GET("/parking_sessions/:ticket_id", h.GetSession)
}

// RegisterUsers registers /users.  Reads are served from the response
// cache under the "users" prefix and every successful write purges it.
func RegisterUsers(e *echo.Echo, h *handler.UserHandler, cfg config.Config, rdb *redis.Client, log logrus.FieldLogger) {
	cc := cfg.Cache.WithPrefix("users")
	cached := middleware.ResponseCache(cc, rdb, log)
	purge := middleware.InvalidateCache(cc, rdb, log)
	limit := middleware.TokenBucket(cfg.RateLimit, rdb, log)

	g := e.Group("/users")
	g.GET("", h.List, cached)
	g.GET("/:id", h.Get, cached)
	g.POST("", h.Create, limit, purge)
	g.PUT("/:id", h.Update, limit, purge)
}
