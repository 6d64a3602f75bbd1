package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/parking-lot/internal/config"
	"github.com/iliyamo/parking-lot/internal/handler"
	"github.com/iliyamo/parking-lot/internal/model"
)

// stubParking satisfies handler.ParkingService; only Lot is callable.
type stubParking struct{ handler.ParkingService }

func (stubParking) Lot(context.Context) (model.LotView, error) {
	return model.LotView{Floors: []model.FloorView{}}, nil
}

type stubUsers struct{ handler.UserStore }

type okPinger struct{}

func (okPinger) PingContext(context.Context) error { return nil }

func TestRegisterAllRoutes(t *testing.T) {
	e := echo.New()
	log := logrus.New()
	cfg := config.Config{
		RateLimit: config.RateLimitConfig{Enabled: true},
		Cache:     config.CacheConfig{Enabled: true, Prefix: "cache"},
	}

	// nil redis: limiter and cache pass through
	RegisterRoutes(e, okPinger{})
	RegisterParking(e, handler.NewParkingHandler(stubParking{}, log), cfg.RateLimit, nil, log)
	RegisterUsers(e, handler.NewUserHandler(stubUsers{}, 4, log), cfg, nil, log)

	got := map[string]bool{}
	for _, r := range e.Routes() {
		got[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /healthz",
		"GET /readyz",
		"GET /metrics",
		"GET /parking_lot",
		"POST /park_car",
		"DELETE /remove_car_by_ticket",
		"POST /slots/:id/park",
		"PUT /slots/:id/status",
		"GET /parking_sessions",
		"GET /parking_sessions/:ticket_id",
		"GET /users",
		"GET /users/:id",
		"POST /users",
		"PUT /users/:id",
	} {
		assert.True(t, got[want], "missing route %s", want)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/parking_lot", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, MetricsPath, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
