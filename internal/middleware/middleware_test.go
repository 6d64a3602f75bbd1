package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/parking-lot/internal/config"
)

func TestRequestLoggerAssignsID(t *testing.T) {
	logger, hook := test.NewNullLogger()
	e := echo.New()
	e.Use(RequestLogger(logger))
	var seen string
	e.GET("/parking_lot", func(c echo.Context) error {
		seen = RequestID(c)
		return c.String(http.StatusOK, "ok")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/parking_lot", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(echo.HeaderXRequestID))
	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "/parking_lot", entry.Data["route"])
	assert.Equal(t, http.StatusOK, entry.Data["status"])
}

func TestRequestLoggerKeepsIncomingIDAndLogsErrors(t *testing.T) {
	logger, hook := test.NewNullLogger()
	e := echo.New()
	e.Use(RequestLogger(logger))
	e.GET("/boom", func(c echo.Context) error { return errors.New("boom") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(echo.HeaderXRequestID, "abc-123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "abc-123", rec.Header().Get(echo.HeaderXRequestID))
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "abc-123", hook.LastEntry().Data["request_id"])
}

func TestMetricsCountsByRoute(t *testing.T) {
	e := echo.New()
	e.Use(Metrics("/metrics"))
	e.GET("/users/:id", func(c echo.Context) error { return c.NoContent(http.StatusNotFound) })
	e.GET("/metrics", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/users/:id", "404"))
	for _, p := range []string{"/users/1", "/users/2", "/metrics"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/users/:id", "404"))
	assert.Equal(t, before+2, after)
	assert.Equal(t, float64(0), testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/metrics", "200")))
}

func TestCacheKeyStrategies(t *testing.T) {
	e := echo.New()
	newCtx := func(method, target string) echo.Context {
		c := e.NewContext(httptest.NewRequest(method, target, nil), httptest.NewRecorder())
		c.SetPath("/users")
		return c
	}
	cfg := config.CacheConfig{Prefix: "cache:users"}

	a := cacheKeyFrom(cfg, newCtx(http.MethodGet, "/users?page=1"))
	b := cacheKeyFrom(cfg, newCtx(http.MethodGet, "/users?page=2"))
	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^cache:users:[0-9a-f]{40}$`, a)

	cfg.KeyStrategy = "route"
	assert.Equal(t, cacheKeyFrom(cfg, newCtx(http.MethodGet, "/users?page=1")),
		cacheKeyFrom(cfg, newCtx(http.MethodGet, "/users?page=2")))

	cfg.KeyStrategy = "method_route"
	assert.NotEqual(t, cacheKeyFrom(cfg, newCtx(http.MethodGet, "/users")),
		cacheKeyFrom(cfg, newCtx(http.MethodHead, "/users")))
}

func TestCacheKeyUsesRequestPathNotTemplate(t *testing.T) {
	for _, strategy := range []string{"", "route", "method_route"} {
		cfg := config.CacheConfig{Prefix: "cache:users", KeyStrategy: strategy}
		var keys []string
		e := echo.New()
		e.GET("/users/:id", func(c echo.Context) error {
			keys = append(keys, cacheKeyFrom(cfg, c))
			return c.NoContent(http.StatusOK)
		})
		for _, p := range []string{"/users/1", "/users/2", "/users/1"} {
			e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
		}

		require.Len(t, keys, 3, strategy)
		assert.NotEqual(t, keys[0], keys[1], "strategy %q", strategy)
		assert.Equal(t, keys[0], keys[2], "strategy %q", strategy)
	}
}

func TestPayloadDecodeRejectsTruncated(t *testing.T) {
	hdr := http.Header{"Content-Type": []string{"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`[]`))
	require.NoError(t, err)

	status, gotHdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, `[]`, string(body))

	_, _, _, ok = decodePayload(bs[:10])
	assert.False(t, ok)
	_, _, _, ok = decodePayload([]byte{1, 2})
	assert.False(t, ok)
}

func TestCaptureWriterLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}

	_, _ = cw.Write([]byte("abc"))
	_, _ = cw.Write([]byte("defg"))

	assert.Equal(t, "abcd", cw.buf.String())
	assert.Equal(t, int64(7), cw.size)
	assert.Equal(t, "abcdefg", rec.Body.String())
}

func TestDisabledMiddlewarePassThrough(t *testing.T) {
	logger, _ := test.NewNullLogger()
	e := echo.New()
	e.GET("/users",
		func(c echo.Context) error { return c.String(http.StatusOK, "ok") },
		ResponseCache(config.CacheConfig{Enabled: true}, nil, logger),
		InvalidateCache(config.CacheConfig{Enabled: true}, nil, logger),
		TokenBucket(config.RateLimitConfig{Enabled: true}, nil, logger),
	)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/park_car", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.7")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/park_car")

	cfg := config.RateLimitConfig{Prefix: "rl"}
	assert.Equal(t, "rl:ip:10.0.0.7:route:POST /park_car", buildRateKey(cfg, c))
	cfg.KeyStrategy = "ip"
	assert.Equal(t, "rl:ip:10.0.0.7", buildRateKey(cfg, c))
	cfg.KeyStrategy = "route"
	assert.Equal(t, "rl:route:POST /park_car", buildRateKey(cfg, c))
}

func TestAsInt64(t *testing.T) {
	assert.Equal(t, int64(3), asInt64(int64(3)))
	assert.Equal(t, int64(4), asInt64(float64(4)))
	assert.Equal(t, int64(5), asInt64("5"))
	assert.Equal(t, int64(0), asInt64(nil))
}
