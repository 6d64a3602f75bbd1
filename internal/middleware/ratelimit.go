package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/parking-lot/internal/config"
)

// limiterScript refills whole intervals since the stored timestamp, then
// takes one token.  ARGV: now_ms, capacity, refill, interval_ms, ttl_s.
// Returns {allowed, remaining, retry_ms}.
var limiterScript = redis.NewScript(`
local cap, refill, every = tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4])
local now = tonumber(ARGV[1])
local bucket = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local left, ts = tonumber(bucket[1]), tonumber(bucket[2])
if not left or not ts then
  left, ts = cap, now
end
if every > 0 and refill > 0 and now > ts then
  local n = math.floor((now - ts) / every)
  if n > 0 then
    left = math.min(cap, left + n * refill)
    ts = ts + n * every
  end
end
local ok, wait = 0, 0
if left >= 1 then
  ok, left = 1, left - 1
else
  wait = math.max(0, ts + every - now)
end
redis.call('HSET', KEYS[1], 'tokens', left, 'ts', ts)
redis.call('EXPIRE', KEYS[1], tonumber(ARGV[5]))
return { ok, left, wait }
`)

// TokenBucket limits requests with a Redis-backed token bucket shared by
// every server instance.  Redis failures fail open.
func TokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log logrus.FieldLogger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			args := []any{
				time.Now().UnixMilli(),
				cfg.Capacity,
				cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(),
				int64(cfg.TTL / time.Second),
			}

			vals, err := limiterScript.Run(c.Request().Context(), rdb, []string{key}, args...).Result()
			if err != nil {
				log.WithError(err).WithField("key", key).Warn("rate limiter unavailable")
				return next(c)
			}
			arr, ok := vals.([]any)
			if !ok || len(arr) != 3 {
				log.WithField("key", key).Warnf("unexpected limiter result %#v", vals)
				return next(c)
			}
			allowed := fmt.Sprint(arr[0]) == "1"
			remaining := asInt64(arr[1])
			retryMs := asInt64(arr[2])

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if !allowed {
				secs := max(int(math.Ceil(float64(retryMs)/1000.0)), 0)
				h.Set("Retry-After", strconv.Itoa(secs))
				if cfg.Debug {
					log.WithFields(logrus.Fields{"key": key, "retry_ms": retryMs}).Info("rate limit block")
				}
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "rate limit exceeded",
					"retry_after": secs,
				})
			}
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			return next(c)
		}
	}
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int32:
		return int64(t)
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// buildRateKey scopes the bucket by client ip, route template, or both
// (the default).
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	route := c.Request().Method + " " + c.Path()

	var b strings.Builder
	b.WriteString(cfg.Prefix)
	strategy := strings.ToLower(cfg.KeyStrategy)
	if strategy != "route" {
		b.WriteString(":ip:" + ip)
	}
	if strategy != "ip" {
		b.WriteString(":route:" + route)
	}
	return b.String()
}
