package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/parking-lot/internal/config"
)

// captureWriter tees the response into buf, keeping at most limit bytes
// (0 means unbounded).  size counts everything written.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	keep := int64(len(b))
	if cw.limit > 0 {
		keep = max(0, min(keep, cw.limit-cw.size))
	}
	cw.buf.Write(b[:keep])
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

// cacheKeyFrom hashes the parts selected by cfg.KeyStrategy under
// cfg.Prefix.  The default strategy is route_query.  "route" is the
// concrete request path, never the template, so /users/1 and /users/2
// are distinct entries.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	strategy := strings.ToLower(cfg.KeyStrategy)

	h := sha1.New()
	if strings.HasPrefix(strategy, "method_") {
		io.WriteString(h, r.Method+"\n")
	}
	io.WriteString(h, r.URL.EscapedPath())
	if strategy == "" || strings.HasSuffix(strategy, "_query") {
		io.WriteString(h, "?"+r.URL.RawQuery)
	}
	return cfg.Prefix + ":" + hex.EncodeToString(h.Sum(nil))
}

// cachedResponse is the value stored per key.  Body is base64 in JSON.
type cachedResponse struct {
	Status int         `json:"s"`
	Header http.Header `json:"h,omitempty"`
	Body   []byte      `json:"b,omitempty"`
}

func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	return json.Marshal(cachedResponse{Status: status, Header: header, Body: body})
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	var cr cachedResponse
	if err := json.Unmarshal(bs, &cr); err != nil || cr.Status == 0 {
		return 0, nil, nil, false
	}
	if cr.Header == nil {
		cr.Header = make(http.Header)
	}
	return cr.Status, cr.Header, cr.Body, true
}

// skipOnReplay lists headers that are regenerated per response.
var skipOnReplay = map[string]bool{
	"Content-Length":      true,
	"X-Cache":             true,
	echo.HeaderXRequestID: true,
}

func replay(c echo.Context, status int, hdr http.Header, body []byte) {
	out := c.Response().Header()
	for k, vals := range hdr {
		if skipOnReplay[http.CanonicalHeaderKey(k)] {
			continue
		}
		out[k] = append(out[k], vals...)
	}
	out.Set("X-Cache", "HIT")
	c.Response().WriteHeader(status)
	if len(body) > 0 {
		_, _ = c.Response().Write(body)
	}
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// ResponseCache serves repeated reads from Redis.  Headers and body are
// stored together so a HIT is byte-identical to the original response.
// Only 200 responses are cached.
func ResponseCache(cfg config.CacheConfig, rdb *redis.Client, log logrus.FieldLogger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	maxBody := int64(cfg.MaxBodyBytes)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}

			ctx := c.Request().Context()
			key := cacheKeyFrom(cfg, c)

			if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					replay(c, status, hdr, body)
					return nil
				}
			} else if err != redis.Nil {
				log.WithError(err).WithField("key", key).Debug("cache read failed")
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || (maxBody > 0 && cw.size > maxBody) {
				return nil
			}

			hdr := c.Response().Header().Clone()
			payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes())
			if err != nil {
				return nil
			}
			if err := rdb.SetEx(context.WithoutCancel(ctx), key, payload, ttl).Err(); err != nil {
				log.WithError(err).WithField("key", key).Debug("cache write failed")
			}
			return nil
		}
	}
}

// InvalidateCache drops every key under cfg.Prefix after a successful
// (non-error, status < 400) write, so the next read repopulates.
func InvalidateCache(cfg config.CacheConfig, rdb *redis.Client, log logrus.FieldLogger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err != nil || c.Response().Status >= http.StatusBadRequest {
				return err
			}
			ctx := context.WithoutCancel(c.Request().Context())
			if n, perr := PurgePrefix(ctx, rdb, cfg.Prefix); perr != nil {
				log.WithError(perr).WithField("prefix", cfg.Prefix).Warn("cache invalidation failed")
			} else if n > 0 {
				log.WithFields(logrus.Fields{"prefix": cfg.Prefix, "keys": n}).Debug("cache invalidated")
			}
			return nil
		}
	}
}

// PurgePrefix deletes all keys matching "<prefix>:*" using SCAN so Redis
// is never blocked by KEYS.
func PurgePrefix(ctx context.Context, rdb *redis.Client, prefix string) (int, error) {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := rdb.Scan(ctx, cursor, prefix+":*", 200).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := rdb.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, err
			}
			deleted += int(n)
		}
		if next == 0 {
			return deleted, nil
		}
		cursor = next
	}
}
