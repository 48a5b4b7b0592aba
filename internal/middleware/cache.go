package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/gearshare/internal/config"
)

// captureWriter tees the response to buf, keeping at most limit bytes
// (unbounded when limit <= 0). size counts everything written.
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
	keep := b
	if cw.limit > 0 {
		room := max(cw.limit-cw.size, 0)
		if int64(len(keep)) > room {
			keep = keep[:room]
		}
	}
	cw.buf.Write(keep)
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

// overflowed reports whether the body outgrew the capture limit.
func (cw *captureWriter) overflowed() bool {
	return cw.limit > 0 && cw.size > cw.limit
}

func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
	u := c.Request().URL
	sum := sha1.Sum([]byte(u.Path + "?" + u.RawQuery))
	return cfg.Prefix + ":" + hex.EncodeToString(sum[:])
}

// cachedPage is what a cache entry holds.
type cachedPage struct {
	Status int         `json:"s"`
	Header http.Header `json:"h,omitempty"`
	Body   []byte      `json:"b"`
}

func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	return json.Marshal(cachedPage{Status: status, Header: header, Body: body})
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	var p cachedPage
	if err := json.Unmarshal(bs, &p); err != nil || p.Status == 0 {
		return 0, nil, nil, false
	}
	if p.Header == nil {
		p.Header = http.Header{}
	}
	return p.Status, p.Header, p.Body, true
}

// NoStore marks the response as not to be kept by the page cache. Handlers
// call it for pages rendered without their backend data.
func NoStore(c echo.Context) {
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
}

func noStore(h http.Header) bool {
	return strings.Contains(strings.ToLower(h.Get(echo.HeaderCacheControl)), "no-store")
}

// headers that belong to one response only and are never replayed from cache.
var uncachedHeaders = []string{echo.HeaderContentLength, echo.HeaderSetCookie, echo.HeaderXRequestID, "X-Cache"}

// NewRedisCache serves anonymous GET pages under cfg.Paths from Redis.
// Signed-in visitors always bypass it, since their pages show per-user
// navigation and affordances. Only 200 responses without
// "Cache-Control: no-store" are stored.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	cacheable := func(c echo.Context) bool {
		r := c.Request()
		return r.Method == http.MethodGet &&
			CurrentUser(c) == nil &&
			cfg.Cacheable(r.URL.Path) &&
			!r.URL.Query().Has("notice")
	}

	replay := func(c echo.Context, bs []byte) bool {
		status, hdr, body, ok := decodePayload(bs)
		if !ok {
			return false
		}
		for _, k := range uncachedHeaders {
			hdr.Del(k)
		}
		out := c.Response().Header()
		for k, vals := range hdr {
			out[k] = vals
		}
		out.Set("X-Cache", "HIT")
		c.Response().WriteHeader(status)
		_, _ = c.Response().Write(body)
		return true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cacheable(c) {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cacheKeyFrom(cfg, c)

			if bs, err := rdb.Get(ctx, key).Bytes(); err == nil && replay(c, bs) {
				return nil
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: int64(cfg.MaxBodyBytes)}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.overflowed() || noStore(c.Response().Header()) {
				return nil
			}

			hdr := c.Response().Header().Clone()
			for _, k := range uncachedHeaders {
				hdr.Del(k)
			}
			payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes())
			if err == nil {
				_ = rdb.SetEx(context.WithoutCancel(ctx), key, payload, cfg.TTL).Err()
			}
			return nil
		}
	}
}
