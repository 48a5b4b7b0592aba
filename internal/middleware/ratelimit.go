package middleware

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/gearshare/internal/config"
)

// gcra is a token bucket kept as one "theoretical arrival time" per key.
// ARGV: now_ms, ms_per_token, capacity, ttl_ms.
// Returns {allowed, remaining, retry_after_ms}.
var gcra = redis.NewScript(`
local now = tonumber(ARGV[1])
local per = tonumber(ARGV[2])
local cap = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local tat = tonumber(redis.call('GET', KEYS[1]) or now)
if tat < now then tat = now end
local nxt = tat + per
local window = per * cap
if nxt - now > window then
	return {0, 0, math.ceil(nxt - now - window)}
end
redis.call('SET', KEYS[1], nxt, 'PX', ttl)
return {1, math.floor((window - (nxt - now)) / per), 0}
`)

// NewTokenBucket limits requests per key: Capacity requests in a burst, then
// RefillTokens every RefillInterval. With rate limiting disabled or no Redis
// it passes everything through, and a Redis error lets the request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, logger *slog.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if logger == nil {
		logger = slog.Default()
	}
	perToken := float64(cfg.RefillInterval.Milliseconds()) / float64(max(cfg.RefillTokens, 1))
	limit := strconv.Itoa(cfg.Capacity)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			res, err := gcra.Run(c.Request().Context(), rdb, []string{key},
				time.Now().UnixMilli(), perToken, cfg.Capacity, cfg.TTL.Milliseconds()).Int64Slice()
			if err != nil || len(res) != 3 {
				logger.Warn("rate limit check skipped", "key", key, "err", err)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(res[1], 10))
			if res[0] != 1 {
				h.Set("Retry-After", fmt.Sprint(int64(math.Ceil(float64(res[2])/1000))))
				return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests. Please slow down and try again shortly.")
			}
			return next(c)
		}
	}
}

// rateKeyParts maps a key strategy to the parts identifying a bucket.
var rateKeyParts = map[string]func(ip, sess, route string) []string{
	"ip":       func(ip, _, _ string) []string { return []string{"ip", ip} },
	"session":  func(_, s, _ string) []string { return []string{"s", s} },
	"route":    func(_, _, r string) []string { return []string{"route", r} },
	"ip_route": func(ip, _, r string) []string { return []string{"ip", ip, "route", r} },
}

// buildRateKey names the bucket for a request. Unknown strategies fall back
// to ip + session + route.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	sess := sessionKey(c)
	route := c.Request().Method + " " + c.Path()

	parts := func(ip, s, r string) []string { return []string{"ip", ip, "s", s, "route", r} }
	if f, ok := rateKeyParts[strings.ToLower(cfg.KeyStrategy)]; ok {
		parts = f
	}
	return cfg.Prefix + ":" + strings.Join(parts(ip, sess, route), ":")
}
