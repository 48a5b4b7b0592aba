package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gearshare/internal/repository"
)

// RequestLog writes one structured line per request and forwards the
// request id (set by echo's RequestID middleware) to backend calls.
func RequestLog(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			rid := c.Response().Header().Get(echo.HeaderXRequestID)
			if rid != "" {
				c.SetRequest(c.Request().WithContext(repository.WithRequestID(c.Request().Context(), rid)))
			}

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			attrs := []any{
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", status,
				"latency_ms", time.Since(start).Milliseconds(),
				"request_id", rid,
				"user_id", userID(c),
			}
			switch {
			case status >= 500:
				logger.Error("request", append(attrs, "err", err)...)
			case status >= 400:
				logger.Warn("request", attrs...)
			default:
				logger.Info("request", attrs...)
			}
			return nil
		}
	}
}
