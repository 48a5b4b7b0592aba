package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorHandler renders echo errors (unknown routes, 403 from RequireRole,
// 429 from the rate limiter, panics) as HTML pages.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	b := newBase(logger)
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status := http.StatusInternalServerError
		msg := "Something went wrong on our side."
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if m, ok := he.Message.(string); ok && status != http.StatusNotFound {
				msg = m
			}
			if status == http.StatusNotFound {
				msg = "We could not find that page."
			}
		}
		if status >= 500 {
			b.Log.Error("unhandled error", "path", c.Request().URL.Path, "err", err)
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		if rerr := b.render(c, status, "error", http.StatusText(status), errorData{Status: status, Message: msg}); rerr != nil {
			b.Log.Error("render error page", "err", rerr)
			_ = c.String(status, msg)
		}
	}
}
