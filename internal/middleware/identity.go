package middleware

// identity.go holds the helpers that read the signed-in user back out of the
// echo context. Session.Load stores it there.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gearshare/internal/model"
	"github.com/iliyamo/gearshare/internal/session"
	"github.com/iliyamo/gearshare/internal/utils"
)

const (
	ctxUser   = "user"
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// CurrentUser returns the signed-in user, or nil for an anonymous visitor.
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(ctxUser).(*model.User)
	return u
}

// userID returns the user id as a string, or "guest".
func userID(c echo.Context) string {
	if id, ok := c.Get(ctxUserID).(int64); ok && id > 0 {
		return strconv.FormatInt(id, 10)
	}
	return "guest"
}

// sessionKey identifies the browser session without exposing its id.
func sessionKey(c echo.Context) string {
	sid := session.IDFromContext(c.Request().Context())
	if sid == "" {
		return "none"
	}
	return utils.HashSessionID(sid)[:16]
}
