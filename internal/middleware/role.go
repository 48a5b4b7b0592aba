package middleware

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gearshare/internal/model"
)

// RequireLogin sends anonymous visitors to the login page, remembering where
// they were going.
func RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if CurrentUser(c) == nil {
			return c.Redirect(http.StatusSeeOther, LoginURL(ReturnPath(c)))
		}
		return next(c)
	}
}

// RequireRole lets through signed-in users holding one of roles. Anonymous
// visitors are redirected to the login page; other users get a 403.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return RequireLogin(func(c echo.Context) error {
			if !allowed[CurrentUser(c).Role] {
				return echo.NewHTTPError(http.StatusForbidden, "You do not have access to this page.")
			}
			return next(c)
		})
	}
}

// ReturnPath is the page to come back to after logging in. A form post
// returns to the page the form was on.
func ReturnPath(c echo.Context) string {
	r := c.Request()
	if r.Method == http.MethodGet {
		return r.URL.RequestURI()
	}
	if ref, err := url.Parse(r.Referer()); err == nil && ref.Host == r.Host {
		return ref.RequestURI()
	}
	return ""
}

// LoginURL returns the login page address with a local return path.
func LoginURL(next string) string {
	if next == "" || next == "/" || next[0] != '/' || (len(next) > 1 && next[1] == '/') {
		return "/login"
	}
	return "/login?next=" + url.QueryEscape(next)
}
