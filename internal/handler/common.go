package handler // handler renders the pages and handles the form posts

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gearshare/internal/middleware"
	"github.com/iliyamo/gearshare/internal/model"
	"github.com/iliyamo/gearshare/internal/repository"
	"github.com/iliyamo/gearshare/internal/service"
	"github.com/iliyamo/gearshare/internal/view"
)

// requestTimeout bounds the backend work of one page.
const requestTimeout = 15 * time.Second

// base carries what every handler needs to render and redirect.
type base struct {
	Log *slog.Logger
}

func newBase(logger *slog.Logger) base {
	if logger == nil {
		logger = slog.Default()
	}
	return base{Log: logger}
}

// reqCtx derives the backend context from the request. It is cancelled when
// the browser goes away, so late responses are dropped.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// render writes a page. The ?notice= key, when known, becomes the banner.
func (b base) render(c echo.Context, status int, name, title string, data any) error {
	return b.page(c, status, name, title, data, "", "")
}

// renderError is render with an inline form error.
func (b base) renderError(c echo.Context, status int, name, title string, data any, errMsg string) error {
	return b.page(c, status, name, title, data, errMsg, "")
}

// page renders name inside the layout. notice overrides the query key.
func (b base) page(c echo.Context, status int, name, title string, data any, errMsg, notice string) error {
	if notice == "" {
		notice = c.QueryParam("notice")
	}
	p := view.Page{
		Title: title,
		User:  middleware.CurrentUser(c),
		Path:  c.Request().URL.Path,
		Error: errMsg,
		Data:  data,
	}
	p.Notice, p.NoticeKind = view.Notice(notice)
	return c.Render(status, name, p)
}

// redirect sends a 303 to path carrying a notice key.
func redirect(c echo.Context, path, notice string) error {
	if notice != "" {
		u, err := url.Parse(path)
		if err == nil {
			q := u.Query()
			q.Set("notice", notice)
			u.RawQuery = q.Encode()
			path = u.String()
		}
	}
	return c.Redirect(http.StatusSeeOther, path)
}

// toLogin sends the visitor to the login page after the backend rejected
// the session's token. The session is already gone at that point.
func toLogin(c echo.Context) error {
	return redirect(c, middleware.LoginURL(middleware.ReturnPath(c)), "session_expired")
}

// localPath reports whether next is a path on this site.
func localPath(next string) bool {
	return len(next) > 0 && next[0] == '/' && !strings.HasPrefix(next, "//") && !strings.HasPrefix(next, "/\\")
}

// currentUser returns the signed-in user. Routes behind RequireLogin always
// have one.
func currentUser(c echo.Context) *model.User {
	return middleware.CurrentUser(c)
}

// pathID parses a positive int64 route parameter.
func pathID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// notFound renders the 404 page.
func (b base) notFound(c echo.Context) error {
	return b.render(c, http.StatusNotFound, "error", "Not found", errorData{Status: http.StatusNotFound, Message: "We could not find that page."})
}

// loadFailed handles an error while loading a page's main resource.
func (b base) loadFailed(c echo.Context, err error, what string) error {
	switch {
	case errors.Is(err, repository.ErrUnauthorized):
		return toLogin(c)
	case errors.Is(err, context.Canceled):
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return b.notFound(c)
	case errors.Is(err, repository.ErrForbidden):
		return b.render(c, http.StatusForbidden, "error", "Forbidden", errorData{Status: http.StatusForbidden, Message: "You are not allowed to see this page."})
	}
	b.Log.Error("load "+what, "err", err)
	return b.render(c, http.StatusBadGateway, "error", "Unavailable", errorData{Status: http.StatusBadGateway, Message: "The marketplace is unavailable right now. Please try again shortly."})
}

// actionFailed handles an error from a form post by redirecting back with
// a notice.
func (b base) actionFailed(c echo.Context, err error, back string) error {
	notice := "action_failed"
	switch {
	case errors.Is(err, repository.ErrUnauthorized):
		return toLogin(c)
	case errors.Is(err, context.Canceled):
		return nil
	case errors.Is(err, repository.ErrInvalidState):
		notice = "invalid_state"
	case errors.Is(err, repository.ErrForbidden):
		notice = "forbidden"
	case errors.Is(err, repository.ErrNotFound):
		notice = "not_found"
	default:
		b.Log.Warn("action failed", "path", c.Request().URL.Path, "err", err)
	}
	return redirect(c, back, notice)
}

// formStatus picks the status of a re-rendered form.
func formStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrBadCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, repository.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, repository.ErrUnavailable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// formMessage turns an error from a form submission into the text shown
// above the form.
func formMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrBadCredentials):
		return "Invalid email or password."
	case errors.Is(err, repository.ErrValidation), errors.Is(err, repository.ErrConflict):
		return capitalize(service.Message(err)) + "."
	case errors.Is(err, repository.ErrUnavailable):
		return "The marketplace is unavailable right now. Please try again shortly."
	}
	return "Something went wrong. Please try again."
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-32) + s[1:]
}

type errorData struct {
	Status  int
	Message string
}
