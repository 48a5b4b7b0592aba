package middleware // middleware provides shared request processing for the page handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gearshare/internal/session"
)

// Sessions binds the session cookie to the session manager. Load runs on
// every request; Begin, Commit and Clear are called by the auth handlers.
type Sessions struct {
	manager *session.Manager
	cookie  string
	secure  bool
	ttl     time.Duration
	log     *slog.Logger
}

func NewSessions(m *session.Manager, cookieName string, secure bool, ttl time.Duration, logger *slog.Logger) *Sessions {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sessions{manager: m, cookie: cookieName, secure: secure, ttl: ttl, log: logger}
}

// Load reads the session cookie, puts the session id into the request
// context and the signed-in user (if any) into the echo context under
// "user", "user_id" and "role". A store failure degrades to anonymous.
func (s *Sessions) Load(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ck, err := c.Cookie(s.cookie)
		if err != nil || ck.Value == "" {
			return next(c)
		}
		sid := ck.Value
		ctx := session.WithID(c.Request().Context(), sid)
		c.SetRequest(c.Request().WithContext(ctx))

		u, err := s.manager.CurrentUser(ctx, sid)
		if err != nil {
			s.log.Error("load session", "err", err)
			return next(c)
		}
		if u != nil {
			c.Set(ctxUser, u)
			c.Set(ctxUserID, u.ID)
			c.Set(ctxRole, string(u.Role))
		}
		return next(c)
	}
}

// Begin issues a fresh session id and returns the request context bound to
// it. The browser keeps its current session until Commit, so a failed
// sign-in leaves it untouched.
func (s *Sessions) Begin(c echo.Context) (context.Context, string, error) {
	sid, err := session.NewID()
	if err != nil {
		return nil, "", err
	}
	return session.WithID(c.Request().Context(), sid), sid, nil
}

// Commit makes sid the browser's session: the previous session (if any) is
// dropped and the cookie points at sid.
func (s *Sessions) Commit(c echo.Context, sid string) {
	ctx := c.Request().Context()
	if old := session.IDFromContext(ctx); old != "" && old != sid {
		if err := s.manager.Logout(context.WithoutCancel(ctx), old); err != nil {
			s.log.Warn("drop previous session", "err", err)
		}
	}
	c.SetCookie(&http.Cookie{
		Name:     s.cookie,
		Value:    sid,
		Path:     "/",
		MaxAge:   int(s.ttl / time.Second),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	c.SetRequest(c.Request().WithContext(session.WithID(ctx, sid)))
}

// Clear signs the session out and expires the cookie.
func (s *Sessions) Clear(c echo.Context) error {
	ctx := c.Request().Context()
	err := s.manager.Logout(ctx, session.IDFromContext(ctx))
	c.SetCookie(&http.Cookie{
		Name:     s.cookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return err
}
