package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gearshare/internal/middleware"
	"github.com/iliyamo/gearshare/internal/model"
	"github.com/iliyamo/gearshare/internal/service"
)

// AuthHandler serves the login, register and logout forms.
type AuthHandler struct {
	base
	Auth     *service.AuthService
	Sessions *middleware.Sessions
}

func NewAuthHandler(auth *service.AuthService, sessions *middleware.Sessions, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{base: newBase(logger), Auth: auth, Sessions: sessions}
}

type loginData struct {
	Next  string
	Email string
}

type registerData struct {
	Name  string
	Email string
	Role  string
}

// afterLogin is where a freshly signed-in user lands. Admins always open the
// dashboard; everyone else goes back to where they were heading.
func afterLogin(u model.User, next string) string {
	if u.IsAdmin() {
		return "/owner-dashboard"
	}
	if localPath(next) {
		return next
	}
	return "/"
}

// LoginPage: GET /login
func (h *AuthHandler) LoginPage(c echo.Context) error {
	next := c.QueryParam("next")
	if u := currentUser(c); u != nil {
		return c.Redirect(http.StatusSeeOther, afterLogin(*u, next))
	}
	if !localPath(next) {
		next = ""
	}
	return h.render(c, http.StatusOK, "login", "Log in", loginData{Next: next})
}

// Login: POST /login
func (h *AuthHandler) Login(c echo.Context) error {
	var in service.LoginInput
	_ = c.Bind(&in)
	next := c.FormValue("next")
	if !localPath(next) {
		next = ""
	}
	data := loginData{Next: next, Email: in.Email}

	sctx, sid, err := h.Sessions.Begin(c)
	if err != nil {
		h.Log.Error("new session", "err", err)
		return h.renderError(c, http.StatusInternalServerError, "login", "Log in", data, formMessage(err))
	}
	ctx, cancel := context.WithTimeout(sctx, requestTimeout)
	defer cancel()

	u, err := h.Auth.Login(ctx, sid, in)
	if err != nil {
		if c.Request().Context().Err() != nil {
			return nil
		}
		return h.renderError(c, formStatus(err), "login", "Log in", data, formMessage(err))
	}
	h.Sessions.Commit(c, sid)
	h.Log.Info("user logged in", "user_id", u.ID, "role", u.Role)
	return c.Redirect(http.StatusSeeOther, afterLogin(u, next))
}

// RegisterPage: GET /register
func (h *AuthHandler) RegisterPage(c echo.Context) error {
	if u := currentUser(c); u != nil {
		return c.Redirect(http.StatusSeeOther, afterLogin(*u, ""))
	}
	return h.render(c, http.StatusOK, "register", "Register", registerData{Role: string(model.RoleUser)})
}

// Register: POST /register. The new account is signed in right away.
func (h *AuthHandler) Register(c echo.Context) error {
	var in service.RegisterInput
	_ = c.Bind(&in)
	data := registerData{Name: in.Name, Email: in.Email, Role: in.Role}
	if in.Password != in.ConfirmPassword {
		return h.renderError(c, http.StatusUnprocessableEntity, "register", "Register", data, "Passwords do not match!")
	}

	sctx, sid, err := h.Sessions.Begin(c)
	if err != nil {
		h.Log.Error("new session", "err", err)
		return h.renderError(c, http.StatusInternalServerError, "register", "Register", data, formMessage(err))
	}
	ctx, cancel := context.WithTimeout(sctx, requestTimeout)
	defer cancel()

	u, err := h.Auth.Register(ctx, sid, in)
	if err != nil {
		if c.Request().Context().Err() != nil {
			return nil
		}
		return h.renderError(c, formStatus(err), "register", "Register", data, formMessage(err))
	}
	h.Sessions.Commit(c, sid)
	h.Log.Info("user registered", "user_id", u.ID, "role", u.Role)
	return redirect(c, afterLogin(u, ""), "registered")
}

// Logout: POST /logout
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.Sessions.Clear(c); err != nil {
		h.Log.Warn("logout", "err", err)
	}
	return redirect(c, "/", "logged_out")
}
