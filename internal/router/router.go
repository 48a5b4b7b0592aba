package router // package router defines how the page routes are registered

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gearshare/internal/handler"
)

// RegisterRoutes registers routes that need neither a session nor the
// backend. Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Used by load balancers; it never calls the backend.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the login, register and logout forms. They are open
// to everyone; the handlers send signed-in visitors onwards.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	e.GET("/login", a.LoginPage)
	e.POST("/login", a.Login)
	e.GET("/register", a.RegisterPage)
	e.POST("/register", a.Register)
	e.POST("/logout", a.Logout)
}

// RegisterPublic registers the catalog pages guests may browse.
func RegisterPublic(e *echo.Echo, b *handler.BrowseHandler) {
	e.GET("/", b.Home)
	e.GET("/browse", b.Browse)
	// /items/new is static and wins over this param route.
	e.GET("/items/:id", b.ItemDetails)
}
