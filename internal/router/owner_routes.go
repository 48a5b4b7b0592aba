package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gearshare/internal/handler"
	"github.com/iliyamo/gearshare/internal/middleware"
	"github.com/iliyamo/gearshare/internal/model"
)

// RegisterOwner registers the listing management and incoming request pages.
// Any signed-in user can list gear; the dashboard is for ADMIN only.
func RegisterOwner(e *echo.Echo, l *handler.ListingHandler, o *handler.OwnerBookingHandler) {
	login := middleware.RequireLogin

	// Listings
	e.GET("/items/new", l.NewItemForm, login)
	e.POST("/items", l.CreateItem, login)
	e.GET("/my-listings", l.MyListings, login)
	e.POST("/my-listings/:id/delete", l.DeleteItem, login)
	e.POST("/my-listings/:id/price", l.UpdatePrice, login)

	// Incoming booking requests
	e.GET("/owner/bookings", o.Incoming, login)
	e.POST("/owner/bookings/:id/accept", o.Accept, login)
	e.POST("/owner/bookings/:id/decline", o.Decline, login)
	e.GET("/owner-dashboard", o.Dashboard, middleware.RequireRole(model.RoleAdmin))
}
