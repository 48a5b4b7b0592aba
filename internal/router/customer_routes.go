package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gearshare/internal/handler"
	"github.com/iliyamo/gearshare/internal/middleware"
)

// RegisterCustomer registers the renter pages. Every route requires a signed
// in user of any role. Middleware is attached per route so unknown paths
// still reach the 404 page instead of the login redirect.
func RegisterCustomer(e *echo.Echo, h *handler.CustomerHandler) {
	login := middleware.RequireLogin
	e.POST("/items/:id/bookings", h.CreateBooking, login)
	e.POST("/items/:id/reviews", h.AddReview, login)
	e.GET("/my-bookings", h.MyBookings, login)
	e.GET("/payment/:bookingId", h.PaymentPage, login)
	e.POST("/payment/:bookingId", h.Pay, login)
}
