package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gearshare/internal/repository"
	"github.com/iliyamo/gearshare/internal/service"
)

// OwnerBookingHandler lists the requests made on the user's items and lets
// the owner accept or decline the pending ones.
type OwnerBookingHandler struct {
	base
	Bookings *service.BookingService
}

func NewOwnerBookingHandler(bookings *service.BookingService, logger *slog.Logger) *OwnerBookingHandler {
	return &OwnerBookingHandler{base: newBase(logger), Bookings: bookings}
}

// Incoming: GET /owner/bookings
func (h *OwnerBookingHandler) Incoming(c echo.Context) error {
	return h.list(c, "Incoming requests", false)
}

// Dashboard: GET /owner-dashboard (ADMIN)
func (h *OwnerBookingHandler) Dashboard(c echo.Context) error {
	return h.list(c, "Admin Panel", true)
}

func (h *OwnerBookingHandler) list(c echo.Context, title string, dashboard bool) error {
	u := currentUser(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	list, err := h.Bookings.ListForOwner(ctx, u.ID)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrUnauthorized):
		return toLogin(c)
	case c.Request().Context().Err() != nil:
		return nil
	default:
		h.Log.Warn("list owner bookings", "user_id", u.ID, "err", err)
		return h.page(c, http.StatusOK, "owner_bookings", title, bookingsData{Dashboard: dashboard}, "", "load_failed")
	}
	return h.render(c, http.StatusOK, "owner_bookings", title, bookingsData{Bookings: list, Dashboard: dashboard})
}

// Accept: POST /owner/bookings/:id/accept
func (h *OwnerBookingHandler) Accept(c echo.Context) error {
	return h.decide(c, true)
}

// Decline: POST /owner/bookings/:id/decline
func (h *OwnerBookingHandler) Decline(c echo.Context) error {
	return h.decide(c, false)
}

func (h *OwnerBookingHandler) decide(c echo.Context, approve bool) error {
	back := listPath(c)
	id, ok := pathID(c, "id")
	if !ok {
		return redirect(c, back, "not_found")
	}
	u := currentUser(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Bookings.SetStatus(ctx, id, u.ID, approve)
	if err != nil {
		return h.actionFailed(c, err, back)
	}
	h.Log.Info("booking decided", "booking_id", id, "owner_id", u.ID, "status", b.Status)
	if approve {
		return redirect(c, back, "booking_accepted")
	}
	return redirect(c, back, "booking_declined")
}

// listPath sends the owner back to the list the form was posted from.
func listPath(c echo.Context) string {
	if ref, err := url.Parse(c.Request().Referer()); err == nil && ref.Path == "/owner-dashboard" {
		return "/owner-dashboard"
	}
	return "/owner/bookings"
}
