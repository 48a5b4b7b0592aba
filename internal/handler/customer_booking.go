package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gearshare/internal/model"
	"github.com/iliyamo/gearshare/internal/repository"
	"github.com/iliyamo/gearshare/internal/service"
)

// CustomerHandler serves the renter side: requesting a booking, reviewing an
// item, the renter's bookings and the mock payment.
type CustomerHandler struct {
	base
	Items    *service.ItemService
	Reviews  *service.ReviewService
	Bookings *service.BookingService
}

func NewCustomerHandler(items *service.ItemService, reviews *service.ReviewService, bookings *service.BookingService, logger *slog.Logger) *CustomerHandler {
	return &CustomerHandler{base: newBase(logger), Items: items, Reviews: reviews, Bookings: bookings}
}

type bookingsData struct {
	Bookings  []model.Booking
	Dashboard bool
}

type paymentData struct {
	Booking model.Booking
}

func itemPath(id int64) string { return "/items/" + strconv.FormatInt(id, 10) }

// itemForm re-renders the item page with an inline error.
func (h *CustomerHandler) itemForm(c echo.Context, it model.Item, err error) error {
	data := itemData{Item: it, IsOwner: it.OwnedBy(currentUser(c)), Today: time.Now().Format(model.DateLayout)}
	return h.renderError(c, formStatus(err), "item", it.Name, data, formMessage(err))
}

// CreateBooking: POST /items/:id/bookings
func (h *CustomerHandler) CreateBooking(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return h.notFound(c)
	}
	u := currentUser(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	it, err := h.Items.Get(ctx, id)
	if err != nil {
		return h.loadFailed(c, err, "item")
	}
	if it.OwnedBy(u) {
		return redirect(c, itemPath(id), "own_item")
	}

	b, err := h.Bookings.Create(ctx, service.BookingInput{
		RenterID:  u.ID,
		ItemIDs:   []int64{id},
		StartDate: strings.TrimSpace(c.FormValue("startDate")),
		EndDate:   strings.TrimSpace(c.FormValue("endDate")),
	})
	if errors.Is(err, repository.ErrValidation) || errors.Is(err, repository.ErrConflict) {
		return h.itemForm(c, it, err)
	}
	if err != nil {
		return h.actionFailed(c, err, itemPath(id))
	}
	h.Log.Info("booking requested", "booking_id", b.ID, "item_id", id, "renter_id", u.ID)
	return redirect(c, "/my-bookings", "booking_requested")
}

// AddReview: POST /items/:id/reviews
func (h *CustomerHandler) AddReview(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return h.notFound(c)
	}
	u := currentUser(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	it, err := h.Items.Get(ctx, id)
	if err != nil {
		return h.loadFailed(c, err, "item")
	}
	rating, err := service.ParseRating(c.FormValue("rating"))
	if err != nil {
		return h.itemForm(c, it, err)
	}
	_, err = h.Reviews.AddReview(ctx, it, service.ReviewInput{
		ReviewerID: u.ID,
		Rating:     rating,
		Comment:    c.FormValue("comment"),
	})
	switch {
	case err == nil:
		return redirect(c, itemPath(id), "review_added")
	case errors.Is(err, repository.ErrForbidden):
		return redirect(c, itemPath(id), "own_item")
	case errors.Is(err, repository.ErrValidation):
		return h.itemForm(c, it, err)
	}
	return h.actionFailed(c, err, itemPath(id))
}

// MyBookings: GET /my-bookings
func (h *CustomerHandler) MyBookings(c echo.Context) error {
	u := currentUser(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	list, err := h.Bookings.ListForRenter(ctx, u.ID)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrUnauthorized):
		return toLogin(c)
	case c.Request().Context().Err() != nil:
		return nil
	default:
		h.Log.Warn("list renter bookings", "user_id", u.ID, "err", err)
		return h.page(c, http.StatusOK, "my_bookings", "My bookings", bookingsData{}, "", "load_failed")
	}
	return h.render(c, http.StatusOK, "my_bookings", "My bookings", bookingsData{Bookings: list})
}

// PaymentPage: GET /payment/:bookingId
func (h *CustomerHandler) PaymentPage(c echo.Context) error {
	id, ok := pathID(c, "bookingId")
	if !ok {
		return h.notFound(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Bookings.FindForRenter(ctx, currentUser(c).ID, id)
	if err != nil {
		return h.loadFailed(c, err, "booking")
	}
	if !b.CanPay() || !service.ValidPrice(b.TotalPrice) {
		return redirect(c, "/my-bookings", "not_payable")
	}
	return h.render(c, http.StatusOK, "payment", "Payment", paymentData{Booking: b})
}

// Pay: POST /payment/:bookingId. The card number is not checked; the
// backend records a mock card payment for the booking total.
func (h *CustomerHandler) Pay(c echo.Context) error {
	id, ok := pathID(c, "bookingId")
	if !ok {
		return h.notFound(c)
	}
	u := currentUser(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	rc, err := h.Bookings.Pay(ctx, u.ID, id)
	if errors.Is(err, repository.ErrInvalidState) {
		return redirect(c, "/my-bookings", "not_payable")
	}
	if err != nil {
		return h.actionFailed(c, err, "/my-bookings")
	}
	h.Log.Info("booking paid", "booking_id", id, "renter_id", u.ID, "amount", rc.Amount)
	return redirect(c, "/my-bookings", "payment_success")
}
