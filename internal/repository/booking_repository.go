package repository

import (
	"context"
	"fmt"

	"github.com/iliyamo/gearshare/internal/model"
)

// NewBooking is the body of POST /bookings. ItemIDs may hold several items
// for a group booking.
type NewBooking struct {
	RenterID  int64   `json:"renterId"`
	ItemIDs   []int64 `json:"itemIds"`
	StartDate string  `json:"startDate"`
	EndDate   string  `json:"endDate"`
}

// BookingRepo wraps the /bookings endpoints. Owner and renter listings are
// scoped by the backend; nothing is filtered client-side.
type BookingRepo struct{ api *Client }

// NewBookingRepo returns a BookingRepo bound to the given client.
func NewBookingRepo(c *Client) *BookingRepo { return &BookingRepo{api: c} }

// Create submits a booking request. The backend answers with the stored
// booking in PENDING.
func (r *BookingRepo) Create(ctx context.Context, b NewBooking) (model.Booking, error) {
	var out model.Booking
	err := r.api.post(ctx, "/bookings", b, &out)
	return out, err
}

// ListByRenter returns the bookings a renter requested.
func (r *BookingRepo) ListByRenter(ctx context.Context, renterID int64) ([]model.Booking, error) {
	var out []model.Booking
	if err := r.api.get(ctx, fmt.Sprintf("/bookings/renter/%d", renterID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByOwner returns the bookings placed against an owner's items.
func (r *BookingRepo) ListByOwner(ctx context.Context, ownerID int64) ([]model.Booking, error) {
	var out []model.Booking
	if err := r.api.get(ctx, fmt.Sprintf("/bookings/owner/%d", ownerID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatus approves or declines a PENDING booking on behalf of the
// owner. The acting owner travels in the query string so the backend can
// reject anyone else with 403.
func (r *BookingRepo) UpdateStatus(ctx context.Context, bookingID, ownerID int64, approved bool) (model.Booking, error) {
	var out model.Booking
	path := fmt.Sprintf("/bookings/%d/status?ownerId=%d&approved=%t", bookingID, ownerID, approved)
	err := r.api.patch(ctx, path, nil, &out)
	return out, err
}
