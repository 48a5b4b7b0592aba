package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iliyamo/gearshare/internal/model"
	"github.com/iliyamo/gearshare/internal/queue"
	"github.com/iliyamo/gearshare/internal/repository"
)

// BookingInput is a booking request for one or more items.
type BookingInput struct {
	RenterID  int64   `validate:"gt=0"`
	ItemIDs   []int64 `validate:"min=1,dive,gt=0"`
	StartDate string  `validate:"required,datetime=2006-01-02"`
	EndDate   string  `validate:"required,datetime=2006-01-02"`
}

// BookingService runs the booking workflow:
//
//	renter requests  -> PENDING
//	owner accepts    -> APPROVED   (or declines -> DECLINED)
//	renter pays      -> PAID
//
// Every transition is checked against the booking as last fetched before
// the backend is called; the backend has the final word. Successful
// mutations publish a queue.BookingEvent.
type BookingService struct {
	bookings *repository.BookingRepo
	payments *repository.PaymentRepo
	events   queue.Publisher
	log      *slog.Logger
}

func NewBookingService(bookings *repository.BookingRepo, payments *repository.PaymentRepo, events queue.Publisher, logger *slog.Logger) *BookingService {
	if events == nil {
		events = queue.NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BookingService{bookings: bookings, payments: payments, events: events, log: logger}
}

// Create submits a booking request.
func (s *BookingService) Create(ctx context.Context, in BookingInput) (model.Booking, error) {
	if err := check(in); err != nil {
		return model.Booking{}, err
	}
	start, _ := model.ParseDate(in.StartDate)
	end, _ := model.ParseDate(in.EndDate)
	if end.Before(start.Time) {
		return model.Booking{}, invalid("end date is before start date")
	}
	b, err := s.bookings.Create(ctx, repository.NewBooking{
		RenterID:  in.RenterID,
		ItemIDs:   in.ItemIDs,
		StartDate: start.String(),
		EndDate:   end.String(),
	})
	if err != nil {
		return model.Booking{}, err
	}
	ev := queue.NewBookingEvent(queue.BookingRequested, b.ID, in.RenterID, string(b.Status))
	ev.ItemIDs = in.ItemIDs
	ev.Amount = b.TotalPrice
	s.publish(ctx, ev)
	return b, nil
}

func (s *BookingService) ListForRenter(ctx context.Context, renterID int64) ([]model.Booking, error) {
	return s.bookings.ListByRenter(ctx, renterID)
}

func (s *BookingService) ListForOwner(ctx context.Context, ownerID int64) ([]model.Booking, error) {
	return s.bookings.ListByOwner(ctx, ownerID)
}

// FindForRenter returns one of the renter's bookings.
func (s *BookingService) FindForRenter(ctx context.Context, renterID, bookingID int64) (model.Booking, error) {
	list, err := s.bookings.ListByRenter(ctx, renterID)
	if err != nil {
		return model.Booking{}, err
	}
	return find(list, bookingID)
}

func find(list []model.Booking, id int64) (model.Booking, error) {
	for _, b := range list {
		if b.ID == id {
			return b, nil
		}
	}
	return model.Booking{}, repository.ErrNotFound
}

// SetStatus approves or declines a booking placed on one of ownerID's items.
func (s *BookingService) SetStatus(ctx context.Context, bookingID, ownerID int64, approved bool) (model.Booking, error) {
	to, evType := model.StatusDeclined, queue.BookingDeclined
	if approved {
		to, evType = model.StatusApproved, queue.BookingApproved
	}

	list, err := s.bookings.ListByOwner(ctx, ownerID)
	if err != nil {
		return model.Booking{}, err
	}
	cur, err := find(list, bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	if !model.CanTransition(cur.Status, to) {
		return model.Booking{}, fmt.Errorf("%w: booking is %s", repository.ErrInvalidState, cur.Status)
	}

	b, err := s.bookings.UpdateStatus(ctx, bookingID, ownerID, approved)
	if errors.Is(err, repository.ErrConflict) {
		return model.Booking{}, fmt.Errorf("%w: %s", repository.ErrInvalidState, Message(err))
	}
	if err != nil {
		return model.Booking{}, err
	}
	if b.ID == 0 {
		b = cur
		b.Status = to
	}
	ev := queue.NewBookingEvent(evType, bookingID, ownerID, string(b.Status))
	ev.ItemIDs = b.ItemIDs
	s.publish(ctx, ev)
	return b, nil
}

func (s *BookingService) Accept(ctx context.Context, bookingID, ownerID int64) (model.Booking, error) {
	return s.SetStatus(ctx, bookingID, ownerID, true)
}

func (s *BookingService) Decline(ctx context.Context, bookingID, ownerID int64) (model.Booking, error) {
	return s.SetStatus(ctx, bookingID, ownerID, false)
}

// Pay settles an APPROVED booking of renterID with the mock card method.
// The amount charged is the booking's total; a booking without a positive
// total cannot be paid.
func (s *BookingService) Pay(ctx context.Context, renterID, bookingID int64) (model.Receipt, error) {
	cur, err := s.FindForRenter(ctx, renterID, bookingID)
	if err != nil {
		return model.Receipt{}, err
	}
	if !cur.CanPay() {
		return model.Receipt{}, fmt.Errorf("%w: booking is %s", repository.ErrInvalidState, cur.Status)
	}
	amount := cur.TotalPrice
	if !ValidPrice(amount) {
		return model.Receipt{}, fmt.Errorf("%w: booking has no total to pay", repository.ErrInvalidState)
	}

	rc, err := s.payments.Pay(ctx, bookingID, amount, repository.PaymentMethodCard)
	if errors.Is(err, repository.ErrConflict) || errors.Is(err, repository.ErrValidation) {
		return model.Receipt{}, fmt.Errorf("%w: %s", repository.ErrInvalidState, Message(err))
	}
	if err != nil {
		return model.Receipt{}, err
	}
	if rc.Status == "" {
		rc.Status = model.StatusPaid
	}
	ev := queue.NewBookingEvent(queue.BookingPaid, bookingID, renterID, string(rc.Status))
	ev.ItemIDs = cur.ItemIDs
	ev.Amount = rc.Amount
	s.publish(ctx, ev)
	return rc, nil
}

// publish never fails the caller; the user action already succeeded.
func (s *BookingService) publish(ctx context.Context, ev queue.BookingEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := s.events.PublishBooking(ctx, ev); err != nil {
		s.log.Warn("publish booking event", "type", ev.Type, "booking_id", ev.BookingID, "err", err)
	}
}
