package model

import (
	"encoding/json"
	"strings"
	"time"
)

// BookingStatus is the state of a booking request. One status governs the
// whole group of items in the booking.
type BookingStatus string

const (
	StatusPending  BookingStatus = "PENDING"
	StatusApproved BookingStatus = "APPROVED"
	StatusDeclined BookingStatus = "DECLINED"
	StatusPaid     BookingStatus = "PAID"
)

// transitions is the booking lifecycle:
//
//	PENDING --accept(owner)--> APPROVED --pay(renter)--> PAID
//	PENDING --decline(owner)--> DECLINED
//
// DECLINED and PAID are terminal.
var transitions = map[BookingStatus]map[BookingStatus]struct{}{
	StatusPending:  {StatusApproved: {}, StatusDeclined: {}},
	StatusApproved: {StatusPaid: {}},
	StatusDeclined: {},
	StatusPaid:     {},
}

// CanTransition returns whether a booking may move from one status to
// another. Unknown statuses never transition.
func CanTransition(from, to BookingStatus) bool {
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

// Terminal reports whether no transition leaves s.
func (s BookingStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// Booking records a renter's request for one or more items over a date
// range.
//
// Fields:
//
//	ID         – bookings.id
//	RenterID   – user who requested the booking
//	ItemIDs    – items in the (group) booking
//	StartDate  – first rental day
//	EndDate    – last rental day
//	TotalPrice – price computed by the backend
//	Status     – PENDING, APPROVED, DECLINED or PAID
type Booking struct {
	ID         int64         `json:"id"`
	RenterID   int64         `json:"renterId"`
	ItemIDs    []int64       `json:"itemIds"`
	StartDate  Date          `json:"startDate"`
	EndDate    Date          `json:"endDate"`
	TotalPrice float64       `json:"totalPrice"`
	Status     BookingStatus `json:"status"`
}

// CanDecide reports whether the owner may still accept or decline.
func (b Booking) CanDecide() bool {
	return CanTransition(b.Status, StatusApproved) && CanTransition(b.Status, StatusDeclined)
}

// CanPay reports whether the renter may pay the booking now.
func (b Booking) CanPay() bool { return CanTransition(b.Status, StatusPaid) }

// Days returns the inclusive number of rental days, or 0 when the range is
// incomplete.
func (b Booking) Days() int {
	if b.StartDate.IsZero() || b.EndDate.IsZero() || b.EndDate.Before(b.StartDate.Time) {
		return 0
	}
	return int(b.EndDate.Sub(b.StartDate.Time).Hours()/24) + 1
}

// Receipt is returned by the payment endpoint.
type Receipt struct {
	ID            int64         `json:"id,omitempty"`
	BookingID     int64         `json:"bookingId"`
	Amount        float64       `json:"amount"`
	PaymentMethod string        `json:"paymentMethod,omitempty"`
	Status        BookingStatus `json:"status,omitempty"`
	PaidAt        string        `json:"paidAt,omitempty"`
}

// DateLayout is the wire and form format of booking dates.
const DateLayout = "2006-01-02"

// Date is a calendar day serialized as "2006-01-02".
type Date struct{ time.Time }

// ParseDate parses a "2006-01-02" day.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "2006-01-02", a full RFC 3339 timestamp or null.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		*d = Date{t}
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	y, m, day := t.Date()
	*d = Date{time.Date(y, m, day, 0, 0, 0, 0, time.UTC)}
	return nil
}
