// Package queue carries booking activity over RabbitMQ: the payloads, a
// publisher used by the booking service and a background consumer that
// appends every event to an activity log.
package queue

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ActivityQueue is the durable queue booking events are published to.
const ActivityQueue = "booking.activity"

// EventType names a step of the booking lifecycle.
type EventType string

const (
	BookingRequested EventType = "booking.requested"
	BookingApproved  EventType = "booking.approved"
	BookingDeclined  EventType = "booking.declined"
	BookingPaid      EventType = "booking.paid"
)

// BookingEvent is published after every successful booking mutation. It
// holds enough for a consumer to log or notify without calling the API.
type BookingEvent struct {
	Type       EventType `json:"type"`
	BookingID  int64     `json:"booking_id"`
	ActorID    int64     `json:"actor_id"`
	ItemIDs    []int64   `json:"item_ids,omitempty"`
	Status     string    `json:"status"`
	Amount     float64   `json:"amount,omitempty"`
	OccurredAt string    `json:"occurred_at"`
}

// NewBookingEvent stamps an event with the current UTC time.
func NewBookingEvent(t EventType, bookingID, actorID int64, status string) BookingEvent {
	return BookingEvent{
		Type:       t,
		BookingID:  bookingID,
		ActorID:    actorID,
		Status:     status,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// Line renders the event as one human-friendly log line.
func (ev BookingEvent) Line() string {
	ids := make([]string, len(ev.ItemIDs))
	for i, id := range ev.ItemIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("[%s] %s | booking_id=%d | actor_id=%d | status=%s | items=[%s] | amount=%.2f\n",
		ev.OccurredAt, ev.Type, ev.BookingID, ev.ActorID, ev.Status, strings.Join(ids, ","), ev.Amount)
}
