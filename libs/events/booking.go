// Package events defines the booking event contract between the salon API
// and the notification service.
package events

import (
	"encoding/json"
	"fmt"
	"time"
)

type Type string

const (
	BookingCreated       Type = "booking.created"
	BookingRescheduled   Type = "booking.rescheduled"
	BookingCancelled     Type = "booking.cancelled"
	BookingStatusChanged Type = "booking.status_changed"
)

// Topics lists every booking topic, in a stable order.
func Topics() []string {
	return []string{
		string(BookingCreated),
		string(BookingRescheduled),
		string(BookingCancelled),
		string(BookingStatusChanged),
	}
}

func (t Type) Valid() bool {
	switch t {
	case BookingCreated, BookingRescheduled, BookingCancelled, BookingStatusChanged:
		return true
	}
	return false
}

// BookingEvent is a snapshot of a booking after a committed mutation. Dates
// and clock times are naive salon-local values.
type BookingEvent struct {
	EventID        string    `json:"event_id"`
	Type           Type      `json:"type"`
	OccurredAt     time.Time `json:"occurred_at"`
	BookingID      string    `json:"booking_id"`
	UserID         string    `json:"user_id"`
	StaffID        string    `json:"staff_id,omitempty"`
	ServiceID      string    `json:"service_id"`
	ServiceName    string    `json:"service_name,omitempty"`
	Date           string    `json:"date"`
	StartTime      string    `json:"start_time"`
	EndTime        string    `json:"end_time"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	PreviousDate   string    `json:"previous_date,omitempty"`
	PreviousStart  string    `json:"previous_start_time,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	ActorID        string    `json:"actor_id,omitempty"`
	// NotifyStaff asks the consumer to also notify the assigned staff member.
	NotifyStaff bool `json:"notify_staff,omitempty"`
	// Recipients is filled in by the producer from its user directory.
	Recipients []Recipient `json:"recipients,omitempty"`
}

type Recipient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	// Role is "customer" or "staff".
	Role string `json:"role"`
}

func (e BookingEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func Unmarshal(b []byte) (BookingEvent, error) {
	var e BookingEvent
	if err := json.Unmarshal(b, &e); err != nil {
		return BookingEvent{}, fmt.Errorf("decode booking event: %w", err)
	}
	if !e.Type.Valid() {
		return BookingEvent{}, fmt.Errorf("decode booking event: unknown type %q", e.Type)
	}
	if e.EventID == "" || e.BookingID == "" {
		return BookingEvent{}, fmt.Errorf("decode booking event: missing ids")
	}
	return e, nil
}
