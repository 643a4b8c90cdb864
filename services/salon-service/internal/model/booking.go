package model

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no-show"
)

var statuses = []Status{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow}

func ParseStatus(raw string) (Status, bool) {
	for _, s := range statuses {
		if string(s) == raw {
			return s, true
		}
	}
	return "", false
}

// Blocking reports whether a booking in this status occupies its interval.
func (s Status) Blocking() bool {
	return s != StatusCancelled && s != StatusNoShow
}

// Booking stores its interval as a naive salon-local date and clock times.
// EndTime is always StartTime plus DurationMinutes.
type Booking struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	ServiceID       string     `json:"service_id"`
	StaffID         string     `json:"staff_id,omitempty"`
	Date            string     `json:"date"`
	StartTime       string     `json:"start_time"`
	EndTime         string     `json:"end_time"`
	Status          Status     `json:"status"`
	Notes           string     `json:"notes,omitempty"`
	Price           string     `json:"price"`
	DurationMinutes int        `json:"duration_minutes"`
	CancelReason    string     `json:"cancellation_reason,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy     string     `json:"cancelled_by,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// BookingFilter narrows List. Empty fields match everything; From and To
// are inclusive YYYY-MM-DD bounds.
type BookingFilter struct {
	UserID  string
	StaffID string
	From    string
	To      string
	Status  Status
	Limit   int
}
