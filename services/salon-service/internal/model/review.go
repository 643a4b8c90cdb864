package model

import "time"

type Review struct {
	ID        string    `json:"id"`
	BookingID string    `json:"booking_id"`
	UserID    string    `json:"user_id"`
	ServiceID string    `json:"service_id"`
	StaffID   string    `json:"staff_id,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RatingSummary struct {
	ServiceID string  `json:"service_id"`
	Average   float64 `json:"average"`
	Count     int     `json:"count"`
}
