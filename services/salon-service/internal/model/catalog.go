package model

import (
	"strings"
	"time"
)

type Service struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Price           string    `json:"price"`
	DurationMinutes int       `json:"duration_minutes"`
	Category        string    `json:"category"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Break struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type DaySchedule struct {
	Working bool    `json:"working"`
	Start   string  `json:"start"`
	End     string  `json:"end"`
	Breaks  []Break `json:"breaks,omitempty"`
}

// DefaultDay applies to staff without configured working hours.
var DefaultDay = DaySchedule{Working: true, Start: "09:00", End: "17:00"}

// WeeklyHours is keyed by lowercase English weekday name ("monday").
type WeeklyHours map[string]DaySchedule

type Staff struct {
	ID             string      `json:"id"`
	UserID         string      `json:"user_id,omitempty"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	Phone          string      `json:"phone"`
	Specialization string      `json:"specialization"`
	Bio            string      `json:"bio,omitempty"`
	Active         bool        `json:"active"`
	WorkingHours   WeeklyHours `json:"working_hours,omitempty"`
	DaysOff        []string    `json:"days_off,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// ScheduleFor returns the hours that apply on date. A date listed in DaysOff
// or a weekday marked as not working yields Working=false.
func (s Staff) ScheduleFor(date time.Time) DaySchedule {
	day := date.Format("2006-01-02")
	for _, off := range s.DaysOff {
		if off == day {
			return DaySchedule{}
		}
	}
	if len(s.WorkingHours) == 0 {
		return DefaultDay
	}
	sched, ok := s.WorkingHours[strings.ToLower(date.Weekday().String())]
	if !ok {
		return DaySchedule{}
	}
	return sched
}

// User is the contact record the notifier resolves recipients from.
type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Role    string `json:"role"`
	StaffID string `json:"staff_id,omitempty"`
}
