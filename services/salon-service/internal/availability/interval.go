package availability

import (
	"fmt"
	"time"

	"github.com/hawosalon/salon/services/salon-service/internal/model"
)

// Interval is the half-open range [Start, End) on a single day.
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval anchors "HH:MM" on date and extends it by durationMinutes.
func NewInterval(date time.Time, start string, durationMinutes int) (Interval, error) {
	if durationMinutes <= 0 {
		return Interval{}, fmt.Errorf("%w: duration must be positive", ErrInvalidInterval)
	}
	startMin, err := ParseClock(start)
	if err != nil {
		return Interval{}, err
	}
	if startMin >= minutesADay {
		return Interval{}, fmt.Errorf("%w: start %q is not within the day", ErrInvalidInterval, start)
	}
	if startMin+durationMinutes > minutesADay {
		return Interval{}, fmt.Errorf("%w: %s plus %d minutes runs past midnight", ErrInvalidInterval, start, durationMinutes)
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return fromMinutes(day, startMin, startMin+durationMinutes), nil
}

// ClockInterval builds an interval from two clock strings on date.
func ClockInterval(date time.Time, start, end string) (Interval, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Interval{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Interval{}, err
	}
	if e <= s {
		return Interval{}, fmt.Errorf("%w: %s-%s is empty", ErrInvalidInterval, start, end)
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return fromMinutes(day, s, e), nil
}

// BookingInterval reconstructs the stored interval of b.
func BookingInterval(b model.Booking) (Interval, error) {
	date, err := ParseDate(b.Date)
	if err != nil {
		return Interval{}, err
	}
	return ClockInterval(date, b.StartTime, b.EndTime)
}

func fromMinutes(day time.Time, start, end int) Interval {
	return Interval{
		Start: day.Add(time.Duration(start) * time.Minute),
		End:   day.Add(time.Duration(end) * time.Minute),
	}
}

func (iv Interval) Date() string { return FormatDate(iv.Start) }

func (iv Interval) StartClock() string { return clockOf(iv.Start, iv.Start) }

// EndClock renders the end as "HH:MM", with a midnight end shown as "24:00".
func (iv Interval) EndClock() string { return clockOf(iv.Start, iv.End) }

func (iv Interval) Duration() time.Duration { return iv.End.Sub(iv.Start) }

// Within reports whether iv lies entirely inside outer.
func (iv Interval) Within(outer Interval) bool {
	return !iv.Start.Before(outer.Start) && !iv.End.After(outer.End)
}

func clockOf(day, t time.Time) string {
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return FormatClock(int(t.Sub(midnight) / time.Minute))
}
