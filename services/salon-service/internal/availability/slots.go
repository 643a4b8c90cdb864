package availability

import (
	"time"

	"github.com/hawosalon/salon/services/salon-service/internal/model"
)

const DefaultStep = 30 * time.Minute

type Slot struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	Available bool   `json:"available"`
}

// GenerateSlots walks the working day in step-sized slots starting at
// hours.Start. The day end is exclusive: no slot extends past closing. A slot
// is unavailable when it overlaps a blocking booking or a break. A day that
// is not worked, or has unparsable hours, yields no slots.
func GenerateSlots(hours model.DaySchedule, date time.Time, step time.Duration, busy []model.Booking) []Slot {
	if !hours.Working {
		return []Slot{}
	}
	if step <= 0 {
		step = DefaultStep
	}
	day, err := ClockInterval(date, hours.Start, hours.End)
	if err != nil {
		return []Slot{}
	}

	breaks := breakIntervals(hours, date)
	slots := make([]Slot, 0, int(day.Duration()/step))
	for t := day.Start; !t.Add(step).After(day.End); t = t.Add(step) {
		slot := Interval{Start: t, End: t.Add(step)}
		available := !HasConflict(slot, busy, "") && !overlapsAny(slot, breaks)
		slots = append(slots, Slot{
			Start:     slot.StartClock(),
			End:       slot.EndClock(),
			Available: available,
		})
	}
	return slots
}

// FitsSchedule reports whether iv is inside the working day and clear of
// breaks.
func FitsSchedule(hours model.DaySchedule, iv Interval) bool {
	if !hours.Working {
		return false
	}
	day, err := ClockInterval(iv.Start, hours.Start, hours.End)
	if err != nil || !iv.Within(day) {
		return false
	}
	return !overlapsAny(iv, breakIntervals(hours, iv.Start))
}

func breakIntervals(hours model.DaySchedule, date time.Time) []Interval {
	out := make([]Interval, 0, len(hours.Breaks))
	for _, b := range hours.Breaks {
		iv, err := ClockInterval(date, b.Start, b.End)
		if err != nil {
			continue
		}
		out = append(out, iv)
	}
	return out
}

func overlapsAny(iv Interval, others []Interval) bool {
	for _, o := range others {
		if Overlaps(iv, o) {
			return true
		}
	}
	return false
}
