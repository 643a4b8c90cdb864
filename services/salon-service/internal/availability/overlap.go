package availability

import "github.com/hawosalon/salon/services/salon-service/internal/model"

// Overlaps is half-open: [a.Start,a.End) and [b.Start,b.End) overlap iff
// a.Start < b.End && b.Start < a.End. Touching intervals do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// HasConflict reports whether candidate overlaps any blocking booking in
// existing, skipping excludeID and bookings on other dates. Bookings whose
// stored interval cannot be parsed are ignored.
func HasConflict(candidate Interval, existing []model.Booking, excludeID string) bool {
	date := candidate.Date()
	for _, b := range existing {
		if !b.Status.Blocking() || b.Date != date {
			continue
		}
		if excludeID != "" && b.ID == excludeID {
			continue
		}
		iv, err := BookingInterval(b)
		if err != nil {
			continue
		}
		if Overlaps(candidate, iv) {
			return true
		}
	}
	return false
}
