package booking

import "github.com/hawosalon/salon/services/salon-service/internal/model"

// lifecycle lists the regular moves out of each status. Completed, cancelled
// and no-show are terminal.
var lifecycle = map[model.Status][]model.Status{
	model.StatusPending:   {model.StatusConfirmed, model.StatusCancelled},
	model.StatusConfirmed: {model.StatusCompleted, model.StatusCancelled, model.StatusNoShow},
}

func CanTransition(from, to model.Status) bool {
	for _, s := range lifecycle[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Reschedulable reports whether a booking in status s may move to a new
// interval. Rescheduling always lands in confirmed.
func Reschedulable(s model.Status) bool {
	return s == model.StatusPending || s == model.StatusConfirmed
}
