package booking

import (
	"errors"
	"fmt"

	"github.com/hawosalon/salon/services/salon-service/internal/availability"
	"github.com/hawosalon/salon/services/salon-service/internal/policy"
	"github.com/hawosalon/salon/services/salon-service/internal/store"
)

// Domain errors. Anything else returned by the Manager is an infrastructure
// failure.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("time slot conflicts with an existing booking")
	ErrForbidden         = policy.ErrForbidden
	ErrInvalidStatus     = errors.New("invalid status")
	ErrAlreadyPast       = errors.New("booking time has already passed")
	ErrInvalidInterval   = availability.ErrInvalidInterval
	ErrOutsideHours      = errors.New("outside staff working hours")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInactive          = errors.New("inactive")
)

// IsDomain reports whether err belongs to the taxonomy above.
func IsDomain(err error) bool {
	for _, target := range []error{
		ErrNotFound, ErrConflict, ErrForbidden, ErrInvalidStatus, ErrAlreadyPast,
		ErrInvalidInterval, ErrOutsideHours, ErrInvalidTransition,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// translate maps store sentinels onto domain errors and wraps the rest.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case IsDomain(err):
		return err
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, store.ErrConflict):
		return fmt.Errorf("%s: %w", op, ErrConflict)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func inactive(kind, id string) error {
	return fmt.Errorf("%s %s is %w: %w", kind, id, ErrInactive, ErrNotFound)
}
