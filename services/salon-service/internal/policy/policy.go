// Package policy decides what an authenticated actor may do with a booking.
package policy

import (
	"errors"
	"fmt"

	"github.com/hawosalon/salon/libs/auth"
	"github.com/hawosalon/salon/services/salon-service/internal/model"
)

var ErrForbidden = errors.New("forbidden")

type Action string

const (
	ActionView         Action = "view"
	ActionReschedule   Action = "reschedule"
	ActionCancel       Action = "cancel"
	ActionUpdateStatus Action = "update_status"
	ActionReview       Action = "review"
)

// Authorize returns nil when actor may perform action on b, and an error
// wrapping ErrForbidden otherwise. Admins may do everything. The booking
// owner and the assigned staff member may view, reschedule and cancel.
// Status updates are reserved to the assigned staff member; reviews to the
// owner.
func Authorize(actor auth.Actor, b model.Booking, action Action) error {
	if actor.UserID == "" {
		return fmt.Errorf("%w: anonymous actor", ErrForbidden)
	}
	if actor.IsAdmin() {
		return nil
	}

	owner := actor.UserID == b.UserID
	assigned := isAssignedStaff(actor, b)

	var ok bool
	switch action {
	case ActionView, ActionReschedule, ActionCancel:
		ok = owner || assigned
	case ActionUpdateStatus:
		ok = assigned
	case ActionReview:
		ok = owner
	default:
		return fmt.Errorf("%w: unknown action %q", ErrForbidden, action)
	}
	if !ok {
		return fmt.Errorf("%w: %s may not %s booking %s", ErrForbidden, actor.Role, action, b.ID)
	}
	return nil
}

func isAssignedStaff(actor auth.Actor, b model.Booking) bool {
	return actor.Role == auth.RoleStaff && actor.StaffID != "" && actor.StaffID == b.StaffID
}

// RequireAdmin guards catalog writes and review moderation.
func RequireAdmin(actor auth.Actor) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: admin role required", ErrForbidden)
	}
	return nil
}

// AuthorizeReview allows the author of r and admins to change or delete it.
func AuthorizeReview(actor auth.Actor, r model.Review) error {
	if actor.UserID == "" {
		return fmt.Errorf("%w: anonymous actor", ErrForbidden)
	}
	if actor.IsAdmin() || actor.UserID == r.UserID {
		return nil
	}
	return fmt.Errorf("%w: review %s belongs to another user", ErrForbidden, r.ID)
}

// ScopeBookings narrows a listing to what actor may see: customers their own
// bookings, staff their own schedule (or their own bookings as a customer),
// admins everything.
func ScopeBookings(actor auth.Actor, f model.BookingFilter) (model.BookingFilter, error) {
	switch {
	case actor.UserID == "":
		return f, fmt.Errorf("%w: anonymous actor", ErrForbidden)
	case actor.IsAdmin():
		return f, nil
	case actor.Role == auth.RoleStaff && actor.StaffID != "" && f.UserID != actor.UserID:
		if f.StaffID != "" && f.StaffID != actor.StaffID {
			return f, fmt.Errorf("%w: staff may only list their own schedule", ErrForbidden)
		}
		f.StaffID = actor.StaffID
		f.UserID = ""
		return f, nil
	default:
		if f.UserID != "" && f.UserID != actor.UserID {
			return f, fmt.Errorf("%w: customers may only list their own bookings", ErrForbidden)
		}
		f.UserID = actor.UserID
		return f, nil
	}
}
