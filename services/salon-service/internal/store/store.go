package store

import (
	"context"

	"github.com/hawosalon/salon/services/salon-service/internal/model"
)

// Store is the persistence boundary of the salon service. Lookups return
// ErrNotFound for missing rows. Implementations must make WithTx atomic and
// serialise transactions that lock the same schedule key.
type Store interface {
	Catalog
	Bookings
	Reviews
	Users

	// WithTx runs fn in one transaction, committing when it returns nil.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Ping(ctx context.Context) error
}

type Catalog interface {
	GetService(ctx context.Context, id string) (model.Service, error)
	ListServices(ctx context.Context, includeInactive bool) ([]model.Service, error)
	CreateService(ctx context.Context, s *model.Service) error
	UpdateService(ctx context.Context, s *model.Service) error

	GetStaff(ctx context.Context, id string) (model.Staff, error)
	ListStaff(ctx context.Context, includeInactive bool) ([]model.Staff, error)
	CreateStaff(ctx context.Context, s *model.Staff) error
	UpdateStaff(ctx context.Context, s *model.Staff) error
}

type Bookings interface {
	GetBooking(ctx context.Context, id string) (model.Booking, error)
	ListBookings(ctx context.Context, f model.BookingFilter) ([]model.Booking, error)
	// ListStaffBookings returns every booking of the staff member on date
	// (YYYY-MM-DD), whatever its status, ordered by start time.
	ListStaffBookings(ctx context.Context, staffID, date string) ([]model.Booking, error)
}

// ReviewFilter selects reviews newest first. ApprovedOnly and PendingOnly
// are mutually exclusive. A Limit outside 1..MaxReviewLimit means
// DefaultReviewLimit.
type ReviewFilter struct {
	ServiceID    string
	StaffID      string
	UserID       string
	ApprovedOnly bool
	PendingOnly  bool
	Limit        int
}

const (
	DefaultReviewLimit = 50
	MaxReviewLimit     = 200
)

func (f ReviewFilter) EffectiveLimit() int {
	if f.Limit <= 0 || f.Limit > MaxReviewLimit {
		return DefaultReviewLimit
	}
	return f.Limit
}

type Reviews interface {
	// CreateReview fails with ErrDuplicate when the booking already has one.
	CreateReview(ctx context.Context, r *model.Review) error
	GetReview(ctx context.Context, id string) (model.Review, error)
	ApproveReview(ctx context.Context, id string) (model.Review, error)
	// UpdateReview writes rating, comment and approval of r.ID and refreshes
	// r's timestamps.
	UpdateReview(ctx context.Context, r *model.Review) error
	DeleteReview(ctx context.Context, id string) error
	ListReviews(ctx context.Context, f ReviewFilter) ([]model.Review, error)
	// RatingSummary averages approved reviews of a service.
	RatingSummary(ctx context.Context, serviceID string) (model.RatingSummary, error)
}

type Users interface {
	GetUser(ctx context.Context, id string) (model.User, error)
}

// Tx is the view of the store inside a booking mutation.
type Tx interface {
	// LockSchedule blocks until no other transaction holds key, and holds it
	// until this transaction ends.
	LockSchedule(ctx context.Context, key string) error
	GetBookingForUpdate(ctx context.Context, id string) (model.Booking, error)
	ListStaffBookings(ctx context.Context, staffID, date string) ([]model.Booking, error)
	ListUserBookings(ctx context.Context, userID, date string) ([]model.Booking, error)
	// CreateBooking assigns ID and timestamps. It returns ErrConflict when the
	// store rejects an overlapping interval for the same staff member.
	CreateBooking(ctx context.Context, b *model.Booking) error
	UpdateBooking(ctx context.Context, b *model.Booking) error
}
