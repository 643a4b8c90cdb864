// Package reviews lets customers rate completed bookings. Reviews stay
// hidden from public listings until an admin approves them.
package reviews

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/hawosalon/salon/libs/auth"
	"github.com/hawosalon/salon/services/salon-service/internal/booking"
	"github.com/hawosalon/salon/services/salon-service/internal/model"
	"github.com/hawosalon/salon/services/salon-service/internal/policy"
	"github.com/hawosalon/salon/services/salon-service/internal/store"
)

var (
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	ErrDuplicate     = errors.New("booking already has a review")
	ErrNotCompleted  = errors.New("only completed bookings can be reviewed")
)

const maxComment = 2000

type Manager struct {
	store  store.Store
	logger *slog.Logger
}

func NewManager(st store.Store, logger *slog.Logger) *Manager {
	return &Manager{store: st, logger: logger}
}

type CreateInput struct {
	BookingID string
	Rating    int
	Comment   string
}

func (m *Manager) Create(ctx context.Context, in CreateInput, actor auth.Actor) (model.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return model.Review{}, fmt.Errorf("%w: got %d", ErrInvalidRating, in.Rating)
	}
	comment := clipComment(in.Comment)

	b, err := m.store.GetBooking(ctx, in.BookingID)
	if err != nil {
		return model.Review{}, translate("load booking", err)
	}
	if err := policy.Authorize(actor, b, policy.ActionReview); err != nil {
		return model.Review{}, err
	}
	if b.Status != model.StatusCompleted {
		return model.Review{}, fmt.Errorf("%w: booking is %s", ErrNotCompleted, b.Status)
	}

	r := model.Review{
		BookingID: b.ID,
		UserID:    b.UserID,
		ServiceID: b.ServiceID,
		StaffID:   b.StaffID,
		Rating:    in.Rating,
		Comment:   comment,
	}
	if err := m.store.CreateReview(ctx, &r); err != nil {
		return model.Review{}, translate("create review", err)
	}
	m.logger.InfoContext(ctx, "review created", "review_id", r.ID, "booking_id", b.ID, "rating", r.Rating)
	return r, nil
}

func (m *Manager) Approve(ctx context.Context, reviewID string, actor auth.Actor) (model.Review, error) {
	if err := policy.RequireAdmin(actor); err != nil {
		return model.Review{}, err
	}
	r, err := m.store.ApproveReview(ctx, reviewID)
	if err != nil {
		return model.Review{}, translate("approve review", err)
	}
	m.logger.InfoContext(ctx, "review approved", "review_id", r.ID, "actor_id", actor.UserID)
	return r, nil
}

// ForService returns the approved reviews of a service with its average.
func (m *Manager) ForService(ctx context.Context, serviceID string, limit int) ([]model.Review, model.RatingSummary, error) {
	if _, err := m.store.GetService(ctx, serviceID); err != nil {
		return nil, model.RatingSummary{}, translate("load service", err)
	}
	list, err := m.store.ListReviews(ctx, store.ReviewFilter{ServiceID: serviceID, ApprovedOnly: true, Limit: limit})
	if err != nil {
		return nil, model.RatingSummary{}, translate("list reviews", err)
	}
	sum, err := m.store.RatingSummary(ctx, serviceID)
	if err != nil {
		return nil, model.RatingSummary{}, translate("rating summary", err)
	}
	return nonNil(list), sum, nil
}

func (m *Manager) ForStaff(ctx context.Context, staffID string, limit int) ([]model.Review, error) {
	if _, err := m.store.GetStaff(ctx, staffID); err != nil {
		return nil, translate("load staff", err)
	}
	list, err := m.store.ListReviews(ctx, store.ReviewFilter{StaffID: staffID, ApprovedOnly: true, Limit: limit})
	if err != nil {
		return nil, translate("list reviews", err)
	}
	return nonNil(list), nil
}

// Pending lists reviews awaiting moderation, newest first.
func (m *Manager) Pending(ctx context.Context, actor auth.Actor, limit int) ([]model.Review, error) {
	if err := policy.RequireAdmin(actor); err != nil {
		return nil, err
	}
	list, err := m.store.ListReviews(ctx, store.ReviewFilter{PendingOnly: true, Limit: limit})
	if err != nil {
		return nil, translate("list reviews", err)
	}
	return nonNil(list), nil
}

// Mine lists the actor's own reviews whatever their approval state.
func (m *Manager) Mine(ctx context.Context, actor auth.Actor, limit int) ([]model.Review, error) {
	if actor.UserID == "" {
		return nil, fmt.Errorf("%w: anonymous actor", policy.ErrForbidden)
	}
	list, err := m.store.ListReviews(ctx, store.ReviewFilter{UserID: actor.UserID, Limit: limit})
	if err != nil {
		return nil, translate("list reviews", err)
	}
	return nonNil(list), nil
}

// Get hides unapproved reviews from everyone but their author and admins.
func (m *Manager) Get(ctx context.Context, reviewID string, actor auth.Actor) (model.Review, error) {
	r, err := m.store.GetReview(ctx, reviewID)
	if err != nil {
		return model.Review{}, translate("get review", err)
	}
	if !r.Approved && !actor.IsAdmin() && (actor.UserID == "" || actor.UserID != r.UserID) {
		return model.Review{}, fmt.Errorf("get review %s: %w", reviewID, booking.ErrNotFound)
	}
	return r, nil
}

// UpdateInput carries the fields to change; nil leaves a field as is.
type UpdateInput struct {
	Rating   *int
	Comment  *string
	Approved *bool
}

// Update edits a review. An author's edit sends the review back to
// moderation; only admins can set the approval flag directly.
func (m *Manager) Update(ctx context.Context, reviewID string, in UpdateInput, actor auth.Actor) (model.Review, error) {
	if in.Rating != nil && (*in.Rating < 1 || *in.Rating > 5) {
		return model.Review{}, fmt.Errorf("%w: got %d", ErrInvalidRating, *in.Rating)
	}
	r, err := m.store.GetReview(ctx, reviewID)
	if err != nil {
		return model.Review{}, translate("get review", err)
	}
	if err := policy.AuthorizeReview(actor, r); err != nil {
		return model.Review{}, err
	}

	if in.Rating != nil {
		r.Rating = *in.Rating
	}
	if in.Comment != nil {
		r.Comment = clipComment(*in.Comment)
	}
	switch {
	case !actor.IsAdmin():
		r.Approved = false
	case in.Approved != nil:
		r.Approved = *in.Approved
	}
	if err := m.store.UpdateReview(ctx, &r); err != nil {
		return model.Review{}, translate("update review", err)
	}
	m.logger.InfoContext(ctx, "review updated", "review_id", r.ID, "actor_id", actor.UserID, "approved", r.Approved)
	return r, nil
}

func (m *Manager) Delete(ctx context.Context, reviewID string, actor auth.Actor) error {
	r, err := m.store.GetReview(ctx, reviewID)
	if err != nil {
		return translate("get review", err)
	}
	if err := policy.AuthorizeReview(actor, r); err != nil {
		return err
	}
	if err := m.store.DeleteReview(ctx, r.ID); err != nil {
		return translate("delete review", err)
	}
	m.logger.InfoContext(ctx, "review deleted", "review_id", r.ID, "actor_id", actor.UserID)
	return nil
}

// clipComment trims s and keeps at most maxComment runes.
func clipComment(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= maxComment {
		return s
	}
	n := 0
	for i := range s {
		if n == maxComment {
			return s[:i]
		}
		n++
	}
	return s
}

func translate(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%s: %w", op, booking.ErrNotFound)
	case errors.Is(err, store.ErrDuplicate):
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func nonNil(list []model.Review) []model.Review {
	if list == nil {
		return []model.Review{}
	}
	return list
}
