package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hawosalon/salon/services/salon-service/internal/model"
	"github.com/hawosalon/salon/services/salon-service/internal/store"
)

type memTx struct {
	s      *Store
	staged map[string]model.Booking
}

// LockSchedule is a no-op: WithTx already serialises every transaction.
func (t *memTx) LockSchedule(context.Context, string) error { return nil }

func (t *memTx) GetBookingForUpdate(_ context.Context, id string) (model.Booking, error) {
	if b, ok := t.staged[id]; ok {
		return b, nil
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	b, ok := t.s.bookings[id]
	if !ok {
		return model.Booking{}, notFound("booking", id)
	}
	return b, nil
}

func (t *memTx) ListStaffBookings(_ context.Context, staffID, date string) ([]model.Booking, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.s.filterDay(t.staged, func(b model.Booking) bool { return b.StaffID == staffID }, date), nil
}

func (t *memTx) ListUserBookings(_ context.Context, userID, date string) ([]model.Booking, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.s.filterDay(t.staged, func(b model.Booking) bool { return b.UserID == userID }, date), nil
}

func (t *memTx) CreateBooking(_ context.Context, b *model.Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if _, err := t.GetBookingForUpdate(context.Background(), b.ID); err == nil {
		return fmt.Errorf("booking %s: %w", b.ID, store.ErrDuplicate)
	}
	b.CreatedAt = t.s.now()
	b.UpdatedAt = b.CreatedAt
	t.staged[b.ID] = *b
	return nil
}

func (t *memTx) UpdateBooking(ctx context.Context, b *model.Booking) error {
	prev, err := t.GetBookingForUpdate(ctx, b.ID)
	if err != nil {
		return err
	}
	b.CreatedAt = prev.CreatedAt
	b.UpdatedAt = t.s.now()
	t.staged[b.ID] = *b
	return nil
}
