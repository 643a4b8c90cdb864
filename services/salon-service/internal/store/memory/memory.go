// Package memory is an in-process Store for tests and STORE_DRIVER=memory
// runs. Transactions are serialised by one mutex and their writes are
// applied only on commit.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hawosalon/salon/services/salon-service/internal/model"
	"github.com/hawosalon/salon/services/salon-service/internal/store"
)

type Store struct {
	txMu sync.Mutex // held for the whole of WithTx

	mu       sync.RWMutex
	services map[string]model.Service
	staff    map[string]model.Staff
	bookings map[string]model.Booking
	reviews  map[string]model.Review
	users    map[string]model.User
	now      func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		services: map[string]model.Service{},
		staff:    map[string]model.Staff{},
		bookings: map[string]model.Booking{},
		reviews:  map[string]model.Review{},
		users:    map[string]model.User{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &memTx{s: s, staged: map[string]model.Booking{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, b := range tx.staged {
		s.bookings[id] = b
	}
	return nil
}

// PutUser seeds a user record.
func (s *Store) PutUser(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, store.ErrNotFound)
}

// Catalog

func (s *Store) GetService(_ context.Context, id string) (model.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	svc, ok := s.services[id]
	if !ok {
		return model.Service{}, notFound("service", id)
	}
	return svc, nil
}

func (s *Store) ListServices(_ context.Context, includeInactive bool) ([]model.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Service
	for _, svc := range s.services {
		if svc.Active || includeInactive {
			out = append(out, svc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) CreateService(_ context.Context, svc *model.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if svc.ID == "" {
		svc.ID = uuid.NewString()
	}
	if _, ok := s.services[svc.ID]; ok {
		return fmt.Errorf("service %s: %w", svc.ID, store.ErrDuplicate)
	}
	svc.CreatedAt = s.now()
	svc.UpdatedAt = svc.CreatedAt
	s.services[svc.ID] = *svc
	return nil
}

func (s *Store) UpdateService(_ context.Context, svc *model.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.services[svc.ID]
	if !ok {
		return notFound("service", svc.ID)
	}
	svc.CreatedAt = prev.CreatedAt
	svc.UpdatedAt = s.now()
	s.services[svc.ID] = *svc
	return nil
}

func (s *Store) GetStaff(_ context.Context, id string) (model.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.staff[id]
	if !ok {
		return model.Staff{}, notFound("staff", id)
	}
	return st, nil
}

func (s *Store) ListStaff(_ context.Context, includeInactive bool) ([]model.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Staff
	for _, st := range s.staff {
		if st.Active || includeInactive {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateStaff(_ context.Context, st *model.Staff) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	for _, other := range s.staff {
		if other.ID == st.ID || (st.Email != "" && other.Email == st.Email) {
			return fmt.Errorf("staff %s: %w", st.Email, store.ErrDuplicate)
		}
	}
	st.CreatedAt = s.now()
	st.UpdatedAt = st.CreatedAt
	s.staff[st.ID] = *st
	return nil
}

func (s *Store) UpdateStaff(_ context.Context, st *model.Staff) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.staff[st.ID]
	if !ok {
		return notFound("staff", st.ID)
	}
	st.CreatedAt = prev.CreatedAt
	st.UpdatedAt = s.now()
	s.staff[st.ID] = *st
	return nil
}

// Bookings

func (s *Store) GetBooking(_ context.Context, id string) (model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return model.Booking{}, notFound("booking", id)
	}
	return b, nil
}

func (s *Store) ListBookings(_ context.Context, f model.BookingFilter) ([]model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Booking
	for _, b := range s.bookings {
		if f.UserID != "" && b.UserID != f.UserID {
			continue
		}
		if f.StaffID != "" && b.StaffID != f.StaffID {
			continue
		}
		// YYYY-MM-DD strings order chronologically.
		if f.From != "" && b.Date < f.From {
			continue
		}
		if f.To != "" && b.Date > f.To {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].StartTime > out[j].StartTime
	})
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListStaffBookings(_ context.Context, staffID, date string) ([]model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterDay(nil, func(b model.Booking) bool { return b.StaffID == staffID }, date), nil
}

func (s *Store) filterDay(staged map[string]model.Booking, match func(model.Booking) bool, date string) []model.Booking {
	var out []model.Booking
	seen := map[string]bool{}
	for id, b := range staged {
		seen[id] = true
		if b.Date == date && match(b) {
			out = append(out, b)
		}
	}
	for id, b := range s.bookings {
		if seen[id] {
			continue
		}
		if b.Date == date && match(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out
}

// Reviews

func (s *Store) CreateReview(_ context.Context, r *model.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.reviews {
		if other.BookingID == r.BookingID {
			return fmt.Errorf("review for booking %s: %w", r.BookingID, store.ErrDuplicate)
		}
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt = s.now()
	r.UpdatedAt = r.CreatedAt
	s.reviews[r.ID] = *r
	return nil
}

func (s *Store) GetReview(_ context.Context, id string) (model.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reviews[id]
	if !ok {
		return model.Review{}, notFound("review", id)
	}
	return r, nil
}

func (s *Store) ApproveReview(_ context.Context, id string) (model.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[id]
	if !ok {
		return model.Review{}, notFound("review", id)
	}
	r.Approved = true
	r.UpdatedAt = s.now()
	s.reviews[id] = r
	return r, nil
}

func (s *Store) UpdateReview(_ context.Context, r *model.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.reviews[r.ID]
	if !ok {
		return notFound("review", r.ID)
	}
	prev.Rating = r.Rating
	prev.Comment = r.Comment
	prev.Approved = r.Approved
	prev.UpdatedAt = s.now()
	s.reviews[r.ID] = prev
	*r = prev
	return nil
}

func (s *Store) DeleteReview(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reviews[id]; !ok {
		return notFound("review", id)
	}
	delete(s.reviews, id)
	return nil
}

func (s *Store) ListReviews(_ context.Context, f store.ReviewFilter) ([]model.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Review
	for _, r := range s.reviews {
		if f.ServiceID != "" && r.ServiceID != f.ServiceID {
			continue
		}
		if f.StaffID != "" && r.StaffID != f.StaffID {
			continue
		}
		if f.UserID != "" && r.UserID != f.UserID {
			continue
		}
		if (f.ApprovedOnly && !r.Approved) || (f.PendingOnly && r.Approved) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit := f.EffectiveLimit(); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) RatingSummary(_ context.Context, serviceID string) (model.RatingSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := model.RatingSummary{ServiceID: serviceID}
	total := 0
	for _, r := range s.reviews {
		if r.ServiceID == serviceID && r.Approved {
			total += r.Rating
			sum.Count++
		}
	}
	if sum.Count > 0 {
		sum.Average = float64(total) / float64(sum.Count)
	}
	return sum, nil
}

// Users

func (s *Store) GetUser(_ context.Context, id string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, notFound("user", id)
	}
	return u, nil
}
