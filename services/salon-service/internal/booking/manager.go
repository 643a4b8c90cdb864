// Package booking owns the booking lifecycle: creation, rescheduling,
// cancellation and status changes, each guarded by the overlap detector
// inside a single store transaction.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hawosalon/salon/libs/auth"
	"github.com/hawosalon/salon/libs/events"
	"github.com/hawosalon/salon/libs/metrics"
	"github.com/hawosalon/salon/services/salon-service/internal/availability"
	"github.com/hawosalon/salon/services/salon-service/internal/model"
	"github.com/hawosalon/salon/services/salon-service/internal/policy"
	"github.com/hawosalon/salon/services/salon-service/internal/store"
)

// Notifier receives an event after every committed mutation. It must not
// block; failures are its own concern.
type Notifier interface {
	Notify(ctx context.Context, ev events.BookingEvent)
}

type Options struct {
	// InitialStatus is pending unless set to confirmed.
	InitialStatus model.Status
	// Now returns the current salon-local wall clock expressed in UTC.
	Now     func() time.Time
	Metrics *metrics.Registry
}

type Manager struct {
	store    store.Store
	notifier Notifier
	logger   *slog.Logger
	metrics  *metrics.Registry
	now      func() time.Time
	initial  model.Status
}

func NewManager(st store.Store, notifier Notifier, logger *slog.Logger, opts Options) (*Manager, error) {
	initial := opts.InitialStatus
	if initial == "" {
		initial = model.StatusPending
	}
	if initial != model.StatusPending && initial != model.StatusConfirmed {
		return nil, fmt.Errorf("%w: initial status must be pending or confirmed, got %q", ErrInvalidStatus, initial)
	}
	now := opts.Now
	if now == nil {
		now = LocalClock(time.Local)
	}
	return &Manager{
		store:    st,
		notifier: notifier,
		logger:   logger,
		metrics:  opts.Metrics,
		now:      now,
		initial:  initial,
	}, nil
}

// LocalClock reads the wall clock in loc and re-labels it as UTC, matching
// the naive local times bookings are stored in.
func LocalClock(loc *time.Location) func() time.Time {
	return func() time.Time {
		t := time.Now().In(loc)
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	}
}

// CreateInput books for UserID. Actor is the caller and defaults to the
// customer; only admins may book for someone else.
type CreateInput struct {
	Actor     auth.Actor
	UserID    string
	ServiceID string
	StaffID   string
	Date      string
	StartTime string
	Notes     string
}

func (m *Manager) Create(ctx context.Context, in CreateInput) (model.Booking, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return model.Booking{}, fmt.Errorf("%w: anonymous booking", ErrForbidden)
	}
	caller := in.Actor
	if caller.UserID == "" {
		caller = auth.Actor{UserID: in.UserID, Role: auth.RoleCustomer}
	}
	if caller.UserID != in.UserID && !caller.IsAdmin() {
		return model.Booking{}, fmt.Errorf("%w: only admins may book for another user", ErrForbidden)
	}

	svc, err := m.store.GetService(ctx, in.ServiceID)
	if err != nil {
		return model.Booking{}, translate("load service", err)
	}
	if !svc.Active {
		return model.Booking{}, inactive("service", svc.ID)
	}

	date, err := availability.ParseDate(in.Date)
	if err != nil {
		return model.Booking{}, err
	}
	iv, err := availability.NewInterval(date, in.StartTime, svc.DurationMinutes)
	if err != nil {
		return model.Booking{}, err
	}
	if !iv.Start.After(m.now()) {
		return model.Booking{}, fmt.Errorf("%w: cannot book %s %s", ErrAlreadyPast, in.Date, in.StartTime)
	}
	if in.StaffID != "" {
		if err := m.checkStaffHours(ctx, in.StaffID, iv); err != nil {
			return model.Booking{}, err
		}
	}

	b := model.Booking{
		UserID:          in.UserID,
		ServiceID:       svc.ID,
		StaffID:         in.StaffID,
		Date:            iv.Date(),
		StartTime:       iv.StartClock(),
		EndTime:         iv.EndClock(),
		Status:          m.initial,
		Notes:           strings.TrimSpace(in.Notes),
		Price:           svc.Price,
		DurationMinutes: svc.DurationMinutes,
	}

	err = m.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.LockSchedule(ctx, scheduleKey(b.StaffID, b.UserID)); err != nil {
			return err
		}
		conflict, err := m.HasConflict(ctx, tx, iv, b.StaffID, b.UserID, "")
		if err != nil {
			return err
		}
		if conflict {
			return ErrConflict
		}
		return tx.CreateBooking(ctx, &b)
	})
	if err != nil {
		return model.Booking{}, m.fail("create", err)
	}

	m.count("create")
	m.logger.InfoContext(ctx, "booking created", "booking_id", b.ID, "staff_id", b.StaffID, "date", b.Date, "start", b.StartTime)
	m.emit(ctx, events.BookingCreated, b, caller, func(ev *events.BookingEvent) {
		ev.ServiceName = svc.Name
	})
	return b, nil
}

// HasConflict checks candidate against the staff member's bookings on the
// same date or, for a booking without staff, against the user's own
// bookings. excludeID is skipped so a booking never conflicts with itself.
func (m *Manager) HasConflict(ctx context.Context, tx store.Tx, candidate availability.Interval, staffID, userID, excludeID string) (bool, error) {
	var (
		existing []model.Booking
		err      error
	)
	if staffID != "" {
		existing, err = tx.ListStaffBookings(ctx, staffID, candidate.Date())
	} else {
		existing, err = tx.ListUserBookings(ctx, userID, candidate.Date())
	}
	if err != nil {
		return false, err
	}
	return availability.HasConflict(candidate, existing, excludeID), nil
}

func (m *Manager) Reschedule(ctx context.Context, bookingID, date, startTime string, actor auth.Actor) (model.Booking, error) {
	day, err := availability.ParseDate(date)
	if err != nil {
		return model.Booking{}, err
	}

	var b, prev model.Booking
	err = m.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		if b, err = tx.GetBookingForUpdate(ctx, bookingID); err != nil {
			return err
		}
		prev = b
		if err := policy.Authorize(actor, b, policy.ActionReschedule); err != nil {
			return err
		}
		if !Reschedulable(b.Status) {
			return fmt.Errorf("%w: cannot reschedule a %s booking", ErrInvalidTransition, b.Status)
		}

		iv, err := availability.NewInterval(day, startTime, b.DurationMinutes)
		if err != nil {
			return err
		}
		if !iv.Start.After(m.now()) {
			return fmt.Errorf("%w: cannot move booking to %s %s", ErrAlreadyPast, date, startTime)
		}
		if b.StaffID != "" {
			if err := m.checkStaffHours(ctx, b.StaffID, iv); err != nil {
				return err
			}
		}

		if err := tx.LockSchedule(ctx, scheduleKey(b.StaffID, b.UserID)); err != nil {
			return err
		}
		conflict, err := m.HasConflict(ctx, tx, iv, b.StaffID, b.UserID, b.ID)
		if err != nil {
			return err
		}
		if conflict {
			return ErrConflict
		}

		b.Date = iv.Date()
		b.StartTime = iv.StartClock()
		b.EndTime = iv.EndClock()
		b.Status = model.StatusConfirmed
		return tx.UpdateBooking(ctx, &b)
	})
	if err != nil {
		return model.Booking{}, m.fail("reschedule", err)
	}

	m.count("reschedule")
	m.logger.InfoContext(ctx, "booking rescheduled", "booking_id", b.ID, "from", prev.Date+" "+prev.StartTime, "to", b.Date+" "+b.StartTime)
	m.emit(ctx, events.BookingRescheduled, b, actor, func(ev *events.BookingEvent) {
		ev.PreviousDate = prev.Date
		ev.PreviousStart = prev.StartTime
		ev.PreviousStatus = string(prev.Status)
	})
	return b, nil
}

func (m *Manager) Cancel(ctx context.Context, bookingID, reason string, actor auth.Actor) (model.Booking, error) {
	var b, prev model.Booking
	err := m.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		if b, err = tx.GetBookingForUpdate(ctx, bookingID); err != nil {
			return err
		}
		prev = b
		if err := policy.Authorize(actor, b, policy.ActionCancel); err != nil {
			return err
		}
		iv, err := availability.BookingInterval(b)
		if err != nil {
			return err
		}
		if !iv.Start.After(m.now()) {
			return fmt.Errorf("%w: booking started at %s %s", ErrAlreadyPast, b.Date, b.StartTime)
		}
		if !CanTransition(b.Status, model.StatusCancelled) {
			return fmt.Errorf("%w: cannot cancel a %s booking", ErrInvalidTransition, b.Status)
		}
		m.markCancelled(&b, reason, actor)
		return tx.UpdateBooking(ctx, &b)
	})
	if err != nil {
		return model.Booking{}, m.fail("cancel", err)
	}

	m.count("cancel")
	m.logger.InfoContext(ctx, "booking cancelled", "booking_id", b.ID, "actor_id", actor.UserID)
	m.emit(ctx, events.BookingCancelled, b, actor, func(ev *events.BookingEvent) {
		ev.PreviousStatus = string(prev.Status)
		ev.Reason = b.CancelReason
	})
	return b, nil
}

// UpdateStatus lets an admin or the assigned staff member set any defined
// status. Reactivating a cancelled or no-show booking re-runs the overlap
// check since its interval may have been taken in the meantime.
func (m *Manager) UpdateStatus(ctx context.Context, bookingID, status, reason string, actor auth.Actor) (model.Booking, error) {
	next, ok := model.ParseStatus(strings.TrimSpace(status))
	if !ok {
		return model.Booking{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	var b, prev model.Booking
	err := m.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		if b, err = tx.GetBookingForUpdate(ctx, bookingID); err != nil {
			return err
		}
		prev = b
		if err := policy.Authorize(actor, b, policy.ActionUpdateStatus); err != nil {
			return err
		}
		if b.Status == next {
			return nil
		}

		if !b.Status.Blocking() && next.Blocking() {
			iv, err := availability.BookingInterval(b)
			if err != nil {
				return err
			}
			if err := tx.LockSchedule(ctx, scheduleKey(b.StaffID, b.UserID)); err != nil {
				return err
			}
			conflict, err := m.HasConflict(ctx, tx, iv, b.StaffID, b.UserID, b.ID)
			if err != nil {
				return err
			}
			if conflict {
				return ErrConflict
			}
		}
		if !CanTransition(b.Status, next) {
			m.logger.InfoContext(ctx, "status override", "booking_id", b.ID, "from", b.Status, "to", next, "actor_id", actor.UserID)
		}

		if next == model.StatusCancelled {
			m.markCancelled(&b, reason, actor)
		} else {
			b.Status = next
			b.CancelReason, b.CancelledAt, b.CancelledBy = "", nil, ""
		}
		return tx.UpdateBooking(ctx, &b)
	})
	if err != nil {
		return model.Booking{}, m.fail("update status", err)
	}
	if prev.Status == b.Status {
		return b, nil
	}

	m.count("status_" + string(b.Status))
	m.logger.InfoContext(ctx, "booking status changed", "booking_id", b.ID, "from", prev.Status, "to", b.Status)
	m.emit(ctx, events.BookingStatusChanged, b, actor, func(ev *events.BookingEvent) {
		ev.PreviousStatus = string(prev.Status)
		ev.Reason = b.CancelReason
	})
	return b, nil
}

func (m *Manager) Get(ctx context.Context, bookingID string, actor auth.Actor) (model.Booking, error) {
	b, err := m.store.GetBooking(ctx, bookingID)
	if err != nil {
		return model.Booking{}, translate("get booking", err)
	}
	if err := policy.Authorize(actor, b, policy.ActionView); err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

func (m *Manager) List(ctx context.Context, f model.BookingFilter, actor auth.Actor) ([]model.Booking, error) {
	scoped, err := policy.ScopeBookings(actor, f)
	if err != nil {
		return nil, err
	}
	for _, d := range []string{scoped.From, scoped.To} {
		if d == "" {
			continue
		}
		if _, err := availability.ParseDate(d); err != nil {
			return nil, err
		}
	}
	out, err := m.store.ListBookings(ctx, scoped)
	if err != nil {
		return nil, translate("list bookings", err)
	}
	if out == nil {
		out = []model.Booking{}
	}
	return out, nil
}

// Availability lists the step-sized slots of the staff member's working day.
func (m *Manager) Availability(ctx context.Context, staffID, date string, step time.Duration) ([]availability.Slot, error) {
	staff, err := m.store.GetStaff(ctx, staffID)
	if err != nil {
		return nil, translate("load staff", err)
	}
	if !staff.Active {
		return nil, inactive("staff", staff.ID)
	}
	day, err := availability.ParseDate(date)
	if err != nil {
		return nil, err
	}
	busy, err := m.store.ListStaffBookings(ctx, staff.ID, availability.FormatDate(day))
	if err != nil {
		return nil, translate("load bookings", err)
	}
	return availability.GenerateSlots(staff.ScheduleFor(day), day, step, busy), nil
}

func (m *Manager) checkStaffHours(ctx context.Context, staffID string, iv availability.Interval) error {
	staff, err := m.store.GetStaff(ctx, staffID)
	if err != nil {
		return translate("load staff", err)
	}
	if !staff.Active {
		return inactive("staff", staff.ID)
	}
	if !availability.FitsSchedule(staff.ScheduleFor(iv.Start), iv) {
		return fmt.Errorf("%w: %s %s-%s", ErrOutsideHours, iv.Date(), iv.StartClock(), iv.EndClock())
	}
	return nil
}

// markCancelled stamps the manager clock, so CancelledAt is salon-local like
// the booking's own date and times.
func (m *Manager) markCancelled(b *model.Booking, reason string, actor auth.Actor) {
	at := m.now()
	b.Status = model.StatusCancelled
	b.CancelReason = strings.TrimSpace(reason)
	b.CancelledAt = &at
	b.CancelledBy = actor.UserID
}

// scheduleKey names the advisory lock serialising writers of one schedule.
func scheduleKey(staffID, userID string) string {
	if staffID != "" {
		return "staff:" + staffID
	}
	return "user:" + userID
}

func (m *Manager) fail(op string, err error) error {
	err = translate(op, err)
	if m.metrics != nil && errors.Is(err, ErrConflict) {
		m.metrics.BookingConflicts.Inc()
	}
	if !IsDomain(err) {
		m.logger.Error("booking operation failed", "op", op, "err", err)
	}
	return err
}

func (m *Manager) count(op string) {
	if m.metrics != nil {
		m.metrics.BookingsTotal.WithLabelValues(op).Inc()
	}
}

func (m *Manager) emit(ctx context.Context, typ events.Type, b model.Booking, actor auth.Actor, decorate func(*events.BookingEvent)) {
	if m.notifier == nil {
		return
	}
	ev := events.BookingEvent{
		EventID:    uuid.NewString(),
		Type:       typ,
		OccurredAt: time.Now().UTC(),
		BookingID:  b.ID,
		UserID:     b.UserID,
		StaffID:    b.StaffID,
		ServiceID:  b.ServiceID,
		Date:       b.Date,
		StartTime:  b.StartTime,
		EndTime:    b.EndTime,
		Status:     string(b.Status),
		ActorID:    actor.UserID,
	}
	// Staff hear about changes they did not make themselves.
	ev.NotifyStaff = b.StaffID != "" && actor.StaffID != b.StaffID
	if decorate != nil {
		decorate(&ev)
	}
	m.notifier.Notify(ctx, ev)
}
