package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hawosalon/salon/services/salon-service/internal/availability"
	"github.com/hawosalon/salon/services/salon-service/internal/model"
	"github.com/jackc/pgx/v5"
)

const bookingColumns = `
	id::text, user_id::text, service_id::text, COALESCE(staff_id::text, ''),
	booking_date, start_time, end_time, status, COALESCE(notes, ''),
	price::text, duration_minutes, COALESCE(cancel_reason, ''), cancelled_at,
	COALESCE(cancelled_by::text, ''), created_at, updated_at`

func scanBooking(row pgx.Row) (model.Booking, error) {
	var b model.Booking
	var date time.Time
	var status string
	err := row.Scan(
		&b.ID, &b.UserID, &b.ServiceID, &b.StaffID,
		&date, &b.StartTime, &b.EndTime, &status, &b.Notes,
		&b.Price, &b.DurationMinutes, &b.CancelReason, &b.CancelledAt,
		&b.CancelledBy, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return model.Booking{}, err
	}
	b.Date = availability.FormatDate(date)
	b.Status = model.Status(status)
	return b, nil
}

func collectBookings(rows pgx.Rows, err error) ([]model.Booking, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// bookingRange yields the stored date and the starts_at/ends_at timestamps
// the exclusion constraint compares.
func bookingRange(b *model.Booking) (time.Time, time.Time, time.Time, error) {
	iv, err := availability.BookingInterval(*b)
	if err != nil {
		return time.Time{}, time.Time{}, time.Time{}, err
	}
	date, _ := availability.ParseDate(b.Date)
	return date, iv.Start, iv.End, nil
}

func (s *Store) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Booking{}, mapErr("get booking", pgx.ErrNoRows)
	}
	b, err := scanBooking(s.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	return b, mapErr("get booking", err)
}

func (s *Store) ListBookings(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if f.StaffID != "" {
		add("staff_id = $%d", f.StaffID)
	}
	if f.From != "" {
		from, err := availability.ParseDate(f.From)
		if err != nil {
			return nil, err
		}
		add("booking_date >= $%d", from)
	}
	if f.To != "" {
		to, err := availability.ParseDate(f.To)
		if err != nil {
			return nil, err
		}
		add("booking_date <= $%d", to)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	q := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit)
	q += fmt.Sprintf(" ORDER BY booking_date DESC, start_time DESC LIMIT $%d", len(args))

	out, err := collectBookings(s.pool.Query(ctx, q, args...))
	return out, mapErr("list bookings", err)
}

func (s *Store) ListStaffBookings(ctx context.Context, staffID, date string) ([]model.Booking, error) {
	return listByColumn(ctx, s.pool, "staff_id", staffID, date)
}

func (t *txStore) ListStaffBookings(ctx context.Context, staffID, date string) ([]model.Booking, error) {
	return listByColumn(ctx, t.tx, "staff_id", staffID, date)
}

func (t *txStore) ListUserBookings(ctx context.Context, userID, date string) ([]model.Booking, error) {
	return listByColumn(ctx, t.tx, "user_id", userID, date)
}

// listByColumn is only called with the two fixed column names above.
func listByColumn(ctx context.Context, q querier, column, id, date string) ([]model.Booking, error) {
	day, err := availability.ParseDate(date)
	if err != nil {
		return nil, err
	}
	out, err := collectBookings(q.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE `+column+` = $1 AND booking_date = $2
		ORDER BY start_time ASC
	`, id, day))
	return out, mapErr("list bookings by "+column, err)
}

func (t *txStore) GetBookingForUpdate(ctx context.Context, id string) (model.Booking, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Booking{}, mapErr("get booking", pgx.ErrNoRows)
	}
	b, err := scanBooking(t.tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id))
	return b, mapErr("get booking for update", err)
}

func (t *txStore) CreateBooking(ctx context.Context, b *model.Booking) error {
	date, startsAt, endsAt, err := bookingRange(b)
	if err != nil {
		return err
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	err = t.tx.QueryRow(ctx, `
		INSERT INTO bookings
			(id, user_id, service_id, staff_id, booking_date, start_time, end_time,
			 starts_at, ends_at, status, notes, price, duration_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::numeric, $13)
		RETURNING created_at, updated_at
	`, b.ID, b.UserID, b.ServiceID, nullable(b.StaffID), date, b.StartTime, b.EndTime,
		startsAt, endsAt, string(b.Status), nullable(b.Notes), b.Price, b.DurationMinutes,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	return mapErr("insert booking", err)
}

func (t *txStore) UpdateBooking(ctx context.Context, b *model.Booking) error {
	date, startsAt, endsAt, err := bookingRange(b)
	if err != nil {
		return err
	}
	err = t.tx.QueryRow(ctx, `
		UPDATE bookings
		SET booking_date = $2,
			start_time = $3,
			end_time = $4,
			starts_at = $5,
			ends_at = $6,
			status = $7,
			cancel_reason = $8,
			cancelled_at = $9,
			cancelled_by = $10,
			updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, b.ID, date, b.StartTime, b.EndTime, startsAt, endsAt, string(b.Status),
		nullable(b.CancelReason), b.CancelledAt, nullable(b.CancelledBy),
	).Scan(&b.UpdatedAt)
	return mapErr("update booking", err)
}
