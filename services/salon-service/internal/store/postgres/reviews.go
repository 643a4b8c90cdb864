package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hawosalon/salon/services/salon-service/internal/model"
	"github.com/hawosalon/salon/services/salon-service/internal/store"
	"github.com/jackc/pgx/v5"
)

const reviewColumns = `
	id::text, booking_id::text, user_id::text, service_id::text, COALESCE(staff_id::text, ''),
	rating, COALESCE(comment, ''), approved, created_at, updated_at`

func scanReview(row pgx.Row) (model.Review, error) {
	var r model.Review
	err := row.Scan(&r.ID, &r.BookingID, &r.UserID, &r.ServiceID, &r.StaffID, &r.Rating, &r.Comment, &r.Approved, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (s *Store) CreateReview(ctx context.Context, r *model.Review) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO reviews (id, booking_id, user_id, service_id, staff_id, rating, comment, approved)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, r.ID, r.BookingID, r.UserID, r.ServiceID, nullable(r.StaffID), r.Rating, nullable(r.Comment), r.Approved,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	return mapErr("insert review", err)
}

func (s *Store) GetReview(ctx context.Context, id string) (model.Review, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Review{}, mapErr("get review", pgx.ErrNoRows)
	}
	r, err := scanReview(s.pool.QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id))
	return r, mapErr("get review", err)
}

func (s *Store) ApproveReview(ctx context.Context, id string) (model.Review, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Review{}, mapErr("approve review", pgx.ErrNoRows)
	}
	r, err := scanReview(s.pool.QueryRow(ctx, `
		UPDATE reviews SET approved = true, updated_at = now() WHERE id = $1
		RETURNING `+reviewColumns, id))
	return r, mapErr("approve review", err)
}

func (s *Store) UpdateReview(ctx context.Context, r *model.Review) error {
	if _, err := uuid.Parse(r.ID); err != nil {
		return mapErr("update review", pgx.ErrNoRows)
	}
	updated, err := scanReview(s.pool.QueryRow(ctx, `
		UPDATE reviews
		SET rating = $2, comment = $3, approved = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+reviewColumns, r.ID, r.Rating, nullable(r.Comment), r.Approved))
	if err != nil {
		return mapErr("update review", err)
	}
	*r = updated
	return nil
}

func (s *Store) DeleteReview(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return mapErr("delete review", pgx.ErrNoRows)
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return mapErr("delete review", err)
	}
	if tag.RowsAffected() == 0 {
		return mapErr("delete review", pgx.ErrNoRows)
	}
	return nil
}

func (s *Store) ListReviews(ctx context.Context, f store.ReviewFilter) ([]model.Review, error) {
	var (
		where []string
		args  []any
	)
	if f.ServiceID != "" {
		args = append(args, f.ServiceID)
		where = append(where, fmt.Sprintf("service_id = $%d", len(args)))
	}
	if f.StaffID != "" {
		args = append(args, f.StaffID)
		where = append(where, fmt.Sprintf("staff_id = $%d", len(args)))
	}
	if f.UserID != "" {
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	switch {
	case f.ApprovedOnly:
		where = append(where, "approved")
	case f.PendingOnly:
		where = append(where, "NOT approved")
	}
	limit := f.EffectiveLimit()

	q := `SELECT ` + reviewColumns + ` FROM reviews`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit)
	q += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, mapErr("list reviews", err)
	}
	defer rows.Close()

	var out []model.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, mapErr("list reviews", err)
		}
		out = append(out, r)
	}
	return out, mapErr("list reviews", rows.Err())
}

func (s *Store) RatingSummary(ctx context.Context, serviceID string) (model.RatingSummary, error) {
	sum := model.RatingSummary{ServiceID: serviceID}
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(AVG(rating), 0)::float8, COUNT(*)
		FROM reviews
		WHERE service_id = $1 AND approved
	`, serviceID).Scan(&sum.Average, &sum.Count)
	return sum, mapErr("rating summary", err)
}
