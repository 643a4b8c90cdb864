package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hawosalon/salon/services/salon-service/internal/model"
	"github.com/jackc/pgx/v5"
)

const serviceColumns = `id::text, name, description, price::text, duration_minutes, category, active, created_at, updated_at`

func scanService(row pgx.Row) (model.Service, error) {
	var s model.Service
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Price, &s.DurationMinutes, &s.Category, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (s *Store) GetService(ctx context.Context, id string) (model.Service, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Service{}, mapErr("get service", pgx.ErrNoRows)
	}
	svc, err := scanService(s.pool.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, id))
	return svc, mapErr("get service", err)
}

func (s *Store) ListServices(ctx context.Context, includeInactive bool) ([]model.Service, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE active OR $1
		ORDER BY category, name
	`, includeInactive)
	if err != nil {
		return nil, mapErr("list services", err)
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, mapErr("list services", err)
		}
		out = append(out, svc)
	}
	return out, mapErr("list services", rows.Err())
}

func (s *Store) CreateService(ctx context.Context, svc *model.Service) error {
	if svc.ID == "" {
		svc.ID = uuid.NewString()
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO services (id, name, description, price, duration_minutes, category, active)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)
		RETURNING price::text, created_at, updated_at
	`, svc.ID, svc.Name, svc.Description, svc.Price, svc.DurationMinutes, svc.Category, svc.Active,
	).Scan(&svc.Price, &svc.CreatedAt, &svc.UpdatedAt)
	return mapErr("insert service", err)
}

func (s *Store) UpdateService(ctx context.Context, svc *model.Service) error {
	err := s.pool.QueryRow(ctx, `
		UPDATE services
		SET name = $2, description = $3, price = $4::numeric, duration_minutes = $5,
			category = $6, active = $7, updated_at = now()
		WHERE id = $1
		RETURNING price::text, created_at, updated_at
	`, svc.ID, svc.Name, svc.Description, svc.Price, svc.DurationMinutes, svc.Category, svc.Active,
	).Scan(&svc.Price, &svc.CreatedAt, &svc.UpdatedAt)
	return mapErr("update service", err)
}

const staffColumns = `
	id::text, COALESCE(user_id::text, ''), name, email, phone, specialization,
	COALESCE(bio, ''), active, working_hours, days_off, created_at, updated_at`

func scanStaff(row pgx.Row) (model.Staff, error) {
	var s model.Staff
	var hours []byte
	err := row.Scan(&s.ID, &s.UserID, &s.Name, &s.Email, &s.Phone, &s.Specialization,
		&s.Bio, &s.Active, &hours, &s.DaysOff, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return model.Staff{}, err
	}
	if len(hours) > 0 {
		if err := json.Unmarshal(hours, &s.WorkingHours); err != nil {
			return model.Staff{}, fmt.Errorf("decode working hours of %s: %w", s.ID, err)
		}
	}
	return s, nil
}

func (s *Store) GetStaff(ctx context.Context, id string) (model.Staff, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Staff{}, mapErr("get staff", pgx.ErrNoRows)
	}
	st, err := scanStaff(s.pool.QueryRow(ctx, `SELECT `+staffColumns+` FROM staff WHERE id = $1`, id))
	return st, mapErr("get staff", err)
}

func (s *Store) ListStaff(ctx context.Context, includeInactive bool) ([]model.Staff, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+staffColumns+`
		FROM staff
		WHERE active OR $1
		ORDER BY name
	`, includeInactive)
	if err != nil {
		return nil, mapErr("list staff", err)
	}
	defer rows.Close()

	var out []model.Staff
	for rows.Next() {
		st, err := scanStaff(rows)
		if err != nil {
			return nil, mapErr("list staff", err)
		}
		out = append(out, st)
	}
	return out, mapErr("list staff", rows.Err())
}

func staffArgs(st *model.Staff) ([]byte, []string, error) {
	hours, err := json.Marshal(st.WorkingHours)
	if err != nil {
		return nil, nil, err
	}
	days := st.DaysOff
	if days == nil {
		days = []string{}
	}
	return hours, days, nil
}

func (s *Store) CreateStaff(ctx context.Context, st *model.Staff) error {
	hours, days, err := staffArgs(st)
	if err != nil {
		return err
	}
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO staff (id, user_id, name, email, phone, specialization, bio, active, working_hours, days_off)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`, st.ID, nullable(st.UserID), st.Name, st.Email, st.Phone, st.Specialization, nullable(st.Bio),
		st.Active, hours, days,
	).Scan(&st.CreatedAt, &st.UpdatedAt)
	return mapErr("insert staff", err)
}

func (s *Store) UpdateStaff(ctx context.Context, st *model.Staff) error {
	hours, days, err := staffArgs(st)
	if err != nil {
		return err
	}
	err = s.pool.QueryRow(ctx, `
		UPDATE staff
		SET user_id = $2, name = $3, email = $4, phone = $5, specialization = $6, bio = $7,
			active = $8, working_hours = $9, days_off = $10, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at
	`, st.ID, nullable(st.UserID), st.Name, st.Email, st.Phone, st.Specialization, nullable(st.Bio),
		st.Active, hours, days,
	).Scan(&st.CreatedAt, &st.UpdatedAt)
	return mapErr("update staff", err)
}
