package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/hawosalon/salon/services/salon-service/internal/model"
	"github.com/jackc/pgx/v5"
)

func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.User{}, mapErr("get user", pgx.ErrNoRows)
	}
	var u model.User
	err := s.pool.QueryRow(ctx, `
		SELECT id::text, name, email, COALESCE(phone, ''), role, COALESCE(staff_id::text, '')
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.StaffID)
	return u, mapErr("get user", err)
}
