package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/hawosalon/salon/libs/db"
	"github.com/hawosalon/salon/services/salon-service/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *db.Pool
}

var _ store.Store = (*Store)(nil)

func NewStore(pool *db.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Ping(ctx context.Context) error {
	return db.ReadyCheck(s.pool)(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return s.pool.InTx(ctx, func(tx pgx.Tx) error {
		return fn(ctx, &txStore{tx: tx})
	})
}

type txStore struct {
	tx pgx.Tx
}

// LockSchedule takes a transaction-scoped advisory lock on the hashed key.
func (t *txStore) LockSchedule(ctx context.Context, key string) error {
	if _, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("lock schedule %s: %w", key, err)
	}
	return nil
}

// mapErr translates driver errors into store sentinels; anything else is
// returned wrapped with op.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}
	switch db.PgCode(err) {
	case db.CodeExclusionViolation:
		return fmt.Errorf("%s: %w", op, store.ErrConflict)
	case db.CodeUniqueViolation:
		return fmt.Errorf("%s: %w", op, store.ErrDuplicate)
	case db.CodeInvalidText:
		// Malformed uuid in a filter or reference.
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
