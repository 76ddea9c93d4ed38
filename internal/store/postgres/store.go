// Package postgres implements the entity store on PostgreSQL through a pgx
// connection pool.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/repairdesk/repair-service/internal/store"
)

var _ store.Store = (*Store)(nil)

// querier is the subset of pgx.Tx used by views.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store runs views in REPEATABLE READ READ ONLY transactions and writes in
// READ COMMITTED transactions that share-lock referenced user and status rows.
type Store struct {
	pool  *pgxpool.Pool
	nowFn func() time.Time
}

// NewStore wraps pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, nowFn: func() time.Time { return time.Now().UTC() }}
}

// View runs fn against a consistent snapshot.
func (s *Store) View(ctx context.Context, fn func(store.View) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&view{q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// RunInTransaction commits fn's writes together or rolls them all back.
func (s *Store) RunInTransaction(ctx context.Context, fn func(store.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&writeTx{view: view{q: tx, lock: true}, now: s.nowFn()}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError(err)
	}
	return nil
}

// findOne scans a single row, translating pgx.ErrNoRows to store.ErrNotFound.
func findOne[T any](ctx context.Context, q querier, scan func(pgx.Row) (T, error), sql string, args ...any) (T, error) {
	v, err := scan(q.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		var zero T
		return zero, store.ErrNotFound
	}
	return v, err
}

func list[T any](ctx context.Context, q querier, scan func(pgx.Row) (T, error), sql string, args ...any) ([]T, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
