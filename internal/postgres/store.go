// Package postgres implements store.Store on database/sql.
package postgres

import (
	"context"
	"database/sql"

	"github.com/shopflow/storefront/internal/store"
)

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx, so the
// same statement code runs inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db *sql.DB
	q  querier
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

// WithTx runs fn against a transaction-bound view of the store. Any error
// from fn, including a failed stock adjustment, rolls back every statement
// issued inside it.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = sqlTx.Rollback() }()

	if err := fn(ctx, &Store{db: s.db, q: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// nilOnNoRows collapses sql.ErrNoRows so lookups can return (nil, nil).
func nilOnNoRows(err error) error {
	if err == sql.ErrNoRows {
		return nil
	}
	return err
}

// requireRow returns missing when the statement matched no rows.
func requireRow(result sql.Result, missing error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return missing
	}
	return nil
}
