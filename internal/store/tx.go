package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Tx is a unit of work spanning one feed page.
type Tx struct {
	tx        *sql.Tx
	dialect   Dialect
	timestamp string
}

// WithTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(*Tx) error) error {
	var sqlTx *sql.Tx
	if err := retryOnBusy(ctx, func() error {
		var err error
		sqlTx, err = s.db.BeginTx(ctx, nil)
		return err
	}); err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	tx := &Tx{tx: sqlTx, dialect: s.dialect, timestamp: s.timestamp()}
	if err := fn(tx); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (t *Tx) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, t.dialect.rebind(query), args...)
}

func (t *Tx) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.dialect.rebind(query), args...)
}
