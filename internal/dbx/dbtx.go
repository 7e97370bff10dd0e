// Package dbx holds the database/sql handle shared by the SQL stores and a
// transaction helper.
package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Beginner starts transactions; *sql.DB and *sql.Conn both qualify.
type Beginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// InTx runs fn in one transaction and returns its value. The transaction
// commits only when fn succeeds; otherwise it is rolled back and a failed
// rollback is joined onto fn's error. A panic in fn rolls back and is
// re-raised. On any error the zero T is returned.
func InTx[T any](ctx context.Context, db Beginner, opts *sql.TxOptions, fn func(context.Context, DBTX) (T, error)) (out T, err error) {
	var zero T

	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return zero, fmt.Errorf("dbx: begin: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if rerr := tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("dbx: rollback: %w", rerr))
		}
		out = zero
	}()

	out, err = fn(ctx, tx)
	if err != nil {
		return zero, err
	}
	if err = tx.Commit(); err != nil {
		return zero, fmt.Errorf("dbx: commit: %w", err)
	}
	committed = true
	return out, nil
}
