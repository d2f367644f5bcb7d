// Package tx carries a database transaction through context so a store can
// join a caller-opened transaction without threading *sql.Tx parameters.
package tx

import (
	"context"
	"database/sql"
)

// Executor is the statement surface shared by *sql.DB and *sql.Tx.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type ctxKey struct{}

// WithTx returns a context carrying the transaction. Writes issued under it
// join the transaction instead of the bare connection pool.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, tx)
}

// From returns the carried transaction, if any.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(ctxKey{}).(*sql.Tx)
	return tx, ok
}

// ExecutorFor returns the carried transaction when present, db otherwise.
func ExecutorFor(ctx context.Context, db *sql.DB) Executor {
	if tx, ok := From(ctx); ok {
		return tx
	}
	return db
}
