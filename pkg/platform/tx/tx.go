// Package tx carries a SQL transaction through context so that ledger writes
// and the entity mutation that triggered them land in one transaction.
package tx

import (
	"context"
	"database/sql"
)

type ctxKey struct{}

// Querier is the subset of *sql.DB / *sql.Tx the stores need. Stores resolve
// it per call so the same store serves both transactional and direct paths.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(ctxKey{}).(*sql.Tx)
	return tx, ok
}

// QuerierFrom returns the context transaction when one is active, falling
// back to db. Every store query goes through this so a service-level
// transaction automatically covers the ledgers.
func QuerierFrom(ctx context.Context, db *sql.DB) Querier {
	if tx, ok := From(ctx); ok {
		return tx
	}
	return db
}
