// Package tx carries an open SQL transaction through context so stores can
// join the caller's unit of work without changing their signatures, and
// provides the runners that open those units of work.
package tx

import (
	"context"
	"database/sql"
)

type ctxKey struct{}
type lockKey struct{}

var (
	txKey   = ctxKey{}
	lockCtx = lockKey{}
)

// Runner executes fn as one atomic unit. Stores reached through the context
// passed to fn participate in the same unit.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// DBTX is the subset of *sql.DB and *sql.Tx stores need.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// Conn returns the transaction in ctx, or db when there is none.
func Conn(ctx context.Context, db *sql.DB) DBTX {
	if tx, ok := From(ctx); ok {
		return tx
	}
	return db
}

// WithLockKey names the resource a unit of work serializes on. In-memory
// runners use it to pick a lock shard; SQL runners ignore it because stores
// take row locks themselves.
func WithLockKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, lockCtx, key)
}

// LockKey returns the key set by WithLockKey.
func LockKey(ctx context.Context) string {
	key, _ := ctx.Value(lockCtx).(string)
	return key
}
