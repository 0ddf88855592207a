// Package tx carries the unit of work through context.Context so stores can
// join the caller's transaction without it appearing in their signatures.
package tx

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Manager runs fn inside a single transaction. fn receives a context that
// carries the transaction; stores called with that context participate in it.
// Returning an error from fn aborts every write made through the context.
// A RunInTx call made with a context that already carries a transaction joins
// the outer one.
type Manager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sqlx.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sqlx.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sqlx.Tx)
	return tx, ok
}
