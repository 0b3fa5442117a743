// Package tx carries a SQL transaction through context so stores can join
// an enclosing transactional boundary without changing their signatures,
// and provides a memory runner with the same contract for non-SQL wiring.
package tx

import (
	"context"
	"database/sql"
	"sync"
)

type ctxKey struct{}

var txKey = ctxKey{}

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

// Snapshotter is implemented by in-memory stores that can capture and
// restore their state, letting the memory runner roll back a failed unit.
type Snapshotter interface {
	Snapshot() func()
}

// MemoryRunner serializes units of work over a set of in-memory stores and
// restores their snapshots when the unit fails. It gives the memory wiring
// the same all-or-nothing guarantee the Postgres wiring gets from BEGIN/COMMIT.
type MemoryRunner struct {
	mu     sync.Mutex
	stores []Snapshotter
}

func NewMemoryRunner(stores ...Snapshotter) *MemoryRunner {
	return &MemoryRunner{stores: stores}
}

// RunInTx executes fn; on error every participating store is restored to
// its pre-unit state. Units are fully serialized, which also provides the
// per-document ordering the ledger append requires.
func (r *MemoryRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	restores := make([]func(), 0, len(r.stores))
	for _, s := range r.stores {
		restores = append(restores, s.Snapshot())
	}

	if err := fn(ctx); err != nil {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
		return err
	}
	return nil
}
