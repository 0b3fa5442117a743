package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "docgov/pkg/domain-errors"
	txcontext "docgov/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// postgresTxRunner opens a database transaction per unit of work and carries
// it through context so the Postgres stores join the same transaction. The
// transition commit (signature, audit entry, state flip) rides on this.
type postgresTxRunner struct {
	db      *sql.DB
	timeout time.Duration
}

func newPostgresTxRunner(db *sql.DB) *postgresTxRunner {
	return &postgresTxRunner{db: db}
}

func (r *postgresTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := r.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	return nil
}
