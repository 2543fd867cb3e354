package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Beginner starts transactions. *pgxpool.Pool satisfies it.
type Beginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// ReadCommitted is used by units of work that serialize through explicit locks,
// so every statement after the lock sees rows committed before it was granted.
var ReadCommitted = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

// ReadOnly is a repeatable read snapshot for multi-statement reports.
var ReadOnly = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

// WithTx executes fn within a transaction. The transaction is rolled back when fn
// returns an error or ctx is canceled before commit. Commit itself is not
// interrupted by cancellation once it has been issued.
func WithTx(ctx context.Context, db Beginner, opts pgx.TxOptions, fn func(pgx.Tx) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("platform/db: before commit: %w", err)
	}

	if err := tx.Commit(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}
