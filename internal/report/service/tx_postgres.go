package service

import (
	"context"
	"database/sql"
	"time"

	dErrors "biohive/pkg/domain-errors"
	txcontext "biohive/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// PostgresTxRunner runs the intake unit of work in one database transaction.
// The stores join the transaction through the context, so the report insert,
// the ledger append and the node touch commit or roll back together.
type PostgresTxRunner struct {
	db      *sql.DB
	stores  TxStores
	timeout time.Duration
}

func NewPostgresTxRunner(db *sql.DB, stores TxStores) *PostgresTxRunner {
	return &PostgresTxRunner{db: db, stores: stores}
}

func (t *PostgresTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context, stores TxStores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx), t.stores); err != nil {
		return err
	}
	return tx.Commit()
}
