package postgres

import (
	"context"
	"fmt"

	"geodeck/internal/core/id"
	"geodeck/internal/domain/ledger"
)

// Compile-time check that AdvisoryLocker implements ledger.ProjectLocker.
var _ ledger.ProjectLocker = (*AdvisoryLocker)(nil)

// AdvisoryLocker serializes ledger writers per project using Postgres
// transaction-scoped advisory locks. The lock is released automatically
// at commit or rollback, so there is nothing to unlock.
type AdvisoryLocker struct {
	txManager *TxManager
}

// NewAdvisoryLocker creates a new advisory locker.
func NewAdvisoryLocker(txManager *TxManager) *AdvisoryLocker {
	return &AdvisoryLocker{txManager: txManager}
}

// LockProject blocks until this transaction holds the project's lock.
// MUST be called inside a transaction context: a pool-level advisory
// lock would outlive the write it protects.
func (l *AdvisoryLocker) LockProject(ctx context.Context, projectID id.ID) error {
	tx := l.txManager.GetTx(ctx)
	if tx == nil {
		return fmt.Errorf("project lock requires transaction context")
	}

	// hashtextextended maps the uuid onto the bigint key space the
	// advisory lock API wants. Collisions only cost extra serialization.
	_, err := tx.Exec(ctx,
		"SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))",
		projectID.String(),
	)
	if err != nil {
		return fmt.Errorf("acquire project lock: %w", err)
	}
	return nil
}
