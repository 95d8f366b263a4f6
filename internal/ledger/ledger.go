// Package ledger persists reconciled transactions and answers the
// duplicate-identity queries the core needs.
package ledger

import (
	"context"

	"github.com/Wimboro/gmail-wa/internal/models"
)

// InsertResult reports what an Insert actually did.
type InsertResult int

const (
	Inserted InsertResult = iota
	Duplicate
)

// Ledger is the storage collaborator interface. Implementations that can
// enforce the key-field uniqueness transactionally (SQLite) should do so and
// report Duplicate, which makes the orchestrator's pre-check a fast path
// rather than the sole correctness guarantee. Implementations that cannot
// (Google Sheets) always report Inserted on success and rely on the
// pre-check.
type Ledger interface {
	// ListExisting returns the key fields of all currently recorded rows.
	ListExisting(ctx context.Context) ([]models.KeyFields, error)

	// Insert persists one entry.
	Insert(ctx context.Context, entry models.LedgerEntry) (InsertResult, error)
}
