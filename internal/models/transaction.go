// Package models defines the transaction records exchanged between the
// extraction, parsing, deduplication and persistence stages.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a transaction as money received or money spent.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// IsValid reports whether t is one of the two known transaction types.
func (t TransactionType) IsValid() bool {
	return t == TypeIncome || t == TypeExpense
}

// DateLayout is the calendar-date format used everywhere in the pipeline.
const DateLayout = "2006-01-02"

// ParsedTransaction is the canonical, fully-normalized output of the
// transaction parser. It is immutable once returned to the orchestrator.
//
// The amount sign always agrees with Type: negative for expense, positive
// for income. Bank is nil when the model could not name a registered
// account. Confidence is informational only and never gates persistence.
type ParsedTransaction struct {
	Date           string            `json:"date"`
	Amount         decimal.Decimal   `json:"amount"`
	Category       string            `json:"category"`
	Description    string            `json:"description"`
	Type           TransactionType   `json:"transaction_type"`
	Bank           *string           `json:"bank,omitempty"`
	Confidence     int               `json:"confidence"`
	AdditionalInfo map[string]string `json:"additional_info,omitempty"`
}

// BankName returns the bank label or the empty string when none was matched.
func (p ParsedTransaction) BankName() string {
	if p.Bank == nil {
		return ""
	}
	return *p.Bank
}

// Key returns the duplicate-identity fields of the transaction.
func (p ParsedTransaction) Key() KeyFields {
	return KeyFields{
		Date:        p.Date,
		Amount:      p.Amount.String(),
		Category:    p.Category,
		Description: p.Description,
	}
}

// KeyFields is the subset of a ledger row used to decide duplicate identity.
// Bank is deliberately not part of the key: the same mutation reported for
// two different accounts still counts as one transaction.
type KeyFields struct {
	Date        string
	Amount      string
	Category    string
	Description string
}

// LedgerEntry is a persisted transaction row as the storage collaborator
// exposes it back to the core.
type LedgerEntry struct {
	EmailID     string
	AccountID   string
	Date        string
	Amount      string
	Category    string
	Description string
	Bank        string
	RecordedAt  time.Time
}

// Key returns the duplicate-identity fields of the entry.
func (e LedgerEntry) Key() KeyFields {
	return KeyFields{
		Date:        e.Date,
		Amount:      e.Amount,
		Category:    e.Category,
		Description: e.Description,
	}
}

// NewLedgerEntry converts a parsed transaction into the row to persist.
func NewLedgerEntry(p ParsedTransaction, emailID, accountID string, now time.Time) LedgerEntry {
	return LedgerEntry{
		EmailID:     emailID,
		AccountID:   accountID,
		Date:        p.Date,
		Amount:      p.Amount.String(),
		Category:    p.Category,
		Description: p.Description,
		Bank:        p.BankName(),
		RecordedAt:  now,
	}
}
