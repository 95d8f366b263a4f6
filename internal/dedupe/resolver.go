// Package dedupe decides whether a candidate transaction is already present
// in the ledger.
package dedupe

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Wimboro/gmail-wa/internal/models"
)

// Resolver performs the exact-field duplicate check. A candidate is a
// duplicate iff some prior entry matches on all four key fields (date,
// amount, category, description) after trimming and case-folding. Bank is
// not a key field. The check is a deny list, not an upsert: false negatives
// are tolerated, false positives are not.
type Resolver struct {
	existing []models.KeyFields
}

// NewResolver builds a resolver over a snapshot of prior entries.
func NewResolver(existing []models.KeyFields) *Resolver {
	return &Resolver{existing: existing}
}

// IsDuplicate reports whether candidate matches any known entry.
func (r *Resolver) IsDuplicate(candidate models.KeyFields) bool {
	for _, prior := range r.existing {
		if Equal(candidate, prior) {
			return true
		}
	}
	return false
}

// Add extends the snapshot with a newly persisted entry so that a second
// identical candidate within the same cycle is caught.
func (r *Resolver) Add(entry models.KeyFields) {
	r.existing = append(r.existing, entry)
}

// Equal compares two key tuples field by field.
func Equal(a, b models.KeyFields) bool {
	return fold(a.Date) == fold(b.Date) &&
		amountEqual(a.Amount, b.Amount) &&
		fold(a.Category) == fold(b.Category) &&
		fold(a.Description) == fold(b.Description)
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// amountEqual compares amounts numerically when both sides parse as
// decimals, so "-25000" and "-25000.0" stored by different writers still
// collide. Non-numeric values fall back to the plain string rule. This is a
// deliberate normalization of the exact-string rule.
func amountEqual(a, b string) bool {
	da, errA := decimal.NewFromString(strings.TrimSpace(a))
	db, errB := decimal.NewFromString(strings.TrimSpace(b))
	if errA == nil && errB == nil {
		return da.Equal(db)
	}
	return fold(a) == fold(b)
}
