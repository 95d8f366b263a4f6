package models

import "time"

// RunSummary aggregates the outcome of one processing cycle for one account.
// It is immutable after the cycle ends and is only ever fed to logs and
// notifications, never persisted.
type RunSummary struct {
	RunID      string
	AccountID  string
	Processed  int // newly persisted, non-duplicate transactions
	Duplicates int
	Errors     int
	Started    time.Time
	Finished   time.Time
}

// Total returns the number of candidate messages the cycle handled.
func (s RunSummary) Total() int {
	return s.Processed + s.Duplicates + s.Errors
}
