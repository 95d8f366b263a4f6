package ledger

import (
	"os"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"github.com/Wimboro/gmail-wa/internal/models"
)

// csvRow is the on-disk audit format for exported entries.
type csvRow struct {
	Date        string `csv:"date"`
	Amount      string `csv:"amount"`
	Category    string `csv:"category"`
	Description string `csv:"description"`
	Bank        string `csv:"bank"`
	EmailID     string `csv:"email_id"`
	AccountID   string `csv:"account_id"`
	RecordedAt  string `csv:"recorded_at"`
}

// AppendCSV appends the cycle's newly persisted entries to an audit CSV
// file, writing the header only when the file is new. It is a write-only
// side channel, never read back by the pipeline.
func AppendCSV(path string, entries []models.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	rows := make([]csvRow, len(entries))
	for i, e := range entries {
		rows[i] = csvRow{
			Date:        e.Date,
			Amount:      e.Amount,
			Category:    e.Category,
			Description: e.Description,
			Bank:        e.Bank,
			EmailID:     e.EmailID,
			AccountID:   e.AccountID,
			RecordedAt:  e.RecordedAt.Format(time.RFC3339),
		}
	}

	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "csv: open audit file")
	}
	defer f.Close()

	if isNew {
		err = gocsv.MarshalFile(&rows, f)
	} else {
		err = gocsv.MarshalWithoutHeaders(&rows, f)
	}
	return errors.Wrap(err, "csv: write audit rows")
}
