package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Wimboro/gmail-wa/internal/logging"
	"github.com/Wimboro/gmail-wa/internal/models"
)

// Sheet column layout, A through H.
// date | amount | category | description | bank | email_id | account_id | recorded_at

// SheetsLedger appends entries to a Google Sheets spreadsheet. Sheets cannot
// enforce a uniqueness constraint, so Insert always reports Inserted on
// success; duplicate protection is the orchestrator's pre-check.
type SheetsLedger struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string
	log           logging.Logger
}

// NewSheetsLedger builds a ledger over one sheet of a spreadsheet,
// authenticating with a service-account credentials file.
func NewSheetsLedger(ctx context.Context, credentialsFile, spreadsheetID, sheetName string, logger logging.Logger) (*SheetsLedger, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope))
	if err != nil {
		return nil, errors.Wrap(err, "sheets: create service")
	}
	if sheetName == "" {
		sheetName = "Transactions"
	}
	return &SheetsLedger{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		log:           logger,
	}, nil
}

// ListExisting reads all data rows (the first row is headers).
func (l *SheetsLedger) ListExisting(ctx context.Context) ([]models.KeyFields, error) {
	readRange := fmt.Sprintf("%s!A2:D", l.sheetName)
	resp, err := l.svc.Spreadsheets.Values.Get(l.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrap(err, "sheets: read existing rows")
	}

	keys := make([]models.KeyFields, 0, len(resp.Values))
	for _, row := range resp.Values {
		keys = append(keys, models.KeyFields{
			Date:        cell(row, 0),
			Amount:      cell(row, 1),
			Category:    cell(row, 2),
			Description: cell(row, 3),
		})
	}
	l.log.WithField("count", len(keys)).Debug("Loaded existing ledger rows")
	return keys, nil
}

// Insert appends one row.
func (l *SheetsLedger) Insert(ctx context.Context, entry models.LedgerEntry) (InsertResult, error) {
	values := &sheets.ValueRange{
		Values: [][]interface{}{{
			entry.Date,
			entry.Amount,
			entry.Category,
			entry.Description,
			entry.Bank,
			entry.EmailID,
			entry.AccountID,
			entry.RecordedAt.Format(time.RFC3339),
		}},
	}
	_, err := l.svc.Spreadsheets.Values.
		Append(l.spreadsheetID, fmt.Sprintf("%s!A:H", l.sheetName), values).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return Duplicate, errors.Wrap(err, "sheets: append row")
	}
	return Inserted, nil
}

func cell(row []interface{}, i int) string {
	if i >= len(row) {
		return ""
	}
	if s, ok := row[i].(string); ok {
		return s
	}
	return fmt.Sprintf("%v", row[i])
}
