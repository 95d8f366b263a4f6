package ledger

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/Wimboro/gmail-wa/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS transactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email_id TEXT NOT NULL,
	account_id TEXT NOT NULL,
	date TEXT NOT NULL,
	amount TEXT NOT NULL,
	category TEXT NOT NULL,
	description TEXT NOT NULL,
	bank TEXT NOT NULL DEFAULT '',
	recorded_at TIMESTAMP NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_key
	ON transactions (date, amount, lower(trim(category)), lower(trim(description)));
`

// SQLiteLedger stores entries in a local SQLite database. The unique index
// over the four key fields makes the duplicate check transactional: two
// racing writers cannot both insert the same transaction. Amounts are
// written canonicalized (no trailing fraction zeros), so the index's
// string comparison on the amount column is numeric equality.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLiteLedger opens (and if needed creates) the database at path.
func NewSQLiteLedger(path string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "sqlite: open")
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "sqlite: create schema")
	}
	return &SQLiteLedger{db: db}, nil
}

// ListExisting returns the key fields of every recorded row.
func (l *SQLiteLedger) ListExisting(ctx context.Context) ([]models.KeyFields, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT date, amount, category, description FROM transactions`)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite: list existing")
	}
	defer rows.Close()

	var keys []models.KeyFields
	for rows.Next() {
		var k models.KeyFields
		if err := rows.Scan(&k.Date, &k.Amount, &k.Category, &k.Description); err != nil {
			return nil, errors.Wrap(err, "sqlite: scan row")
		}
		keys = append(keys, k)
	}
	return keys, errors.Wrap(rows.Err(), "sqlite: iterate rows")
}

// Insert persists entry, reporting Duplicate when the key-field index
// rejects it.
func (l *SQLiteLedger) Insert(ctx context.Context, entry models.LedgerEntry) (InsertResult, error) {
	recordedAt := entry.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	res, err := l.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO transactions
			(email_id, account_id, date, amount, category, description, bank, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.EmailID, entry.AccountID, entry.Date, canonicalAmount(entry.Amount),
		entry.Category, entry.Description, entry.Bank, recordedAt)
	if err != nil {
		return Duplicate, errors.Wrap(err, "sqlite: insert")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Duplicate, errors.Wrap(err, "sqlite: rows affected")
	}
	if affected == 0 {
		return Duplicate, nil
	}
	return Inserted, nil
}

// canonicalAmount renders an amount without trailing fraction zeros, so
// "-25000.0" and "-25000" store identically. A non-numeric amount is kept
// verbatim.
func canonicalAmount(s string) string {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	out := d.String()
	if strings.Contains(out, ".") {
		out = strings.TrimRight(out, "0")
		out = strings.TrimRight(out, ".")
	}
	return out
}

// Close releases the database handle.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
