// Package recon drives the per-account reconciliation cycle: fetch
// candidate messages, extract, parse, dedupe, persist, notify, label.
package recon

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Wimboro/gmail-wa/internal/dedupe"
	"github.com/Wimboro/gmail-wa/internal/ledger"
	"github.com/Wimboro/gmail-wa/internal/logging"
	"github.com/Wimboro/gmail-wa/internal/mailbox"
	"github.com/Wimboro/gmail-wa/internal/models"
	"github.com/Wimboro/gmail-wa/internal/pipeerror"
)

// ErrCycleInProgress is returned when a cycle is requested while a prior
// one is still running. Cycles are serialized, never parallelized.
var ErrCycleInProgress = errors.New("a processing cycle is already running")

// TextExtractor resolves a raw message to plain text.
type TextExtractor interface {
	Text(msg *models.RawMessage) (string, bool)
}

// TransactionParser turns extracted text into a typed record.
type TransactionParser interface {
	Parse(ctx context.Context, emailID, text string) (*models.ParsedTransaction, error)
}

// Notifier receives the cycle outcome for delivery.
type Notifier interface {
	Notify(ctx context.Context, summary models.RunSummary, persisted []models.ParsedTransaction)
}

// Account is one mail account the orchestrator reconciles.
type Account struct {
	ID      string
	Mailbox mailbox.Mailbox
	Query   string
}

// Orchestrator runs cycles over a fixed set of accounts. Accounts are
// iterated sequentially, messages within an account are processed strictly
// in query order, and a failure in one message never reaches the next.
type Orchestrator struct {
	accounts   []Account
	ledger     ledger.Ledger
	extractor  TextExtractor
	parser     TransactionParser
	notifier   Notifier
	logger     logging.Logger
	fetchWidth int
	llmTimeout time.Duration
	auditCSV   string // optional audit file, empty disables

	cycleMu sync.Mutex
	now     func() time.Time
}

// Options configures optional orchestrator behavior.
type Options struct {
	FetchWidth int           // concurrent body fetches, default 4
	LLMTimeout time.Duration // per-message parse budget, default 45s
	AuditCSV   string        // path of the cycle audit file, "" disables
}

// New creates an Orchestrator.
func New(accounts []Account, lg ledger.Ledger, extractor TextExtractor, parser TransactionParser, notifier Notifier, logger logging.Logger, opts Options) *Orchestrator {
	if opts.FetchWidth < 1 {
		opts.FetchWidth = 4
	}
	if opts.LLMTimeout <= 0 {
		opts.LLMTimeout = 45 * time.Second
	}
	return &Orchestrator{
		accounts:   accounts,
		ledger:     lg,
		extractor:  extractor,
		parser:     parser,
		notifier:   notifier,
		logger:     logger,
		fetchWidth: opts.FetchWidth,
		llmTimeout: opts.LLMTimeout,
		auditCSV:   opts.AuditCSV,
		now:        time.Now,
	}
}

// RunCycle processes every account once and returns the per-account
// summaries. A second concurrent call fails fast with ErrCycleInProgress.
// Account-level failures are isolated: one account that cannot run never
// aborts the others.
func (o *Orchestrator) RunCycle(ctx context.Context) ([]models.RunSummary, error) {
	if !o.cycleMu.TryLock() {
		return nil, ErrCycleInProgress
	}
	defer o.cycleMu.Unlock()

	summaries := make([]models.RunSummary, 0, len(o.accounts))
	for _, account := range o.accounts {
		if ctx.Err() != nil {
			break
		}
		summaries = append(summaries, o.runAccount(ctx, account))
	}
	return summaries, ctx.Err()
}

type outcome int

const (
	outcomePersisted outcome = iota
	outcomeDuplicate
	outcomeError
)

func (o *Orchestrator) runAccount(ctx context.Context, account Account) models.RunSummary {
	summary := models.RunSummary{
		RunID:     uuid.NewString(),
		AccountID: account.ID,
		Started:   o.now(),
	}
	log := o.logger.WithFields(
		logging.Field{Key: "run_id", Value: summary.RunID},
		logging.Field{Key: "account", Value: account.ID},
	)

	refs, err := account.Mailbox.ListCandidates(ctx, account.Query)
	if err != nil {
		log.WithError(err).Error("Cannot list candidate messages, skipping account")
		summary.Finished = o.now()
		return summary
	}
	if len(refs) == 0 {
		log.Debug("No candidate messages")
		summary.Finished = o.now()
		return summary
	}

	// The duplicate snapshot is taken once per cycle and extended with
	// every in-cycle insert, so identical candidates within one cycle are
	// still caught.
	existing, err := o.ledger.ListExisting(ctx)
	if err != nil {
		log.WithError(err).Error("Cannot load ledger snapshot, skipping account")
		summary.Finished = o.now()
		return summary
	}
	resolver := dedupe.NewResolver(existing)

	msgs, fetchErrs := mailbox.FetchBodies(ctx, account.Mailbox, refs, o.fetchWidth)

	var persisted []models.ParsedTransaction
	var insertedEntries []models.LedgerEntry
	for i, ref := range refs {
		// Stop between messages on shutdown; the current message always
		// runs to completion on a detached context.
		if ctx.Err() != nil {
			log.Warn("Cycle interrupted, stopping before next message")
			break
		}
		msgCtx := context.WithoutCancel(ctx)

		if fetchErrs[i] != nil {
			// The message never entered the pipeline; leave it unlabeled
			// so the next poll retries the fetch.
			log.WithError(fetchErrs[i]).WithField("email_id", ref.ID).Error("Body fetch failed")
			summary.Errors++
			continue
		}

		result, tx, entry := o.processMessage(msgCtx, log, account, resolver, msgs[i])
		switch result {
		case outcomePersisted:
			summary.Processed++
			persisted = append(persisted, *tx)
			insertedEntries = append(insertedEntries, *entry)
		case outcomeDuplicate:
			summary.Duplicates++
		case outcomeError:
			summary.Errors++
		}

		// Labeled processed regardless of outcome: one failed label is the
		// only way a message can ever be seen twice.
		if err := account.Mailbox.MarkProcessed(msgCtx, ref.ID); err != nil {
			log.WithError(err).WithField("email_id", ref.ID).Warn("Failed to label message processed")
		}
	}

	o.notifier.Notify(context.WithoutCancel(ctx), summary, persisted)

	if o.auditCSV != "" && len(insertedEntries) > 0 {
		if err := ledger.AppendCSV(o.auditCSV, insertedEntries); err != nil {
			log.WithError(err).Warn("Failed to write audit CSV")
		}
	}

	summary.Finished = o.now()
	log.WithFields(
		logging.Field{Key: "processed", Value: summary.Processed},
		logging.Field{Key: "duplicates", Value: summary.Duplicates},
		logging.Field{Key: "errors", Value: summary.Errors},
	).Info("Cycle finished for account")
	return summary
}

// processMessage runs the Extract→Parse→Dedupe→Persist steps for one
// message. Failures are classified, logged and contained here; they never
// propagate to the caller.
func (o *Orchestrator) processMessage(ctx context.Context, log logging.Logger, account Account, resolver *dedupe.Resolver, msg *models.RawMessage) (outcome, *models.ParsedTransaction, *models.LedgerEntry) {
	text, ok := o.extractor.Text(msg)
	if !ok {
		err := &pipeerror.ExtractionError{EmailID: msg.ID, Reason: "no extractable text"}
		log.WithError(err).WithField("email_id", msg.ID).Error("Extraction failed")
		return outcomeError, nil, nil
	}

	parseCtx, cancel := context.WithTimeout(ctx, o.llmTimeout)
	tx, err := o.parser.Parse(parseCtx, msg.ID, text)
	cancel()
	if err != nil {
		log.WithError(err).WithField("email_id", msg.ID).Error("Parse failed")
		return outcomeError, nil, nil
	}

	key := tx.Key()
	if resolver.IsDuplicate(key) {
		log.WithFields(
			logging.Field{Key: "email_id", Value: msg.ID},
			logging.Field{Key: "description", Value: tx.Description},
		).Info("Duplicate transaction, skipping")
		return outcomeDuplicate, nil, nil
	}

	entry := models.NewLedgerEntry(*tx, msg.ID, account.ID, o.now())
	result, err := o.ledger.Insert(ctx, entry)
	if err != nil {
		perr := &pipeerror.PersistenceError{EmailID: msg.ID, Err: err}
		log.WithError(perr).WithField("email_id", msg.ID).Error("Persist failed")
		return outcomeError, nil, nil
	}
	if result == ledger.Duplicate {
		// The storage layer's own constraint caught a race the snapshot
		// missed.
		log.WithField("email_id", msg.ID).Info("Storage reported duplicate, skipping")
		resolver.Add(key)
		return outcomeDuplicate, nil, nil
	}

	resolver.Add(key)
	return outcomePersisted, tx, &entry
}
