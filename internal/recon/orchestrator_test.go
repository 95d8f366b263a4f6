package recon

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wimboro/gmail-wa/internal/dedupe"
	"github.com/Wimboro/gmail-wa/internal/ledger"
	"github.com/Wimboro/gmail-wa/internal/logging"
	"github.com/Wimboro/gmail-wa/internal/models"
	"github.com/Wimboro/gmail-wa/internal/pipeerror"
)

// fakeMailbox serves canned messages; message text travels in the Subject
// field so tests can skip MIME encoding.
type fakeMailbox struct {
	msgs      []*models.RawMessage
	listErr   error
	fetchFail map[string]bool
	processed map[string]int
}

func (f *fakeMailbox) ListCandidates(context.Context, string) ([]models.MessageRef, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	refs := make([]models.MessageRef, len(f.msgs))
	for i, m := range f.msgs {
		refs[i] = models.MessageRef{ID: m.ID}
	}
	return refs, nil
}

func (f *fakeMailbox) GetMessage(_ context.Context, id string) (*models.RawMessage, error) {
	if f.fetchFail[id] {
		return nil, errors.New("network error")
	}
	for _, m := range f.msgs {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeMailbox) MarkProcessed(_ context.Context, id string) error {
	if f.processed == nil {
		f.processed = map[string]int{}
	}
	f.processed[id]++
	return nil
}

// subjectExtractor treats the subject as the body text.
type subjectExtractor struct{}

func (subjectExtractor) Text(msg *models.RawMessage) (string, bool) {
	if msg.Subject == "" {
		return "", false
	}
	return msg.Subject, true
}

// keywordParser derives a transaction deterministically from the text, or
// fails when the text contains "unparseable".
type keywordParser struct{}

func (keywordParser) Parse(_ context.Context, emailID, text string) (*models.ParsedTransaction, error) {
	if strings.Contains(text, "unparseable") {
		return nil, &pipeerror.ParseError{EmailID: emailID, Stage: "json", Err: errors.New("bad json")}
	}
	return &models.ParsedTransaction{
		Date:        "2024-01-15",
		Amount:      decimal.NewFromInt(-25000),
		Category:    "Makanan",
		Description: text,
		Type:        models.TypeExpense,
		Confidence:  70,
	}, nil
}

// memLedger is an in-memory Ledger with the same duplicate semantics as the
// SQLite implementation.
type memLedger struct {
	rows      []models.LedgerEntry
	insertErr map[string]error // keyed by email id
}

func (l *memLedger) ListExisting(context.Context) ([]models.KeyFields, error) {
	keys := make([]models.KeyFields, len(l.rows))
	for i, r := range l.rows {
		keys[i] = r.Key()
	}
	return keys, nil
}

func (l *memLedger) Insert(_ context.Context, entry models.LedgerEntry) (ledger.InsertResult, error) {
	if err := l.insertErr[entry.EmailID]; err != nil {
		return ledger.Duplicate, err
	}
	for _, r := range l.rows {
		if dedupe.Equal(r.Key(), entry.Key()) {
			return ledger.Duplicate, nil
		}
	}
	l.rows = append(l.rows, entry)
	return ledger.Inserted, nil
}

type recordingNotifier struct {
	summaries []models.RunSummary
	persisted [][]models.ParsedTransaction
}

func (n *recordingNotifier) Notify(_ context.Context, summary models.RunSummary, persisted []models.ParsedTransaction) {
	n.summaries = append(n.summaries, summary)
	n.persisted = append(n.persisted, persisted)
}

func msg(id, text string) *models.RawMessage {
	return &models.RawMessage{ID: id, Subject: text}
}

func newOrchestrator(accounts []Account, lg ledger.Ledger, notifier Notifier) *Orchestrator {
	return New(accounts, lg, subjectExtractor{}, keywordParser{}, notifier, logging.NewMockLogger(), Options{})
}

func TestRunCycleHappyPath(t *testing.T) {
	mb := &fakeMailbox{msgs: []*models.RawMessage{
		msg("m1", "Pembayaran QRIS Warung Makan"),
		msg("m2", "Pembelian pulsa Telkomsel"),
	}}
	lg := &memLedger{}
	notifier := &recordingNotifier{}

	o := newOrchestrator([]Account{{ID: "acc", Mailbox: mb}}, lg, notifier)
	summaries, err := o.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	assert.Equal(t, 2, summaries[0].Processed)
	assert.Equal(t, 0, summaries[0].Duplicates)
	assert.Equal(t, 0, summaries[0].Errors)
	assert.Len(t, lg.rows, 2)
	assert.Equal(t, 1, mb.processed["m1"])
	assert.Equal(t, 1, mb.processed["m2"])
	require.Len(t, notifier.persisted, 1)
	assert.Len(t, notifier.persisted[0], 2)
}

func TestRunCycleErrorIsolation(t *testing.T) {
	// A failing message never prevents later messages, and it is
	// marked processed exactly once.
	mb := &fakeMailbox{msgs: []*models.RawMessage{
		msg("m1", ""), // extraction failure
		msg("m2", "unparseable body"),
		msg("m3", "Pembelian kopi"),
	}}
	lg := &memLedger{}
	notifier := &recordingNotifier{}

	o := newOrchestrator([]Account{{ID: "acc", Mailbox: mb}}, lg, notifier)
	summaries, err := o.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	assert.Equal(t, 1, summaries[0].Processed)
	assert.Equal(t, 2, summaries[0].Errors)
	assert.Equal(t, 1, mb.processed["m1"])
	assert.Equal(t, 1, mb.processed["m2"])
	assert.Equal(t, 1, mb.processed["m3"])
	require.Len(t, lg.rows, 1)
	assert.Equal(t, "m3", lg.rows[0].EmailID)
}

func TestRunCycleDuplicateAgainstSnapshot(t *testing.T) {
	prior := models.LedgerEntry{
		Date:        "2024-01-15",
		Amount:      "-25000",
		Category:    "Makanan",
		Description: "Pembayaran QRIS Warung Makan",
		Bank:        "Jago Fara",
	}
	mb := &fakeMailbox{msgs: []*models.RawMessage{
		msg("m1", "Pembayaran QRIS Warung Makan"),
	}}
	lg := &memLedger{rows: []models.LedgerEntry{prior}}
	notifier := &recordingNotifier{}

	o := newOrchestrator([]Account{{ID: "acc", Mailbox: mb}}, lg, notifier)
	summaries, err := o.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summaries[0].Processed)
	assert.Equal(t, 1, summaries[0].Duplicates)
	assert.Len(t, lg.rows, 1)
	// Duplicates are still labeled processed.
	assert.Equal(t, 1, mb.processed["m1"])
}

func TestRunCycleInCycleDuplicate(t *testing.T) {
	// Two identical candidates in the same batch: the snapshot is extended
	// after the first insert, so the second is caught without a storage
	// round-trip.
	mb := &fakeMailbox{msgs: []*models.RawMessage{
		msg("m1", "Pembayaran QRIS Warung Makan"),
		msg("m2", "Pembayaran QRIS Warung Makan"),
	}}
	lg := &memLedger{}
	notifier := &recordingNotifier{}

	o := newOrchestrator([]Account{{ID: "acc", Mailbox: mb}}, lg, notifier)
	summaries, err := o.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summaries[0].Processed)
	assert.Equal(t, 1, summaries[0].Duplicates)
	assert.Len(t, lg.rows, 1)
}

func TestRunCyclePersistFailureStillLabels(t *testing.T) {
	mb := &fakeMailbox{msgs: []*models.RawMessage{
		msg("m1", "Pembelian kopi"),
	}}
	lg := &memLedger{insertErr: map[string]error{"m1": errors.New("storage down")}}
	notifier := &recordingNotifier{}

	o := newOrchestrator([]Account{{ID: "acc", Mailbox: mb}}, lg, notifier)
	summaries, err := o.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summaries[0].Processed)
	assert.Equal(t, 1, summaries[0].Errors)
	assert.Empty(t, lg.rows)
	// The message is labeled processed even though the write failed.
	assert.Equal(t, 1, mb.processed["m1"])
}

func TestRunCycleFetchFailureLeavesMessageUnlabeled(t *testing.T) {
	mb := &fakeMailbox{
		msgs:      []*models.RawMessage{msg("m1", "Pembelian kopi"), msg("m2", "Pembelian teh")},
		fetchFail: map[string]bool{"m1": true},
	}
	lg := &memLedger{}
	notifier := &recordingNotifier{}

	o := newOrchestrator([]Account{{ID: "acc", Mailbox: mb}}, lg, notifier)
	summaries, err := o.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summaries[0].Errors)
	assert.Equal(t, 1, summaries[0].Processed)
	// The unfetched message stays unlabeled for the next poll.
	assert.Zero(t, mb.processed["m1"])
	assert.Equal(t, 1, mb.processed["m2"])
}

func TestRunCycleAccountIsolation(t *testing.T) {
	broken := &fakeMailbox{listErr: errors.New("auth expired")}
	healthy := &fakeMailbox{msgs: []*models.RawMessage{msg("m1", "Pembelian kopi")}}
	lg := &memLedger{}
	notifier := &recordingNotifier{}

	o := newOrchestrator([]Account{
		{ID: "broken", Mailbox: broken},
		{ID: "healthy", Mailbox: healthy},
	}, lg, notifier)

	summaries, err := o.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, "broken", summaries[0].AccountID)
	assert.Zero(t, summaries[0].Total())
	assert.Equal(t, 1, summaries[1].Processed)
}

func TestRunCycleSerialized(t *testing.T) {
	o := newOrchestrator(nil, &memLedger{}, &recordingNotifier{})
	o.cycleMu.Lock()
	defer o.cycleMu.Unlock()

	_, err := o.RunCycle(context.Background())
	assert.ErrorIs(t, err, ErrCycleInProgress)
}

func TestRunCycleCancelledContext(t *testing.T) {
	mb := &fakeMailbox{msgs: []*models.RawMessage{msg("m1", "Pembelian kopi")}}
	o := newOrchestrator([]Account{{ID: "acc", Mailbox: mb}}, &memLedger{}, &recordingNotifier{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summaries, err := o.RunCycle(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, summaries)
	assert.Empty(t, mb.processed)
}

// cancellingParser requests shutdown while a message is being parsed, the
// way a signal arrives mid-cycle.
type cancellingParser struct {
	keywordParser
	cancel context.CancelFunc
}

func (p *cancellingParser) Parse(ctx context.Context, emailID, text string) (*models.ParsedTransaction, error) {
	p.cancel()
	return p.keywordParser.Parse(ctx, emailID, text)
}

func TestRunCycleShutdownMidMessageFinishesInFlight(t *testing.T) {
	mb := &fakeMailbox{msgs: []*models.RawMessage{
		msg("m1", "Pembelian kopi"),
		msg("m2", "Pembelian teh"),
	}}
	lg := &memLedger{}
	notifier := &recordingNotifier{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	parser := &cancellingParser{cancel: cancel}
	o := New([]Account{{ID: "acc", Mailbox: mb}}, lg, subjectExtractor{}, parser, notifier, logging.NewMockLogger(), Options{})

	summaries, err := o.RunCycle(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, summaries, 1)

	// The in-flight message runs to completion on its detached context:
	// persisted and labeled despite the cancellation.
	assert.Equal(t, 1, summaries[0].Processed)
	require.Len(t, lg.rows, 1)
	assert.Equal(t, "m1", lg.rows[0].EmailID)
	assert.Equal(t, 1, mb.processed["m1"])
	// The message behind it is left untouched for the next cycle.
	assert.Zero(t, mb.processed["m2"])
	require.Len(t, notifier.persisted, 1)
	assert.Len(t, notifier.persisted[0], 1)
}

func TestRunSummaryFields(t *testing.T) {
	mb := &fakeMailbox{msgs: []*models.RawMessage{msg("m1", "Pembelian kopi")}}
	notifier := &recordingNotifier{}
	o := newOrchestrator([]Account{{ID: "acc", Mailbox: mb}}, &memLedger{}, notifier)

	_, err := o.RunCycle(context.Background())
	require.NoError(t, err)

	require.Len(t, notifier.summaries, 1)
	s := notifier.summaries[0]
	assert.NotEmpty(t, s.RunID)
	assert.Equal(t, "acc", s.AccountID)
	assert.Equal(t, 1, s.Total())
}

func TestRunCycleUniqueRunIDs(t *testing.T) {
	mb := &fakeMailbox{msgs: []*models.RawMessage{msg("m1", "Pembelian kopi")}}
	notifier := &recordingNotifier{}
	o := newOrchestrator([]Account{{ID: "acc", Mailbox: mb}}, &memLedger{}, notifier)

	for i := 0; i < 2; i++ {
		_, err := o.RunCycle(context.Background())
		require.NoError(t, err)
	}
	require.Len(t, notifier.summaries, 2)
	assert.NotEqual(t, notifier.summaries[0].RunID, notifier.summaries[1].RunID)
}

func TestRunCycleEmptyInbox(t *testing.T) {
	mb := &fakeMailbox{}
	notifier := &recordingNotifier{}
	o := newOrchestrator([]Account{{ID: "acc", Mailbox: mb}}, &memLedger{}, notifier)

	summaries, err := o.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Zero(t, summaries[0].Total())
	// No candidates means no notification call either.
	assert.Empty(t, notifier.summaries, "notifier should not fire")
}
