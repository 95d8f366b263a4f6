package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Wimboro/gmail-wa/internal/logging"
	"github.com/Wimboro/gmail-wa/internal/models"
	"github.com/Wimboro/gmail-wa/internal/pipeerror"
)

// Mode is the notification decision for one cycle.
type Mode int

const (
	ModeNone       Mode = iota // nothing new, stay silent
	ModeIndividual             // one message per transaction, all targets
	ModeBatch                  // one aggregate message, shared channel
)

// DecideMode picks the mode from the count of newly persisted transactions
// and the configured threshold. Exactly threshold transactions still go out
// individually; threshold+1 collapses to one aggregate.
func DecideMode(processed, threshold int) Mode {
	switch {
	case processed == 0:
		return ModeNone
	case processed <= threshold:
		return ModeIndividual
	default:
		return ModeBatch
	}
}

// Batcher applies the mode decision and delivers through a Sender. One
// target's failure is logged and never blocks the remaining targets.
type Batcher struct {
	sender      Sender
	targets     Targets
	threshold   int
	sendTimeout time.Duration
	logger      logging.Logger
}

// NewBatcher creates a Batcher. A zero sendTimeout defaults to 30 seconds.
func NewBatcher(sender Sender, targets Targets, threshold int, sendTimeout time.Duration, logger logging.Logger) *Batcher {
	if sendTimeout <= 0 {
		sendTimeout = 30 * time.Second
	}
	return &Batcher{
		sender:      sender,
		targets:     targets,
		threshold:   threshold,
		sendTimeout: sendTimeout,
		logger:      logger,
	}
}

// Notify delivers the cycle's outcome for the given newly persisted
// transactions. It never returns an error: notification failures are logged
// per target and do not count toward the cycle's error total.
func (b *Batcher) Notify(ctx context.Context, summary models.RunSummary, persisted []models.ParsedTransaction) {
	switch DecideMode(len(persisted), b.threshold) {
	case ModeNone:
		return
	case ModeIndividual:
		for _, tx := range persisted {
			text := FormatTransaction(tx)
			for _, target := range b.targets.All() {
				b.send(ctx, target, text)
			}
		}
	case ModeBatch:
		target := b.targets.BatchTarget()
		if target == "" {
			b.logger.Warn("No target configured for batch notification")
			return
		}
		b.send(ctx, target, FormatBatch(summary, len(persisted)))
	}
}

func (b *Batcher) send(ctx context.Context, target, text string) {
	sendCtx, cancel := context.WithTimeout(ctx, b.sendTimeout)
	defer cancel()

	if err := b.sender.Send(sendCtx, target, text); err != nil {
		nerr := &pipeerror.NotificationError{Target: target, Err: err}
		b.logger.WithError(nerr).WithField("target", target).Error("Notification delivery failed")
	}
}

// FormatTransaction renders one transaction as a chat message.
func FormatTransaction(tx models.ParsedTransaction) string {
	var b strings.Builder

	if tx.Type == models.TypeIncome {
		b.WriteString("💰 Pemasukan tercatat\n")
	} else {
		b.WriteString("💸 Pengeluaran tercatat\n")
	}
	fmt.Fprintf(&b, "Tanggal: %s\n", tx.Date)
	fmt.Fprintf(&b, "Jumlah: %s\n", FormatRupiah(tx.Amount))
	fmt.Fprintf(&b, "Kategori: %s\n", tx.Category)
	fmt.Fprintf(&b, "Deskripsi: %s", tx.Description)
	if bank := tx.BankName(); bank != "" {
		fmt.Fprintf(&b, "\nRekening: %s", bank)
	}
	return b.String()
}

// FormatBatch renders the aggregate message. It states the count, never the
// individual transactions.
func FormatBatch(summary models.RunSummary, count int) string {
	return fmt.Sprintf(
		"📊 %d transaksi baru tercatat.\nAkun: %s\nDuplikat dilewati: %d, gagal: %d.",
		count, summary.AccountID, summary.Duplicates, summary.Errors,
	)
}

// FormatRupiah renders an amount as "Rp 5.000.000" (or "-Rp 25.000"),
// using dots as thousand separators the Indonesian way. Fractional parts
// are kept with a comma separator when present.
func FormatRupiah(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}

	s := amount.String()
	intPart, fracPart := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}

	var groups []string
	for len(intPart) > 3 {
		groups = append([]string{intPart[len(intPart)-3:]}, groups...)
		intPart = intPart[:len(intPart)-3]
	}
	groups = append([]string{intPart}, groups...)

	out := sign + "Rp " + strings.Join(groups, ".")
	if fracPart != "" {
		out += "," + fracPart
	}
	return out
}
