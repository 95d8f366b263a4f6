// Package mailbox wraps the mail provider behind the three operations the
// reconciliation core needs: list candidates, fetch a body, mark processed.
package mailbox

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/Wimboro/gmail-wa/internal/models"
)

// Mailbox is the mail collaborator interface. The query string is opaque
// configuration (subject keywords, unread flag, recency window), not
// protocol.
type Mailbox interface {
	ListCandidates(ctx context.Context, query string) ([]models.MessageRef, error)
	GetMessage(ctx context.Context, id string) (*models.RawMessage, error)

	// MarkProcessed labels a message so it is never returned by a later
	// poll, regardless of how its processing went.
	MarkProcessed(ctx context.Context, id string) error
}

// FetchBodies fetches message bodies concurrently up to width in-flight
// calls, purely to hide network latency. Results and per-message errors are
// returned in the order of refs; a failed fetch occupies its slot with a
// nil message and a non-nil error so downstream ordering and per-message
// isolation are unaffected.
func FetchBodies(ctx context.Context, mb Mailbox, refs []models.MessageRef, width int) ([]*models.RawMessage, []error) {
	if width < 1 {
		width = 1
	}

	msgs := make([]*models.RawMessage, len(refs))
	errs := make([]error, len(refs))

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(width)
	for i, ref := range refs {
		grp.Go(func() error {
			msg, err := mb.GetMessage(gctx, ref.ID)
			msgs[i], errs[i] = msg, err
			// Fetch errors are per-message, never batch-fatal.
			return nil
		})
	}
	_ = grp.Wait()

	return msgs, errs
}
