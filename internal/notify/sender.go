// Package notify decides between per-transaction and aggregate notification
// modes and fans messages out to the configured chat targets.
package notify

import "context"

// Sender delivers one text message to one target. Delivery is
// fire-and-forget: the core consumes no delivery receipts.
type Sender interface {
	Send(ctx context.Context, target, text string) error
}

// Targets holds the resolved delivery destinations. Individual targets are
// personal chats; Group, when set, is a shared channel preferred for batch
// summaries.
type Targets struct {
	Individual []string
	Group      string
}

// All returns every configured target, group last.
func (t Targets) All() []string {
	all := append([]string{}, t.Individual...)
	if t.Group != "" {
		all = append(all, t.Group)
	}
	return all
}

// BatchTarget returns the single destination for an aggregate notification:
// the group if one exists, else the first individual target, else "".
func (t Targets) BatchTarget() string {
	if t.Group != "" {
		return t.Group
	}
	if len(t.Individual) > 0 {
		return t.Individual[0]
	}
	return ""
}
