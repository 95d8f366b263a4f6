// Package handles owns the process-wide client handles (LLM client,
// notification session) that are created lazily on first use and shared
// across cycles.
package handles

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/Wimboro/gmail-wa/internal/notify"
	"github.com/Wimboro/gmail-wa/internal/parse"
)

// Handles lazily initializes and caches the shared clients. Initialization
// is idempotent under concurrent callers: a second caller arriving while an
// initialization is in flight awaits that same attempt instead of starting
// another one. A failed attempt is not cached; the next caller retries.
type Handles struct {
	newLLM    func(ctx context.Context) (parse.LLMClient, error)
	newSender func(ctx context.Context) (notify.Sender, error)

	group  singleflight.Group
	mu     sync.RWMutex
	llm    parse.LLMClient
	sender notify.Sender
}

// New creates a Handles with the given constructors.
func New(newLLM func(ctx context.Context) (parse.LLMClient, error), newSender func(ctx context.Context) (notify.Sender, error)) *Handles {
	return &Handles{newLLM: newLLM, newSender: newSender}
}

// LLM returns the shared LLM client, creating it on first use.
func (h *Handles) LLM(ctx context.Context) (parse.LLMClient, error) {
	h.mu.RLock()
	llm := h.llm
	h.mu.RUnlock()
	if llm != nil {
		return llm, nil
	}

	v, err, _ := h.group.Do("llm", func() (interface{}, error) {
		created, err := h.newLLM(ctx)
		if err != nil {
			return nil, err
		}
		h.mu.Lock()
		h.llm = created
		h.mu.Unlock()
		return created, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(parse.LLMClient), nil
}

// Sender returns the shared notification session, creating it on first use.
func (h *Handles) Sender(ctx context.Context) (notify.Sender, error) {
	h.mu.RLock()
	sender := h.sender
	h.mu.RUnlock()
	if sender != nil {
		return sender, nil
	}

	v, err, _ := h.group.Do("sender", func() (interface{}, error) {
		created, err := h.newSender(ctx)
		if err != nil {
			return nil, err
		}
		h.mu.Lock()
		h.sender = created
		h.mu.Unlock()
		return created, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(notify.Sender), nil
}

// Close releases whichever handles were actually created. Safe to call when
// nothing was initialized.
func (h *Handles) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if closer, ok := h.llm.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	if closer, ok := h.sender.(interface{ Close() }); ok {
		closer.Close()
	}
	h.llm = nil
	h.sender = nil
}
