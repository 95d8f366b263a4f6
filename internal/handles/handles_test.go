package handles

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wimboro/gmail-wa/internal/notify"
	"github.com/Wimboro/gmail-wa/internal/parse"
)

type stubLLM struct{ closed bool }

func (s *stubLLM) Complete(context.Context, string) (string, error) { return "{}", nil }
func (s *stubLLM) Close() error                                     { s.closed = true; return nil }

type stubSender struct{}

func (stubSender) Send(context.Context, string, string) error { return nil }

func TestLLMInitializedOnce(t *testing.T) {
	var calls atomic.Int32
	block := make(chan struct{})

	h := New(
		func(context.Context) (parse.LLMClient, error) {
			calls.Add(1)
			<-block
			return &stubLLM{}, nil
		},
		func(context.Context) (notify.Sender, error) { return stubSender{}, nil },
	)

	const workers = 8
	var wg sync.WaitGroup
	results := make([]parse.LLMClient, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			llm, err := h.LLM(context.Background())
			require.NoError(t, err)
			results[i] = llm
		}(i)
	}
	close(block)
	wg.Wait()

	// All callers, including those that arrived while the first attempt
	// was in flight, share a single client.
	assert.Equal(t, int32(1), calls.Load())
	for i := 1; i < workers; i++ {
		assert.Same(t, results[0], results[i])
	}
}

func TestFailedInitIsRetried(t *testing.T) {
	var calls atomic.Int32
	h := New(
		func(context.Context) (parse.LLMClient, error) {
			if calls.Add(1) == 1 {
				return nil, errors.New("transient")
			}
			return &stubLLM{}, nil
		},
		func(context.Context) (notify.Sender, error) { return stubSender{}, nil },
	)

	_, err := h.LLM(context.Background())
	require.Error(t, err)

	llm, err := h.LLM(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, llm)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCloseReleasesCreatedHandles(t *testing.T) {
	stub := &stubLLM{}
	h := New(
		func(context.Context) (parse.LLMClient, error) { return stub, nil },
		func(context.Context) (notify.Sender, error) { return stubSender{}, nil },
	)

	_, err := h.LLM(context.Background())
	require.NoError(t, err)

	h.Close()
	assert.True(t, stub.closed)

	// Close with nothing initialized is a no-op.
	New(nil, nil).Close()
}
