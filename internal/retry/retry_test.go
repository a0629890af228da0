package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/dyluth/deckhand/pkg/deck"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
		Jitter:       0.2,
	}
}

func TestDo(t *testing.T) {
	ctx := context.Background()

	t.Run("returns first success", func(t *testing.T) {
		calls := 0
		v, err := Do(ctx, fastPolicy(5), "op", func(context.Context) (string, error) {
			calls++
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", v)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries transient errors until success", func(t *testing.T) {
		calls := 0
		v, err := Do(ctx, fastPolicy(5), "op", func(context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, &googleapi.Error{Code: 429}
			}
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, v)
		assert.Equal(t, 3, calls)
	})

	t.Run("exhausted budget is a TransientAPIError", func(t *testing.T) {
		calls := 0
		err := Run(ctx, fastPolicy(4), "slides.batchUpdate", func(context.Context) error {
			calls++
			return &googleapi.Error{Code: 503}
		})
		require.Error(t, err)
		assert.Equal(t, 4, calls)

		var transient *deck.TransientAPIError
		require.True(t, errors.As(err, &transient))
		assert.Equal(t, "slides.batchUpdate", transient.Op)
		assert.Equal(t, 4, transient.Attempts)
		assert.Equal(t, deck.FailureTransient, deck.Classify(err))
	})

	t.Run("permanent errors are not retried", func(t *testing.T) {
		calls := 0
		notFound := &googleapi.Error{Code: 404}
		err := Run(ctx, fastPolicy(5), "op", func(context.Context) error {
			calls++
			return notFound
		})
		assert.Equal(t, 1, calls)
		assert.ErrorIs(t, err, notFound)

		var transient *deck.TransientAPIError
		assert.False(t, errors.As(err, &transient))
	})

	t.Run("stops on context cancellation", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		calls := 0
		p := fastPolicy(100)
		p.InitialDelay = 50 * time.Millisecond
		err := Run(cctx, p, "op", func(context.Context) error {
			calls++
			cancel()
			return &googleapi.Error{Code: 500}
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})

	t.Run("custom retryable predicate", func(t *testing.T) {
		sentinel := errors.New("flaky")
		p := fastPolicy(3)
		p.Retryable = func(err error) bool { return errors.Is(err, sentinel) }

		calls := 0
		err := Run(ctx, p, "op", func(context.Context) error {
			calls++
			return fmt.Errorf("wrapped: %w", sentinel)
		})
		assert.Equal(t, 3, calls)
		assert.ErrorIs(t, err, sentinel)
	})
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"429", &googleapi.Error{Code: 429}, true},
		{"500", &googleapi.Error{Code: 500}, true},
		{"503 wrapped", fmt.Errorf("call: %w", &googleapi.Error{Code: 503}), true},
		{"403 rate limit", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "userRateLimitExceeded"}}}, true},
		{"403 forbidden", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "forbidden"}}}, false},
		{"404", &googleapi.Error{Code: 404}, false},
		{"plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 5, p.MaxAttempts)
	assert.Equal(t, 5*time.Second, p.InitialDelay)
	assert.Equal(t, 60*time.Second, p.MaxDelay)
	assert.Contains(t, p.Describe(), "jitter=20%")
}
