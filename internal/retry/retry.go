// Package retry wraps Google API calls in bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"

	"github.com/dyluth/deckhand/pkg/deck"
)

// Policy bounds how an operation is retried.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	// Jitter is the randomization factor applied to every delay (0.2 = ±20%).
	Jitter float64

	// Retryable decides whether an error is worth another attempt.
	// Defaults to IsTransient.
	Retryable func(error) bool

	Logger *zap.Logger
}

// DefaultPolicy returns 5 attempts starting at 5s, doubling up to 60s, with ±20% jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  5,
		InitialDelay: 5 * time.Second,
		MaxDelay:     60 * time.Second,
		Multiplier:   2,
		Jitter:       0.2,
	}
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialDelay
	b.MaxInterval = p.MaxDelay
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = p.Jitter
	// Attempts bound the loop, not wall time.
	b.MaxElapsedTime = 0
	b.Reset()

	retries := 0
	if p.MaxAttempts > 1 {
		retries = p.MaxAttempts - 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// Do runs fn until it succeeds, fails permanently, or the attempt budget runs out.
// A spent budget is reported as *deck.TransientAPIError wrapping the last error.
// Non-retryable errors are returned unchanged after the first attempt.
func Do[T any](ctx context.Context, p Policy, op string, fn func(context.Context) (T, error)) (T, error) {
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTransient
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	attempts := 0
	exhausted := false
	result, err := backoff.RetryNotifyWithData(func() (T, error) {
		attempts++
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if !retryable(err) {
			return v, backoff.Permanent(err)
		}
		exhausted = true
		return v, err
	}, p.backOff(ctx), func(err error, next time.Duration) {
		logger.Warn("retry_scheduled",
			zap.String("op", op),
			zap.Int("attempt", attempts),
			zap.Duration("delay", next),
			zap.Error(err),
		)
	})

	if err == nil {
		return result, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return result, err
	}
	if exhausted && retryable(err) {
		return result, &deck.TransientAPIError{Op: op, Attempts: attempts, Err: err}
	}
	return result, err
}

// Run is Do for operations without a result.
func Run(ctx context.Context, p Policy, op string, fn func(context.Context) error) error {
	_, err := Do(ctx, p, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// IsTransient reports whether err is a rate-limit, server-side or network failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return true
		case apiErr.Code >= 500:
			return true
		case apiErr.Code == http.StatusForbidden:
			return hasRateLimitReason(apiErr)
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	return false
}

func hasRateLimitReason(e *googleapi.Error) bool {
	for _, item := range e.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded":
			return true
		}
	}
	return false
}

// Describe renders a policy for logs.
func (p Policy) Describe() string {
	return fmt.Sprintf("attempts=%d initial=%s max=%s x%.1f jitter=%.0f%%",
		p.MaxAttempts, p.InitialDelay, p.MaxDelay, p.Multiplier, p.Jitter*100)
}
