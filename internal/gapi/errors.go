package gapi

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"

	"github.com/dyluth/deckhand/internal/ratelimit"
	"github.com/dyluth/deckhand/internal/retry"
	"github.com/dyluth/deckhand/pkg/deck"
)

// mapError turns non-retryable Google API errors into the pipeline's typed errors.
// resource names the file or folder the call touched.
func mapError(err error, op, resource string) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	if retry.IsTransient(apiErr) {
		return err
	}

	switch apiErr.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &deck.PermissionError{Resource: resource, Op: op, Err: err}
	case http.StatusNotFound:
		return &deck.NotFoundError{Kind: "file", Name: resource}
	}
	return err
}

// call rate-limits, retries and maps errors for a single API operation.
// Each attempt takes its own token.
func call[T any](ctx context.Context, b *ratelimit.Bucket, kind ratelimit.Op, p retry.Policy, op, resource string, fn func(context.Context) (T, error)) (T, error) {
	v, err := retry.Do(ctx, p, op, func(ctx context.Context) (T, error) {
		if err := b.Acquire(ctx, kind); err != nil {
			var zero T
			return zero, err
		}
		return fn(ctx)
	})
	if err != nil {
		return v, mapError(err, op, resource)
	}
	return v, nil
}
