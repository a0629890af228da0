// Package resolver expands short run ID prefixes typed on the command line.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dyluth/deckhand/pkg/deck"
)

// MinShortIDLength is the shortest prefix accepted.
const MinShortIDLength = 6

// maxListed caps how many candidates an ambiguity message shows.
const maxListed = 10

// RunIndex is the slice of the history store the resolver needs.
type RunIndex interface {
	GetRun(ctx context.Context, runID string) (*deck.RunRecord, error)
	ScanRuns(ctx context.Context, prefix string) ([]string, error)
}

// ResolveRunID returns the full ID of the single run matching id.
// A complete UUID is checked for existence; anything shorter is treated as a prefix.
func ResolveRunID(ctx context.Context, idx RunIndex, id string) (string, error) {
	id = strings.ToLower(strings.TrimSpace(id))

	if _, err := uuid.Parse(id); err == nil && len(id) == 36 {
		if _, err := idx.GetRun(ctx, id); err != nil {
			if deck.IsNotFound(err) {
				return "", &NotFoundError{ShortID: id}
			}
			return "", fmt.Errorf("failed to verify run: %w", err)
		}
		return id, nil
	}

	if len(id) < MinShortIDLength {
		return "", fmt.Errorf("short ID must be at least %d characters (got %d)", MinShortIDLength, len(id))
	}

	matches, err := idx.ScanRuns(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to search runs: %w", err)
	}
	switch len(matches) {
	case 0:
		return "", &NotFoundError{ShortID: id}
	case 1:
		return matches[0], nil
	}
	return "", &AmbiguousError{ShortID: id, Matches: matches}
}

// NotFoundError means no run matched.
type NotFoundError struct {
	ShortID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no runs found matching '%s'", e.ShortID)
}

// AmbiguousError means more than one run matched.
type AmbiguousError struct {
	ShortID string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous short ID '%s' matches %d runs", e.ShortID, len(e.Matches))
}

// Candidates lists the first matches, one per line, for display under an error title.
func (e *AmbiguousError) Candidates() string {
	var b strings.Builder
	for i, m := range e.Matches {
		if i == maxListed {
			fmt.Fprintf(&b, "  ...and %d more\n", len(e.Matches)-maxListed)
			break
		}
		fmt.Fprintf(&b, "  %s\n", m)
	}
	return b.String()
}
