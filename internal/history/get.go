package history

import (
	"context"
	"fmt"
	"io"

	"github.com/dyluth/deckhand/internal/resolver"
	"github.com/dyluth/deckhand/pkg/deck"
)

// Get resolves id, which may be a short prefix, and writes that run.
// Resolution failures are returned as *resolver.NotFoundError or *resolver.AmbiguousError.
func Get(ctx context.Context, store Store, id string, format OutputFormat, w io.Writer) error {
	fullID, err := resolver.ResolveRunID(ctx, store, id)
	if err != nil {
		return err
	}

	run, err := store.GetRun(ctx, fullID)
	if err != nil {
		if deck.IsNotFound(err) {
			return &resolver.NotFoundError{ShortID: id}
		}
		return fmt.Errorf("failed to fetch run: %w", err)
	}

	switch format {
	case OutputFormatDefault:
		FormatDetail(w, run)
		return nil
	case OutputFormatJSONL:
		return FormatSingleJSON(w, run)
	}
	return fmt.Errorf("unknown output format: %s", format)
}
