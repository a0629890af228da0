// Package history lists and shows runs recorded in the Redis history store.
package history

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dyluth/deckhand/internal/resolver"
	"github.com/dyluth/deckhand/internal/timespec"
	"github.com/dyluth/deckhand/pkg/deck"
)

// OutputFormat selects how runs are written.
type OutputFormat string

const (
	// OutputFormatDefault is a table for lists and a text block for a single run.
	OutputFormatDefault OutputFormat = "default"
	// OutputFormatJSONL is one JSON object per line for lists, indented JSON for a single run.
	OutputFormatJSONL OutputFormat = "jsonl"
)

// ParseOutputFormat validates the --output flag.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputFormatDefault, OutputFormatJSONL:
		return OutputFormat(s), nil
	case "json":
		return OutputFormatJSONL, nil
	}
	return "", fmt.Errorf("unknown output format: %s (must be default or jsonl)", s)
}

// Store is the part of deck.Client used here.
type Store interface {
	resolver.RunIndex
	ListRuns(ctx context.Context, limit int) ([]*deck.RunRecord, error)
}

// Filter narrows a listing. All criteria are ANDed.
type Filter struct {
	Window timespec.Range
	Phase  deck.Phase // empty matches every phase
	Failed bool       // only runs with at least one failed entity
	Limit  int        // 0 means no limit
}

func (f *Filter) matches(r *deck.RunRecord) bool {
	if !f.Window.Contains(r.StartedAtMs) {
		return false
	}
	if f.Phase != "" && r.Phase != f.Phase {
		return false
	}
	if f.Failed && len(r.Failed) == 0 {
		return false
	}
	return true
}

// List writes every stored run matching filter, oldest first.
func List(ctx context.Context, store Store, instanceName string, format OutputFormat, filter *Filter, w io.Writer) error {
	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if filter == nil {
		filter = &Filter{}
	}
	kept := runs[:0]
	for _, r := range runs {
		if filter.matches(r) {
			kept = append(kept, r)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].StartedAtMs < kept[j].StartedAtMs
	})
	if filter.Limit > 0 && len(kept) > filter.Limit {
		kept = kept[len(kept)-filter.Limit:]
	}

	switch format {
	case OutputFormatDefault:
		FormatTable(w, kept, instanceName, time.Now())
	case OutputFormatJSONL:
		if err := FormatJSONL(w, kept); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
	return nil
}
