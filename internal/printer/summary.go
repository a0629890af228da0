package printer

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dyluth/deckhand/pkg/deck"
)

// Summary writes a run result as a table: one row per entity, successes first.
func Summary(w io.Writer, r *deck.RunResult) {
	fmt.Fprintf(w, "Run %s (phase %s)\n\n", r.RunID, r.Phase)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTITY\tSTATUS\tKIND\tDETAIL")
	for _, name := range r.Successful {
		fmt.Fprintf(tw, "%s\t%s\t-\t-\n", name, green.Sprint("ok"))
	}
	for _, f := range r.Failed {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Entity, red.Sprint("failed"), f.Kind, faint.Sprint(f.ErrorMessage))
	}
	tw.Flush()

	fmt.Fprintf(w, "\n%d succeeded, %d failed, %d total\n", len(r.Successful), len(r.Failed), r.Total())
}

// SummaryJSON writes a run result as indented JSON.
func SummaryJSON(w io.Writer, r *deck.RunResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode run result: %w", err)
	}
	return nil
}
