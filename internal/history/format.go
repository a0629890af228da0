package history

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dyluth/deckhand/pkg/deck"
)

// FormatTable writes runs as a table with columns ID, PHASE, AGE, DURATION, OK, FAILED and FAILURES.
// Returns the number of runs written.
func FormatTable(w io.Writer, runs []*deck.RunRecord, instanceName string, now time.Time) int {
	if len(runs) == 0 {
		fmt.Fprintf(w, "No runs found for instance '%s'\n", instanceName)
		return 0
	}

	fmt.Fprintf(w, "Runs for instance '%s':\n\n", instanceName)
	row := "%-10s %-5s %-8s %-9s %-4s %-6s %s\n"
	fmt.Fprintf(w, row, "ID", "PHASE", "AGE", "DURATION", "OK", "FAILED", "FAILURES")
	fmt.Fprintf(w, row, "----------", "-----", "--------", "---------", "----", "------", "----------------------------------------")

	for _, r := range runs {
		fmt.Fprintf(w, row,
			formatID(r.ID),
			r.Phase,
			formatAge(r.StartedAtMs, now),
			formatDuration(r.StartedAtMs, r.FinishedAtMs),
			fmt.Sprint(len(r.Successful)),
			fmt.Sprint(len(r.Failed)),
			formatFailures(r.Failed),
		)
	}

	noun := "run"
	if len(runs) != 1 {
		noun = "runs"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(runs), noun)
	return len(runs)
}

// FormatJSONL writes one compact JSON object per run.
func FormatJSONL(w io.Writer, runs []*deck.RunRecord) error {
	enc := json.NewEncoder(w)
	for _, r := range runs {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to write run %s as JSON: %w", r.ID, err)
		}
	}
	return nil
}

// FormatDetail writes a single run for humans: header fields, then every entity.
func FormatDetail(w io.Writer, r *deck.RunRecord) {
	fmt.Fprintf(w, "Run:      %s\n", r.ID)
	fmt.Fprintf(w, "Phase:    %s\n", r.Phase)
	fmt.Fprintf(w, "Root:     %s\n", r.RootID)
	fmt.Fprintf(w, "Started:  %s\n", time.UnixMilli(r.StartedAtMs).UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "Duration: %s\n", formatDuration(r.StartedAtMs, r.FinishedAtMs))

	fmt.Fprintf(w, "\nSucceeded (%d):\n", len(r.Successful))
	for _, name := range r.Successful {
		fmt.Fprintf(w, "  %s\n", name)
	}
	fmt.Fprintf(w, "\nFailed (%d):\n", len(r.Failed))
	for _, f := range r.Failed {
		fmt.Fprintf(w, "  %s [%s] %s\n", f.Entity, f.Kind, f.ErrorMessage)
	}
}

// FormatSingleJSON writes one run as indented JSON.
func FormatSingleJSON(w io.Writer, r *deck.RunRecord) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run to JSON: %w", err)
	}
	if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	return nil
}

func formatID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatFailures lists failed entities by name, cut to 40 characters.
func formatFailures(failed []deck.Failure) string {
	if len(failed) == 0 {
		return "-"
	}
	names := make([]string, len(failed))
	for i, f := range failed {
		names[i] = f.Entity
	}
	s := strings.Join(names, ", ")
	if len(s) > 40 {
		return s[:37] + "..."
	}
	return s
}

func formatAge(startedMs int64, now time.Time) string {
	if startedMs == 0 {
		return "-"
	}
	diff := now.Sub(time.UnixMilli(startedMs))
	switch {
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	}
	return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
}

func formatDuration(startedMs, finishedMs int64) string {
	if finishedMs == 0 || finishedMs < startedMs {
		return "running"
	}
	return (time.Duration(finishedMs-startedMs) * time.Millisecond).Round(100 * time.Millisecond).String()
}
