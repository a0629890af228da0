package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/deckhand/internal/history"
	"github.com/dyluth/deckhand/internal/printer"
	"github.com/dyluth/deckhand/internal/resolver"
	"github.com/dyluth/deckhand/internal/timespec"
	"github.com/dyluth/deckhand/pkg/deck"
)

var (
	historyOutput string
	historySince  string
	historyUntil  string
	historyPhase  string
	historyFailed bool
	historyLimit  int
)

var historyCmd = &cobra.Command{
	Use:   "history [RUN_ID]",
	Short: "List past runs or show one run",
	Long: `Inspect runs recorded in the Redis history store.

List mode (no RUN_ID):
  One row per run, oldest first.

Show mode (with RUN_ID):
  Every entity of one run with its failure reason. RUN_ID may be a prefix
  of at least 6 characters.

Examples:
  deckhand history --since 7d --failed
  deckhand history --output jsonl | jq '.failed[].entity'
  deckhand history 3f2a9c`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVarP(&historyOutput, "output", "o", "default", "Output format: default or jsonl")
	historyCmd.Flags().StringVar(&historySince, "since", "", "Runs started after (duration, days like 7d, date or RFC3339)")
	historyCmd.Flags().StringVar(&historyUntil, "until", "", "Runs started before (duration, days like 7d, date or RFC3339)")
	historyCmd.Flags().StringVar(&historyPhase, "phase", "", "Only runs of this phase (l1, l2 or all)")
	historyCmd.Flags().BoolVar(&historyFailed, "failed", false, "Only runs with failed entities")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "Show at most this many of the newest runs")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	format, err := history.ParseOutputFormat(historyOutput)
	if err != nil {
		return printer.Error("invalid output format", err.Error(), []string{"Valid formats: default, jsonl"})
	}

	cfg, err := loadConfig(overrides{})
	if err != nil {
		return err
	}
	client, err := requireHistory(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	if len(args) == 1 {
		return showRun(ctx, cmd, client, args[0], format)
	}

	window, err := timespec.ParseRange(historySince, historyUntil, time.Now())
	if err != nil {
		return printer.Error("invalid time range", err.Error(), nil)
	}
	filter := &history.Filter{Window: window, Failed: historyFailed, Limit: historyLimit}
	if historyPhase != "" {
		filter.Phase = deck.Phase(historyPhase)
		if err := filter.Phase.Validate(); err != nil {
			return printer.Error("invalid phase", err.Error(), nil)
		}
	}

	if err := history.List(ctx, client, cfg.History.Instance, format, filter, cmd.OutOrStdout()); err != nil {
		return printer.Error("failed to list runs", err.Error(), nil)
	}
	return nil
}

func showRun(ctx context.Context, cmd *cobra.Command, client *deck.Client, id string, format history.OutputFormat) error {
	err := history.Get(ctx, client, id, format, cmd.OutOrStdout())
	if err == nil {
		return nil
	}

	var (
		notFound  *resolver.NotFoundError
		ambiguous *resolver.AmbiguousError
	)
	switch {
	case errors.As(err, &notFound):
		return printer.Error(
			fmt.Sprintf("run '%s' not found", id),
			"No recorded run has this ID.",
			[]string{"List recorded runs:\n  deckhand history"},
		)
	case errors.As(err, &ambiguous):
		return printer.Error(
			fmt.Sprintf("ambiguous run ID '%s'", id),
			fmt.Sprintf("It matches %d runs:\n%s", len(ambiguous.Matches), ambiguous.Candidates()),
			[]string{"Use a longer prefix"},
		)
	}
	return printer.Error("failed to show run", err.Error(), nil)
}
