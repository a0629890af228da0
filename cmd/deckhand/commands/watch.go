package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dyluth/deckhand/internal/printer"
	"github.com/dyluth/deckhand/internal/watch"
)

var (
	watchOutput    string
	watchRunID     string
	watchEntity    string
	watchExitAfter int
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream entity progress from running batches",
	Long: `Stream entity_started, entity_succeeded and entity_failed events as runs
publish them. Requires history.redis_url.

Output formats:
  default - one line per event
  json    - line-delimited JSON

Examples:
  deckhand watch
  deckhand watch --entity Acme
  deckhand watch --output json > events.jsonl`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", "default", "Output format: default or json")
	watchCmd.Flags().StringVar(&watchRunID, "run", "", "Only events of runs whose ID starts with this prefix")
	watchCmd.Flags().StringVar(&watchEntity, "entity", "", "Only events for this entity")
	watchCmd.Flags().IntVar(&watchExitAfter, "exit-after", 0, "Exit after this many entities finish (0 streams until interrupted)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	format := watch.OutputFormat(watchOutput)
	if format != watch.OutputFormatDefault && format != watch.OutputFormatJSON {
		return printer.Error("invalid output format", "Unknown format: "+watchOutput, []string{"Valid formats: default, json"})
	}

	cfg, err := loadConfig(overrides{})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := requireHistory(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	sub, err := client.SubscribeEntityEvents(ctx)
	if err != nil {
		return printer.Error("failed to subscribe to entity events", err.Error(), nil)
	}
	defer sub.Close()

	if format == watch.OutputFormatDefault {
		printer.Step("Watching instance '%s' (Ctrl+C to stop)\n", cfg.History.Instance)
	}
	return watch.Stream(ctx, sub, watch.Options{
		Format:    format,
		RunID:     watchRunID,
		Entity:    watchEntity,
		ExitAfter: watchExitAfter,
	}, cmd.OutOrStdout())
}
