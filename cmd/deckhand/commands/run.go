package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dyluth/deckhand/internal/batch"
	"github.com/dyluth/deckhand/internal/layout"
	"github.com/dyluth/deckhand/internal/logging"
	"github.com/dyluth/deckhand/internal/merge"
	"github.com/dyluth/deckhand/internal/printer"
	"github.com/dyluth/deckhand/internal/render"
	"github.com/dyluth/deckhand/pkg/deck"
)

// errEntitiesFailed makes the process exit non-zero after the summary is printed.
var errEntitiesFailed = errors.New("one or more entities failed")

type phaseFlags struct {
	overrides
	output string
}

func newPhaseCmd(use, short, long string, phase deck.Phase) *cobra.Command {
	var flags phaseFlags
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPhase(cmd, phase, &flags)
		},
	}
	cmd.Flags().StringVar(&flags.root, "root", "", "Shared folder URL or ID (overrides drive.root)")
	cmd.Flags().StringVar(&flags.credentials, "credentials", "", "Service account JSON (overrides drive.credentials)")
	cmd.Flags().IntVar(&flags.concurrency, "concurrency", 0, "Entities processed in parallel (overrides batch.concurrency)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "default", "Output format: default or json")
	return cmd
}

var mergeCmd = newPhaseCmd("merge", "Build L1 spreadsheets from L0 raw data",
	`Clone the data template for every selected entity and fill its tabs from the
CSV and XLSX files in L0-Raw/<entity>/. Images are copied alongside.

A CSV named after a tab replaces that tab's contents. A file whose tab does not
exist in the template fails the entity.`, deck.PhaseL1)

var renderCmd = newPhaseCmd("render", "Build L2 decks from L1 spreadsheets",
	`Clone the report template for every selected entity and replace its
placeholders with data from L1-Merged/<entity>/.

  {{key}}            text from the data tab
  {{chart-name}}     linked chart from the chart-name tab
  {{table-name}}     table built from the table-name tab
  {{picture-name}}   image file named name in the entity's L1 folder

Missing keys fail the entity and are listed in the summary.`, deck.PhaseL2)

var generateCmd = newPhaseCmd("generate", "Run merge then render",
	`Run merge and render for every selected entity. An entity that fails to
merge is not rendered.`, deck.PhaseAll)

func init() {
	rootCmd.AddCommand(mergeCmd, renderCmd, generateCmd)
}

func runPhase(cmd *cobra.Command, phase deck.Phase, flags *phaseFlags) error {
	if flags.output != "default" && flags.output != "json" {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", flags.output),
			[]string{"Valid formats: default, json"},
		)
	}

	cfg, err := loadConfig(flags.overrides)
	if err != nil {
		return err
	}
	if err := cfg.RequireDrive(); err != nil {
		return printer.Error("Drive is not configured", err.Error(),
			[]string{"Pass --root and --credentials, or set drive.root and drive.credentials in deckhand.yml"})
	}

	logger, err := logging.New(verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	// Interrupts stop new entities from starting; entities in flight finish.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svcs, err := newServices(ctx, cfg, logger)
	if err != nil {
		return printer.Error("failed to connect to Google APIs", err.Error(),
			[]string{"Check that the credentials file is a service account key"})
	}

	l, err := layout.NewResolver(svcs.Drive, logger).Resolve(ctx, cfg.Drive.Root)
	if err != nil {
		return explain("failed to resolve Drive layout", err)
	}

	opts := batch.Options{Concurrency: cfg.Batch.Concurrency, Logger: logger}
	if h := openHistory(ctx, cfg, logger); h != nil {
		defer h.Close()
		opts.History = h
	}

	orch := batch.New(
		svcs.Drive,
		merge.NewEngine(svcs.Drive, svcs.Sheets, logger),
		render.NewLoader(svcs.Drive, svcs.Sheets, logger),
		render.NewEngine(svcs.Drive, svcs.Slides, logger),
		opts,
	)

	if flags.output == "default" {
		printer.Step("Running %s for %s\n", phase, l.RootID)
	}
	result, runErr := orch.Run(ctx, phase, l)
	if result != nil {
		if err := writeSummary(cmd, flags.output, result); err != nil {
			return err
		}
	}
	if runErr != nil {
		return explain("run aborted", runErr)
	}

	logger.Debug("run_complete", zap.String("run_id", result.RunID), zap.Bool("ok", result.OK()))
	if !result.OK() {
		return errEntitiesFailed
	}
	if flags.output == "default" {
		printer.Success("All %d entities completed\n", result.Total())
	}
	return nil
}

func writeSummary(cmd *cobra.Command, output string, result *deck.RunResult) error {
	if output == "json" {
		return printer.SummaryJSON(cmd.OutOrStdout(), result)
	}
	printer.Summary(cmd.OutOrStdout(), result)
	return nil
}
