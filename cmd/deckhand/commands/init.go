package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/deckhand/internal/printer"
	"github.com/dyluth/deckhand/internal/scaffold"
)

var (
	forceInit bool
	initDir   string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter deckhand.yml and entities.csv",
	Long: `Write a starter deckhand.yml and a sample entities.csv into the target directory.

Use --force to overwrite existing files.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite existing files")
	initCmd.Flags().StringVar(&initDir, "dir", ".", "Directory to write into")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if err := scaffold.Initialize(initDir, forceInit); err != nil {
		var existing *scaffold.ExistingFilesError
		if errors.As(err, &existing) {
			return printer.Error("workspace already initialized", err.Error(),
				[]string{"Use 'deckhand init --force' to overwrite them"})
		}
		return fmt.Errorf("initialization failed: %w", err)
	}

	printer.Success("Initialized deckhand workspace in %s\n", initDir)
	printer.Info("\nCreated:\n")
	for _, f := range scaffold.Files {
		printer.Info("  %s\n", f.Path)
	}
	printer.Info("\nNext steps:\n")
	for i, step := range scaffold.NextSteps() {
		printer.Info("  %d. %s\n", i+1, step)
	}
	return nil
}
