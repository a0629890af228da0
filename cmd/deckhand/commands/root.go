package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/deckhand/internal/config"
)

var (
	version string
	commit  string
	date    string

	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "deckhand",
	Short: "deckhand - Google Drive slide report generator",
	Long: `deckhand turns per-entity raw data in a shared Google Drive folder into
one slide deck per entity.

  L0-Raw     raw CSV, XLSX and image files, one folder per entity
  L1-Merged  one spreadsheet per entity, cloned from the data template
  L2-Slide   one deck per entity, cloned from the report template

The entities to generate are listed in entities.csv at the root of the folder.`,
	Version: version,
	// Show help rather than silently succeeding on a bare invocation
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute runs the root command. Errors have already been printed when it returns.
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version reported by --version.
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to deckhand.yml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
}
