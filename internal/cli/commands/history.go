package commands

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/hrc/internal/cli/config"
	"github.com/leapstack-labs/hrc/internal/history"
	"github.com/spf13/cobra"
)

// ErrHistoryDisabled is returned when the history store is turned off.
var ErrHistoryDisabled = errors.New("build history is disabled")

// resolveHistoryPath returns the history database path from config or the default.
func resolveHistoryPath(cfg *config.Config) string {
	if cfg != nil && cfg.HistoryPath != "" {
		return cfg.HistoryPath
	}
	return config.DefaultHistoryPath()
}

// OpenHistory opens the history store named by cfg. It returns
// ErrHistoryDisabled when the path is "-".
func OpenHistory(cfg *config.Config, cmd *cobra.Command) (*history.Store, error) {
	if cfg != nil && cfg.HistoryDisabled() {
		return nil, ErrHistoryDisabled
	}
	return history.Open(resolveHistoryPath(cfg), config.GetLogger(cmd.Context()))
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent builds",
		Long: `Show the builds hrc performed recently, newest first.

Every rebuild triggered by a file change is recorded with its mode, compiler,
sources, outcome and duration.`,
		Example: `  # Last 20 builds
  hrc history

  # Last 5 as YAML
  hrc history -n 5 -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := OpenHistory(config.GetCurrentConfig(), cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			builds, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("failed to read history: %w", err)
			}
			return renderBuilds(cmd.OutOrStdout(), builds, outputFormat())
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of builds to show")

	return cmd
}
