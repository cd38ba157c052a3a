package commands

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/hrc/internal/cli/config"
	"github.com/leapstack-labs/hrc/internal/cmdline"
	"github.com/leapstack-labs/hrc/internal/supervisor"
	"github.com/spf13/cobra"
)

// RunWatch supervises the configured compiler command until the command
// context is cancelled or the process receives SIGINT or SIGTERM.
func RunWatch(cmd *cobra.Command, cfg *config.Config) error {
	if err := cfg.ValidateRun(); err != nil {
		return err
	}
	logger := config.GetLogger(cmd.Context())
	mode, _ := supervisor.ParseMode(cfg.Mode)

	logger.Info("starting", slog.String("mode", string(mode)), slog.String("cmd", cfg.Command))

	opts := supervisor.Options{
		Command:     cfg.Command,
		Mode:        mode,
		Interpreter: cmdline.New(logger),
		Logger:      logger,
		WatchDirs:   cfg.WatchDirs,
		Extensions:  cfg.Extensions,
		Debounce:    cfg.Debounce,
		OutputPath:  cfg.OutputPath,
		Stdout:      cmd.OutOrStdout(),
		Stderr:      cmd.ErrOrStderr(),
	}

	store, err := OpenHistory(cfg, cmd)
	switch {
	case err == nil:
		defer func() { _ = store.Close() }()
		opts.Recorder = store
	case errors.Is(err, ErrHistoryDisabled):
	default:
		// History is a convenience; supervise without it.
		logger.Warn("build history unavailable", slog.Any("error", err))
	}

	sup, err := supervisor.New(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sup.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("stopped")
	return nil
}
