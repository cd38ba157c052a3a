// Package cli provides the command-line interface for hrc.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/leapstack-labs/hrc/internal/cli/commands"
	"github.com/leapstack-labs/hrc/internal/cli/config"
	"github.com/leapstack-labs/hrc/internal/logging"
	"github.com/spf13/cobra"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// configKey is used to store config in context.
type configKey struct{}

// app holds state shared by the root command's hooks.
type app struct {
	cfgFile string
	sink    *logging.Sink
}

// close releases the log file, if one was opened.
func (a *app) close() error {
	if a.sink == nil {
		return nil
	}
	err := a.sink.Close()
	a.sink = nil
	return err
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hrc",
		Short: "hrc - hot reload for C programs",
		Long: `hrc watches the sources of a C program, rebuilds it with your own compiler
command whenever they change, and restarts or reruns the result.

In stateful mode (-s) the program keeps running and is restarted after every
successful rebuild. In stateless mode (-sl) the program runs to completion
after every successful rebuild. A failed build never replaces a working program.`,
		Example: `  # Restart a server whenever its sources change
  hrc -s -cmd "gcc -Wall -Iinclude server.c net.c -o server -lpthread"

  # Rerun a tool after every change
  hrc --stateless --cmd "clang main.c"`,
		Version: Version,
		Args:    cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.LoadConfig(a.cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			logger, err := a.setupLogging(cmd, cfg)
			if err != nil {
				return err
			}

			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)
			ctx = context.WithValue(ctx, config.LoggerKey(), logger)
			cmd.SetContext(ctx)

			if cfg.Verbose {
				if configFile := config.GetConfigFileUsed(); configFile != "" {
					logger.Debug("using config file", slog.String("path", configFile))
				}
			}
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return a.close()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := GetConfig(cmd.Context())
			if cfg.Mode == "" && cfg.Command == "" {
				return cmd.Help()
			}
			return commands.RunWatch(cmd, cfg)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Run flags
	rootCmd.Flags().BoolP("stateful", "s", false, "Keep the program running and restart it after each rebuild")
	rootCmd.Flags().Bool("stateless", false, "Run the program to completion after each rebuild (legacy: -sl)")
	rootCmd.Flags().StringP("cmd", "c", "", "Compiler command used to build the program (legacy: -cmd)")
	rootCmd.Flags().StringSlice("watch", nil, "Directories to watch (default: directories of the sources)")
	rootCmd.Flags().StringSlice("extensions", nil, "File extensions that trigger a rebuild (default .c,.h)")
	rootCmd.Flags().Duration("debounce", 0, "Quiet period before rebuilding (default 150ms)")
	rootCmd.Flags().String("out", "", "Path of the built program (default $HOME/.hrc/build/<name>)")
	rootCmd.MarkFlagsMutuallyExclusive("stateful", "stateless")

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./hrc.yaml or $HOME/.hrc/hrc.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Minimum log level (trace|debug|info|warn|error|fatal)")
	rootCmd.PersistentFlags().String("log-file", "", `Log file path, "-" to disable (default $HOME/.hrc/hrc.log)`)
	rootCmd.PersistentFlags().String("color", "", "Colour console logs (auto|always|never)")
	rootCmd.PersistentFlags().String("history", "", `Build history database, "-" to disable (default $HOME/.hrc/history.db)`)
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (text|json|yaml)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.OutputText, config.OutputJSON, config.OutputYAML}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("color", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.ColorAuto, config.ColorAlways, config.ColorNever}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"trace", "debug", "info", "warn", "error", "fatal"}, cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version, GitCommit, BuildDate))
	rootCmd.AddCommand(commands.NewParseCommand())
	rootCmd.AddCommand(commands.NewHistoryCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// setupLogging builds the console and file sink described by cfg.
func (a *app) setupLogging(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if cfg.Verbose && level > slog.LevelDebug {
		level = slog.LevelDebug
	}

	console := cmd.ErrOrStderr()
	opts := logging.Options{
		Console: console,
		Level:   level,
		Color:   colorEnabled(cfg.Color, console),
	}

	var fileErr error
	if !cfg.LogFileDisabled() && cfg.LogFile != "" {
		f, err := logging.OpenFile(cfg.LogFile)
		if err != nil {
			fileErr = err
		} else {
			opts.File = f
		}
	}

	_ = a.close()
	logger, sink := logging.New(opts)
	a.sink = sink

	if fileErr != nil {
		logger.Warn("cannot open log file, logging to console only", slog.String("path", cfg.LogFile), slog.Any("error", fileErr))
	}
	return logger, nil
}

func colorEnabled(mode string, w io.Writer) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return logging.ColorEnabled(w)
}

// NormalizeArgs rewrites the legacy single-dash spellings -sl and -cmd to
// --stateless and --cmd. Arguments after "--" are left alone.
func NormalizeArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for i, arg := range args {
		if arg == "--" {
			return append(out, args[i:]...)
		}
		switch {
		case arg == "-sl":
			arg = "--stateless"
		case arg == "-cmd" || strings.HasPrefix(arg, "-cmd="):
			arg = "-" + arg
		}
		out = append(out, arg)
	}
	return out
}

// Execute runs the root command.
func Execute() error {
	a := &app{}
	rootCmd := newRootCmd(a)
	rootCmd.SetArgs(NormalizeArgs(os.Args[1:]))
	err := rootCmd.Execute()
	_ = a.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// GetConfig retrieves the config from the command context.
func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	// Return default config if none in context
	return &config.Config{
		LogLevel:   config.DefaultLogLevel,
		Color:      config.DefaultColor,
		Extensions: config.DefaultExtensions,
		Debounce:   config.DefaultDebounce,
		Output:     config.DefaultOutput,
	}
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for hrc.

To load completions:

Bash:
  $ source <(hrc completion bash)

Zsh:
  $ hrc completion zsh > "${fpath[1]}/_hrc"

Fish:
  $ hrc completion fish | source

PowerShell:
  PS> hrc completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
