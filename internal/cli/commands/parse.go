package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/hrc/internal/buildspec"
	"github.com/leapstack-labs/hrc/internal/cli/config"
	"github.com/leapstack-labs/hrc/internal/cmdline"
	"github.com/spf13/cobra"
)

// ParseOptions holds options for the parse command.
type ParseOptions struct {
	Command     string
	Interactive bool
}

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	opts := &ParseOptions{}

	cmd := &cobra.Command{
		Use:   "parse [command...]",
		Short: "Show how a compiler command is interpreted",
		Long: `Interpret a compiler command line without building anything.

Prints the detected compiler, source files, compile flags and link flags.
Any -o option in the command is ignored, since hrc owns the output path.

With -i, starts an interactive prompt that interprets each line you type.`,
		Example: `  # Inspect a command
  hrc parse --cmd "gcc -Wall -Iinclude main.c util.c -o app -lm"

  # Same, with the command as arguments
  hrc parse -- clang -O2 main.c -L /usr/lib -lfoo

  # As JSON
  hrc parse -o json --cmd "cc main.c"

  # Interactive mode
  hrc parse -i`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Command, "cmd", "c", "", "Compiler command to interpret")
	cmd.Flags().BoolVarP(&opts.Interactive, "interactive", "i", false, "Interpret commands interactively")

	return cmd
}

func runParse(cmd *cobra.Command, args []string, opts *ParseOptions) error {
	logger := config.GetLogger(cmd.Context())
	interp := cmdline.New(logger)

	if opts.Interactive {
		return runParseREPL(cmd, interp)
	}

	var (
		spec *buildspec.BuildSpec
		err  error
	)
	switch {
	case strings.TrimSpace(opts.Command) != "":
		spec, err = interp.Parse(opts.Command)
	case len(args) > 0:
		// The shell already split the arguments.
		spec, err = interp.Classify(args)
	default:
		return fmt.Errorf("no command given\nHint: hrc parse --cmd \"gcc main.c -o main\"")
	}
	if err != nil {
		return err
	}
	return renderSpec(cmd.OutOrStdout(), spec, outputFormat())
}
