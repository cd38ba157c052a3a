package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/hrc/internal/cmdline"
	"github.com/spf13/cobra"
)

const replPrompt = "hrc> "

func runParseREPL(cmd *cobra.Command, interp *cmdline.Interpreter) error {
	cfg := &readline.Config{
		Prompt:          replPrompt,
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdin:           io.NopCloser(cmd.InOrStdin()),
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.HistoryFile = filepath.Join(home, ".hrc", "parse_history")
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "hrc command interpreter")
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type a compiler command, .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	format := outputFormat()
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if quit := evalREPLLine(cmd.OutOrStdout(), cmd.ErrOrStderr(), interp, line, format); quit {
			break
		}
	}
	return nil
}

// evalREPLLine handles one line of input and reports whether the REPL should
// exit.
func evalREPLLine(out, errOut io.Writer, interp *cmdline.Interpreter, line, format string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	if strings.HasPrefix(line, ".") {
		switch strings.ToLower(strings.Fields(line)[0]) {
		case ".quit", ".exit":
			return true
		case ".help":
			printREPLHelp(out)
		case ".tokens":
			tokens, err := cmdline.Tokenize(strings.TrimSpace(line[len(".tokens"):]))
			if err != nil {
				_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
				return false
			}
			for i, tok := range tokens {
				_, _ = fmt.Fprintf(out, "%d\t%s\n", i, tok)
			}
		default:
			_, _ = fmt.Fprintf(errOut, "Unknown command: %s (type .help for commands)\n", line)
		}
		return false
	}

	spec, err := interp.Parse(line)
	if err != nil {
		_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		return false
	}
	if err := renderSpec(out, spec, format); err != nil {
		_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
	}
	_, _ = fmt.Fprintln(out)
	return false
}

func printREPLHelp(w io.Writer) {
	_, _ = fmt.Fprintln(w, `Commands:
  <command>          Interpret a compiler command, e.g. gcc -Wall main.c -lm
  .tokens <command>  Show the tokens of a command line
  .help              Show this help
  .quit, .exit       Leave the prompt`)
}
