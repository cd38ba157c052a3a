package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/hrc/internal/buildspec"
	"github.com/leapstack-labs/hrc/internal/cli/config"
	"github.com/leapstack-labs/hrc/internal/history"
	"gopkg.in/yaml.v3"
)

// outputFormat returns the configured output format, defaulting to text.
func outputFormat() string {
	if cfg := config.GetCurrentConfig(); cfg != nil && cfg.Output != "" {
		return cfg.Output
	}
	return config.DefaultOutput
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// renderSpec writes spec in the given format.
func renderSpec(w io.Writer, spec *buildspec.BuildSpec, format string) error {
	switch format {
	case config.OutputJSON:
		return renderJSON(w, spec)
	case config.OutputYAML:
		return renderYAML(w, spec)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRow(table.Row{"compiler", spec.Compiler})
	t.AppendRow(table.Row{"sources", joinOrDash(spec.Sources)})
	t.AppendRow(table.Row{"compile flags", joinOrDash(spec.CompileFlags)})
	t.AppendRow(table.Row{"link flags", joinOrDash(spec.LinkFlags)})
	t.Render()
	_, _ = fmt.Fprintf(w, "command: %s\n", spec)
	return nil
}

// renderBuilds writes builds in the given format.
func renderBuilds(w io.Writer, builds []history.Build, format string) error {
	switch format {
	case config.OutputJSON:
		if builds == nil {
			builds = []history.Build{}
		}
		return renderJSON(w, builds)
	case config.OutputYAML:
		return renderYAML(w, builds)
	}

	if len(builds) == 0 {
		_, _ = fmt.Fprintln(w, "(no builds recorded)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Started", "Mode", "Compiler", "Sources", "Status", "Took", "Error"})
	for _, b := range builds {
		t.AppendRow(table.Row{
			b.StartedAt.Local().Format("2006-01-02 15:04:05"),
			b.Mode,
			b.Compiler,
			joinOrDash(b.Sources),
			string(b.Status),
			b.Duration.Round(time.Millisecond).String(),
			truncate(b.Error, 60),
		})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d builds)\n", len(builds))
	return nil
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
