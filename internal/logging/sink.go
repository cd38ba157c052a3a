// Package logging provides the leveled, multi-sink slog handler used by hrc.
//
// A Sink writes every record to a console writer and, optionally, to a
// persistent file. All handlers derived from one Sink share a single mutex so
// lines from concurrent goroutines never interleave. Records at LevelFatal
// terminate the process after the file sink is closed.
package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

const timeFormat = "2006-01-02 15:04:05"

// Options configures a Sink.
type Options struct {
	// Console receives every record. Defaults to os.Stdout.
	Console io.Writer
	// File, when set, receives every record without colour. It is closed by
	// Sink.Close if it implements io.Closer.
	File io.Writer
	// Level is the minimum level written. Defaults to slog.LevelInfo.
	Level slog.Leveler
	// Color enables ANSI colour on the console.
	Color bool
	// Exit is called with status 1 after a fatal record. Defaults to os.Exit.
	Exit func(int)
	// Now returns the record timestamp when the record carries none.
	Now func() time.Time
}

// sinkState is shared by a Sink and every handler derived from it.
type sinkState struct {
	mu      sync.Mutex
	console io.Writer
	file    io.Writer
	color   bool
	exit    func(int)
	now     func() time.Time
	styles  map[string]lipgloss.Style
}

// Sink is an slog.Handler writing to a console and an optional file.
type Sink struct {
	state  *sinkState
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

// NewSink creates a sink from opts.
func NewSink(opts Options) *Sink {
	if opts.Console == nil {
		opts.Console = os.Stdout
	}
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	if opts.Exit == nil {
		opts.Exit = os.Exit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	renderer := lipgloss.NewRenderer(opts.Console)
	if opts.Color {
		renderer.SetColorProfile(termenv.ANSI)
	} else {
		renderer.SetColorProfile(termenv.Ascii)
	}

	return &Sink{
		state: &sinkState{
			console: opts.Console,
			file:    opts.File,
			color:   opts.Color,
			exit:    opts.Exit,
			now:     opts.Now,
			styles:  levelStyles(renderer),
		},
		level: opts.Level,
	}
}

// New returns a logger backed by a new sink, plus the sink so the caller can
// close it.
func New(opts Options) (*slog.Logger, *Sink) {
	s := NewSink(opts)
	return slog.New(s), s
}

func levelStyles(r *lipgloss.Renderer) map[string]lipgloss.Style {
	colors := map[string]string{
		"TRACE": "8",
		"DEBUG": "6",
		"INFO ": "2",
		"WARN ": "3",
		"ERROR": "1",
		"FATAL": "5",
	}
	styles := make(map[string]lipgloss.Style, len(colors))
	for name, c := range colors {
		styles[name] = r.NewStyle().Foreground(lipgloss.Color(c))
	}
	return styles
}

// Enabled implements slog.Handler.
func (s *Sink) Enabled(_ context.Context, l slog.Level) bool {
	return l >= s.level.Level()
}

// Handle implements slog.Handler.
func (s *Sink) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = s.state.now()
	}
	name := LevelName(r.Level)

	var body bytes.Buffer
	body.WriteString(r.Message)
	prefix := groupPrefix(s.groups)
	for _, a := range s.attrs {
		appendAttr(&body, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&body, prefix, a)
		return true
	})

	plain := ts.Format(timeFormat) + " [" + name + "] " + source(r.PC) + body.String() + "\n"

	s.state.mu.Lock()
	if s.state.color {
		_, _ = io.WriteString(s.state.console, s.state.styles[name].Render(name)+" "+body.String()+"\n")
	} else {
		_, _ = io.WriteString(s.state.console, plain)
	}
	if s.state.file != nil {
		_, _ = io.WriteString(s.state.file, plain)
	}

	if r.Level >= LevelFatal {
		_ = s.closeLocked()
		s.state.mu.Unlock()
		s.state.exit(1)
		return nil
	}
	s.state.mu.Unlock()
	return nil
}

// WithAttrs implements slog.Handler.
func (s *Sink) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return s
	}
	prefix := groupPrefix(s.groups)
	qualified := make([]slog.Attr, 0, len(s.attrs)+len(attrs))
	qualified = append(qualified, s.attrs...)
	for _, a := range attrs {
		a.Key = prefix + a.Key
		qualified = append(qualified, a)
	}
	return &Sink{state: s.state, level: s.level, attrs: qualified, groups: s.groups}
}

// WithGroup implements slog.Handler.
func (s *Sink) WithGroup(name string) slog.Handler {
	if name == "" {
		return s
	}
	groups := append(append([]string{}, s.groups...), name)
	return &Sink{state: s.state, level: s.level, attrs: s.attrs, groups: groups}
}

// Close closes the file sink, if any. The console is left open.
func (s *Sink) Close() error {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	return s.closeLocked()
}

func (s *Sink) closeLocked() error {
	f := s.state.file
	s.state.file = nil
	if c, ok := f.(io.Closer); ok && f != os.Stdout && f != os.Stderr {
		return c.Close()
	}
	return nil
}

// Fatal logs msg at LevelFatal. With a Sink behind the logger the process
// exits after the record is written.
func Fatal(logger *slog.Logger, msg string, args ...any) {
	logger.Log(context.Background(), LevelFatal, msg, args...)
}

// OpenFile opens path for appending, creating its directory when needed.
func OpenFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600) //nolint:gosec // G304: path comes from configuration
}

// DefaultFilePath returns $HOME/.hrc/hrc.log, or ./.hrc/hrc.log when HOME is unset.
func DefaultFilePath() string {
	home := os.Getenv("HOME")
	if home == "" {
		home = "."
	}
	return filepath.Join(home, ".hrc", "hrc.log")
}

// ColorEnabled reports whether w is a terminal.
func ColorEnabled(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: file descriptors fit in int
}

func groupPrefix(groups []string) string {
	if len(groups) == 0 {
		return ""
	}
	return strings.Join(groups, ".") + "."
}

// source renders "file.go:42 (Func): " for the record's call site.
func source(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	frames := runtime.CallersFrames([]uintptr{pc})
	f, _ := frames.Next()
	if f.File == "" {
		return ""
	}
	fn := f.Function
	if i := strings.LastIndex(fn, "."); i >= 0 {
		fn = fn[i+1:]
	}
	return filepath.Base(f.File) + ":" + strconv.Itoa(f.Line) + " (" + fn + "): "
}

func appendAttr(buf *bytes.Buffer, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			appendAttr(buf, p, ga)
		}
		return
	}

	buf.WriteByte(' ')
	buf.WriteString(prefix)
	buf.WriteString(a.Key)
	buf.WriteByte('=')

	v := a.Value.String()
	if a.Value.Kind() == slog.KindTime {
		v = a.Value.Time().Format(time.RFC3339)
	}
	if needsQuote(v) {
		v = strconv.Quote(v)
	}
	buf.WriteString(v)
}

func needsQuote(s string) bool {
	if s == "" {
		return true
	}
	return strings.ContainsAny(s, " \t\n\r\"=")
}
