// Package supervisor rebuilds and reruns a C program whenever its sources
// change.
//
// Every change re-interprets the user's raw compiler command, compiles the
// resulting build spec into an output path owned by the supervisor, and then
// either restarts the long-running program (stateful mode) or runs it to
// completion (stateless mode).
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/hrc/internal/buildspec"
	"github.com/leapstack-labs/hrc/internal/cmdline"
	"github.com/leapstack-labs/hrc/internal/history"
	"github.com/leapstack-labs/hrc/internal/logging"
	"golang.org/x/sync/errgroup"
)

// Mode selects what happens after a successful rebuild.
type Mode string

// Run modes.
const (
	// ModeStateful keeps the program running and restarts it after each rebuild.
	ModeStateful Mode = "stateful"
	// ModeStateless runs the program to completion after each rebuild.
	ModeStateless Mode = "stateless"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case ModeStateful:
		return ModeStateful, nil
	case ModeStateless:
		return ModeStateless, nil
	}
	return "", fmt.Errorf("unknown mode %q (want stateful or stateless)", s)
}

// Defaults applied by New.
const (
	DefaultDebounce    = 150 * time.Millisecond
	DefaultStopTimeout = 3 * time.Second
)

// DefaultExtensions are the file extensions that trigger a rebuild.
var DefaultExtensions = []string{".c", ".h"}

// Recorder receives the outcome of every build.
type Recorder interface {
	Record(ctx context.Context, b history.Build) error
}

// Options configures a Supervisor.
type Options struct {
	Command     string
	Mode        Mode
	Interpreter *cmdline.Interpreter
	Logger      *slog.Logger
	WatchDirs   []string
	Extensions  []string
	Debounce    time.Duration
	OutputPath  string
	Recorder    Recorder
	Stdout      io.Writer
	Stderr      io.Writer
	StopTimeout time.Duration
}

// Supervisor owns the watch loop and the running program.
type Supervisor struct {
	opts   Options
	logger *slog.Logger

	mu        sync.Mutex
	child     *exec.Cmd
	childDone chan struct{}
}

// New validates opts and fills in defaults.
func New(opts Options) (*Supervisor, error) {
	if strings.TrimSpace(opts.Command) == "" {
		return nil, cmdline.ErrEmptyCommand
	}
	if _, err := ParseMode(string(opts.Mode)); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Interpreter == nil {
		opts.Interpreter = cmdline.New(opts.Logger)
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = DefaultStopTimeout
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	return &Supervisor{opts: opts, logger: opts.Logger.With(slog.String("mode", string(opts.Mode)))}, nil
}

// Run performs an initial build, then rebuilds on every relevant change until
// ctx is cancelled. It fails only if the command cannot be interpreted up
// front or the watcher cannot be set up; build failures are logged and
// recorded, and the previous program keeps running.
func (s *Supervisor) Run(ctx context.Context) error {
	spec, err := s.opts.Interpreter.Parse(s.opts.Command)
	if err != nil {
		return fmt.Errorf("failed to interpret command: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	dirs := s.watchDirs(spec)
	for _, dir := range dirs {
		if err := addRecursive(watcher, dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	s.logger.Info("watching for changes", slog.Any("dirs", dirs), slog.Any("extensions", s.opts.Extensions))

	defer s.stopChild()

	if err := s.Cycle(ctx, "initial build"); err != nil {
		s.logger.Warn("initial build failed, waiting for changes", slog.Any("error", err))
	}

	triggers := make(chan string, 1)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.watchLoop(gctx, watcher, triggers) })
	g.Go(func() error { return s.buildLoop(gctx, triggers) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// watchLoop turns file system events into debounced rebuild triggers.
func (s *Supervisor) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, triggers chan<- string) error {
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addRecursive(watcher, event.Name); err != nil {
						s.logger.Warn("failed to watch new directory", slog.String("dir", event.Name), slog.Any("error", err))
					}
					continue
				}
			}
			if !s.relevant(event) {
				continue
			}

			s.logger.Log(ctx, logging.LevelTrace, "change event", slog.String("file", event.Name), slog.String("op", event.Op.String()))

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := event.Name
			debounceTimer = time.AfterFunc(s.opts.Debounce, func() {
				select {
				case triggers <- name:
				default:
					// A rebuild is already pending.
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", slog.Any("error", err))
		}
	}
}

func (s *Supervisor) buildLoop(ctx context.Context, triggers <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case name := <-triggers:
			s.logger.Info("change detected", slog.String("file", filepath.Base(name)))
			if err := s.Cycle(ctx, name); err != nil && ctx.Err() == nil {
				s.logger.Error("rebuild failed", slog.Any("error", err))
			}
		}
	}
}

// Cycle re-interprets the command, rebuilds, and then restarts or reruns the
// program according to the mode.
func (s *Supervisor) Cycle(ctx context.Context, reason string) error {
	start := time.Now()
	record := history.Build{Mode: string(s.opts.Mode), StartedAt: start}

	spec, err := s.opts.Interpreter.Parse(s.opts.Command)
	if err != nil {
		record.Compiler = buildspec.DefaultCompiler
		s.record(ctx, record, start, err)
		return fmt.Errorf("failed to interpret command: %w", err)
	}
	record.Compiler = spec.Compiler
	record.Sources = spec.Sources

	output := s.outputPath(spec)
	s.logger.Debug("building", slog.String("reason", reason), slog.String("output", output))
	if err := s.build(ctx, spec, output); err != nil {
		s.record(ctx, record, start, err)
		return err
	}
	s.record(ctx, record, start, nil)
	s.logger.Info("build succeeded",
		slog.String("compiler", spec.Compiler),
		slog.Int("sources", len(spec.Sources)),
		slog.Duration("took", time.Since(start).Round(time.Millisecond)),
	)

	switch s.opts.Mode {
	case ModeStateful:
		return s.restart(output)
	default:
		return s.runOnce(ctx, output)
	}
}

func (s *Supervisor) build(ctx context.Context, spec *buildspec.BuildSpec, output string) error {
	if err := os.MkdirAll(filepath.Dir(output), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	cmd := spec.Command(ctx, output)
	out, err := cmd.CombinedOutput()
	if len(out) > 0 {
		_, _ = s.opts.Stderr.Write(out)
	}
	if err != nil {
		return fmt.Errorf("build failed: %s: %w", spec.Compiler, err)
	}
	return nil
}

func (s *Supervisor) record(ctx context.Context, b history.Build, start time.Time, err error) {
	if s.opts.Recorder == nil {
		return
	}
	b.Duration = time.Since(start)
	b.Status = history.StatusOK
	if err != nil {
		b.Status = history.StatusFailed
		b.Error = err.Error()
	}
	if rerr := s.opts.Recorder.Record(context.WithoutCancel(ctx), b); rerr != nil {
		s.logger.Warn("failed to record build", slog.Any("error", rerr))
	}
}

// restart stops the running program, if any, and starts output in its place.
func (s *Supervisor) restart(output string) error {
	s.stopChild()

	cmd := exec.Command(output) //nolint:gosec // G204: output is our own build product
	cmd.Stdout = s.opts.Stdout
	cmd.Stderr = s.opts.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", output, err)
	}

	done := make(chan struct{})
	s.mu.Lock()
	s.child, s.childDone = cmd, done
	s.mu.Unlock()

	pid := cmd.Process.Pid
	s.logger.Info("program started", slog.Int("pid", pid))
	go func() {
		err := cmd.Wait()
		s.logger.Info("program exited", slog.Int("pid", pid), slog.String("status", exitStatus(err)))
		close(done)
	}()
	return nil
}

// stopChild interrupts the running program and kills it if it does not exit
// within the stop timeout.
func (s *Supervisor) stopChild() {
	s.mu.Lock()
	cmd, done := s.child, s.childDone
	s.child, s.childDone = nil, nil
	s.mu.Unlock()

	if cmd == nil {
		return
	}
	select {
	case <-done:
		return
	default:
	}

	if runtime.GOOS == "windows" {
		_ = cmd.Process.Kill()
	} else {
		_ = cmd.Process.Signal(os.Interrupt)
	}
	select {
	case <-done:
	case <-time.After(s.opts.StopTimeout):
		s.logger.Warn("program did not stop in time, killing it", slog.Int("pid", cmd.Process.Pid))
		_ = cmd.Process.Kill()
		<-done
	}
}

func (s *Supervisor) runOnce(ctx context.Context, output string) error {
	cmd := exec.CommandContext(ctx, output) //nolint:gosec // G204: output is our own build product
	cmd.Stdout = s.opts.Stdout
	cmd.Stderr = s.opts.Stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		s.logger.Info("program finished", slog.String("status", exitStatus(nil)))
	case errors.As(err, &exitErr):
		s.logger.Warn("program finished", slog.String("status", exitStatus(err)))
	default:
		return fmt.Errorf("failed to run %s: %w", output, err)
	}
	return nil
}

func (s *Supervisor) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return false
	}
	return slices.Contains(s.opts.Extensions, filepath.Ext(event.Name))
}

func (s *Supervisor) watchDirs(spec *buildspec.BuildSpec) []string {
	if len(s.opts.WatchDirs) > 0 {
		return s.opts.WatchDirs
	}
	return SourceDirs(spec)
}

func (s *Supervisor) outputPath(spec *buildspec.BuildSpec) string {
	if s.opts.OutputPath != "" {
		return s.opts.OutputPath
	}
	return DefaultOutputPath(spec)
}

// SourceDirs returns the distinct directories of the build spec's sources in
// first-appearance order.
func SourceDirs(spec *buildspec.BuildSpec) []string {
	var dirs []string
	for _, src := range spec.Sources {
		dir := filepath.Dir(src)
		if !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// DefaultOutputPath names the build product after the first source file,
// under $HOME/.hrc/build.
func DefaultOutputPath(spec *buildspec.BuildSpec) string {
	home := os.Getenv("HOME")
	if home == "" {
		home = "."
	}
	name := "a.out"
	if len(spec.Sources) > 0 {
		name = strings.TrimSuffix(filepath.Base(spec.Sources[0]), ".c")
	}
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(home, ".hrc", "build", name)
}

// addRecursive adds root and its subdirectories to the watcher, skipping
// hidden directories below root.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

func exitStatus(err error) string {
	if err == nil {
		return "exit status 0"
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.String()
	}
	return err.Error()
}
