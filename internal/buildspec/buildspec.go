// Package buildspec defines the structured form of a compiler invocation.
//
// A BuildSpec is produced by the command interpreter (internal/cmdline) and
// consumed read-only by the supervisor, which turns it into a compiler
// process with its own output target.
package buildspec

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"slices"
	"strings"
)

// DefaultCompiler is the driver used when the command does not name one.
const DefaultCompiler = "cc"

// Validation errors.
var (
	ErrNoCompiler = errors.New("compiler name is empty")
	ErrNoSources  = errors.New("no source files detected")
	ErrEmptyField = errors.New("empty entry")
)

// BuildSpec is a compiler name plus the ordered sources and flags of a build.
type BuildSpec struct {
	Compiler     string   `json:"compiler" yaml:"compiler"`
	Sources      []string `json:"sources" yaml:"sources"`
	CompileFlags []string `json:"compile_flags" yaml:"compile_flags"`
	LinkFlags    []string `json:"link_flags" yaml:"link_flags"`
}

// Validate checks that the build spec names a compiler, has at least one source and
// carries no empty entries.
func (s *BuildSpec) Validate() error {
	if s.Compiler == "" {
		return ErrNoCompiler
	}
	if len(s.Sources) == 0 {
		return ErrNoSources
	}
	for _, group := range []struct {
		name   string
		values []string
	}{
		{"sources", s.Sources},
		{"compile flags", s.CompileFlags},
		{"link flags", s.LinkFlags},
	} {
		for i, v := range group.values {
			if v == "" {
				return fmt.Errorf("%w in %s at index %d", ErrEmptyField, group.name, i)
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the build spec.
func (s *BuildSpec) Clone() *BuildSpec {
	if s == nil {
		return nil
	}
	return &BuildSpec{
		Compiler:     s.Compiler,
		Sources:      slices.Clone(s.Sources),
		CompileFlags: slices.Clone(s.CompileFlags),
		LinkFlags:    slices.Clone(s.LinkFlags),
	}
}

// Equal reports whether both specs have the same fields in the same order.
// Nil and empty slices compare equal.
func (s *BuildSpec) Equal(other *BuildSpec) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.Compiler == other.Compiler &&
		slices.Equal(s.Sources, other.Sources) &&
		slices.Equal(s.CompileFlags, other.CompileFlags) &&
		slices.Equal(s.LinkFlags, other.LinkFlags)
}

// Args returns the compiler arguments that build it into output.
// Link flags come last so that libraries resolve after the objects that use
// them. A bare -I or -D, which only a command ending in one produces, is
// placed after everything else so it never swallows a neighbour.
func (s *BuildSpec) Args(output string) []string {
	flags, dangling := s.splitDangling()
	args := make([]string, 0, len(s.CompileFlags)+len(s.Sources)+len(s.LinkFlags)+2)
	args = append(args, flags...)
	args = append(args, s.Sources...)
	args = append(args, "-o", output)
	args = append(args, s.LinkFlags...)
	args = append(args, dangling...)
	return args
}

// splitDangling separates bare -I and -D entries from the other compile flags.
func (s *BuildSpec) splitDangling() (flags, dangling []string) {
	for _, f := range s.CompileFlags {
		if f == "-I" || f == "-D" {
			dangling = append(dangling, f)
			continue
		}
		flags = append(flags, f)
	}
	return flags, dangling
}

// Command returns the compiler process for building it into output.
func (s *BuildSpec) Command(ctx context.Context, output string) *exec.Cmd {
	return exec.CommandContext(ctx, s.Compiler, s.Args(output)...) //nolint:gosec // G204: the user supplies the command
}

// String renders the build spec as a single shell-like line in Args order,
// without the output. Entries containing whitespace, quotes or backslashes
// are double-quoted so the line tokenizes back to the same entries.
func (s *BuildSpec) String() string {
	parts := make([]string, 0, 1+len(s.CompileFlags)+len(s.Sources)+len(s.LinkFlags))
	parts = append(parts, quote(s.Compiler))
	flags, dangling := s.splitDangling()
	for _, group := range [][]string{flags, s.Sources, s.LinkFlags, dangling} {
		for _, v := range group {
			parts = append(parts, quote(v))
		}
	}
	return strings.Join(parts, " ")
}

var quoteReplacer = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n\r\f\v'\"\\") {
		return s
	}
	return `"` + quoteReplacer.Replace(s) + `"`
}
