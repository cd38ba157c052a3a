// Package cmdline interprets a free-form compiler invocation, as a user would
// type it at a shell, into a buildspec.BuildSpec.
//
// Interpretation runs in two steps. The Lexer splits the line into words with
// shell-like quoting and escaping. The Interpreter then classifies each word
// as the compiler, a source file, a compile flag or a link flag using a fixed
// set of heuristics; it never consults a real shell or compiler driver.
package cmdline

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/hrc/internal/buildspec"
)

// Compiler names recognised exactly, and fragments recognised anywhere in
// the first word (so cross compilers like x86_64-linux-gnu-gcc-12 match).
var (
	compilerNames     = []string{"cc", "gcc", "clang"}
	compilerFragments = []string{"gcc", "clang"}
)

// Interpreter turns command lines into build specs. It holds no state
// besides its logger and is safe for concurrent use.
type Interpreter struct {
	logger *slog.Logger
}

// New creates an interpreter that reports diagnostics to logger.
// A nil logger discards them.
func New(logger *slog.Logger) *Interpreter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Interpreter{logger: logger}
}

// Parse tokenizes line and classifies the tokens. On failure it returns a
// nil spec and an error matching one of the package sentinels.
func (in *Interpreter) Parse(line string) (*buildspec.BuildSpec, error) {
	tokens, err := Tokenize(line)
	if err != nil {
		in.logger.Error("failed to tokenize command", slog.Any("error", err))
		return nil, err
	}
	return in.Classify(tokens)
}

// Classify assembles a build spec from already tokenized words.
func (in *Interpreter) Classify(tokens []string) (*buildspec.BuildSpec, error) {
	if len(tokens) == 0 {
		in.logger.Error("empty command")
		return nil, ErrEmptyCommand
	}

	spec := &buildspec.BuildSpec{Compiler: buildspec.DefaultCompiler}

	i := 0
	if LooksLikeCompiler(tokens[0]) {
		spec.Compiler = tokens[0]
		i = 1
	}

	for ; i < len(tokens); i++ {
		t := tokens[i]
		hasNext := i+1 < len(tokens)

		switch {
		case t == "-o":
			if !hasNext {
				in.logger.Warn("ignoring -o without an argument")
				continue
			}
			in.logger.Debug("ignoring user output path", slog.String("output", tokens[i+1]))
			i++

		case IsSource(t):
			spec.Sources = append(spec.Sources, t)

		case IsLinkFlag(t):
			if t == "-L" && hasNext {
				v, err := in.join(t, tokens[i+1])
				if err != nil {
					return nil, err
				}
				spec.LinkFlags = append(spec.LinkFlags, v)
				i++
				continue
			}
			spec.LinkFlags = append(spec.LinkFlags, t)

		case IsCompileFlag(t):
			if (t == "-I" || t == "-D") && hasNext {
				v, err := in.join(t, tokens[i+1])
				if err != nil {
					return nil, err
				}
				spec.CompileFlags = append(spec.CompileFlags, v)
				i++
				continue
			}
			spec.CompileFlags = append(spec.CompileFlags, t)

		default:
			in.logger.Warn("unclassified argument, treating as compile flag", slog.String("arg", t))
			spec.CompileFlags = append(spec.CompileFlags, t)
		}
	}

	if len(spec.Sources) == 0 {
		in.logger.Error("no .c source file found in command")
		return nil, ErrNoSources
	}

	in.logger.Debug("interpreted command",
		slog.String("compiler", spec.Compiler),
		slog.Any("sources", spec.Sources),
		slog.Any("compile_flags", spec.CompileFlags),
		slog.Any("link_flags", spec.LinkFlags),
	)
	return spec, nil
}

// join glues a flag to its separate argument, as in "-I include".
func (in *Interpreter) join(flag, value string) (string, error) {
	if len(flag)+len(value) > MaxTokenLen {
		in.logger.Error("combined flag too long", slog.String("flag", flag), slog.Int("length", len(flag)+len(value)))
		return "", fmt.Errorf("%s: %w", flag, ErrFlagTooLong)
	}
	return flag + value, nil
}

// LooksLikeCompiler reports whether t names a compiler driver. The match is
// intentionally loose: any word containing "gcc" or "clang" qualifies.
func LooksLikeCompiler(t string) bool {
	for _, name := range compilerNames {
		if t == name {
			return true
		}
	}
	for _, frag := range compilerFragments {
		if strings.Contains(t, frag) {
			return true
		}
	}
	return false
}

// IsSource reports whether t is a C source file.
func IsSource(t string) bool {
	return strings.HasSuffix(t, ".c")
}

// IsLinkFlag reports whether t governs the link step: library search paths,
// libraries, linker pass-through options and -pthread.
func IsLinkFlag(t string) bool {
	return strings.HasPrefix(t, "-L") ||
		strings.HasPrefix(t, "-l") ||
		strings.HasPrefix(t, "-Wl,") ||
		t == "-pthread"
}

// IsCompileFlag reports whether t is a flag that is not a link flag.
func IsCompileFlag(t string) bool {
	return strings.HasPrefix(t, "-") && !IsLinkFlag(t)
}
