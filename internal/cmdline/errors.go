package cmdline

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/hrc/internal/buildspec"
)

// Sentinel errors returned by Tokenize and Interpreter.Parse.
var (
	ErrUnterminatedQuote = errors.New("unterminated quote")
	ErrTokenTooLong      = fmt.Errorf("token too long (> %d bytes)", MaxTokenLen)
	ErrEmptyCommand      = errors.New("empty command")
	ErrFlagTooLong       = fmt.Errorf("combined flag too long (> %d bytes)", MaxTokenLen)

	// ErrNoSources is shared with buildspec so callers can match either.
	ErrNoSources = buildspec.ErrNoSources
)

// LexError reports a malformed command line.
type LexError struct {
	Offset int // byte offset where the offending token starts
	Err    error
}

func (e *LexError) Error() string {
	return fmt.Sprintf("tokenize: %v at offset %d", e.Err, e.Offset)
}

func (e *LexError) Unwrap() error {
	return e.Err
}
