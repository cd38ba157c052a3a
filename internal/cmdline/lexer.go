package cmdline

import "strings"

// MaxTokenLen is the longest token, in bytes, the lexer accepts.
const MaxTokenLen = 4095

// Lexer splits a command line into words the way a POSIX-ish shell would,
// without expansion of any kind.
type Lexer struct {
	input string
	pos   int // current position in input
	start int // position where the current token started
}

// NewLexer creates a new lexer for the given command line.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Tokenize splits line into tokens. See Lexer.Tokenize.
func Tokenize(line string) ([]string, error) {
	return NewLexer(line).Tokenize()
}

// Tokenize returns every token of the input in order.
//
// Single and double quotes group characters and are removed; each kind is
// literal inside the other. A backslash copies the next byte verbatim in any
// quote state; a trailing backslash is dropped. Fields that end up empty,
// such as "" or '', produce no token.
func (l *Lexer) Tokenize() ([]string, error) {
	tokens := []string{}

	for {
		l.skipSpace()
		if l.pos >= len(l.input) {
			return tokens, nil
		}

		tok, err := l.scanToken()
		if err != nil {
			return nil, err
		}
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
}

// scanToken reads one field starting at the current position.
func (l *Lexer) scanToken() (string, error) {
	l.start = l.pos

	var sb strings.Builder
	inSingle, inDouble := false, false

	for l.pos < len(l.input) {
		c := l.input[l.pos]

		if !inSingle && !inDouble && isSpace(c) {
			break
		}

		switch {
		case c == '\\':
			l.pos++
			if l.pos < len(l.input) {
				if sb.Len() >= MaxTokenLen {
					return "", l.fail(ErrTokenTooLong)
				}
				sb.WriteByte(l.input[l.pos])
				l.pos++
			}
			continue
		case c == '\'' && !inDouble:
			inSingle = !inSingle
			l.pos++
			continue
		case c == '"' && !inSingle:
			inDouble = !inDouble
			l.pos++
			continue
		}

		if sb.Len() >= MaxTokenLen {
			return "", l.fail(ErrTokenTooLong)
		}
		sb.WriteByte(c)
		l.pos++
	}

	if inSingle || inDouble {
		return "", l.fail(ErrUnterminatedQuote)
	}
	return sb.String(), nil
}

func (l *Lexer) skipSpace() {
	for l.pos < len(l.input) && isSpace(l.input[l.pos]) {
		l.pos++
	}
}

func (l *Lexer) fail(err error) *LexError {
	return &LexError{Offset: l.start, Err: err}
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}
