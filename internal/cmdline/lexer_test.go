package cmdline

import (
	"errors"
	"strings"
	"testing"

	"github.com/mattn/go-shellwords"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: []string{}},
		{name: "whitespace only", input: " \t\n\r\f\v ", want: []string{}},
		{name: "simple words", input: "gcc -Wall main.c", want: []string{"gcc", "-Wall", "main.c"}},
		{name: "runs of mixed whitespace", input: "  gcc\t\t-O2 \n main.c  ", want: []string{"gcc", "-O2", "main.c"}},
		{name: "single quoted space", input: "gcc 'two words.c'", want: []string{"gcc", "two words.c"}},
		{name: "double quoted space", input: `gcc "two words.c"`, want: []string{"gcc", "two words.c"}},
		{name: "quotes glue to neighbours", input: `-D'NAME=a b'x`, want: []string{"-DNAME=a bx"}},
		{name: "single quote literal in double", input: `"it's.c"`, want: []string{"it's.c"}},
		{name: "double quote literal in single", input: `'say "hi"'`, want: []string{`say "hi"`}},
		{name: "escaped space outside quotes", input: `two\ words.c`, want: []string{"two words.c"}},
		{name: "escaped quote", input: `\"x\"`, want: []string{`"x"`}},
		{name: "escaped backslash", input: `a\\b`, want: []string{`a\b`}},
		{name: "backslash escapes inside double quotes", input: `"a\"b"`, want: []string{`a"b`}},
		{name: "backslash escapes inside single quotes", input: `'a\'b'`, want: []string{"a'b"}},
		{name: "trailing backslash dropped", input: `main.c\`, want: []string{"main.c"}},
		{name: "lone trailing backslash emits nothing", input: `gcc \`, want: []string{"gcc"}},
		{name: "whitespace inside quotes kept", input: "'a\tb\nc'", want: []string{"a\tb\nc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Tokenize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Empty quoted fields accumulate no characters and are never emitted.
func TestTokenize_EmptyQuotedField(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{input: `""`, want: []string{}},
		{input: `''`, want: []string{}},
		{input: `gcc "" main.c`, want: []string{"gcc", "main.c"}},
		{input: `gcc '' ""`, want: []string{"gcc"}},
		{input: `""''""`, want: []string{}},
		{input: `a""`, want: []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Tokenize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTokenize_UnterminatedQuote(t *testing.T) {
	tests := []struct {
		input      string
		wantOffset int
	}{
		{input: "gcc main.c 'unterminated", wantOffset: 11},
		{input: `"`, wantOffset: 0},
		{input: `gcc "main.c`, wantOffset: 4},
		{input: `gcc 'a"b`, wantOffset: 4},
		{input: `gcc "a\"`, wantOffset: 4},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Tokenize(tt.input)
			require.Error(t, err)
			assert.Nil(t, got, "no tokens survive a failure")
			assert.ErrorIs(t, err, ErrUnterminatedQuote)

			var lexErr *LexError
			require.True(t, errors.As(err, &lexErr))
			assert.Equal(t, tt.wantOffset, lexErr.Offset)
			assert.Contains(t, lexErr.Error(), "unterminated quote")
		})
	}
}

func TestTokenize_TokenTooLong(t *testing.T) {
	t.Run("at the limit", func(t *testing.T) {
		long := strings.Repeat("a", MaxTokenLen)
		got, err := Tokenize("gcc " + long)
		require.NoError(t, err)
		assert.Equal(t, []string{"gcc", long}, got)
	})

	t.Run("one past the limit", func(t *testing.T) {
		got, err := Tokenize("gcc " + strings.Repeat("a", MaxTokenLen+1))
		assert.Nil(t, got)
		assert.ErrorIs(t, err, ErrTokenTooLong)

		var lexErr *LexError
		require.True(t, errors.As(err, &lexErr))
		assert.Equal(t, 4, lexErr.Offset)
	})

	t.Run("escaped byte past the limit", func(t *testing.T) {
		_, err := Tokenize(strings.Repeat("a", MaxTokenLen) + `\b`)
		assert.ErrorIs(t, err, ErrTokenTooLong)
	})

	t.Run("quotes do not count", func(t *testing.T) {
		got, err := Tokenize(`"` + strings.Repeat("a", MaxTokenLen) + `"`)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Len(t, got[0], MaxTokenLen)
	})
}

// Quote removal agrees with a conventional shell word splitter on inputs that
// avoid the two places where the rules differ (backslashes and empty fields).
func TestTokenize_AgreesWithShellwords(t *testing.T) {
	inputs := []string{
		"gcc -Wall -O2 main.c -lm",
		"clang -o out main.c -L /usr/lib -lfoo",
		"gcc 'two words.c' \"three more words.c\"",
		`gcc -DMSG='"hello world"' main.c`,
		`cc "it's.c" -I'my include'`,
		"  gcc\tmain.c  ",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			want, err := shellwords.Parse(in)
			require.NoError(t, err)

			got, err := Tokenize(in)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

// Re-joining the emitted tokens with single spaces, after quoting any token
// that contains whitespace, tokenizes back to the same tokens.
func TestTokenize_QuoteRemovalIsLossless(t *testing.T) {
	inputs := []string{
		"gcc 'two words.c' -DX=\"a b\"",
		`gcc "tab	inside.c" plain.c`,
		"cc -I'dir with space' x.c",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			first, err := Tokenize(in)
			require.NoError(t, err)

			quoted := make([]string, len(first))
			for i, tok := range first {
				quoted[i] = tok
				if strings.ContainsAny(tok, " \t") {
					quoted[i] = "'" + tok + "'"
				}
			}

			second, err := Tokenize(strings.Join(quoted, " "))
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})
	}
}
