package latex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindMatchingBrace_Balance(t *testing.T) {
	inners := []string{
		"",
		"a",
		`a\{b`,
		`x{y{z}}\}`,
		`\}\}{\{}`,
		`\frac{1}{2} + \left\{ x \right\}`,
		`{{{}}}{}{\{\}}`,
	}
	for _, inner := range inners {
		t.Run(inner, func(t *testing.T) {
			s := "{" + inner + "}"
			content, end, ok := FindMatchingBrace(s, 0)
			require.True(t, ok)
			assert.Equal(t, inner, content)
			assert.Equal(t, len(s)-1, end)
		})
	}
}

func TestFindMatchingBrace_NoMatch(t *testing.T) {
	tests := []struct {
		name string
		s    string
		open int
	}{
		{"unterminated", "{abc", 0},
		{"escaped closer only", `{abc\}`, 0},
		{"not a brace", "abc", 0},
		{"out of range", "{}", 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, end, ok := FindMatchingBrace(tt.s, tt.open)
			assert.False(t, ok)
			assert.Equal(t, -1, end)
		})
	}
}

func TestFindMatchingBracket(t *testing.T) {
	content, end, ok := FindMatchingBracket(`[label={a]b}]rest`, 0)
	require.True(t, ok)
	assert.Equal(t, `label={a]b}`, content)
	assert.Equal(t, 12, end)

	_, _, ok = FindMatchingBracket(`[open`, 0)
	assert.False(t, ok)
}

func TestFindCommand(t *testing.T) {
	tests := []struct {
		name string
		s    string
		cmd  string
		want int
	}{
		{"prefix of longer command", `\choiceTF{a}\choice{b}`, "choice", 12},
		{"exact", `\choiceTF{a}`, "choiceTF", 0},
		{"line break before name", `\\choice`, "choice", -1},
		{"escaped line break then command", `\\\choice`, "choice", 2},
		{"absent", `plain text`, "choice", -1},
		{"at end of string", `x \True`, "True", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FindCommand(tt.s, tt.cmd, 0))
		})
	}
}

func TestFindFirstCommand(t *testing.T) {
	pos, name := FindFirstCommand(`stem \shortans{1} \choice{a}`, []string{"choice", "shortans"}, 0)
	assert.Equal(t, 5, pos)
	assert.Equal(t, "shortans", name)

	pos, name = FindFirstCommand(`nothing here`, []string{"choice"}, 0)
	assert.Equal(t, -1, pos)
	assert.Empty(t, name)
}

func TestReadArgs(t *testing.T) {
	s := `\immini[t]{a}{b}rest`
	args, ok := ReadArgs(s, len(`\immini`), 2, true)
	require.True(t, ok)
	assert.True(t, args.HasOptional)
	assert.Equal(t, "t", args.Optional)
	assert.Equal(t, []string{"a", "b"}, args.Args)
	assert.Equal(t, "rest", s[args.End:])

	args, ok = ReadArgs(`\immini {a}  {b}`, len(`\immini`), 2, true)
	require.True(t, ok)
	assert.False(t, args.HasOptional)
	assert.Equal(t, []string{"a", "b"}, args.Args)

	_, ok = ReadArgs(`\immini{a}`, len(`\immini`), 2, true)
	assert.False(t, ok)
}

func TestFindEnvironment(t *testing.T) {
	t.Run("nested same name", func(t *testing.T) {
		s := `\begin{ex}a\begin{ex}b\end{ex}c\end{ex}d`
		env, unclosed, ok := FindEnvironment(s, "ex", 0)
		require.True(t, ok)
		assert.False(t, unclosed)
		assert.Equal(t, `a\begin{ex}b\end{ex}c`, env.Content(s))
		assert.Equal(t, "d", s[env.End:])
	})

	t.Run("different name inside", func(t *testing.T) {
		s := `\begin{ex}\begin{center}x\end{center}\end{ex}`
		env, _, ok := FindEnvironment(s, "ex", 0)
		require.True(t, ok)
		assert.Equal(t, `\begin{center}x\end{center}`, env.Content(s))
	})

	t.Run("unclosed", func(t *testing.T) {
		_, unclosed, ok := FindEnvironment(`\begin{ex}abc`, "ex", 0)
		assert.False(t, ok)
		assert.True(t, unclosed)
	})

	t.Run("absent", func(t *testing.T) {
		_, unclosed, ok := FindEnvironment(`abc`, "ex", 0)
		assert.False(t, ok)
		assert.False(t, unclosed)
	})
}

func TestSkipSpacesAndComments(t *testing.T) {
	tests := []struct {
		name string
		in   string
		from int
		want int
	}{
		{"blanks only", "  \n\t{a}", 0, 4},
		{"comment between groups", "{1} % sai\n{2}", 3, 10},
		{"stacked comments", "%a\n  %b\n{x}", 0, 8},
		{"comment runs to end", " % tail", 0, 7},
		{"escaped percent stops", `\% x`, 0, 0},
		{"plain text stops", "  x", 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SkipSpacesAndComments(tt.in, tt.from))
		})
	}
}
