package latex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanTexTokens(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "  \n ", ""},
		{"number grouping in math", "$14580$", `$14\,580$`},
		{"number outside math untouched", "14580", "14580"},
		{"display math", "$$1234567$$", `$$1\,234\,567$$`},
		{"bracket math", `\[ 2024 \]`, `\[ 2\,024 \]`},
		{"decimal part untouched", "$3.14159$", "$3.14159$"},
		{"dollar does not cross newline", "cost $5\nand 12345$", "cost $5\nand 12345$"},
		{"escaped dollar is not math", `\$12345 and \$`, `\$12345 and \$`},
		{"line comments", "a % c\nb \\% d", "a \nb \\% d"},
		{"comment after line break", `a\\% x`, `a\\`},
		{"escaped space", `a\ b`, "a b"},
		{"trailing escape", "a\\\nb\\", "a\nb"},
		{"layout commands", `\noindent Hello\hfill World\vspace*{2mm}`, `Hello\hspace{2em} World`},
		{"glyph table", `\tick{} done \dotsline`, "✓ done ……"},
		{"quotes", "``hi'' \\lq x\\rq", "“hi” ‘ x’"},
		{"case block inside math", `$\heva{x>1\\y<2}$`, `$\begin{cases}x>1\\y<2\end{cases}$`},
		{"leftover explanation wrapper", `\loigiai{Giải}`, "Giải"},
		{"centerline unwrap", `\centerline{abc}`, "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanTexTokens(tt.in, nil))
		})
	}
}

func TestCleanTexTokens_FigureUntouched(t *testing.T) {
	fig := "\\begin{tikzpicture}\n\\draw (0,0) -- (1,1); % comment {\n\\node at (0,0) {$12345$ \\heva{x} \\True};\n\\end{tikzpicture}"
	in := "Xem hình % remove me\n" + fig + "\n\\centerline{ok} $12345$"

	out := CleanTexTokens(in, nil)

	assert.Equal(t, "Xem hình \n"+fig+"\nok $12\\,345$", out)
}

func TestCleanTexTokens_FigureUntouchedByRules(t *testing.T) {
	rules, errs := CompileRules([]Rule{{Pattern: `draw`, Replacement: "DRAW"}})
	require.Empty(t, errs)
	fig := `\begin{tikzpicture}\draw (0,0);\end{tikzpicture}`

	out := CleanTexTokens("draw "+fig, rules)

	assert.Equal(t, "DRAW "+fig, out)
}

func TestCleanTexTokens_Rules(t *testing.T) {
	rules, errs := CompileRules([]Rule{
		{Pattern: `\\R\b`, Replacement: `\mathbb{R}`},
		{Pattern: `\vv`, Replacement: `\overrightarrow{#1}`, NumArgs: 1},
	})
	require.Empty(t, errs)

	assert.Equal(t, `$x\in\mathbb{R}$`, CleanTexTokens(`$x\in\R$`, rules))
	assert.Equal(t, `$\overrightarrow{AB}$`, CleanTexTokens(`$\vv{AB}$`, rules))
}

func TestCleanTexTokens_Deterministic(t *testing.T) {
	in := "\\immini{Cho $12345$ \\choice{a}{b}}{\\begin{tikzpicture}x\\end{tikzpicture}} % tag"
	first := CleanTexTokens(in, nil)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, CleanTexTokens(in, nil))
	}
}

func TestStripComments(t *testing.T) {
	assert.Equal(t, "x \ny", StripComments("x % drop\ny"))
	assert.Equal(t, `50\% off`, StripComments(`50\% off`))
}

func TestGroupThousands(t *testing.T) {
	assert.Equal(t, `$14\,580$ and 14580`, GroupThousands(`$14580$ and 14580`))
	assert.Equal(t, `$1{,}23456$`, GroupThousands(`$1{,}23456$`))
	assert.Equal(t, `$14\,580$`, GroupThousands(`$14\,580$`))
}

func TestFindFigures(t *testing.T) {
	s := `a \begin{tikzpicture}x\end{tikzpicture} b \begin{tikzpicture}y\end{tikzpicture} \begin{tikzpicture}open`
	assert.Equal(t, []string{
		`\begin{tikzpicture}x\end{tikzpicture}`,
		`\begin{tikzpicture}y\end{tikzpicture}`,
	}, FindFigures(s))
}
