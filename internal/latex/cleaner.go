package latex

import (
	"regexp"
	"strings"
)

var (
	commentRe      = regexp.MustCompile(`%[^\n]*`)
	escapedSpaceRe = regexp.MustCompile(`\\ `)
	trailingEscRe  = regexp.MustCompile(`\\(\n|$)`)
	layoutRe       = regexp.MustCompile(`\\(?:noindent|allowbreak|nolinebreak|nopagebreak|newpage|clearpage|smallskip|medskip|bigskip|centering)\b\s?|\\vspace\*?\{[^{}]*\}`)
	dquoteRe       = regexp.MustCompile("``([^`'\n]*)''")
)

// spacingCommands expand fixed-width spacing to an explicit width.
var spacingCommands = []struct{ name, repl string }{
	{"hfill", `\hspace{2em}`},
	{"enskip", `\hspace{0.5em}`},
	{"enspace", `\hspace{0.5em}`},
}

// Glyphs maps icon and ellipsis commands to the text they stand for.
var Glyphs = []struct{ Name, Text string }{
	{"tick", "✓"},
	{"cross", "✗"},
	{"hand", "☞"},
	{"pen", "✎"},
	{"dotsline", "……"},
}

var quoteCommands = []struct{ name, repl string }{
	{"textquotedblleft", "“"},
	{"textquotedblright", "”"},
	{"lq", "‘"},
	{"rq", "’"},
}

// replaceToken swaps the bare token \name for repl, also eating an empty {}
// that terminates it.
func replaceToken(s, name, repl string) string {
	pos := FindCommand(s, name, 0)
	if pos < 0 {
		return s
	}
	var b strings.Builder
	last := 0
	for pos >= 0 {
		b.WriteString(s[last:pos])
		b.WriteString(repl)
		last = pos + len(name) + 1
		if strings.HasPrefix(s[last:], "{}") {
			last += 2
		}
		pos = FindCommand(s, name, last)
	}
	b.WriteString(s[last:])
	return b.String()
}

// ReplaceGlyphs substitutes the Glyphs table.
func ReplaceGlyphs(s string) string {
	for _, g := range Glyphs {
		s = replaceToken(s, g.Name, g.Text)
	}
	return s
}

// StripComments removes % line comments. Escaped \% and \\ are left intact.
func StripComments(s string) string {
	s = tokenizeEscapes(s)
	s = commentRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, lineBreakToken, `\\`)
	return strings.ReplaceAll(s, percentToken, `\%`)
}

func tokenizeEscapes(s string) string {
	s = strings.ReplaceAll(s, `\\`, lineBreakToken)
	return strings.ReplaceAll(s, `\%`, percentToken)
}

// CleanTexTokens normalizes one extracted text field. TikZ blocks are
// swapped out first and come back unchanged. rules may be nil.
func CleanTexTokens(s string, rules *RuleSet) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	s, figures := ProtectFigures(s)
	s = rules.Apply(s)

	s = tokenizeEscapes(s)
	s = commentRe.ReplaceAllString(s, "")
	s = escapedSpaceRe.ReplaceAllString(s, " ")
	s = trailingEscRe.ReplaceAllString(s, "$1")

	s = layoutRe.ReplaceAllString(s, "")
	for _, sp := range spacingCommands {
		s = replaceToken(s, sp.name, sp.repl)
	}
	s = ReplaceGlyphs(s)
	s = strings.ReplaceAll(s, lineBreakToken, `\\`)

	s = ExpandHeva(s)
	s = ExpandHoac(s)
	for _, name := range UnwrappedCommands {
		s = UnwrapCommand(s, name)
	}
	s = ExpandItemChoice(s)
	s = ExpandListEX(s)
	s = ExpandNoteBlock(s)
	s = ExpandTabular(s)
	s = ExpandImmini(s)

	s = StripStructuralMarkers(s)

	for _, q := range quoteCommands {
		s = replaceToken(s, q.name, q.repl)
	}
	s = dquoteRe.ReplaceAllString(s, "“${1}”")

	// Grouping runs while figures are still placeholders.
	s = GroupThousands(s)
	s = RestoreFigures(s, figures)
	s = strings.ReplaceAll(s, percentToken, `\%`)
	return strings.TrimSpace(s)
}
