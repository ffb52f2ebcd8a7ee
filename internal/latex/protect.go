package latex

import (
	"strings"
)

// Private-use runes never appear in authored sources, so they can delimit
// temporary tokens inside a single cleaning pass.
const (
	lineBreakToken = "\uE000"
	percentToken   = "\uE001"
	figureOpen     = "\uE002FIG"
	figureClose    = "\uE003"
)

// FigureEnvironment is the environment whose content is never rewritten.
const FigureEnvironment = "tikzpicture"

// figurePlaceholder encodes i in letters so number grouping cannot touch it.
func figurePlaceholder(i int) string {
	var rev []byte
	for {
		rev = append(rev, byte('a'+i%26))
		i /= 26
		if i == 0 {
			break
		}
	}
	for l, r := 0, len(rev)-1; l < r; l, r = l+1, r-1 {
		rev[l], rev[r] = rev[r], rev[l]
	}
	return figureOpen + string(rev) + figureClose
}

// ProtectFigures swaps every closed TikZ block for an opaque placeholder
// and returns the blocks in order. An unclosed block is left in place.
func ProtectFigures(s string) (string, []string) {
	var figures []string
	out := ReplaceEnvironment(s, FigureEnvironment, func(s string, env Environment) (string, bool) {
		figures = append(figures, s[env.Start:env.End])
		return figurePlaceholder(len(figures) - 1), true
	})
	return out, figures
}

// RestoreFigures puts protected blocks back byte for byte.
func RestoreFigures(s string, figures []string) string {
	if len(figures) == 0 {
		return s
	}
	pairs := make([]string, 0, 2*len(figures))
	for i, f := range figures {
		pairs = append(pairs, figurePlaceholder(i), f)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

// FindFigures returns the source of every closed TikZ block in s.
func FindFigures(s string) []string {
	_, figures := ProtectFigures(s)
	return figures
}

// MathSpan is one math-delimited region; Start and End bound the inner text.
type MathSpan struct {
	Start, End int
	Display    bool
}

// FindMathSpans locates $$..$$, \[..\] and $..$ spans. A single-dollar span
// never crosses a newline, and \$ is never a delimiter.
func FindMathSpans(s string) []MathSpan {
	var spans []MathSpan
	for i := 0; i < len(s); {
		switch {
		case s[i] == '\\' && i+1 < len(s) && s[i+1] == '[':
			end := strings.Index(s[i+2:], `\]`)
			if end < 0 {
				i += 2
				continue
			}
			spans = append(spans, MathSpan{Start: i + 2, End: i + 2 + end, Display: true})
			i += 2 + end + 2
		case s[i] == '\\':
			i += 2
		case strings.HasPrefix(s[i:], "$$"):
			end := strings.Index(s[i+2:], "$$")
			if end < 0 {
				i += 2
				continue
			}
			spans = append(spans, MathSpan{Start: i + 2, End: i + 2 + end, Display: true})
			i += 2 + end + 2
		case s[i] == '$':
			end, ok := inlineMathEnd(s, i+1)
			if !ok {
				i++
				continue
			}
			spans = append(spans, MathSpan{Start: i + 1, End: end})
			i = end + 1
		default:
			i++
		}
	}
	return spans
}

func inlineMathEnd(s string, j int) (int, bool) {
	for ; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '\n':
			return 0, false
		case '$':
			return j, true
		}
	}
	return 0, false
}

// GroupThousands inserts \, every three digits into integers of four or more
// digits found inside math spans. Digits after a decimal point or comma are
// left alone, as is everything outside math and inside TikZ blocks.
func GroupThousands(s string) string {
	s, figures := ProtectFigures(s)
	spans := FindMathSpans(s)
	if len(spans) == 0 {
		return RestoreFigures(s, figures)
	}
	var b strings.Builder
	last := 0
	for _, sp := range spans {
		b.WriteString(s[last:sp.Start])
		b.WriteString(groupDigits(s[sp.Start:sp.End]))
		last = sp.End
	}
	b.WriteString(s[last:])
	return RestoreFigures(b.String(), figures)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func groupDigits(m string) string {
	var b strings.Builder
	for i := 0; i < len(m); {
		if !isDigit(m[i]) {
			b.WriteByte(m[i])
			i++
			continue
		}
		j := i
		for j < len(m) && isDigit(m[j]) {
			j++
		}
		run := m[i:j]
		if len(run) < 4 || fractional(m, i) {
			b.WriteString(run)
		} else {
			head := len(run) % 3
			if head == 0 {
				head = 3
			}
			b.WriteString(run[:head])
			for k := head; k < len(run); k += 3 {
				b.WriteString(`\,` + run[k:k+3])
			}
		}
		i = j
	}
	return b.String()
}

// fractional reports whether the digit run at i follows a decimal separator.
func fractional(m string, i int) bool {
	if i == 0 {
		return false
	}
	if m[i-1] == '.' || m[i-1] == ',' {
		return true
	}
	return strings.HasSuffix(m[:i], "{,}")
}
