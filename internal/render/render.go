// Package render turns a text segment into an HTML fragment with its math
// typeset as MathML. Layout of the math itself is delegated to a Typesetter.
package render

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/wyatt915/treeblood"
	"go.uber.org/zap"

	"quiz-tex/internal/domain"
	"quiz-tex/internal/latex"
)

// Typesetter lays out one TeX math expression.
type Typesetter interface {
	Typeset(tex string, display bool, macros map[string]string) (string, error)
}

// TreebloodTypesetter converts TeX to MathML with treeblood.
type TreebloodTypesetter struct{}

// Typeset implements Typesetter. A panic inside the converter is returned
// as an error so a single bad span cannot take the caller down.
func (TreebloodTypesetter) Typeset(tex string, display bool, macros map[string]string) (mml string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("typesetter panic: %v", r)
		}
	}()
	return treeblood.TexToMML(tex, macros, display, display)
}

const (
	dollarToken = "\uE010"
	phOpen      = "\uE011"
	phClose     = "\uE012"
)

var (
	mathRe     = regexp.MustCompile(`\$\$[\s\S]+?\$\$|\\\[[\s\S]+?\\\]|\$[^$\n]+?\$`)
	breakOptRe = regexp.MustCompile(`\\\\\s*\[[^\]]*\]`)
	hspaceRe   = regexp.MustCompile(`\\hspace\*?\{([^{}]*)\}`)
	listOptRe  = regexp.MustCompile(`\\(alph|Alph|roman|Roman|arabic)\*`)
	startOptRe = regexp.MustCompile(`start\s*=\s*(\d+)`)

	// markupRe matches the note and table markup emitted by the cleaner.
	markupRe = regexp.MustCompile(`<div class="tex-note">|<table class="tex-table">|<tr>|<td>|<td colspan="\d+">|</(?:div|table|tr|td)>`)
)

var multilineEnvironments = []string{"eqnarray*", "eqnarray", "align*", "align"}

var listTypes = map[string]string{
	"alph":  "a",
	"Alph":  "A",
	"roman": "i",
	"Roman": "I",
}

// Renderer renders text segments. It keeps no per-document state and may
// be shared between goroutines.
type Renderer struct {
	ts  Typesetter
	log *zap.Logger
}

// New creates a Renderer. A nil typesetter selects treeblood.
func New(ts Typesetter, log *zap.Logger) *Renderer {
	if ts == nil {
		ts = TreebloodTypesetter{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{ts: ts, log: log}
}

// RenderMath renders one segment's raw text. Math spans that fail to
// typeset are kept as their original source. Text outside math is HTML
// escaped, except for the note and table markup produced by the cleaner.
func (r *Renderer) RenderMath(text string, macros domain.MacroTable) string {
	if text == "" {
		return ""
	}
	s := strings.ReplaceAll(text, `\$`, dollarToken)
	s = normalizeBreaks(s)

	expansions := macros.Expansions()
	var rendered []string
	s = mathRe.ReplaceAllStringFunc(s, func(span string) string {
		tex, display := unwrapMath(span)
		tex = strings.ReplaceAll(tex, dollarToken, `\$`)
		out, err := r.ts.Typeset(tex, display, expansions)
		if err != nil {
			r.log.Debug("Math span kept as source", zap.String("tex", tex), zap.Error(err))
			out = html.EscapeString(strings.ReplaceAll(span, dollarToken, `\$`))
		}
		rendered = append(rendered, out)
		return phOpen + strconv.Itoa(len(rendered)-1) + phClose
	})

	s = escapeText(s)
	s = formatText(s)
	s = convertStructure(s)

	for i, out := range rendered {
		s = strings.Replace(s, phOpen+strconv.Itoa(i)+phClose, out, 1)
	}
	return strings.ReplaceAll(s, dollarToken, "$")
}

func unwrapMath(span string) (string, bool) {
	switch {
	case strings.HasPrefix(span, "$$"):
		return span[2 : len(span)-2], true
	case strings.HasPrefix(span, `\[`):
		return span[2 : len(span)-2], true
	default:
		return span[1 : len(span)-1], false
	}
}

// escapeText escapes s for HTML text content, keeping cleaner markup.
func escapeText(s string) string {
	var b strings.Builder
	last := 0
	for _, m := range markupRe.FindAllStringIndex(s, -1) {
		b.WriteString(html.EscapeString(s[last:m[0]]))
		b.WriteString(s[m[0]:m[1]])
		last = m[1]
	}
	b.WriteString(html.EscapeString(s[last:]))
	return b.String()
}

var textCommands = []struct{ name, open, close string }{
	{"textbf", "<strong>", "</strong>"},
	{"textit", "<em>", "</em>"},
	{"emph", "<em>", "</em>"},
	{"underline", "<u>", "</u>"},
}

var legacyShorthands = []struct{ name, open, close string }{
	{"bf", "<strong>", "</strong>"},
	{"it", "<em>", "</em>"},
	{"em", "<em>", "</em>"},
}

func formatText(s string) string {
	for _, c := range textCommands {
		c := c
		s = latex.ReplaceCommand(s, c.name, 1, false, func(a latex.CommandArgs) string {
			return c.open + formatText(a.Args[0]) + c.close
		})
	}
	for _, c := range legacyShorthands {
		s = replaceShorthand(s, c.name, c.open, c.close)
	}
	return s
}

// replaceShorthand rewrites {\bf text} style groups.
func replaceShorthand(s, name, open, close string) string {
	token := `{\` + name
	var b strings.Builder
	last := 0
	for from := 0; ; {
		idx := strings.Index(s[from:], token)
		if idx < 0 {
			break
		}
		start := from + idx
		after := start + len(token)
		if after < len(s) && (s[after] >= 'a' && s[after] <= 'z' || s[after] >= 'A' && s[after] <= 'Z') {
			from = after
			continue
		}
		inner, end, ok := latex.FindMatchingBrace(s, start)
		if !ok {
			from = after
			continue
		}
		b.WriteString(s[last:start])
		b.WriteString(open + strings.TrimSpace(inner[len(token)-1:]) + close)
		last = end + 1
		from = last
	}
	b.WriteString(s[last:])
	return b.String()
}

// normalizeBreaks unifies line-break spellings and wraps multi-line equation
// environments in display math.
func normalizeBreaks(s string) string {
	s = strings.ReplaceAll(s, `\newline`, `\\`)
	s = breakOptRe.ReplaceAllString(s, `\\`)
	for _, env := range multilineEnvironments {
		s = latex.ReplaceEnvironment(s, env, func(s string, e latex.Environment) (string, bool) {
			body := strings.ReplaceAll(e.Content(s), "&=&", "&=")
			return `$$\begin{aligned}` + body + `\end{aligned}$$`, true
		})
	}
	return s
}

// convertStructure maps the non-math structural commands to HTML.
func convertStructure(s string) string {
	s = latex.ReplaceEnvironment(s, "center", func(s string, e latex.Environment) (string, bool) {
		return `<div class="tex-center">` + strings.TrimSpace(convertStructure(e.Content(s))) + `</div>`, true
	})
	s = convertList(s, "itemize")
	s = convertList(s, "enumerate")
	s = strings.ReplaceAll(s, `\\`, "<br/>")
	s = hspaceRe.ReplaceAllString(s, `<span class="tex-space" style="display:inline-block;width:$1"></span>`)
	return latex.ReplaceGlyphs(s)
}

func convertList(s, env string) string {
	return latex.ReplaceEnvironment(s, env, func(s string, e latex.Environment) (string, bool) {
		inner := e.Content(s)
		tag := "ul"
		if env == "enumerate" {
			tag = "ol"
		}
		var attrs strings.Builder
		attrs.WriteString(` class="tex-list"`)
		if j := latex.SkipSpaces(inner, 0); j < len(inner) && inner[j] == '[' {
			if opts, end, ok := latex.FindMatchingBracket(inner, j); ok {
				if m := listOptRe.FindStringSubmatch(opts); m != nil {
					if t, ok := listTypes[m[1]]; ok {
						attrs.WriteString(` type="` + t + `"`)
					}
				}
				if m := startOptRe.FindStringSubmatch(opts); m != nil {
					attrs.WriteString(` start="` + m[1] + `"`)
				}
				if strings.Contains(opts, "resume") {
					attrs.WriteString(` data-resume="true"`)
				}
				inner = inner[end+1:]
			}
		}
		preamble, items := latex.SplitItems(inner)
		var b strings.Builder
		if preamble != "" {
			b.WriteString(convertStructure(preamble))
		}
		b.WriteString("<" + tag + attrs.String() + ">")
		for _, item := range items {
			b.WriteString("<li>" + convertStructure(item) + "</li>")
		}
		b.WriteString("</" + tag + ">")
		return b.String(), true
	})
}
