package latex

import (
	"regexp"
	"strconv"
	"strings"
)

// ChoiceCommands introduce an answer-choice list. Column-layout shortcuts
// (\motcot, \haicot, \boncot) count as single-choice markers.
var ChoiceCommands = []string{"choiceTFt", "choiceTF", "choice", "motcot", "haicot", "boncot"}

// TrueFalseCommands mark a true/false choice list.
var TrueFalseCommands = []string{"choiceTFt", "choiceTF"}

// StructuralMarkers are commands whose content the parser has already
// extracted; whatever is left of them is unwrapped by the cleaner.
var StructuralMarkers = []string{"True", "loigiai", "choiceTFt", "choiceTF", "choice", "shortans", "motcot", "haicot", "boncot"}

// UnwrappedCommands are layout wrappers whose argument is kept as-is.
var UnwrappedCommands = []string{"centerline", "hbox"}

// ReplaceCommand replaces every \name whose arguments can be read with
// fn's output. Occurrences with unreadable arguments are copied through.
func ReplaceCommand(s, name string, nArgs int, allowOptional bool, fn func(CommandArgs) string) string {
	pos := FindCommand(s, name, 0)
	if pos < 0 {
		return s
	}
	var b strings.Builder
	last := 0
	for pos >= 0 {
		tokenEnd := pos + len(name) + 1
		args, ok := ReadArgs(s, tokenEnd, nArgs, allowOptional)
		if !ok {
			pos = FindCommand(s, name, tokenEnd)
			continue
		}
		b.WriteString(s[last:pos])
		b.WriteString(fn(args))
		last = args.End
		pos = FindCommand(s, name, args.End)
	}
	b.WriteString(s[last:])
	return b.String()
}

// ReplaceEnvironment replaces every closed \begin{name}...\end{name} with
// fn's output. fn receives the whole string and the located span and may
// return ok=false to leave that span untouched. An unclosed begin tag stops
// the scan and the rest is copied verbatim.
func ReplaceEnvironment(s, name string, fn func(s string, env Environment) (string, bool)) string {
	env, _, ok := FindEnvironment(s, name, 0)
	if !ok {
		return s
	}
	var b strings.Builder
	last := 0
	for ok {
		b.WriteString(s[last:env.Start])
		if out, rewritten := fn(s, env); rewritten {
			b.WriteString(out)
		} else {
			b.WriteString(s[env.Start:env.End])
		}
		last = env.End
		env, _, ok = FindEnvironment(s, name, env.End)
	}
	b.WriteString(s[last:])
	return b.String()
}

// stripAlignMarkers drops the & that opens a row of a case block, whether
// the row starts a line or follows a \\ separator on the same line.
func stripAlignMarkers(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		rows := strings.Split(line, `\\`)
		for j, row := range rows {
			trimmed := strings.TrimLeft(row, " \t")
			if !strings.HasPrefix(trimmed, "&") {
				continue
			}
			if j == 0 {
				rows[j] = trimmed[1:]
			} else {
				rows[j] = row[:len(row)-len(trimmed)] + trimmed[1:]
			}
		}
		lines[i] = strings.Join(rows, `\\`)
	}
	return strings.Join(lines, "\n")
}

// ExpandHeva rewrites \heva{...} into a cases environment.
func ExpandHeva(s string) string {
	return ReplaceCommand(s, "heva", 1, false, func(a CommandArgs) string {
		return `\begin{cases}` + stripAlignMarkers(ExpandHeva(a.Args[0])) + `\end{cases}`
	})
}

// ExpandHoac rewrites \hoac{...} into a left-bracketed array.
func ExpandHoac(s string) string {
	return ReplaceCommand(s, "hoac", 1, false, func(a CommandArgs) string {
		return `\left[\begin{array}{l}` + stripAlignMarkers(ExpandHoac(a.Args[0])) + `\end{array}\right.`
	})
}

// SideBySide is one \immini[opt]{stem}{figure} construct.
type SideBySide struct {
	Option    string
	HasOption bool
	Stem      string
	Figure    string
	Start     int
	End       int
}

// ParseImmini reads the \immini command starting at pos.
func ParseImmini(s string, pos int) (SideBySide, bool) {
	if !strings.HasPrefix(s[pos:], `\immini`) {
		return SideBySide{}, false
	}
	args, ok := ReadArgs(s, pos+len(`\immini`), 2, true)
	if !ok {
		return SideBySide{}, false
	}
	return SideBySide{
		Option:    args.Optional,
		HasOption: args.HasOptional,
		Stem:      args.Args[0],
		Figure:    args.Args[1],
		Start:     pos,
		End:       args.End,
	}, true
}

func formatImmini(opt string, hasOpt bool, stem, figure string) string {
	var b strings.Builder
	b.WriteString(`\immini`)
	if hasOpt {
		b.WriteString("[" + opt + "]")
	}
	b.WriteString("{" + stem + "}{" + figure + "}")
	return b.String()
}

// ExpandImmini canonicalizes side-by-side blocks and hoists an embedded
// choice list out of the stem: the stem is split at the first choice
// command found scanning left to right, and everything from there on is
// emitted after the block. Blocks whose arguments cannot be read are left
// untouched.
func ExpandImmini(s string) string {
	return ReplaceCommand(s, "immini", 2, true, func(a CommandArgs) string {
		stem := ExpandImmini(a.Args[0])
		figure := ExpandImmini(a.Args[1])
		cut, _ := FindFirstCommand(stem, ChoiceCommands, 0)
		if cut < 0 {
			return formatImmini(a.Optional, a.HasOptional, strings.TrimSpace(stem), strings.TrimSpace(figure))
		}
		head := strings.TrimSpace(stem[:cut])
		tail := strings.TrimSpace(stem[cut:])
		return formatImmini(a.Optional, a.HasOptional, head, strings.TrimSpace(figure)) + "\n" + tail
	})
}

// UnwrapCommand replaces \name{content} with content.
func UnwrapCommand(s, name string) string {
	return ReplaceCommand(s, name, 1, false, func(a CommandArgs) string {
		return UnwrapCommand(a.Args[0], name)
	})
}

// renameCommand replaces the bare token \from with \to.
func renameCommand(s, from, to string) string {
	pos := FindCommand(s, from, 0)
	if pos < 0 {
		return s
	}
	var b strings.Builder
	last := 0
	for pos >= 0 {
		b.WriteString(s[last:pos])
		b.WriteString(`\` + to)
		last = pos + len(from) + 1
		pos = FindCommand(s, from, last)
	}
	b.WriteString(s[last:])
	return b.String()
}

// LowerAlphaLabel is the enumerate option used for lettered lists.
const LowerAlphaLabel = `[label=\alph*)]`

// ExpandItemChoice turns an itemchoice environment into a lettered enumerate.
func ExpandItemChoice(s string) string {
	return ReplaceEnvironment(s, "itemchoice", func(s string, env Environment) (string, bool) {
		inner := ExpandItemChoice(env.Content(s))
		inner = renameCommand(inner, "itemch", "item")
		return `\begin{enumerate}` + LowerAlphaLabel + inner + `\end{enumerate}`, true
	})
}

// ExpandListEX turns \begin{listEX}[n] into an n-column enumerate.
func ExpandListEX(s string) string {
	return ReplaceEnvironment(s, "listEX", func(s string, env Environment) (string, bool) {
		body := env.Content(s)
		cols := 1
		j := SkipSpaces(body, 0)
		if j < len(body) && body[j] == '[' {
			if n, end, ok := FindMatchingBracket(body, j); ok {
				if v, err := strconv.Atoi(strings.TrimSpace(n)); err == nil && v > 0 {
					cols = v
				}
				body = body[end+1:]
			}
		}
		body = ExpandListEX(body)
		return `\begin{multicols}{` + strconv.Itoa(cols) + "}\n" +
			`\begin{enumerate}` + body + `\end{enumerate}` + "\n" + `\end{multicols}`, true
	})
}

// ExpandNoteBlock wraps note environments in a styled container.
func ExpandNoteBlock(s string) string {
	return ReplaceEnvironment(s, "note", func(s string, env Environment) (string, bool) {
		return `<div class="tex-note">` + strings.TrimSpace(ExpandNoteBlock(env.Content(s))) + `</div>`, true
	})
}

var tableRuleRe = regexp.MustCompile(`\\(?:hline|toprule|midrule|bottomrule)\b|\\(?:cline|cmidrule|hhline)(?:\([^)]*\))?\{[^{}]*\}`)

// ExpandTabular rewrites tabular environments into minimal HTML tables.
// A table whose column spec cannot be read is left unrewritten.
func ExpandTabular(s string) string {
	return ReplaceEnvironment(s, "tabular", func(s string, env Environment) (string, bool) {
		args, ok := ReadArgs(s[:env.ContentEnd], env.ContentStart, 1, true)
		if !ok {
			return "", false
		}
		body := ExpandTabular(s[args.End:env.ContentEnd])
		var b strings.Builder
		b.WriteString(`<table class="tex-table">`)
		for _, row := range splitTopLevel(body, `\\`) {
			row = strings.TrimSpace(tableRuleRe.ReplaceAllString(row, ""))
			if row == "" {
				continue
			}
			b.WriteString("<tr>")
			for _, cell := range splitTopLevel(row, "&") {
				writeCell(&b, strings.TrimSpace(cell))
			}
			b.WriteString("</tr>")
		}
		b.WriteString("</table>")
		return b.String(), true
	})
}

func writeCell(b *strings.Builder, cell string) {
	if strings.HasPrefix(cell, `\multicolumn`) {
		if args, ok := ReadArgs(cell, len(`\multicolumn`), 3, false); ok {
			b.WriteString(`<td colspan="` + strings.TrimSpace(args.Args[0]) + `">`)
			b.WriteString(strings.TrimSpace(args.Args[2]))
			b.WriteString("</td>")
			return
		}
	}
	b.WriteString("<td>" + cell + "</td>")
}

// splitTopLevel splits s on an unescaped separator at brace depth zero.
// For the row separator \\ a trailing [len] spacing argument is dropped.
func splitTopLevel(s, sep string) []string {
	var parts []string
	depth, last := 0, 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case sep == `\\` && strings.HasPrefix(s[i:], `\\`) && depth == 0:
			parts = append(parts, s[last:i])
			i += 2
			if j := SkipSpaces(s, i); j < len(s) && s[j] == '[' {
				if _, end, ok := FindMatchingBracket(s, j); ok {
					i = end + 1
				}
			}
			last = i
			i--
		case c == '\\':
			i++
		case c == '{':
			depth++
		case c == '}':
			if depth > 0 {
				depth--
			}
		case depth == 0 && strings.HasPrefix(s[i:], sep):
			parts = append(parts, s[last:i])
			last = i + len(sep)
			i = last - 1
		}
	}
	return append(parts, s[last:])
}

// StripMarker removes \name and unwraps the brace groups that follow it,
// joining several groups with a space. An optional [..] argument is dropped.
func StripMarker(s, name string) string {
	pos := FindCommand(s, name, 0)
	if pos < 0 {
		return s
	}
	var b strings.Builder
	last := 0
	for pos >= 0 {
		b.WriteString(s[last:pos])
		i := pos + len(name) + 1
		if j := SkipSpaces(s, i); j < len(s) && s[j] == '[' {
			if _, end, ok := FindMatchingBracket(s, j); ok {
				i = end + 1
			}
		}
		var groups []string
		for {
			j := SkipSpaces(s, i)
			if j >= len(s) || s[j] != '{' {
				break
			}
			g, end, ok := FindMatchingBrace(s, j)
			if !ok {
				break
			}
			groups = append(groups, strings.TrimSpace(g))
			i = end + 1
		}
		if len(groups) > 0 {
			b.WriteString(strings.Join(groups, " "))
		} else if i < len(s) && s[i] == ' ' {
			i++
		}
		last = i
		pos = FindCommand(s, name, last)
	}
	b.WriteString(s[last:])
	return b.String()
}

// StripStructuralMarkers applies StripMarker for every structural command.
func StripStructuralMarkers(s string) string {
	for _, name := range StructuralMarkers {
		s = StripMarker(s, name)
	}
	return s
}
