package latex

import (
	"strconv"
	"strings"

	"quiz-tex/internal/domain"
)

var newCommandForms = []string{"newcommand", "renewcommand", "providecommand", "DeclareRobustCommand"}

// BuildMacroTable scans a preamble for \newcommand-style and \def
// declarations. Malformed declarations are skipped and scanning resumes
// after them; a repeated name keeps its last declaration.
func BuildMacroTable(preamble string) domain.MacroTable {
	table := make(domain.MacroTable)
	type decl struct {
		pos int
		m   domain.Macro
	}
	var found []decl

	for _, form := range newCommandForms {
		for pos := FindCommand(preamble, form, 0); pos >= 0; pos = FindCommand(preamble, form, pos+1) {
			if m, ok := readNewCommand(preamble, pos+len(form)+1); ok {
				found = append(found, decl{pos, m})
			}
		}
	}
	for pos := FindCommand(preamble, "def", 0); pos >= 0; pos = FindCommand(preamble, "def", pos+1) {
		if m, ok := readDef(preamble, pos+len(`\def`)); ok {
			found = append(found, decl{pos, m})
		}
	}
	for pos := FindCommand(preamble, "DeclareMathOperator", 0); pos >= 0; pos = FindCommand(preamble, "DeclareMathOperator", pos+1) {
		if m, ok := readMathOperator(preamble, pos+len(`\DeclareMathOperator`)); ok {
			found = append(found, decl{pos, m})
		}
	}

	// Source order decides which duplicate wins, regardless of declaration form.
	for i := 1; i < len(found); i++ {
		for j := i; j > 0 && found[j].pos < found[j-1].pos; j-- {
			found[j], found[j-1] = found[j-1], found[j]
		}
	}
	for _, d := range found {
		table[d.m.Name] = d.m
	}
	return table
}

// readCommandName reads either {\name} or \name starting at i.
func readCommandName(s string, i int) (string, int, bool) {
	i = SkipSpaces(s, i)
	if i >= len(s) {
		return "", i, false
	}
	if s[i] == '{' {
		inner, end, ok := FindMatchingBrace(s, i)
		if !ok {
			return "", i, false
		}
		name := strings.TrimSpace(inner)
		if !strings.HasPrefix(name, `\`) || len(name) < 2 {
			return "", i, false
		}
		return name, end + 1, true
	}
	if s[i] != '\\' || i+1 >= len(s) {
		return "", i, false
	}
	j := i + 1
	for j < len(s) && isLetter(s[j]) {
		j++
	}
	if j == i+1 {
		// single non-letter control symbol such as \,
		j++
	}
	return s[i:j], j, true
}

func readNewCommand(s string, i int) (domain.Macro, bool) {
	if i < len(s) && s[i] == '*' {
		i++
	}
	name, i, ok := readCommandName(s, i)
	if !ok {
		return domain.Macro{}, false
	}
	args := 0
	j := SkipSpaces(s, i)
	if j < len(s) && s[j] == '[' {
		n, end, ok := FindMatchingBracket(s, j)
		if !ok {
			return domain.Macro{}, false
		}
		args, _ = strconv.Atoi(strings.TrimSpace(n))
		i = end + 1
		// optional default for the first argument
		j = SkipSpaces(s, i)
		if j < len(s) && s[j] == '[' {
			_, end, ok := FindMatchingBracket(s, j)
			if !ok {
				return domain.Macro{}, false
			}
			i = end + 1
		}
	}
	j = SkipSpaces(s, i)
	if j >= len(s) || s[j] != '{' {
		return domain.Macro{}, false
	}
	body, _, ok := FindMatchingBrace(s, j)
	if !ok {
		return domain.Macro{}, false
	}
	return domain.Macro{Name: name, Args: args, Body: body}, true
}

// readDef handles \def\name#1#2{body}.
func readDef(s string, i int) (domain.Macro, bool) {
	j := SkipSpaces(s, i)
	if j >= len(s) || s[j] != '\\' {
		return domain.Macro{}, false
	}
	name, i, ok := readCommandName(s, j)
	if !ok {
		return domain.Macro{}, false
	}
	args := 0
	for i < len(s) && s[i] != '{' {
		if s[i] == '#' {
			args++
		} else if s[i] == '\n' {
			return domain.Macro{}, false
		}
		i++
	}
	body, _, ok := FindMatchingBrace(s, i)
	if !ok {
		return domain.Macro{}, false
	}
	return domain.Macro{Name: name, Args: args, Body: body}, true
}

func readMathOperator(s string, i int) (domain.Macro, bool) {
	star := false
	if i < len(s) && s[i] == '*' {
		star = true
		i++
	}
	name, i, ok := readCommandName(s, i)
	if !ok {
		return domain.Macro{}, false
	}
	j := SkipSpaces(s, i)
	if j >= len(s) || s[j] != '{' {
		return domain.Macro{}, false
	}
	text, _, ok := FindMatchingBrace(s, j)
	if !ok {
		return domain.Macro{}, false
	}
	op := `\operatorname`
	if star {
		op += "*"
	}
	return domain.Macro{Name: name, Body: op + "{" + text + "}"}, true
}

// ExpandMacro substitutes args into a macro body's #1..#9 placeholders.
func ExpandMacro(body string, args []string) string {
	if len(args) == 0 || !strings.Contains(body, "#") {
		return body
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '#' && i+1 < len(body) && body[i+1] >= '1' && body[i+1] <= '9' {
			n := int(body[i+1] - '1')
			if n < len(args) {
				b.WriteString(args[n])
			}
			i++
			continue
		}
		b.WriteByte(body[i])
	}
	return b.String()
}
