// Package latex implements the tolerant LaTeX-subset scanning and rewriting
// used by the question parser. Every routine here is fail-open: malformed
// input is returned unchanged rather than reported as an error.
package latex

import "strings"

// FindMatchingBrace returns the text between s[open] (which must be '{') and
// its matching '}', together with the index of that closing brace. Escaped
// braces (\{ and \}) are literal. ok is false when s ends before the group
// closes.
func FindMatchingBrace(s string, open int) (content string, end int, ok bool) {
	return findMatching(s, open, '{', '}')
}

// FindMatchingBracket is the [...] variant of FindMatchingBrace. Brace groups
// inside the brackets are skipped whole, so [label={a]b}] closes at the last ].
func FindMatchingBracket(s string, open int) (content string, end int, ok bool) {
	return findMatching(s, open, '[', ']')
}

func findMatching(s string, open int, left, right byte) (string, int, bool) {
	if open < 0 || open >= len(s) || s[open] != left {
		return "", -1, false
	}
	depth := 0
	for i := open; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\':
			i++
		case c == left:
			depth++
		case c == right:
			depth--
			if depth == 0 {
				return s[open+1 : i], i, true
			}
		case left != '{' && c == '{':
			_, end, ok := findMatching(s, i, '{', '}')
			if !ok {
				return "", -1, false
			}
			i = end
		}
	}
	return "", -1, false
}

// SkipSpaces returns the first index at or after i that is not a blank.
func SkipSpaces(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}

// SkipSpacesAndComments is SkipSpaces that also skips unescaped % comments
// through their line break.
func SkipSpacesAndComments(s string, i int) int {
	for {
		i = SkipSpaces(s, i)
		if i >= len(s) || s[i] != '%' {
			return i
		}
		nl := strings.IndexByte(s[i:], '\n')
		if nl < 0 {
			return len(s)
		}
		i += nl + 1
	}
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// isEscaped reports whether s[i] is preceded by an odd run of backslashes.
func isEscaped(s string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

// FindCommand returns the index of the next \name at or after from, or -1.
// \name must not continue with a letter (\choice does not match \choiceTF)
// and its backslash must not itself be escaped (\\name is a line break).
func FindCommand(s, name string, from int) int {
	token := `\` + name
	for from >= 0 && from < len(s) {
		idx := strings.Index(s[from:], token)
		if idx < 0 {
			return -1
		}
		pos := from + idx
		after := pos + len(token)
		if (after >= len(s) || !isLetter(s[after])) && !isEscaped(s, pos) {
			return pos
		}
		from = pos + 1
	}
	return -1
}

// FindFirstCommand returns the earliest occurrence of any of names at or
// after from. Ties cannot happen because names are distinct tokens.
func FindFirstCommand(s string, names []string, from int) (pos int, name string) {
	pos = -1
	for _, n := range names {
		if p := FindCommand(s, n, from); p >= 0 && (pos < 0 || p < pos) {
			pos, name = p, n
		}
	}
	return pos, name
}

// CommandArgs is the result of reading a command's arguments.
type CommandArgs struct {
	Optional    string
	HasOptional bool
	Args        []string
	End         int // index just past the last consumed character
}

// ReadArgs reads an optional [..] argument followed by n brace groups
// starting at i, allowing blanks between them. ok is false if any of the n
// groups is missing or unbalanced.
func ReadArgs(s string, i int, n int, allowOptional bool) (CommandArgs, bool) {
	var out CommandArgs
	j := SkipSpaces(s, i)
	if allowOptional && j < len(s) && s[j] == '[' {
		opt, end, ok := FindMatchingBracket(s, j)
		if !ok {
			return out, false
		}
		out.Optional, out.HasOptional = opt, true
		i = end + 1
	}
	for k := 0; k < n; k++ {
		j = SkipSpaces(s, i)
		if j >= len(s) || s[j] != '{' {
			return out, false
		}
		arg, end, ok := FindMatchingBrace(s, j)
		if !ok {
			return out, false
		}
		out.Args = append(out.Args, arg)
		i = end + 1
	}
	out.End = i
	return out, true
}

// Environment locates one \begin{name}...\end{name} span.
type Environment struct {
	Start        int // index of \begin
	ContentStart int // index just past \begin{name}
	ContentEnd   int // index of the matching \end
	End          int // index just past \end{name}
}

// Content returns the text between the begin and end tags.
func (e Environment) Content(s string) string {
	return s[e.ContentStart:e.ContentEnd]
}

// FindEnvironment finds the first \begin{name} at or after from and its
// matching \end{name}, counting only nested environments of the same name.
// It returns ok=false when there is no begin tag or it is never closed;
// unclosed reports which of the two happened.
func FindEnvironment(s, name string, from int) (env Environment, unclosed bool, ok bool) {
	begin := `\begin{` + name + `}`
	idx := strings.Index(s[min(from, len(s)):], begin)
	if idx < 0 {
		return env, false, false
	}
	start := from + idx
	contentEnd, end, ok := FindEnvironmentEnd(s, name, start+len(begin))
	if !ok {
		return env, true, false
	}
	return Environment{Start: start, ContentStart: start + len(begin), ContentEnd: contentEnd, End: end}, false, true
}

// FindEnvironmentEnd scans from just after a \begin{name} tag and returns the
// index of the matching \end{name} and the index just past it.
func FindEnvironmentEnd(s, name string, from int) (endStart, endStop int, ok bool) {
	begin := `\begin{` + name + `}`
	end := `\end{` + name + `}`
	depth := 1
	pos := from
	for depth > 0 && pos <= len(s) {
		nextEnd := strings.Index(s[pos:], end)
		if nextEnd < 0 {
			return -1, -1, false
		}
		nextBegin := strings.Index(s[pos:], begin)
		if nextBegin >= 0 && nextBegin < nextEnd {
			depth++
			pos += nextBegin + len(begin)
			continue
		}
		depth--
		if depth == 0 {
			return pos + nextEnd, pos + nextEnd + len(end), true
		}
		pos += nextEnd + len(end)
	}
	return -1, -1, false
}
