package latex

import "strings"

// ItemCommands are the equivalent list-item markers.
var ItemCommands = []string{"itemch", "item"}

// SplitItems splits s at \item and \itemch markers that sit at environment
// depth zero. Any \begin raises the depth and any \end lowers it; a
// side-by-side block is skipped whole. preamble is the trimmed text before
// the first marker.
func SplitItems(s string) (preamble string, items []string) {
	var markers, starts []int
	depth := 0
	for i := 0; i < len(s); {
		if s[i] != '\\' || i+1 >= len(s) {
			i++
			continue
		}
		if !isLetter(s[i+1]) {
			i += 2
			continue
		}
		rest := s[i:]
		switch {
		case strings.HasPrefix(rest, `\begin{`):
			depth++
			i += len(`\begin{`)
		case strings.HasPrefix(rest, `\end{`):
			if depth > 0 {
				depth--
			}
			i += len(`\end{`)
		case FindCommand(rest[:min(len(rest), len(`\immini`)+1)], "immini", 0) == 0:
			if sb, ok := ParseImmini(s, i); ok {
				i = sb.End
			} else {
				i += len(`\immini`)
			}
		default:
			matched := false
			if depth == 0 {
				for _, name := range ItemCommands {
					if FindCommand(rest[:min(len(rest), len(name)+2)], name, 0) == 0 {
						markers = append(markers, i)
						starts = append(starts, i+len(name)+1)
						i += len(name) + 1
						matched = true
						break
					}
				}
			}
			if !matched {
				j := i + 1
				for j < len(s) && isLetter(s[j]) {
					j++
				}
				i = j
			}
		}
	}
	if len(markers) == 0 {
		return strings.TrimSpace(s), nil
	}
	preamble = strings.TrimSpace(s[:markers[0]])
	for k := range markers {
		end := len(s)
		if k+1 < len(markers) {
			end = markers[k+1]
		}
		items = append(items, strings.TrimSpace(s[starts[k]:end]))
	}
	return preamble, items
}

// SplitTopLevelItems returns the top-level items of s, preceded by the text
// before the first marker when that text is not empty.
func SplitTopLevelItems(s string) []string {
	preamble, items := SplitItems(s)
	if preamble == "" {
		return items
	}
	return append([]string{preamble}, items...)
}
