package parser

import (
	"strconv"
	"strings"

	"quiz-tex/internal/domain"
	"quiz-tex/internal/latex"
)

// MaxOptions caps the number of lettered options per question.
const MaxOptions = 6

const optionLetters = "ABCDEF"

// columnsByCommand is the column hint carried by the layout shortcuts.
var columnsByCommand = map[string]int{
	"motcot": 1,
	"haicot": 2,
	"boncot": 4,
}

type rawOption struct {
	content string
	correct bool
}

// extractOptions reads the brace groups of an options region that starts at
// a choice command. Choice command tokens, their [n] column argument and %
// comments between groups are skipped; anything else ends the region and is
// returned as rest.
func extractOptions(region string) (opts []rawOption, columns int, rest string) {
	i := 0
	for len(opts) < MaxOptions {
		i = latex.SkipSpacesAndComments(region, i)
		if i >= len(region) {
			break
		}
		if region[i] == '\\' {
			name := commandAt(region, i, latex.ChoiceCommands)
			if name == "" {
				break
			}
			i += len(name) + 1
			if n, ok := columnsByCommand[name]; ok {
				columns = n
			}
			if j := latex.SkipSpacesAndComments(region, i); j < len(region) && region[j] == '[' {
				if arg, end, ok := latex.FindMatchingBracket(region, j); ok {
					if n, err := strconv.Atoi(strings.TrimSpace(arg)); err == nil && n > 0 {
						columns = n
					}
					i = end + 1
				}
			}
			continue
		}
		if region[i] != '{' {
			break
		}
		group, end, ok := latex.FindMatchingBrace(region, i)
		if !ok {
			break
		}
		opts = append(opts, rawOption{
			content: group,
			correct: latex.FindCommand(group, "True", 0) >= 0,
		})
		i = end + 1
	}
	return opts, columns, region[i:]
}

// commandAt returns which of names starts exactly at s[i].
func commandAt(s string, i int, names []string) string {
	for _, name := range names {
		if latex.FindCommand(s[i:min(len(s), i+len(name)+2)], name, 0) == 0 {
			return name
		}
	}
	return ""
}

func (p *Parser) buildOptions(raw []rawOption) []domain.Option {
	opts := make([]domain.Option, 0, len(raw))
	for i, o := range raw {
		opts = append(opts, domain.Option{
			ID:        string(optionLetters[i]),
			Content:   latex.CleanTexTokens(latex.StripMarker(o.content, "True"), p.rules),
			IsCorrect: o.correct,
		})
	}
	return opts
}
