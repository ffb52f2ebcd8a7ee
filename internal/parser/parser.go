// Package parser extracts typed question nodes from a LaTeX exam or lecture
// document. Parsing never fails on malformed input: unreadable constructs
// are kept as text and unterminated blocks are reported as warnings.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"quiz-tex/internal/domain"
	"quiz-tex/internal/latex"
)

const (
	documentBegin = `\begin{document}`
	documentEnd   = `\end{document}`

	// DefaultHeaderWindow is how far into a block the classification comment is searched for.
	DefaultHeaderWindow = 400
)

// BlockEnvironments are the top-level environments that become nodes.
var BlockEnvironments = []string{"ex", "bt", "vd", "dang", "boxdn", "note", "nx", "tomtat"}

// HeadingCommands become title nodes when they appear between blocks.
var HeadingCommands = []string{"section", "subsection"}

var titleCommands = []string{"title", "chapter", "section"}

var typeByEnvironment = map[string]domain.QuestionType{
	"vd":     domain.QuestionTypeExample,
	"boxdn":  domain.QuestionTypeTheory,
	"note":   domain.QuestionTypeNote,
	"nx":     domain.QuestionTypeRemark,
	"tomtat": domain.QuestionTypeSummary,
	"dang":   domain.QuestionTypeProblemType,
}

// gradedEnvironments fall back to UNCLASSIFIED rather than UNKNOWN.
var gradedEnvironments = map[string]bool{"ex": true, "bt": true, "vd": true}

var headerCommentRe = regexp.MustCompile(`%\s*\[([^\]\n]*)\]`)

// Config tunes the parser.
type Config struct {
	// HeaderWindow is the number of bytes from the start of a block that
	// are searched for %[code] comments. The line the window ends in is
	// always read to its end.
	HeaderWindow int
}

// DefaultConfig returns the parser defaults.
func DefaultConfig() Config {
	return Config{HeaderWindow: DefaultHeaderWindow}
}

// Parser turns document text into a ParseResult. A Parser holds only
// read-only state and may be used from several goroutines.
type Parser struct {
	cfg   Config
	rules *latex.RuleSet
	log   *zap.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithRules sets the user replacement rules applied by the cleaner.
func WithRules(rules *latex.RuleSet) Option {
	return func(p *Parser) { p.rules = rules }
}

// WithLogger sets the logger used for skipped blocks.
func WithLogger(log *zap.Logger) Option {
	return func(p *Parser) {
		if log != nil {
			p.log = log
		}
	}
}

// WithConfig overrides the default configuration.
func WithConfig(cfg Config) Option {
	return func(p *Parser) {
		if cfg.HeaderWindow > 0 {
			p.cfg.HeaderWindow = cfg.HeaderWindow
		}
	}
}

// New creates a Parser.
func New(opts ...Option) *Parser {
	p := &Parser{cfg: DefaultConfig(), log: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseTexFile parses text with default settings and the given rules.
func ParseTexFile(text string, rules *latex.RuleSet) domain.ParseResult {
	return New(WithRules(rules)).Parse(text)
}

// Parse runs one full pass over a document.
func (p *Parser) Parse(text string) domain.ParseResult {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	preamble, body, bodyOffset := splitDocument(text)
	result := domain.ParseResult{
		Title:     p.extractTitle(text),
		Questions: []domain.QuestionNode{},
		Macros:    latex.BuildMacroTable(preamble),
		Preamble:  preamble,
		Warnings:  []domain.ParseWarning{},
	}

	for pos := 0; pos < len(body); {
		start, env, heading := nextBlock(body, pos)
		if start < 0 {
			break
		}
		if heading {
			node, next, ok := p.headingNode(body, start, env, bodyOffset)
			if ok {
				result.Questions = append(result.Questions, node)
			}
			pos = next
			continue
		}

		begin := `\begin{` + env + `}`
		contentStart := start + len(begin)
		contentEnd, end, ok := latex.FindEnvironmentEnd(body, env, contentStart)
		if !ok {
			w := domain.ParseWarning{
				Offset:      bodyOffset + start,
				Environment: env,
				Message:     "unterminated " + begin + " block skipped",
			}
			p.log.Warn("Skipping unterminated block",
				zap.String("environment", env),
				zap.Int("offset", w.Offset))
			result.Warnings = append(result.Warnings, w)
			pos = contentStart
			continue
		}
		result.Questions = append(result.Questions, p.buildNode(env, body[contentStart:contentEnd], bodyOffset+start))
		pos = end
	}

	index := 0
	for i := range result.Questions {
		if result.Questions[i].Type == domain.QuestionTypeProblemType {
			index++
			result.Questions[i].ProblemTypeIndex = index
		}
	}

	p.log.Debug("Parsed document",
		zap.Int("nodes", len(result.Questions)),
		zap.Int("macros", len(result.Macros)),
		zap.Int("warnings", len(result.Warnings)))
	return result
}

// splitDocument separates the preamble from the body. Without a
// \begin{document} marker the preamble is empty and the whole text is body.
func splitDocument(text string) (preamble, body string, bodyOffset int) {
	body = text
	if idx := strings.Index(text, documentBegin); idx >= 0 {
		preamble = text[:idx]
		bodyOffset = idx + len(documentBegin)
		body = text[bodyOffset:]
	}
	if idx := strings.Index(body, documentEnd); idx >= 0 {
		body = body[:idx]
	}
	return preamble, body, bodyOffset
}

// nextBlock finds the earliest block begin tag or heading command at or
// after pos.
func nextBlock(body string, pos int) (start int, name string, heading bool) {
	start = -1
	for _, env := range BlockEnvironments {
		idx := strings.Index(body[pos:], `\begin{`+env+`}`)
		if idx >= 0 && (start < 0 || pos+idx < start) {
			start, name = pos+idx, env
		}
	}
	if h, hname := latex.FindFirstCommand(body, HeadingCommands, pos); h >= 0 && (start < 0 || h < start) {
		return h, hname, true
	}
	return start, name, false
}

func (p *Parser) headingNode(body string, start int, cmd string, bodyOffset int) (domain.QuestionNode, int, bool) {
	i := start + len(cmd) + 1
	if i < len(body) && body[i] == '*' {
		i++
	}
	args, ok := latex.ReadArgs(body, i, 1, true)
	if !ok {
		return domain.QuestionNode{}, i, false
	}
	raw := body[start:args.End]
	return domain.QuestionNode{
		UniqueID:         nodeID(raw, domain.ClassificationUnknown),
		ClassificationID: domain.ClassificationUnknown,
		Metadata:         domain.UnclassifiedMetadata(),
		Type:             domain.QuestionTypeTitle,
		Environment:      cmd,
		Content:          latex.CleanTexTokens(args.Args[0], p.rules),
		Tags:             []string{},
		Offset:           bodyOffset + start,
	}, args.End, true
}

// extractTitle returns the first \title, \chapter or \section argument.
func (p *Parser) extractTitle(text string) string {
	for from := 0; ; {
		pos, name := latex.FindFirstCommand(text, titleCommands, from)
		if pos < 0 {
			return ""
		}
		i := pos + len(name) + 1
		if i < len(text) && text[i] == '*' {
			i++
		}
		if args, ok := latex.ReadArgs(text, i, 1, true); ok {
			return latex.CleanTexTokens(args.Args[0], p.rules)
		}
		from = i
	}
}

// buildNode turns one block's inner text into a node.
func (p *Parser) buildNode(env, raw string, offset int) domain.QuestionNode {
	node := domain.QuestionNode{
		Environment: env,
		Offset:      offset,
		Tags:        []string{},
	}
	body := raw

	if env == "dang" {
		if args, ok := latex.ReadArgs(body, 0, 1, true); ok {
			node.Label = latex.CleanTexTokens(args.Args[0], p.rules)
			body = body[args.End:]
		}
	}

	code, tags, body := p.scanHeader(body)
	node.Tags = append(node.Tags, tags...)
	if meta, ok := DecodeCode(code); ok {
		node.Metadata = meta
		node.ClassificationID = code
	} else {
		node.Metadata = meta
		node.ClassificationID = domain.ClassificationUnknown
		if gradedEnvironments[env] {
			node.ClassificationID = domain.ClassificationUnclassified
		}
	}
	node.UniqueID = nodeID(raw, node.ClassificationID)

	body = latex.ExpandImmini(body)
	node.Type = classify(env, body)

	node.Explanation, body = p.extractCommand(body, "loigiai", false)
	node.ShortAnswer, body = p.extractCommand(body, "shortans", true)

	if node.Type.IsChoice() {
		if pos, _ := latex.FindFirstCommand(body, latex.ChoiceCommands, 0); pos >= 0 {
			raws, columns, rest := extractOptions(body[pos:])
			node.Options = p.buildOptions(raws)
			node.OptionColumns = columns
			body = body[:pos] + rest
		}
	}

	node.Content = latex.CleanTexTokens(body, p.rules)
	return node
}

// scanHeader looks for %[...] comments in the first HeaderWindow bytes,
// extended to the end of the line the window stops in. The first one
// matching the code grammar is the code and the others are tags. A leading
// [code] argument is the fallback. Matched comments are removed.
func (p *Parser) scanHeader(body string) (code string, tags []string, rest string) {
	end := headerEnd(body, p.cfg.HeaderWindow)
	head, tail := body[:end], body[end:]

	var b strings.Builder
	last := 0
	for _, m := range headerCommentRe.FindAllStringSubmatchIndex(head, -1) {
		if m[0] > 0 && head[m[0]-1] == '\\' {
			continue
		}
		value := strings.TrimSpace(head[m[2]:m[3]])
		switch {
		case code == "" && IsCode(value):
			code = value
		case value != "":
			tags = append(tags, value)
		}
		b.WriteString(head[last:m[0]])
		last = m[1]
	}
	b.WriteString(head[last:])
	rest = b.String() + tail

	if code == "" {
		j := latex.SkipSpaces(rest, 0)
		if j < len(rest) && rest[j] == '[' {
			if v, end, ok := latex.FindMatchingBracket(rest, j); ok && IsCode(strings.TrimSpace(v)) {
				code = strings.TrimSpace(v)
				rest = rest[end+1:]
			}
		}
	}
	return code, tags, rest
}

// headerEnd is the end of the line holding byte window-1. Line ends are
// always rune boundaries, so a multi-byte character is never split.
func headerEnd(body string, window int) int {
	if window <= 0 {
		return 0
	}
	if window >= len(body) {
		return len(body)
	}
	if nl := strings.IndexByte(body[window-1:], '\n'); nl >= 0 {
		return window - 1 + nl
	}
	return len(body)
}

// classify picks the node type. Theory-like environments decide by name;
// graded blocks by their command signature.
func classify(env, body string) domain.QuestionType {
	if t, ok := typeByEnvironment[env]; ok {
		return t
	}
	switch {
	case hasAny(body, latex.TrueFalseCommands):
		return domain.QuestionTypeTrueFalse
	case hasAny(body, latex.ChoiceCommands):
		return domain.QuestionTypeMultipleChoice
	case latex.FindCommand(body, "shortans", 0) >= 0:
		return domain.QuestionTypeShortAnswer
	default:
		return domain.QuestionTypeEssay
	}
}

func hasAny(s string, names []string) bool {
	pos, _ := latex.FindFirstCommand(s, names, 0)
	return pos >= 0
}

// extractCommand removes the first \name[opt]{arg} from body and returns the
// cleaned argument. A command whose argument cannot be read stays in place.
func (p *Parser) extractCommand(body, name string, allowOptional bool) (string, string) {
	pos := latex.FindCommand(body, name, 0)
	if pos < 0 {
		return "", body
	}
	args, ok := latex.ReadArgs(body, pos+len(name)+1, 1, allowOptional)
	if !ok {
		return "", body
	}
	return latex.CleanTexTokens(args.Args[0], p.rules), body[:pos] + body[args.End:]
}

// nodeID hashes the raw block text with its classification id.
func nodeID(raw, classification string) string {
	return strconv.FormatUint(xxhash.Sum64String(raw+"\x00"+classification), 36)
}
