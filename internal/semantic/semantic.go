// Package semantic splits cleaned question text into an ordered sequence of
// typed parts: plain text, side-by-side figure pairs, column blocks, lists
// and media references. Text parts keep their math delimiters untouched.
package semantic

import (
	"regexp"
	"strconv"
	"strings"

	"quiz-tex/internal/latex"
)

// Kind tags a Part.
type Kind string

const (
	KindText       Kind = "text"
	KindSideBySide Kind = "side_by_side"
	KindColumns    Kind = "columns"
	KindList       Kind = "list"
	KindAudio      Kind = "audio"
	KindVideo      Kind = "video"
)

// Part is one segment. Which fields are set depends on Kind.
type Part struct {
	Kind Kind `json:"kind"`

	// text
	Text string `json:"text,omitempty"`

	// side_by_side (Content is the stem) and columns (Content is the body)
	Content      string `json:"content,omitempty"`
	Figure       string `json:"figure,omitempty"`
	FigureOption string `json:"figureOption,omitempty"`
	Columns      int    `json:"columns,omitempty"`

	// list
	Ordered  bool     `json:"ordered,omitempty"`
	Style    string   `json:"style,omitempty"`
	Start    int      `json:"start,omitempty"`
	Resume   bool     `json:"resume,omitempty"`
	Preamble string   `json:"preamble,omitempty"`
	Items    []string `json:"items,omitempty"`

	// audio, video
	Src string `json:"src,omitempty"`
}

type marker struct {
	kind  Kind
	token string // command name or environment name
	env   bool
}

var markers = []marker{
	{KindSideBySide, "immini", false},
	{KindColumns, "multicols", true},
	{KindList, "enumerate", true},
	{KindList, "itemize", true},
	{KindAudio, "audio", false},
	{KindVideo, "video", false},
}

var (
	labelStyleRe = regexp.MustCompile(`\\(alph|Alph|roman|Roman|arabic)\*`)
	startRe      = regexp.MustCompile(`start\s*=\s*(\d+)`)
	resumeRe     = regexp.MustCompile(`\bresume\*?`)
	setCounterRe = regexp.MustCompile(`\\setcounter\{enumi\}\{(\d+)\}`)
)

// Parse returns one level of parts for s. Text with no structural markers
// comes back unchanged as a single text part. A structure that cannot be
// read turns the remainder of s into text. Text between markers that is only
// whitespace is dropped, so joining the parts may not reproduce s.
func Parse(s string) []Part {
	var parts []Part
	emitText := func(t string) {
		if strings.TrimSpace(t) != "" {
			parts = append(parts, Part{Kind: KindText, Text: t})
		}
	}

	for pos := 0; pos < len(s); {
		start, m := nextMarker(s, pos)
		if start < 0 {
			emitText(s[pos:])
			break
		}
		emitText(s[pos:start])

		part, end, ok := readPart(s, start, m)
		if !ok {
			emitText(s[start:])
			break
		}
		parts = append(parts, part)
		pos = end
	}
	return parts
}

func nextMarker(s string, pos int) (int, marker) {
	best, found := -1, marker{}
	for _, m := range markers {
		var idx int
		if m.env {
			idx = strings.Index(s[pos:], `\begin{`+m.token+`}`)
			if idx >= 0 {
				idx += pos
			}
		} else {
			idx = latex.FindCommand(s, m.token, pos)
		}
		if idx >= 0 && (best < 0 || idx < best) {
			best, found = idx, m
		}
	}
	return best, found
}

func readPart(s string, start int, m marker) (Part, int, bool) {
	switch m.kind {
	case KindSideBySide:
		sb, ok := latex.ParseImmini(s, start)
		if !ok {
			return Part{}, 0, false
		}
		return Part{
			Kind:         KindSideBySide,
			Content:      sb.Stem,
			Figure:       sb.Figure,
			FigureOption: sb.Option,
		}, sb.End, true

	case KindAudio, KindVideo:
		args, ok := latex.ReadArgs(s, start+len(m.token)+1, 1, true)
		if !ok {
			return Part{}, 0, false
		}
		return Part{Kind: m.kind, Src: strings.TrimSpace(args.Args[0])}, args.End, true
	}

	begin := `\begin{` + m.token + `}`
	contentStart := start + len(begin)
	contentEnd, end, ok := latex.FindEnvironmentEnd(s, m.token, contentStart)
	if !ok {
		return Part{}, 0, false
	}
	inner := s[contentStart:contentEnd]

	if m.kind == KindColumns {
		part := Part{Kind: KindColumns, Columns: 1, Content: inner}
		if args, ok := latex.ReadArgs(inner, 0, 1, false); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(args.Args[0])); err == nil && n > 0 {
				part.Columns = n
			}
			part.Content = inner[args.End:]
		}
		return part, end, true
	}

	return parseList(inner, m.token == "enumerate"), end, true
}

func parseList(inner string, ordered bool) Part {
	part := Part{Kind: KindList, Ordered: ordered}
	if ordered {
		part.Style = "arabic"
	}
	if j := latex.SkipSpaces(inner, 0); j < len(inner) && inner[j] == '[' {
		if opts, end, ok := latex.FindMatchingBracket(inner, j); ok {
			if m := labelStyleRe.FindStringSubmatch(opts); m != nil {
				part.Style = m[1]
			}
			if m := startRe.FindStringSubmatch(opts); m != nil {
				part.Start, _ = strconv.Atoi(m[1])
			}
			part.Resume = resumeRe.MatchString(opts)
			inner = inner[end+1:]
		}
	}
	part.Preamble, part.Items = latex.SplitItems(inner)
	if m := setCounterRe.FindStringSubmatch(part.Preamble); m != nil && part.Start == 0 {
		n, _ := strconv.Atoi(m[1])
		part.Start = n + 1
	}
	return part
}

// Node is a Part whose inner content has been segmented recursively. HTML
// is left empty by Tree and filled in by renderers for text nodes.
type Node struct {
	Part
	Body       []Node   `json:"body,omitempty"`
	FigureBody []Node   `json:"figureBody,omitempty"`
	ItemBodies [][]Node `json:"itemBodies,omitempty"`
	HTML       string   `json:"html,omitempty"`
}

// Tree segments s and then every nested content string, to any depth.
// Each level works on a strictly shorter string, so recursion ends.
func Tree(s string) []Node {
	parts := Parse(s)
	nodes := make([]Node, 0, len(parts))
	for _, p := range parts {
		n := Node{Part: p}
		switch p.Kind {
		case KindSideBySide:
			n.Body = Tree(p.Content)
			n.FigureBody = Tree(p.Figure)
		case KindColumns:
			n.Body = Tree(p.Content)
		case KindList:
			for _, item := range p.Items {
				n.ItemBodies = append(n.ItemBodies, Tree(item))
			}
		}
		nodes = append(nodes, n)
	}
	return nodes
}

// Walk visits every node of a tree depth first, parents before children.
func Walk(nodes []Node, fn func(*Node)) {
	for i := range nodes {
		n := &nodes[i]
		fn(n)
		Walk(n.Body, fn)
		Walk(n.FigureBody, fn)
		for _, item := range n.ItemBodies {
			Walk(item, fn)
		}
	}
}
