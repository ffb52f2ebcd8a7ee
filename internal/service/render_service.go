package service

import (
	"context"
	"html"

	"quiz-tex/internal/domain"
	"quiz-tex/internal/latex"
	"quiz-tex/internal/logger"
	"quiz-tex/internal/render"
	"quiz-tex/internal/semantic"

	"go.uber.org/zap"
)

// RenderedOption is one answer choice with its rendered segment tree.
type RenderedOption struct {
	ID        string          `json:"id"`
	IsCorrect bool            `json:"isCorrect"`
	Body      []semantic.Node `json:"body"`
}

// RenderedQuestion is a question node ready for display.
type RenderedQuestion struct {
	DocumentID    string              `json:"documentId,omitempty"`
	QuestionID    string              `json:"questionId"`
	Type          domain.QuestionType `json:"questionType"`
	Label         string              `json:"label,omitempty"`
	Content       []semantic.Node     `json:"content"`
	Options       []RenderedOption    `json:"options,omitempty"`
	OptionColumns int                 `json:"optionColumns,omitempty"`
	ShortAnswer   string              `json:"shortAnswer,omitempty"`
	Explanation   []semantic.Node     `json:"explanation,omitempty"`
}

// RenderService turns question text into segment trees whose text leaves
// carry HTML with typeset math.
type RenderService interface {
	RenderText(ctx context.Context, text string, macros domain.MacroTable) []semantic.Node
	RenderNode(ctx context.Context, q *domain.QuestionNode, macros domain.MacroTable) *RenderedQuestion
	RenderQuestion(ctx context.Context, documentID, questionID string) (*RenderedQuestion, error)
}

type renderService struct {
	docs     DocumentService
	renderer *render.Renderer
	figures  FigureService
}

// NewRenderService creates a RenderService. figures may be nil, in which
// case figures are emitted as empty placeholders.
func NewRenderService(docs DocumentService, renderer *render.Renderer, figures FigureService) RenderService {
	if renderer == nil {
		renderer = render.New(nil, logger.Get())
	}
	return &renderService{docs: docs, renderer: renderer, figures: figures}
}

func (s *renderService) RenderText(ctx context.Context, text string, macros domain.MacroTable) []semantic.Node {
	nodes := semantic.Tree(text)
	semantic.Walk(nodes, func(n *semantic.Node) {
		if n.Kind == semantic.KindText {
			n.HTML = s.renderLeaf(ctx, n.Text, macros)
		}
	})
	return nodes
}

// renderLeaf keeps TikZ blocks away from the math renderer and splices the
// rendered figures back in afterwards.
func (s *renderService) renderLeaf(ctx context.Context, text string, macros domain.MacroTable) string {
	protected, sources := latex.ProtectFigures(text)
	out := s.renderer.RenderMath(protected, macros)
	if len(sources) == 0 {
		return out
	}
	figures := make([]string, len(sources))
	for i, src := range sources {
		figures[i] = s.figureHTML(ctx, src)
	}
	return latex.RestoreFigures(out, figures)
}

func (s *renderService) figureHTML(ctx context.Context, source string) string {
	if s.figures == nil {
		return `<div class="tex-figure tex-figure-missing"></div>`
	}
	key := html.EscapeString(s.figures.Key(source))
	fig, err := s.figures.Render(ctx, source)
	if err != nil {
		logger.Get().Debug("RenderService: figure left as placeholder", zap.String("figureKey", key), zap.Error(err))
		return `<div class="tex-figure tex-figure-missing" data-figure="` + key + `"></div>`
	}
	return `<figure class="tex-figure" data-figure="` + key + `">` + fig.SVG + `</figure>`
}

func (s *renderService) RenderNode(ctx context.Context, q *domain.QuestionNode, macros domain.MacroTable) *RenderedQuestion {
	out := &RenderedQuestion{
		QuestionID:    q.UniqueID,
		Type:          q.Type,
		Label:         q.DisplayLabel(),
		Content:       s.RenderText(ctx, q.Content, macros),
		OptionColumns: q.OptionColumns,
	}
	for _, o := range q.Options {
		out.Options = append(out.Options, RenderedOption{
			ID:        o.ID,
			IsCorrect: o.IsCorrect,
			Body:      s.RenderText(ctx, o.Content, macros),
		})
	}
	if q.ShortAnswer != "" {
		out.ShortAnswer = s.renderLeaf(ctx, q.ShortAnswer, macros)
	}
	if q.Explanation != "" {
		out.Explanation = s.RenderText(ctx, q.Explanation, macros)
	}
	return out
}

func (s *renderService) RenderQuestion(ctx context.Context, documentID, questionID string) (*RenderedQuestion, error) {
	doc, err := s.docs.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	q, ok := doc.Result.FindQuestion(questionID)
	if !ok {
		return nil, domain.NewQuestionNotFoundError(documentID, questionID)
	}
	out := s.RenderNode(ctx, q, doc.Result.Macros)
	out.DocumentID = doc.ID
	return out, nil
}
