package service

import (
	"context"
	"strings"
	"testing"

	"quiz-tex/internal/domain"
	"quiz-tex/internal/render"
	"quiz-tex/internal/semantic"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestRenderService(docs DocumentService, figures FigureService) RenderService {
	return NewRenderService(docs, render.New(fakeTypesetter{}, nil), figures)
}

func TestRenderService_RenderText(t *testing.T) {
	svc := newTestRenderService(nil, nil)

	nodes := svc.RenderText(context.Background(), `Tính \textbf{nhanh} $x^2$`, nil)

	require.Len(t, nodes, 1)
	assert.Equal(t, semantic.KindText, nodes[0].Kind)
	assert.Equal(t, `Tính <strong>nhanh</strong> <m>x^2</m>`, nodes[0].HTML)
}

func TestRenderService_RenderText_SideBySideFigure(t *testing.T) {
	renderer := new(MockFigureRenderer)
	figures := NewFigureService(renderer, nil, 0)
	svc := newTestRenderService(nil, figures)
	renderer.On("RenderFigure", mock.Anything, sampleFigure).Return("<svg>fig</svg>", nil).Once()

	nodes := svc.RenderText(context.Background(), `\immini{Cho $A$}{`+sampleFigure+`}`, nil)

	require.Len(t, nodes, 1)
	n := nodes[0]
	assert.Equal(t, semantic.KindSideBySide, n.Kind)
	require.Len(t, n.Body, 1)
	assert.Equal(t, "Cho <m>A</m>", n.Body[0].HTML)
	require.Len(t, n.FigureBody, 1)
	assert.Equal(t,
		`<figure class="tex-figure" data-figure="`+figures.Key(sampleFigure)+`"><svg>fig</svg></figure>`,
		n.FigureBody[0].HTML)
	renderer.AssertExpectations(t)
}

func TestRenderService_RenderText_FigureWithoutRenderer(t *testing.T) {
	svc := newTestRenderService(nil, NewFigureService(nil, nil, 0))

	nodes := svc.RenderText(context.Background(), "Hình: "+sampleFigure, nil)

	require.Len(t, nodes, 1)
	assert.Contains(t, nodes[0].HTML, `tex-figure-missing`)
	assert.NotContains(t, nodes[0].HTML, `\draw`)
}

func TestRenderService_RenderNode(t *testing.T) {
	svc := newTestRenderService(nil, nil)
	q := &domain.QuestionNode{
		UniqueID: "q1",
		Type:     domain.QuestionTypeMultipleChoice,
		Content:  "Chọn $x$",
		Options: []domain.Option{
			{ID: "A", Content: "$1$"},
			{ID: "B", Content: "$2$", IsCorrect: true},
		},
		OptionColumns: 2,
		ShortAnswer:   "$2$",
		Explanation:   `\begin{itemize}\item a\end{itemize}`,
	}

	out := svc.RenderNode(context.Background(), q, nil)

	assert.Equal(t, "q1", out.QuestionID)
	require.Len(t, out.Options, 2)
	assert.True(t, out.Options[1].IsCorrect)
	assert.Equal(t, "<m>2</m>", out.Options[1].Body[0].HTML)
	assert.Equal(t, 2, out.OptionColumns)
	assert.Equal(t, "<m>2</m>", out.ShortAnswer)
	require.Len(t, out.Explanation, 1)
	assert.Equal(t, semantic.KindList, out.Explanation[0].Kind)
	require.Len(t, out.Explanation[0].ItemBodies, 1)
	assert.Equal(t, "a", out.Explanation[0].ItemBodies[0][0].HTML)
}

func TestRenderService_RenderQuestion(t *testing.T) {
	ctx := context.Background()
	repo := new(MockDocumentRepository)
	docs := NewDocumentService(repo, nil, nil, nil, DocumentServiceConfig{})
	svc := newTestRenderService(docs, nil)

	doc := domain.NewDocument("d1", "a.tex", "h", domain.ParseResult{
		Questions: []domain.QuestionNode{{UniqueID: "q1", Type: domain.QuestionTypeEssay, Content: `$\R$`}},
		Macros:    domain.MacroTable{`\R`: {Name: `\R`, Body: `\mathbb{R}`}},
	})
	repo.On("GetDocument", ctx, "d1").Return(doc, nil)
	repo.On("GetDocument", ctx, "missing").Return(nil, nil)

	out, err := svc.RenderQuestion(ctx, "d1", "q1")
	require.NoError(t, err)
	assert.Equal(t, "d1", out.DocumentID)
	assert.True(t, strings.HasPrefix(out.Content[0].HTML, "<m>"))

	_, err = svc.RenderQuestion(ctx, "d1", "nope")
	assert.Equal(t, domain.CodeQuestionNotFound, domain.CodeOf(err))

	_, err = svc.RenderQuestion(ctx, "missing", "q1")
	assert.Equal(t, domain.CodeDocumentNotFound, domain.CodeOf(err))
}
