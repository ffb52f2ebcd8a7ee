package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"quiz-tex/internal/domain"
	"quiz-tex/internal/dto"
	"quiz-tex/internal/handler"
	"quiz-tex/internal/latex"
	"quiz-tex/internal/middleware"
	"quiz-tex/internal/semantic"
	"quiz-tex/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Manual Mocks ---

type MockDocumentService struct {
	ParseFunc          func(ctx context.Context, content string) (*domain.ParseResult, error)
	ImportFunc         func(ctx context.Context, name, content string) (*domain.Document, error)
	GetDocumentFunc    func(ctx context.Context, id string) (*domain.Document, error)
	ListDocumentsFunc  func(ctx context.Context, limit int) ([]*domain.Document, error)
	DeleteDocumentFunc func(ctx context.Context, id string) error
}

func (m *MockDocumentService) Parse(ctx context.Context, content string) (*domain.ParseResult, error) {
	if m.ParseFunc != nil {
		return m.ParseFunc(ctx, content)
	}
	panic("MockDocumentService.ParseFunc not implemented")
}
func (m *MockDocumentService) Import(ctx context.Context, name, content string) (*domain.Document, error) {
	if m.ImportFunc != nil {
		return m.ImportFunc(ctx, name, content)
	}
	panic("MockDocumentService.ImportFunc not implemented")
}
func (m *MockDocumentService) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	if m.GetDocumentFunc != nil {
		return m.GetDocumentFunc(ctx, id)
	}
	panic("MockDocumentService.GetDocumentFunc not implemented")
}
func (m *MockDocumentService) ListDocuments(ctx context.Context, limit int) ([]*domain.Document, error) {
	if m.ListDocumentsFunc != nil {
		return m.ListDocumentsFunc(ctx, limit)
	}
	panic("MockDocumentService.ListDocumentsFunc not implemented")
}
func (m *MockDocumentService) DeleteDocument(ctx context.Context, id string) error {
	if m.DeleteDocumentFunc != nil {
		return m.DeleteDocumentFunc(ctx, id)
	}
	panic("MockDocumentService.DeleteDocumentFunc not implemented")
}
func (m *MockDocumentService) ReloadFile(ctx context.Context, path string) (*domain.Document, error) {
	panic("MockDocumentService.ReloadFile not implemented")
}
func (m *MockDocumentService) SetRules(rules *latex.RuleSet) {}

type MockRenderService struct {
	RenderQuestionFunc func(ctx context.Context, documentID, questionID string) (*service.RenderedQuestion, error)
}

func (m *MockRenderService) RenderText(ctx context.Context, text string, macros domain.MacroTable) []semantic.Node {
	panic("MockRenderService.RenderText not implemented")
}
func (m *MockRenderService) RenderNode(ctx context.Context, q *domain.QuestionNode, macros domain.MacroTable) *service.RenderedQuestion {
	panic("MockRenderService.RenderNode not implemented")
}
func (m *MockRenderService) RenderQuestion(ctx context.Context, documentID, questionID string) (*service.RenderedQuestion, error) {
	if m.RenderQuestionFunc != nil {
		return m.RenderQuestionFunc(ctx, documentID, questionID)
	}
	panic("MockRenderService.RenderQuestionFunc not implemented")
}

type MockPinger struct {
	Err error
}

func (m *MockPinger) Ping(ctx context.Context) error { return m.Err }

const testDocumentID = "01HZX3T5Q8W2K9M4N6P7R8S9TV"

func setupApp(docs service.DocumentService, renders service.RenderService, cache handler.Pinger) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler()})
	h := handler.NewDocumentHandler(docs, renders, cache)
	h.RegisterRoutes(app.Group("/api"), middleware.NewValidationMiddleware())
	return app
}

func sampleDocument() *domain.Document {
	return domain.NewDocument(testDocumentID, "de-1.tex", "abc123", domain.ParseResult{
		Title: "Đề kiểm tra",
		Questions: []domain.QuestionNode{{
			UniqueID: "q1",
			Type:     domain.QuestionTypeShortAnswer,
			Content:  "Tính $1+1$.",
		}},
		Macros: domain.MacroTable{`\R`: {Name: `\R`, Body: `\mathbb{R}`}},
	})
}

func decode(t *testing.T, body io.Reader, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(body).Decode(v))
}

func TestDocumentHandler_CreateDocument(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		docs := &MockDocumentService{
			ImportFunc: func(ctx context.Context, name, content string) (*domain.Document, error) {
				assert.Equal(t, "de-1.tex", name)
				return sampleDocument(), nil
			},
		}
		app := setupApp(docs, &MockRenderService{}, nil)

		body, _ := json.Marshal(dto.CreateDocumentRequest{Name: "de-1.tex", Content: `\begin{ex}x\end{ex}`})
		req := httptest.NewRequest("POST", "/api/documents", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

		var got dto.DocumentResponse
		decode(t, resp.Body, &got)
		assert.Equal(t, testDocumentID, got.ID)
		assert.Equal(t, 1, got.QuestionCount)
		assert.False(t, got.Empty)
		assert.Equal(t, []string{`\R`}, got.Macros)
	})

	t.Run("validation error", func(t *testing.T) {
		app := setupApp(&MockDocumentService{}, &MockRenderService{}, nil)

		body, _ := json.Marshal(dto.CreateDocumentRequest{Name: "", Content: ""})
		req := httptest.NewRequest("POST", "/api/documents", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		var got middleware.ValidationErrorResponse
		decode(t, resp.Body, &got)
		assert.Equal(t, string(domain.CodeValidation), got.Code)
		assert.Len(t, got.Errors, 2)
	})

	t.Run("malformed body", func(t *testing.T) {
		app := setupApp(&MockDocumentService{}, &MockRenderService{}, nil)

		req := httptest.NewRequest("POST", "/api/documents", bytes.NewReader([]byte("{")))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("service error", func(t *testing.T) {
		docs := &MockDocumentService{
			ImportFunc: func(ctx context.Context, name, content string) (*domain.Document, error) {
				return nil, domain.NewInternalError("failed to save document", errors.New("db down"))
			},
		}
		app := setupApp(docs, &MockRenderService{}, nil)

		body, _ := json.Marshal(dto.CreateDocumentRequest{Name: "a.tex", Content: "x"})
		req := httptest.NewRequest("POST", "/api/documents", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	})
}

func TestDocumentHandler_ParseDocument(t *testing.T) {
	docs := &MockDocumentService{
		ParseFunc: func(ctx context.Context, content string) (*domain.ParseResult, error) {
			return &domain.ParseResult{}, nil
		},
	}
	app := setupApp(docs, &MockRenderService{}, nil)

	body, _ := json.Marshal(dto.CreateDocumentRequest{Content: "plain text"})
	req := httptest.NewRequest("POST", "/api/parse", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got dto.ParseResponse
	decode(t, resp.Body, &got)
	assert.True(t, got.Empty)
	assert.Equal(t, dto.NoQuestionsMessage, got.Message)
	assert.NotNil(t, got.Questions)
}

func TestDocumentHandler_GetDocument(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		docs := &MockDocumentService{
			GetDocumentFunc: func(ctx context.Context, id string) (*domain.Document, error) {
				return sampleDocument(), nil
			},
		}
		app := setupApp(docs, &MockRenderService{}, nil)

		resp, err := app.Test(httptest.NewRequest("GET", "/api/documents/"+testDocumentID, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var got dto.DocumentResponse
		decode(t, resp.Body, &got)
		require.Len(t, got.Questions, 1)
		assert.Equal(t, "q1", got.Questions[0].UniqueID)
	})

	t.Run("not found", func(t *testing.T) {
		docs := &MockDocumentService{
			GetDocumentFunc: func(ctx context.Context, id string) (*domain.Document, error) {
				return nil, domain.NewDocumentNotFoundError(id)
			},
		}
		app := setupApp(docs, &MockRenderService{}, nil)

		resp, err := app.Test(httptest.NewRequest("GET", "/api/documents/"+testDocumentID, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

		var got middleware.ErrorResponse
		decode(t, resp.Body, &got)
		assert.Equal(t, string(domain.CodeDocumentNotFound), got.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		app := setupApp(&MockDocumentService{}, &MockRenderService{}, nil)

		resp, err := app.Test(httptest.NewRequest("GET", "/api/documents/not-a-ulid", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestDocumentHandler_DeleteDocument(t *testing.T) {
	deleted := ""
	docs := &MockDocumentService{
		DeleteDocumentFunc: func(ctx context.Context, id string) error {
			if id != testDocumentID {
				return domain.NewDocumentNotFoundError(id)
			}
			deleted = id
			return nil
		},
	}
	app := setupApp(docs, &MockRenderService{}, nil)

	resp, err := app.Test(httptest.NewRequest("DELETE", "/api/documents/"+testDocumentID, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, testDocumentID, deleted)

	resp, err = app.Test(httptest.NewRequest("DELETE", "/api/documents/01HZX3T5Q8W2K9M4N6P7R8S9TW", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestDocumentHandler_ListDocuments(t *testing.T) {
	var gotLimit int
	docs := &MockDocumentService{
		ListDocumentsFunc: func(ctx context.Context, limit int) ([]*domain.Document, error) {
			gotLimit = limit
			return []*domain.Document{sampleDocument()}, nil
		},
	}
	app := setupApp(docs, &MockRenderService{}, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/documents", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, middleware.DefaultListLimit, gotLimit)

	var got dto.DocumentListResponse
	decode(t, resp.Body, &got)
	require.Len(t, got.Documents, 1)
	assert.Equal(t, "de-1.tex", got.Documents[0].Name)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/documents?limit=10", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 10, gotLimit)

	for _, q := range []string{"abc", "0", "1000"} {
		resp, err = app.Test(httptest.NewRequest("GET", "/api/documents?limit="+q, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestDocumentHandler_RenderQuestion(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		renders := &MockRenderService{
			RenderQuestionFunc: func(ctx context.Context, documentID, questionID string) (*service.RenderedQuestion, error) {
				assert.Equal(t, testDocumentID, documentID)
				assert.Equal(t, "q1", questionID)
				return &service.RenderedQuestion{
					DocumentID: documentID,
					QuestionID: questionID,
					Type:       domain.QuestionTypeShortAnswer,
					Content:    []semantic.Node{{Part: semantic.Part{Kind: semantic.KindText, Text: "x"}, HTML: "x"}},
				}, nil
			},
		}
		app := setupApp(&MockDocumentService{}, renders, nil)

		resp, err := app.Test(httptest.NewRequest("GET", "/api/documents/"+testDocumentID+"/questions/q1/render", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var got service.RenderedQuestion
		decode(t, resp.Body, &got)
		assert.Equal(t, "q1", got.QuestionID)
		require.Len(t, got.Content, 1)
	})

	t.Run("question not found", func(t *testing.T) {
		renders := &MockRenderService{
			RenderQuestionFunc: func(ctx context.Context, documentID, questionID string) (*service.RenderedQuestion, error) {
				return nil, domain.NewQuestionNotFoundError(documentID, questionID)
			},
		}
		app := setupApp(&MockDocumentService{}, renders, nil)

		resp, err := app.Test(httptest.NewRequest("GET", "/api/documents/"+testDocumentID+"/questions/nope/render", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}

func TestDocumentHandler_Health(t *testing.T) {
	tests := []struct {
		name   string
		cache  handler.Pinger
		status int
		want   dto.HealthResponse
	}{
		{"no cache", nil, fiber.StatusOK, dto.HealthResponse{Status: "ok", Cache: "disabled"}},
		{"cache up", &MockPinger{}, fiber.StatusOK, dto.HealthResponse{Status: "ok", Cache: "ok"}},
		{"cache down", &MockPinger{Err: errors.New("dial tcp: refused")}, fiber.StatusServiceUnavailable, dto.HealthResponse{Status: "degraded", Cache: "unreachable"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := setupApp(&MockDocumentService{}, &MockRenderService{}, tt.cache)

			resp, err := app.Test(httptest.NewRequest("GET", "/api/health", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			var got dto.HealthResponse
			decode(t, resp.Body, &got)
			assert.Equal(t, tt.want, got)
		})
	}
}
