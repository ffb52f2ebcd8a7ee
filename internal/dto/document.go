package dto

import (
	"time"

	"quiz-tex/internal/domain"
)

// CreateDocumentRequest is the body of POST /api/documents and POST /api/parse.
// @Description LaTeX source to parse
type CreateDocumentRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// DocumentSummary describes a stored document without its questions.
type DocumentSummary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	ContentHash   string    `json:"content_hash"`
	Title         string    `json:"title,omitempty"`
	QuestionCount int       `json:"question_count"`
	WarningCount  int       `json:"warning_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DocumentResponse is a document with its parsed questions.
// @Description Parsed document
type DocumentResponse struct {
	DocumentSummary
	// Empty is true when the source yielded no question nodes.
	Empty     bool                  `json:"empty"`
	Message   string                `json:"message,omitempty"`
	Preamble  string                `json:"preamble,omitempty"`
	Macros    []string              `json:"macros"`
	Questions []domain.QuestionNode `json:"questions"`
	Warnings  []domain.ParseWarning `json:"warnings"`
}

// ParseResponse is the result of a parse that is not stored.
type ParseResponse struct {
	Title     string                `json:"title,omitempty"`
	Empty     bool                  `json:"empty"`
	Message   string                `json:"message,omitempty"`
	Macros    []string              `json:"macros"`
	Questions []domain.QuestionNode `json:"questions"`
	Warnings  []domain.ParseWarning `json:"warnings"`
}

type DocumentListResponse struct {
	Documents []DocumentSummary `json:"documents"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Cache  string `json:"cache"`
}

// NoQuestionsMessage accompanies an empty parse.
const NoQuestionsMessage = "no questions found"

func NewDocumentSummary(doc *domain.Document) DocumentSummary {
	count := doc.QuestionCount
	if n := len(doc.Result.Questions); n > count {
		count = n
	}
	return DocumentSummary{
		ID:            doc.ID,
		Name:          doc.Name,
		ContentHash:   doc.ContentHash,
		Title:         doc.Result.Title,
		QuestionCount: count,
		WarningCount:  len(doc.Result.Warnings),
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
}

func NewDocumentResponse(doc *domain.Document) *DocumentResponse {
	resp := &DocumentResponse{
		DocumentSummary: NewDocumentSummary(doc),
		Empty:           doc.Result.Empty(),
		Preamble:        doc.Result.Preamble,
		Macros:          doc.Result.Macros.Names(),
		Questions:       nonNilQuestions(doc.Result.Questions),
		Warnings:        nonNilWarnings(doc.Result.Warnings),
	}
	if resp.Empty {
		resp.Message = NoQuestionsMessage
	}
	return resp
}

func NewParseResponse(result *domain.ParseResult) *ParseResponse {
	resp := &ParseResponse{
		Title:     result.Title,
		Empty:     result.Empty(),
		Macros:    result.Macros.Names(),
		Questions: nonNilQuestions(result.Questions),
		Warnings:  nonNilWarnings(result.Warnings),
	}
	if resp.Empty {
		resp.Message = NoQuestionsMessage
	}
	return resp
}

func nonNilQuestions(q []domain.QuestionNode) []domain.QuestionNode {
	if q == nil {
		return []domain.QuestionNode{}
	}
	return q
}

func nonNilWarnings(w []domain.ParseWarning) []domain.ParseWarning {
	if w == nil {
		return []domain.ParseWarning{}
	}
	return w
}
