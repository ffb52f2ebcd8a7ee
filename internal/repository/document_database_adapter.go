package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"quiz-tex/internal/domain"
	"quiz-tex/internal/repository/models"
	"quiz-tex/internal/util"

	"github.com/jmoiron/sqlx"
)

const documentColumns = `id "id",
		name "name",
		content_hash "content_hash",
		title "title",
		preamble "preamble",
		macros "macros",
		warnings "warnings",
		question_count "question_count",
		created_at "created_at",
		updated_at "updated_at"`

// DocumentDatabaseAdapter implements domain.DocumentRepository on Oracle.
// Writes go through GetExecutor so callers can group them in a transaction.
type DocumentDatabaseAdapter struct {
	db *sqlx.DB
}

func NewDocumentDatabaseAdapter(db *sqlx.DB) domain.DocumentRepository {
	return &DocumentDatabaseAdapter{db: db}
}

// SaveDocument replaces any stored copy of doc together with its questions.
func (a *DocumentDatabaseAdapter) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if doc == nil {
		return fmt.Errorf("cannot save nil document")
	}
	if err := doc.Validate(); err != nil {
		return err
	}
	exec := GetExecutor(ctx, a.db)

	if err := deleteDocument(ctx, exec, doc.ID); err != nil {
		return err
	}

	row := toModelDocument(doc)
	_, err := exec.ExecContext(ctx, `INSERT INTO documents (
		id, name, content_hash, title, preamble, macros, warnings,
		question_count, created_at, updated_at
	) VALUES (
		:1, :2, :3, :4, :5, :6, :7, :8, :9, :10
	)`,
		row.ID, row.Name, row.ContentHash, row.Title, row.Preamble,
		row.Macros, row.Warnings, row.QuestionCount, row.CreatedAt, row.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document %s: %w", doc.ID, err)
	}

	for i := range doc.Result.Questions {
		q, err := toModelQuestion(doc.ID, i, &doc.Result.Questions[i], row.UpdatedAt)
		if err != nil {
			return err
		}
		_, err = exec.ExecContext(ctx, `INSERT INTO questions (
			document_id, position, id, classification_id, question_type, payload, created_at
		) VALUES (
			:1, :2, :3, :4, :5, :6, :7
		)`,
			q.DocumentID, q.Position, q.ID, q.ClassificationID, q.QuestionType, q.Payload, q.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert question %d of document %s: %w", i, doc.ID, err)
		}
	}
	return nil
}

// GetDocument returns nil, nil when no document has the id.
func (a *DocumentDatabaseAdapter) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	exec := GetExecutor(ctx, a.db)

	var row models.Document
	err := exec.GetContext(ctx, &row, `SELECT `+documentColumns+`
	FROM documents
	WHERE id = :1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}

	var questions []models.Question
	err = exec.SelectContext(ctx, &questions, `SELECT
		document_id "document_id",
		position "position",
		id "id",
		classification_id "classification_id",
		question_type "question_type",
		payload "payload",
		created_at "created_at"
	FROM questions
	WHERE document_id = :1
	ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions of document %s: %w", id, err)
	}

	return toDomainDocument(&row, questions)
}

// ListDocuments returns the most recently updated documents without their
// questions.
func (a *DocumentDatabaseAdapter) ListDocuments(ctx context.Context, limit int) ([]*domain.Document, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.Document
	err := GetExecutor(ctx, a.db).SelectContext(ctx, &rows, `SELECT `+documentColumns+`
	FROM documents
	ORDER BY updated_at DESC
	FETCH FIRST :1 ROWS ONLY`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	docs := make([]*domain.Document, 0, len(rows))
	for i := range rows {
		doc, err := toDomainDocument(&rows[i], nil)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (a *DocumentDatabaseAdapter) DeleteDocument(ctx context.Context, id string) error {
	return deleteDocument(ctx, GetExecutor(ctx, a.db), id)
}

func deleteDocument(ctx context.Context, exec DBTX, id string) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM questions WHERE document_id = :1`, id); err != nil {
		return fmt.Errorf("failed to delete questions of document %s: %w", id, err)
	}
	if _, err := exec.ExecContext(ctx, `DELETE FROM documents WHERE id = :1`, id); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	return nil
}

func toModelDocument(doc *domain.Document) *models.Document {
	macros := make(map[string]models.MacroRow, len(doc.Result.Macros))
	for name, m := range doc.Result.Macros {
		macros[name] = models.MacroRow{Name: m.Name, Args: m.Args, Body: m.Body}
	}
	warnings := make([]models.WarningRow, 0, len(doc.Result.Warnings))
	for _, w := range doc.Result.Warnings {
		warnings = append(warnings, models.WarningRow{Offset: w.Offset, Environment: w.Environment, Message: w.Message})
	}
	return &models.Document{
		ID:            doc.ID,
		Name:          doc.Name,
		ContentHash:   doc.ContentHash,
		Title:         util.StringToNullString(doc.Result.Title),
		Preamble:      util.StringToNullString(doc.Result.Preamble),
		Macros:        models.JSON[map[string]models.MacroRow]{V: macros},
		Warnings:      models.JSON[[]models.WarningRow]{V: warnings},
		QuestionCount: len(doc.Result.Questions),
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
}

func toModelQuestion(documentID string, position int, q *domain.QuestionNode, createdAt time.Time) (*models.Question, error) {
	payload, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("failed to encode question %s: %w", q.UniqueID, err)
	}
	return &models.Question{
		DocumentID:       documentID,
		Position:         position,
		ID:               q.UniqueID,
		ClassificationID: q.ClassificationID,
		QuestionType:     string(q.Type),
		Payload:          string(payload),
		CreatedAt:        createdAt,
	}, nil
}

func toDomainDocument(row *models.Document, questions []models.Question) (*domain.Document, error) {
	result := domain.ParseResult{
		Title:     row.Title.String,
		Preamble:  row.Preamble.String,
		Questions: make([]domain.QuestionNode, 0, len(questions)),
	}
	if len(row.Macros.V) > 0 {
		result.Macros = make(domain.MacroTable, len(row.Macros.V))
		for name, m := range row.Macros.V {
			result.Macros[name] = domain.Macro{Name: m.Name, Args: m.Args, Body: m.Body}
		}
	}
	for _, w := range row.Warnings.V {
		result.Warnings = append(result.Warnings, domain.ParseWarning{Offset: w.Offset, Environment: w.Environment, Message: w.Message})
	}
	for _, q := range questions {
		var node domain.QuestionNode
		if err := json.Unmarshal([]byte(q.Payload), &node); err != nil {
			return nil, fmt.Errorf("failed to decode question %d of document %s: %w", q.Position, row.ID, err)
		}
		result.Questions = append(result.Questions, node)
	}

	return &domain.Document{
		ID:            row.ID,
		Name:          row.Name,
		ContentHash:   row.ContentHash,
		Result:        result,
		QuestionCount: row.QuestionCount,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}, nil
}
