package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// JSON stores V as a JSON text column. NULL, empty and "null" scan to the
// zero value of T.
type JSON[T any] struct {
	V T
}

// Value implements the driver.Valuer interface
func (j JSON[T]) Value() (driver.Value, error) {
	data, err := json.Marshal(j.V)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements the sql.Scanner interface
func (j *JSON[T]) Scan(value interface{}) error {
	var zero T
	if value == nil {
		j.V = zero
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("JSON Scan: unsupported type " + fmt.Sprintf("%T", value))
	}

	if len(raw) == 0 || string(raw) == "null" {
		j.V = zero
		return nil
	}
	return json.Unmarshal(raw, &j.V)
}

// Document is one row of the documents table.
type Document struct {
	ID            string                    `db:"id"`
	Name          string                    `db:"name"`
	ContentHash   string                    `db:"content_hash"`
	Title         sql.NullString            `db:"title"`
	Preamble      sql.NullString            `db:"preamble"`
	Macros        JSON[map[string]MacroRow] `db:"macros"`
	Warnings      JSON[[]WarningRow]        `db:"warnings"`
	QuestionCount int                       `db:"question_count"`
	CreatedAt     time.Time                 `db:"created_at"`
	UpdatedAt     time.Time                 `db:"updated_at"`
}

func (Document) TableName() string {
	return "documents"
}

// MacroRow is the stored form of one preamble macro.
type MacroRow struct {
	Name string `json:"name"`
	Args int    `json:"args"`
	Body string `json:"body"`
}

// WarningRow is the stored form of one parse warning.
type WarningRow struct {
	Offset      int    `json:"offset"`
	Environment string `json:"environment"`
	Message     string `json:"message"`
}

// Question is one row of the questions table. Payload holds the whole
// serialized node; the other columns exist for lookups.
type Question struct {
	DocumentID       string    `db:"document_id"`
	Position         int       `db:"position"`
	ID               string    `db:"id"`
	ClassificationID string    `db:"classification_id"`
	QuestionType     string    `db:"question_type"`
	Payload          string    `db:"payload"`
	CreatedAt        time.Time `db:"created_at"`
}

func (Question) TableName() string {
	return "questions"
}
