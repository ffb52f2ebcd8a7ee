package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a specific type of error in the domain
type ErrorCode string

const (
	// Common errors
	CodeInternal     ErrorCode = "INTERNAL_ERROR"
	CodeInvalidInput ErrorCode = "INVALID_INPUT"
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeValidation   ErrorCode = "VALIDATION_ERROR"

	// Document specific errors
	CodeDocumentNotFound ErrorCode = "DOCUMENT_NOT_FOUND"
	CodeQuestionNotFound ErrorCode = "QUESTION_NOT_FOUND"
	CodeInvalidRule      ErrorCode = "INVALID_RULE"
	CodeRenderFailed     ErrorCode = "RENDER_FAILED"
	CodeNoQuestions      ErrorCode = "NO_QUESTIONS"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Err     error                  `json:"-"`
	Context map[string]interface{} `json:"-"`
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements the json.Marshaler interface
func (e *DomainError) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}{
		Code:    string(e.Code),
		Message: e.Message,
	})
}

// WithContext attaches a detail that the HTTP layer returns to the client.
func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewError creates a new DomainError
func NewError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewInvalidInputError(message string) *DomainError {
	return NewError(CodeInvalidInput, message, nil)
}

func NewInternalError(message string, err error) *DomainError {
	return NewError(CodeInternal, message, err)
}

func NewDocumentNotFoundError(id string) *DomainError {
	return NewError(CodeDocumentNotFound, fmt.Sprintf("Document not found with ID: %s", id), nil)
}

func NewQuestionNotFoundError(documentID, questionID string) *DomainError {
	return NewError(CodeQuestionNotFound, fmt.Sprintf("Question %s not found in document %s", questionID, documentID), nil)
}

func NewInvalidRuleError(index int, pattern string, err error) *DomainError {
	return NewError(CodeInvalidRule, fmt.Sprintf("Invalid replacement rule #%d (%s)", index, pattern), err).
		WithContext("rule_index", index)
}

// NewNoQuestionsError is informational; callers report it alongside a
// successful empty parse.
func NewNoQuestionsError(name string) *DomainError {
	return NewError(CodeNoQuestions, fmt.Sprintf("No questions found in %s", name), nil)
}

func NewRenderFailedError(err error) *DomainError {
	return NewError(CodeRenderFailed, "Failed to render content", err)
}

// CodeOf returns the code of the first DomainError in err's chain.
func CodeOf(err error) ErrorCode {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ValidationError is a single field-level validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) error {
	return ValidationError{Field: field, Message: message}
}

func NewMissingFieldError(field string) ValidationError {
	return ValidationError{Field: field, Message: "field is required"}
}

func NewInvalidFormatError(field, value string) ValidationError {
	return ValidationError{Field: field, Message: fmt.Sprintf("invalid format: %q", value)}
}

func NewOutOfRangeError(field string, value, min, max int) ValidationError {
	return ValidationError{Field: field, Message: fmt.Sprintf("value %d out of range [%d, %d]", value, min, max)}
}

// ValidationErrors collects field errors for one request.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}
