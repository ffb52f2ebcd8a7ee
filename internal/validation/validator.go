package validation

import (
	"strings"
	"unicode/utf8"

	"quiz-tex/internal/domain"
	"quiz-tex/internal/util"
)

const (
	MaxNameLength    = 255
	MaxContentLength = 5 << 20
	MaxListLimit     = 200
)

// Validator provides request validation functionality
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateCreateDocument validates an upload. requireName is false for
// parse-only requests, which store nothing.
func (v *Validator) ValidateCreateDocument(name, content string, requireName bool) domain.ValidationErrors {
	var errors domain.ValidationErrors

	switch {
	case strings.TrimSpace(name) == "":
		if requireName {
			errors = append(errors, domain.NewMissingFieldError("name"))
		}
	case utf8.RuneCountInString(name) > MaxNameLength:
		errors = append(errors, domain.NewOutOfRangeError("name", utf8.RuneCountInString(name), 1, MaxNameLength))
	case strings.ContainsAny(name, "/\\\x00"):
		errors = append(errors, domain.NewInvalidFormatError("name", name))
	}

	if strings.TrimSpace(content) == "" {
		errors = append(errors, domain.NewMissingFieldError("content"))
	} else if len(content) > MaxContentLength {
		errors = append(errors, domain.NewOutOfRangeError("content", len(content), 1, MaxContentLength))
	} else if !utf8.ValidString(content) {
		errors = append(errors, domain.ValidationError{Field: "content", Message: "content must be valid UTF-8"})
	}

	return errors
}

// ValidateDocumentID checks that id is a ULID.
func (v *Validator) ValidateDocumentID(id string) domain.ValidationErrors {
	if strings.TrimSpace(id) == "" {
		return domain.ValidationErrors{domain.NewMissingFieldError("id")}
	}
	if !util.IsULID(id) {
		return domain.ValidationErrors{domain.NewInvalidFormatError("id", id)}
	}
	return nil
}

// ValidateLimit checks a list page size.
func (v *Validator) ValidateLimit(limit int) domain.ValidationErrors {
	if limit < 1 || limit > MaxListLimit {
		return domain.ValidationErrors{domain.NewOutOfRangeError("limit", limit, 1, MaxListLimit)}
	}
	return nil
}
