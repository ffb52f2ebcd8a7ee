package middleware

import (
	"strconv"

	"quiz-tex/internal/domain"
	"quiz-tex/internal/validation"

	"github.com/gofiber/fiber/v2"
)

const (
	LocalDocumentID = "validated_document_id"
	LocalLimit      = "validated_limit"

	DefaultListLimit = 50
)

// ValidationMiddleware provides request validation middleware
type ValidationMiddleware struct {
	validator *validation.Validator
}

// NewValidationMiddleware creates a new validation middleware instance
func NewValidationMiddleware() *ValidationMiddleware {
	return &ValidationMiddleware{
		validator: validation.NewValidator(),
	}
}

// ValidateDocumentID validates the :id path parameter.
func (vm *ValidationMiddleware) ValidateDocumentID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if errors := vm.validator.ValidateDocumentID(id); len(errors) > 0 {
			return errors // This will be handled by ErrorHandler middleware
		}
		c.Locals(LocalDocumentID, id)
		return c.Next()
	}
}

// ValidateListParams validates the limit query parameter of list requests.
func (vm *ValidationMiddleware) ValidateListParams() fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := DefaultListLimit
		if limitStr := c.Query("limit"); limitStr != "" {
			parsed, err := strconv.Atoi(limitStr)
			if err != nil {
				return domain.ValidationErrors{
					domain.NewInvalidFormatError("limit", limitStr),
				}
			}
			limit = parsed
		}

		if errors := vm.validator.ValidateLimit(limit); len(errors) > 0 {
			return errors
		}

		c.Locals(LocalLimit, limit)
		return c.Next()
	}
}
