package middleware

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"quiz-tex/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"document not found", domain.NewDocumentNotFoundError("x"), fiber.StatusNotFound, string(domain.CodeDocumentNotFound)},
		{"question not found", domain.NewQuestionNotFoundError("x", "q"), fiber.StatusNotFound, string(domain.CodeQuestionNotFound)},
		{"invalid input", domain.NewInvalidInputError("bad"), fiber.StatusBadRequest, string(domain.CodeInvalidInput)},
		{"invalid rule", domain.NewInvalidRuleError(0, "(", errors.New("missing )")), fiber.StatusBadRequest, string(domain.CodeInvalidRule)},
		{"render failed", domain.NewRenderFailedError(errors.New("exit 1")), fiber.StatusUnprocessableEntity, string(domain.CodeRenderFailed)},
		{"internal", domain.NewInternalError("boom", errors.New("db")), fiber.StatusInternalServerError, string(domain.CodeInternal)},
		{"fiber error", fiber.ErrMethodNotAllowed, fiber.StatusMethodNotAllowed, "HTTP_ERROR"},
		{"unknown error", errors.New("oops"), fiber.StatusInternalServerError, string(domain.CodeInternal)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
			app.Get("/", func(c *fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.status, body.Status)
		})
	}
}

func TestErrorHandler_Details(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	app.Get("/", func(c *fiber.Ctx) error {
		return domain.NewRenderFailedError(errors.New("exit 1")).WithContext("figure_key", "fig_abc")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "fig_abc", body.Details["figure_key"])
}

func TestValidationMiddleware_ValidateListParams(t *testing.T) {
	vm := NewValidationMiddleware()
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	app.Get("/", vm.ValidateListParams(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"limit": c.Locals(LocalLimit)})
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/?limit=abc", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body ValidationErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "limit", body.Errors[0].Field)

	resp, err = app.Test(httptest.NewRequest("GET", "/?limit=5", nil))
	require.NoError(t, err)
	var ok map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ok))
	assert.Equal(t, 5, ok["limit"])
}
