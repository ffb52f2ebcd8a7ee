package handler

import (
	"context"
	"time"

	"quiz-tex/internal/domain"
	"quiz-tex/internal/dto"
	"quiz-tex/internal/logger"
	"quiz-tex/internal/middleware"
	"quiz-tex/internal/service"
	"quiz-tex/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const healthTimeout = 2 * time.Second

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DocumentHandler handles document-related HTTP requests
type DocumentHandler struct {
	docs      service.DocumentService
	renders   service.RenderService
	cache     Pinger
	validator *validation.Validator
}

// NewDocumentHandler creates a new DocumentHandler instance. cache may be
// nil when the service runs without Redis.
func NewDocumentHandler(docs service.DocumentService, renders service.RenderService, cache Pinger) *DocumentHandler {
	return &DocumentHandler{
		docs:      docs,
		renders:   renders,
		cache:     cache,
		validator: validation.NewValidator(),
	}
}

// RegisterRoutes mounts the document API on router.
func (h *DocumentHandler) RegisterRoutes(router fiber.Router, vm *middleware.ValidationMiddleware) {
	router.Get("/health", h.Health)
	router.Post("/parse", h.ParseDocument)
	router.Post("/documents", h.CreateDocument)
	router.Get("/documents", vm.ValidateListParams(), h.ListDocuments)
	router.Get("/documents/:id", vm.ValidateDocumentID(), h.GetDocument)
	router.Delete("/documents/:id", vm.ValidateDocumentID(), h.DeleteDocument)
	router.Get("/documents/:id/questions/:qid/render", vm.ValidateDocumentID(), h.RenderQuestion)
}

// ParseDocument godoc
// @Summary Parse a LaTeX source
// @Description Parses the source and returns its questions without storing them
// @Tags documents
// @Accept json
// @Produce json
// @Param document body dto.CreateDocumentRequest true "LaTeX source"
// @Success 200 {object} dto.ParseResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /parse [post]
func (h *DocumentHandler) ParseDocument(c *fiber.Ctx) error {
	var req dto.CreateDocumentRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("invalid request body")
	}
	if errs := h.validator.ValidateCreateDocument(req.Name, req.Content, false); len(errs) > 0 {
		return errs
	}

	result, err := h.docs.Parse(c.UserContext(), req.Content)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewParseResponse(result))
}

// CreateDocument godoc
// @Summary Import a LaTeX source
// @Description Parses the source and stores it in the question bank
// @Tags documents
// @Accept json
// @Produce json
// @Param document body dto.CreateDocumentRequest true "LaTeX source"
// @Success 201 {object} dto.DocumentResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /documents [post]
func (h *DocumentHandler) CreateDocument(c *fiber.Ctx) error {
	var req dto.CreateDocumentRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("invalid request body")
	}
	if errs := h.validator.ValidateCreateDocument(req.Name, req.Content, true); len(errs) > 0 {
		return errs
	}

	doc, err := h.docs.Import(c.UserContext(), req.Name, req.Content)
	if err != nil {
		return err
	}
	logger.Get().Info("Document imported",
		zap.String("documentID", doc.ID),
		zap.String("name", doc.Name),
		zap.Int("questions", len(doc.Result.Questions)),
	)
	return c.Status(fiber.StatusCreated).JSON(dto.NewDocumentResponse(doc))
}

// ListDocuments godoc
// @Summary List documents
// @Description Returns the most recently updated documents
// @Tags documents
// @Produce json
// @Param limit query int false "Page size (1-200)"
// @Success 200 {object} dto.DocumentListResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /documents [get]
func (h *DocumentHandler) ListDocuments(c *fiber.Ctx) error {
	limit, _ := c.Locals(middleware.LocalLimit).(int)
	docs, err := h.docs.ListDocuments(c.UserContext(), limit)
	if err != nil {
		return err
	}
	resp := dto.DocumentListResponse{Documents: make([]dto.DocumentSummary, 0, len(docs))}
	for _, doc := range docs {
		resp.Documents = append(resp.Documents, dto.NewDocumentSummary(doc))
	}
	return c.JSON(resp)
}

// GetDocument godoc
// @Summary Get a document
// @Description Returns a stored document with its questions
// @Tags documents
// @Produce json
// @Param id path string true "Document ULID"
// @Success 200 {object} dto.DocumentResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /documents/{id} [get]
func (h *DocumentHandler) GetDocument(c *fiber.Ctx) error {
	doc, err := h.docs.GetDocument(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewDocumentResponse(doc))
}

// DeleteDocument godoc
// @Summary Delete a document
// @Description Removes a document and its questions from the question bank
// @Tags documents
// @Param id path string true "Document ULID"
// @Success 204
// @Failure 404 {object} middleware.ErrorResponse
// @Router /documents/{id} [delete]
func (h *DocumentHandler) DeleteDocument(c *fiber.Ctx) error {
	if err := h.docs.DeleteDocument(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RenderQuestion godoc
// @Summary Render a question
// @Description Returns the question as segment trees with typeset math
// @Tags documents
// @Produce json
// @Param id path string true "Document ULID"
// @Param qid path string true "Question unique id"
// @Success 200 {object} service.RenderedQuestion
// @Failure 404 {object} middleware.ErrorResponse
// @Router /documents/{id}/questions/{qid}/render [get]
func (h *DocumentHandler) RenderQuestion(c *fiber.Ctx) error {
	rendered, err := h.renders.RenderQuestion(c.UserContext(), c.Params("id"), c.Params("qid"))
	if err != nil {
		return err
	}
	return c.JSON(rendered)
}

// Health godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Failure 503 {object} dto.HealthResponse
// @Router /health [get]
func (h *DocumentHandler) Health(c *fiber.Ctx) error {
	if h.cache == nil {
		return c.JSON(dto.HealthResponse{Status: "ok", Cache: "disabled"})
	}
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()
	if err := h.cache.Ping(ctx); err != nil {
		logger.Get().Warn("Health check: cache unreachable", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.HealthResponse{Status: "degraded", Cache: "unreachable"})
	}
	return c.JSON(dto.HealthResponse{Status: "ok", Cache: "ok"})
}
