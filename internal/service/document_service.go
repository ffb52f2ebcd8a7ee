package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"quiz-tex/internal/cache"
	"quiz-tex/internal/domain"
	"quiz-tex/internal/latex"
	"quiz-tex/internal/logger"
	"quiz-tex/internal/parser"
	"quiz-tex/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultDocumentTTL is used when no cache expiration is configured.
const DefaultDocumentTTL = 24 * time.Hour

// DocumentService parses documents and keeps them in the question bank.
type DocumentService interface {
	// Parse returns the parse result for content, from cache when possible.
	Parse(ctx context.Context, content string) (*domain.ParseResult, error)
	// Import parses content and stores it as a new document.
	Import(ctx context.Context, name, content string) (*domain.Document, error)
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
	ListDocuments(ctx context.Context, limit int) ([]*domain.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	// ReloadFile reparses a file on disk. Repeated reloads of one path keep
	// its document id; unchanged content is not parsed or saved again.
	ReloadFile(ctx context.Context, path string) (*domain.Document, error)
	// SetRules swaps the replacement rules used by later parses.
	SetRules(rules *latex.RuleSet)
}

// DocumentServiceConfig holds the document service settings.
type DocumentServiceConfig struct {
	Parser   parser.Config
	CacheTTL time.Duration
}

type trackedFile struct {
	doc         *domain.Document
	fingerprint string
}

type documentService struct {
	repo  domain.DocumentRepository
	tx    domain.TransactionManager
	cache domain.Cache
	cfg   DocumentServiceConfig
	rules atomic.Pointer[latex.RuleSet]
	group singleflight.Group

	mu    sync.Mutex
	files map[string]trackedFile
}

// NewDocumentService creates a DocumentService. repo, tx and cache may be
// nil: without repo documents are parsed but not stored, and without cache
// every call parses.
func NewDocumentService(
	repo domain.DocumentRepository,
	tx domain.TransactionManager,
	cache domain.Cache,
	rules *latex.RuleSet,
	cfg DocumentServiceConfig,
) DocumentService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultDocumentTTL
	}
	if cfg.Parser.HeaderWindow <= 0 {
		cfg.Parser = parser.DefaultConfig()
	}
	s := &documentService{
		repo:  repo,
		tx:    tx,
		cache: cache,
		cfg:   cfg,
		files: make(map[string]trackedFile),
	}
	s.rules.Store(rules)
	return s
}

func (s *documentService) SetRules(rules *latex.RuleSet) {
	s.rules.Store(rules)
	logger.Get().Info("Replacement rules updated",
		zap.Int("rules", rules.Len()),
		zap.String("fingerprint", rules.Fingerprint()))
}

func (s *documentService) Parse(ctx context.Context, content string) (*domain.ParseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rules := s.rules.Load()
	key := cache.DocumentKey(cache.ContentHash(content), rules.Fingerprint())

	if s.cache != nil {
		var cached domain.ParseResult
		err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil {
			logger.Get().Debug("DocumentService: parse cache hit", zap.String("cacheKey", key))
			return &cached, nil
		}
		if !errors.Is(err, domain.ErrCacheMiss) {
			logger.Get().Warn("DocumentService: parse cache read failed, parsing anyway",
				zap.String("cacheKey", key), zap.Error(err))
		}
	}

	res, err, shared := s.group.Do(key, func() (interface{}, error) {
		p := parser.New(
			parser.WithRules(rules),
			parser.WithConfig(s.cfg.Parser),
			parser.WithLogger(logger.Get()),
		)
		result := p.Parse(content)
		if s.cache != nil {
			if err := s.cache.SetJSON(context.WithoutCancel(ctx), key, result, s.cfg.CacheTTL); err != nil {
				logger.Get().Warn("DocumentService: failed to cache parse result",
					zap.String("cacheKey", key), zap.Error(err))
			}
		}
		return &result, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Get().Debug("DocumentService: shared in-flight parse", zap.String("cacheKey", key))
	}
	result, ok := res.(*domain.ParseResult)
	if !ok {
		return nil, fmt.Errorf("unexpected type from singleflight.Do for parse: %T", res)
	}
	out := *result
	return &out, nil
}

func (s *documentService) Import(ctx context.Context, name, content string) (*domain.Document, error) {
	if name == "" {
		return nil, domain.NewInvalidInputError("document name is required")
	}
	if content == "" {
		return nil, domain.NewInvalidInputError("document content is required")
	}
	return s.store(ctx, util.NewULID(), name, content)
}

func (s *documentService) store(ctx context.Context, id, name, content string) (*domain.Document, error) {
	result, err := s.Parse(ctx, content)
	if err != nil {
		return nil, domain.NewInternalError("Failed to parse document", err)
	}

	doc := domain.NewDocument(id, name, cache.ContentHash(content), *result)
	if s.repo != nil {
		persist := func(ctx context.Context) error {
			return s.repo.SaveDocument(ctx, doc)
		}
		if s.tx != nil {
			err = s.tx.WithTransaction(ctx, persist)
		} else {
			err = persist(ctx)
		}
		if err != nil {
			return nil, domain.NewInternalError("Failed to save document", err)
		}
	}

	fields := []zap.Field{
		zap.String("documentID", doc.ID),
		zap.String("name", name),
		zap.Int("questions", len(result.Questions)),
		zap.Int("warnings", len(result.Warnings)),
	}
	if result.Empty() {
		logger.Get().Warn("DocumentService: document has no questions",
			append(fields, zap.Error(domain.NewNoQuestionsError(name)))...)
	} else {
		logger.Get().Info("DocumentService: document stored", fields...)
	}
	return doc, nil
}

func (s *documentService) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	if s.repo == nil {
		return nil, domain.NewInternalError("Question bank is not configured", nil)
	}
	doc, err := s.repo.GetDocument(ctx, id)
	if err != nil {
		return nil, domain.NewInternalError("Failed to load document", err)
	}
	if doc == nil {
		return nil, domain.NewDocumentNotFoundError(id)
	}
	return doc, nil
}

func (s *documentService) ListDocuments(ctx context.Context, limit int) ([]*domain.Document, error) {
	if s.repo == nil {
		return nil, domain.NewInternalError("Question bank is not configured", nil)
	}
	docs, err := s.repo.ListDocuments(ctx, limit)
	if err != nil {
		return nil, domain.NewInternalError("Failed to list documents", err)
	}
	return docs, nil
}

func (s *documentService) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.GetDocument(ctx, id); err != nil {
		return err
	}
	remove := func(ctx context.Context) error {
		return s.repo.DeleteDocument(ctx, id)
	}
	var err error
	if s.tx != nil {
		err = s.tx.WithTransaction(ctx, remove)
	} else {
		err = remove(ctx)
	}
	if err != nil {
		return domain.NewInternalError("Failed to delete document", err)
	}

	s.mu.Lock()
	for path, tracked := range s.files {
		if tracked.doc.ID == id {
			delete(s.files, path)
		}
	}
	s.mu.Unlock()

	logger.Get().Info("DocumentService: document deleted", zap.String("documentID", id))
	return nil
}

func (s *documentService) ReloadFile(ctx context.Context, path string) (*domain.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, domain.NewInvalidInputError(fmt.Sprintf("invalid path %q", path))
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, domain.NewInternalError("Failed to read document file", err).WithContext("path", abs)
	}
	content := string(data)
	fingerprint := cache.ContentHash(content) + ":" + s.rules.Load().Fingerprint()

	s.mu.Lock()
	tracked, seen := s.files[abs]
	s.mu.Unlock()

	if seen && tracked.fingerprint == fingerprint {
		logger.Get().Debug("DocumentService: file unchanged, skipping reparse", zap.String("path", abs))
		return tracked.doc, nil
	}

	id := util.NewULID()
	if seen {
		id = tracked.doc.ID
	}
	doc, err := s.store(ctx, id, filepath.Base(abs), content)
	if err != nil {
		return nil, err
	}
	if seen {
		doc.CreatedAt = tracked.doc.CreatedAt
	}

	s.mu.Lock()
	s.files[abs] = trackedFile{doc: doc, fingerprint: fingerprint}
	s.mu.Unlock()
	return doc, nil
}
