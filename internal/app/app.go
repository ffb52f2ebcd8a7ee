// Package app wires configuration, storage and services together for the
// API server and the command-line tool.
package app

import (
	"errors"
	"fmt"

	"quiz-tex/internal/adapter"
	"quiz-tex/internal/cache"
	"quiz-tex/internal/config"
	"quiz-tex/internal/database"
	"quiz-tex/internal/domain"
	"quiz-tex/internal/latex"
	"quiz-tex/internal/logger"
	"quiz-tex/internal/parser"
	"quiz-tex/internal/render"
	"quiz-tex/internal/repository"
	"quiz-tex/internal/service"

	"go.uber.org/zap"
)

// Options selects the optional backends.
type Options struct {
	// UseCache connects to Redis. A connection failure is logged and the
	// app continues without a cache.
	UseCache bool
	// RequireDatabase makes a missing or unreachable question bank an error.
	// Otherwise the database is used only when it is configured.
	RequireDatabase bool
	// SkipDatabase never opens the question bank.
	SkipDatabase bool
}

// App holds the wired services.
type App struct {
	Config    *config.Config
	Cache     domain.Cache
	Documents service.DocumentService
	Figures   service.FigureService
	Renders   service.RenderService

	closers []func() error
}

// New builds an App from cfg.
func New(cfg *config.Config, opts Options) (*App, error) {
	log := logger.Get()
	a := &App{Config: cfg}

	rules, err := LoadRules(cfg.Parser.RulesFile)
	if err != nil {
		return nil, err
	}

	if opts.UseCache {
		client, err := cache.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, continuing without cache", zap.Error(err))
		} else {
			log.Info("Successfully connected to Redis", zap.String("address", cfg.Redis.Address))
			a.Cache = adapter.NewRedisCacheAdapter(client)
			a.closers = append(a.closers, client.Close)
		}
	}

	var (
		repo domain.DocumentRepository
		tx   domain.TransactionManager
	)
	switch {
	case opts.SkipDatabase:
	case cfg.DBConfigured():
		db, err := database.NewSQLXOracleDB(cfg.GetDSN())
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		repo = repository.NewDocumentDatabaseAdapter(db)
		tx = repository.NewTransactionManagerAdapter(db)
	case opts.RequireDatabase:
		a.Close()
		return nil, errors.New("database is not configured: set db.host and db.user")
	default:
		log.Info("Database not configured, documents will not be stored")
	}

	a.Documents = service.NewDocumentService(repo, tx, a.Cache, rules, service.DocumentServiceConfig{
		Parser:   parser.Config{HeaderWindow: cfg.Parser.HeaderWindow},
		CacheTTL: cfg.CacheTTLs.Document,
	})
	a.Figures = service.NewFigureService(adapter.NewExecFigureRenderer(cfg.Figure), a.Cache, cfg.CacheTTLs.Figure)
	a.Renders = service.NewRenderService(a.Documents, render.New(nil, log), a.Figures)
	return a, nil
}

// LoadRules reads the replacement-rule file. Rules that fail to compile are
// logged and skipped; an unreadable file is an error.
func LoadRules(path string) (*latex.RuleSet, error) {
	if path == "" {
		return &latex.RuleSet{}, nil
	}
	rules, ruleErrs, err := latex.LoadRules(path)
	if err != nil {
		return nil, err
	}
	for _, ruleErr := range ruleErrs {
		logger.Get().Warn("Replacement rule skipped", zap.String("file", path), zap.Error(invalidRule(ruleErr)))
	}
	logger.Get().Info("Replacement rules loaded", zap.String("file", path), zap.Int("rules", rules.Len()))
	return rules, nil
}

func invalidRule(err error) error {
	var re *latex.RuleError
	if errors.As(err, &re) {
		return domain.NewInvalidRuleError(re.Index, re.Pattern, re.Err)
	}
	return err
}

// ReloadRules rereads the configured rule file and swaps it into the
// document service. The old rules stay in place on error.
func (a *App) ReloadRules() error {
	rules, err := LoadRules(a.Config.Parser.RulesFile)
	if err != nil {
		return err
	}
	a.Documents.SetRules(rules)
	return nil
}

// Close releases the backends in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
