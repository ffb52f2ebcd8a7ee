package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"quiz-tex/internal/cache"
	"quiz-tex/internal/domain"
	"quiz-tex/internal/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultFigureTTL is used when no cache expiration is configured.
const DefaultFigureTTL = 7 * 24 * time.Hour

// FigureKeyPrefix starts every figure key.
const FigureKeyPrefix = "fig_"

// ErrNoFigureRenderer is wrapped by Render when figures cannot be rendered.
var ErrNoFigureRenderer = errors.New("no figure renderer configured")

// Figure is a rendered TikZ picture.
type Figure struct {
	Key    string `json:"key"`
	SVG    string `json:"svg"`
	Cached bool   `json:"cached"`
}

// FigureService renders TikZ figures once per distinct source.
type FigureService interface {
	// Key derives a stable identifier from the figure source. Surrounding
	// whitespace does not change the key.
	Key(source string) string
	Render(ctx context.Context, source string) (*Figure, error)
}

type figureService struct {
	renderer domain.FigureRenderer
	cache    domain.Cache
	ttl      time.Duration
	group    singleflight.Group
}

// NewFigureService creates a FigureService. renderer and cache may be nil.
func NewFigureService(renderer domain.FigureRenderer, cache domain.Cache, ttl time.Duration) FigureService {
	if ttl <= 0 {
		ttl = DefaultFigureTTL
	}
	return &figureService{renderer: renderer, cache: cache, ttl: ttl}
}

func (s *figureService) Key(source string) string {
	return FigureKeyPrefix + cache.ContentHash(strings.TrimSpace(source))
}

func (s *figureService) Render(ctx context.Context, source string) (*Figure, error) {
	key := s.Key(source)
	cacheKey := cache.FigureKey(key)

	if s.cache != nil {
		svg, err := s.cache.Get(ctx, cacheKey)
		if err == nil {
			return &Figure{Key: key, SVG: svg, Cached: true}, nil
		}
		if !errors.Is(err, domain.ErrCacheMiss) {
			logger.Get().Warn("FigureService: cache read failed", zap.String("cacheKey", cacheKey), zap.Error(err))
		}
	}

	if s.renderer == nil {
		return nil, domain.NewRenderFailedError(ErrNoFigureRenderer).WithContext("figure_key", key)
	}

	res, err, _ := s.group.Do(key, func() (interface{}, error) {
		svg, err := s.renderer.RenderFigure(context.WithoutCancel(ctx), source)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Set(context.WithoutCancel(ctx), cacheKey, svg, s.ttl); err != nil {
				logger.Get().Warn("FigureService: failed to cache figure", zap.String("cacheKey", cacheKey), zap.Error(err))
			}
		}
		return svg, nil
	})
	if err != nil {
		logger.Get().Error("FigureService: render failed", zap.String("figureKey", key), zap.Error(err))
		return nil, domain.NewRenderFailedError(err).WithContext("figure_key", key)
	}
	svg, ok := res.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected type from singleflight.Do for figure: %T", res)
	}
	return &Figure{Key: key, SVG: svg}, nil
}
