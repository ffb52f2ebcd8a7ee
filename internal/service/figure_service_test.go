package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"quiz-tex/internal/cache"
	"quiz-tex/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const sampleFigure = `\begin{tikzpicture}\draw (0,0)--(1,1);\end{tikzpicture}`

func TestFigureService_Key(t *testing.T) {
	svc := NewFigureService(nil, nil, 0)

	k := svc.Key(sampleFigure)
	assert.True(t, strings.HasPrefix(k, FigureKeyPrefix))
	assert.Equal(t, k, svc.Key("  "+sampleFigure+"\n"))
	assert.NotEqual(t, k, svc.Key(strings.Replace(sampleFigure, "1,1", "2,2", 1)))
}

func TestFigureService_Render(t *testing.T) {
	ctx := context.Background()
	svc0 := NewFigureService(nil, nil, 0)
	cacheKey := cache.FigureKey(svc0.Key(sampleFigure))

	t.Run("CacheHit", func(t *testing.T) {
		mockCache := new(MockCache)
		renderer := new(MockFigureRenderer)
		svc := NewFigureService(renderer, mockCache, time.Hour)
		mockCache.On("Get", ctx, cacheKey).Return("<svg>cached</svg>", nil).Once()

		fig, err := svc.Render(ctx, sampleFigure)

		require.NoError(t, err)
		assert.True(t, fig.Cached)
		assert.Equal(t, "<svg>cached</svg>", fig.SVG)
		renderer.AssertNotCalled(t, "RenderFigure", mock.Anything, mock.Anything)
	})

	t.Run("CacheMiss", func(t *testing.T) {
		mockCache := new(MockCache)
		renderer := new(MockFigureRenderer)
		svc := NewFigureService(renderer, mockCache, time.Hour)
		mockCache.On("Get", ctx, cacheKey).Return("", domain.ErrCacheMiss).Once()
		renderer.On("RenderFigure", mock.Anything, sampleFigure).Return("<svg/>", nil).Once()
		mockCache.On("Set", mock.Anything, cacheKey, "<svg/>", time.Hour).Return(nil).Once()

		fig, err := svc.Render(ctx, sampleFigure)

		require.NoError(t, err)
		assert.False(t, fig.Cached)
		assert.Equal(t, "<svg/>", fig.SVG)
		mockCache.AssertExpectations(t)
		renderer.AssertExpectations(t)
	})

	t.Run("NoRenderer", func(t *testing.T) {
		svc := NewFigureService(nil, nil, 0)

		_, err := svc.Render(ctx, sampleFigure)

		assert.Equal(t, domain.CodeRenderFailed, domain.CodeOf(err))
		assert.ErrorIs(t, err, ErrNoFigureRenderer)
	})

	t.Run("RendererError", func(t *testing.T) {
		renderer := new(MockFigureRenderer)
		svc := NewFigureService(renderer, nil, 0)
		renderer.On("RenderFigure", mock.Anything, sampleFigure).Return("", errors.New("! Undefined control sequence")).Once()

		_, err := svc.Render(ctx, sampleFigure)

		var de *domain.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, domain.CodeRenderFailed, de.Code)
		assert.Equal(t, svc.Key(sampleFigure), de.Context["figure_key"])
	})
}

type gatedRenderer struct {
	calls   atomic.Int32
	release chan struct{}
}

func (r *gatedRenderer) RenderFigure(ctx context.Context, source string) (string, error) {
	r.calls.Add(1)
	<-r.release
	return "<svg/>", nil
}

func TestFigureService_Render_DeduplicatesConcurrentCalls(t *testing.T) {
	renderer := &gatedRenderer{release: make(chan struct{})}
	svc := NewFigureService(renderer, nil, 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fig, err := svc.Render(context.Background(), sampleFigure)
			assert.NoError(t, err)
			assert.Equal(t, "<svg/>", fig.SVG)
		}()
	}
	time.Sleep(100 * time.Millisecond)
	close(renderer.release)
	wg.Wait()

	assert.Equal(t, int32(1), renderer.calls.Load())
}
