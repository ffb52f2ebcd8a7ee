package service

import (
	"context"
	"time"

	"quiz-tex/internal/domain"

	"github.com/stretchr/testify/mock"
)

// --- MockCache ---
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	args := m.Called(ctx, key, dest)
	return args.Error(0)
}

func (m *MockCache) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *MockCache) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- MockDocumentRepository ---
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) SaveDocument(ctx context.Context, doc *domain.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepository) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) ListDocuments(ctx context.Context, limit int) ([]*domain.Document, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) DeleteDocument(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- MockTransactionManager ---
// WithTransaction runs fn unless an error is configured.
type MockTransactionManager struct {
	mock.Mock
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx)
}

// --- MockFigureRenderer ---
type MockFigureRenderer struct {
	mock.Mock
}

func (m *MockFigureRenderer) RenderFigure(ctx context.Context, source string) (string, error) {
	args := m.Called(ctx, source)
	return args.String(0), args.Error(1)
}

// fakeTypesetter wraps tex in <m> or <M> tags.
type fakeTypesetter struct{}

func (fakeTypesetter) Typeset(tex string, display bool, macros map[string]string) (string, error) {
	if display {
		return "<M>" + tex + "</M>", nil
	}
	return "<m>" + tex + "</m>", nil
}
