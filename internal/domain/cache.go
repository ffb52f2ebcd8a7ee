package domain

import (
	"context"
	"time"
)

// CacheError represents an error originating from the cache.
type CacheError string

func (e CacheError) Error() string {
	return string(e)
}

// ErrCacheMiss is returned when a key is not found in the cache.
const ErrCacheMiss = CacheError("cache: key not found")

// Cache is the port for the parse and figure caches. Keys are derived
// deterministically from source text, so concurrent writers agree on them.
type Cache interface {
	// Get returns ErrCacheMiss if the key is not found.
	Get(ctx context.Context, key string) (string, error)

	// Set overwrites any existing value. An expiration of 0 keeps the item indefinitely.
	Set(ctx context.Context, key string, value string, expiration time.Duration) error

	// Delete must not fail when the key is absent.
	Delete(ctx context.Context, key string) error

	// GetJSON decodes a cached JSON value into dest.
	GetJSON(ctx context.Context, key string, dest interface{}) error

	// SetJSON encodes value as JSON and stores it.
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error

	Ping(ctx context.Context) error
}

// DocumentRepository persists parsed documents and their nodes.
type DocumentRepository interface {
	SaveDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, id string) (*Document, error)
	ListDocuments(ctx context.Context, limit int) ([]*Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

// FigureRenderer turns TikZ source into a rendered figure (SVG markup).
type FigureRenderer interface {
	RenderFigure(ctx context.Context, source string) (string, error)
}

// TransactionManager runs fn inside a single database transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
