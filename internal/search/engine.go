// Package search runs DSL and full-text queries against the entity index and resolves hits
// into result rows from storage.
package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/tansaku/internal/discovery"
	"github.com/hyperjump/tansaku/internal/keyword"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/storage"
	"go.uber.org/zap"
)

// Engine implements discovery.StructuredSearcher and discovery.FullTextSearcher.
type Engine struct {
	storage      storage.Storage
	keywordIndex keyword.EntityIndex
	logger       *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a logger for stale index hits and query diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(storage storage.Storage, keywordIndex keyword.EntityIndex, opts ...Option) *Engine {
	e := &Engine{
		storage:      storage,
		keywordIndex: keywordIndex,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SearchDSL parses query, checks its type against the registry, and runs it as a structured
// index query. Every row carries the queried type as its data type.
func (e *Engine) SearchDSL(ctx context.Context, query string, limit, offset int) ([]models.Row, error) {
	q, err := ParseDSL(query)
	if err != nil {
		return nil, err
	}
	if _, err := e.storage.GetType(ctx, q.TypeName); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown type %s", discovery.ErrParse, q.TypeName)
		}
		return nil, fmt.Errorf("%w: type lookup: %v", discovery.ErrExecution, err)
	}

	limit, offset = q.Page(limit, offset)
	if limit == 0 {
		return []models.Row{}, nil
	}

	hits, err := e.keywordIndex.Structured(ctx, q.TypeName, q.Expr, limit, offset)
	if err != nil {
		if errors.Is(err, keyword.ErrQuerySyntax) {
			return nil, fmt.Errorf("%w: %v", discovery.ErrParse, err)
		}
		return nil, fmt.Errorf("%w: %v", discovery.ErrExecution, err)
	}
	rows, err := e.resolve(ctx, hits)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Meta.DataType = q.TypeName
	}
	return rows, nil
}

// SearchFullText matches query against the flattened text of every entity.
func (e *Engine) SearchFullText(ctx context.Context, query string, excludeDeleted bool, limit, offset int) ([]models.Row, error) {
	hits, err := e.keywordIndex.FullText(ctx, query, excludeDeleted, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", discovery.ErrExecution, err)
	}
	return e.resolve(ctx, hits)
}

// resolve loads the entity behind each hit, in hit order. Hits whose entity is gone from
// storage are skipped; the index catches up on the next import.
func (e *Engine) resolve(ctx context.Context, hits []*keyword.Hit) ([]models.Row, error) {
	rows := make([]models.Row, 0, len(hits))
	for _, hit := range hits {
		entity, err := e.storage.GetEntity(ctx, hit.GUID)
		if errors.Is(err, storage.ErrNotFound) {
			e.logger.Warn("index hit without stored entity", zap.String("guid", hit.GUID))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: load entity %s: %v", discovery.ErrExecution, hit.GUID, err)
		}
		rows = append(rows, models.RowFromEntity(entity, hit.Score))
	}
	return rows, nil
}
