// Package keyword provides the Bleve-backed entity index used by DSL and full-text search.
package keyword

import (
	"context"
	"errors"

	"github.com/hyperjump/tansaku/internal/models"
)

// ErrQuerySyntax signals a structured expression that the query-string parser rejected.
var ErrQuerySyntax = errors.New("query syntax error")

// Index field names. Attribute fields are indexed under their own names.
const (
	FieldGUID     = "guid"
	FieldTypeName = "typeName"
	FieldStatus   = "status"
	FieldText     = "text"
)

// EntityIndex defines entity indexing and search operations.
type EntityIndex interface {
	Index(ctx context.Context, entity *models.Entity) error
	Delete(ctx context.Context, guid string) error
	// FullText matches query against the flattened text of every entity.
	FullText(ctx context.Context, query string, excludeDeleted bool, limit, offset int) ([]*Hit, error)
	// Structured returns entities of typeName that satisfy expr (query-string syntax).
	// An empty expr matches every entity of the type.
	Structured(ctx context.Context, typeName, expr string, limit, offset int) ([]*Hit, error)
	// DocCount returns the total number of entities in the index.
	DocCount() (uint64, error)
	Close() error
}

// Hit is a single search hit.
type Hit struct {
	GUID  string
	Score float64
}
