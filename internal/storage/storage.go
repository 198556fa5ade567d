// Package storage defines the persistence interface for catalog types and entities.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/tansaku/internal/models"
)

// ErrNotFound signals a missing type, entity, or import source.
var ErrNotFound = errors.New("not found")

// Storage defines type, entity, and import-source persistence operations.
type Storage interface {
	// Type operations
	CreateType(ctx context.Context, def *models.TypeDef) error
	GetType(ctx context.Context, name string) (*models.TypeDef, error)
	ListTypes(ctx context.Context) ([]*models.TypeDef, error)

	// Entity operations
	CreateEntity(ctx context.Context, entity *models.Entity) error
	GetEntity(ctx context.Context, guid string) (*models.Entity, error)
	UpdateEntity(ctx context.Context, entity *models.Entity) error
	// DeleteEntity marks an entity DELETED; PurgeEntity removes it.
	DeleteEntity(ctx context.Context, guid string) error
	PurgeEntity(ctx context.Context, guid string) error
	ListEntities(ctx context.Context, offset, limit int) ([]*models.Entity, error)
	ListEntitiesBySource(ctx context.Context, sourcePath string) ([]*models.Entity, error)

	// Import source operations
	GetSource(ctx context.Context, path string) (*models.Source, error)
	PutSource(ctx context.Context, src *models.Source) error
	DeleteSource(ctx context.Context, path string) error

	// Stats
	CountEntities(ctx context.Context) (int64, error)
	CountTypes(ctx context.Context) (int64, error)

	Close() error
}
