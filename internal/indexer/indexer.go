// Package indexer writes catalog entities into storage and the keyword index, and imports
// entity files.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/hyperjump/tansaku/internal/extract"
	"github.com/hyperjump/tansaku/internal/fileid"
	"github.com/hyperjump/tansaku/internal/keyword"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/storage"
	"go.uber.org/zap"
)

// Indexer indexes entities into storage and the keyword index.
type Indexer struct {
	storage      storage.Storage
	keywordIndex keyword.EntityIndex
	extractor    *extract.Extractor
	logger       *zap.Logger // optional; when set, logs debug events
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output (file imported, entity deleted, etc.).
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates an indexer with the given dependencies.
// extractor may be nil; when nil, a default extractor is used for imports.
func NewIndexer(
	storage storage.Storage,
	keywordIndex keyword.EntityIndex,
	extractor *extract.Extractor,
	opts ...IndexerOption,
) *Indexer {
	if extractor == nil {
		extractor = extract.NewExtractor()
	}
	idx := &Indexer{
		storage:      storage,
		keywordIndex: keywordIndex,
		extractor:    extractor,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// RegisterType registers def so DSL queries may address it. Registering a known name is a no-op.
func (idx *Indexer) RegisterType(ctx context.Context, def *models.TypeDef) error {
	if strings.TrimSpace(def.Name) == "" {
		return fmt.Errorf("type name is required")
	}
	if !models.ValidTypeName(def.Name) {
		return fmt.Errorf("%w: %q", models.ErrInvalidTypeName, def.Name)
	}
	if err := idx.storage.CreateType(ctx, def); err != nil {
		return fmt.Errorf("failed to register type %s: %w", def.Name, err)
	}
	return nil
}

// IndexEntity stores and indexes an entity, replacing any entity with the same GUID.
// When input has no GUID, one is derived from typeName and qualifiedName, or generated.
func (idx *Indexer) IndexEntity(ctx context.Context, input *models.EntityInput) (*models.Entity, error) {
	return idx.indexEntity(ctx, input, "", "")
}

func (idx *Indexer) indexEntity(ctx context.Context, input *models.EntityInput, sourcePath, sourceKey string) (*models.Entity, error) {
	if strings.TrimSpace(input.TypeName) == "" {
		return nil, fmt.Errorf("typeName is required")
	}
	if !models.ValidTypeName(input.TypeName) {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidTypeName, input.TypeName)
	}
	status := input.Status
	if status == "" {
		status = models.StatusActive
	}
	if status != models.StatusActive && status != models.StatusDeleted {
		return nil, fmt.Errorf("unknown status %q", status)
	}
	entity := &models.Entity{
		GUID:       input.GUID,
		TypeName:   input.TypeName,
		Status:     status,
		Attributes: PreprocessAttributes(input.Attributes),
		SourcePath: sourcePath,
	}
	if entity.GUID == "" {
		entity.GUID = resolveGUID(entity, sourcePath, sourceKey)
	}

	if err := idx.storage.CreateType(ctx, &models.TypeDef{Name: entity.TypeName}); err != nil {
		return nil, fmt.Errorf("failed to register type: %w", err)
	}
	existing, err := idx.storage.GetEntity(ctx, entity.GUID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		if err := idx.storage.CreateEntity(ctx, entity); err != nil {
			return nil, fmt.Errorf("failed to store entity: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to load entity: %w", err)
	default:
		entity.CreatedAt = existing.CreatedAt
		if err := idx.storage.UpdateEntity(ctx, entity); err != nil {
			return nil, fmt.Errorf("failed to update entity: %w", err)
		}
	}
	if err := idx.keywordIndex.Index(ctx, entity); err != nil {
		return nil, fmt.Errorf("failed to index keywords: %w", err)
	}
	return entity, nil
}

// resolveGUID prefers a name-based GUID so re-importing the same record updates it in place.
func resolveGUID(e *models.Entity, sourcePath, sourceKey string) string {
	if qn := e.QualifiedName(); qn != "" {
		return fileid.EntityGUID(e.TypeName, qn)
	}
	if sourcePath != "" {
		return fileid.SourceGUID(sourcePath, sourceKey)
	}
	return uuid.New().String()
}

// DeleteEntity marks an entity DELETED in storage and re-indexes it, so full-text search
// still finds it unless deleted entities are excluded.
func (idx *Indexer) DeleteEntity(ctx context.Context, guid string) error {
	if idx.logger != nil {
		idx.logger.Debug("indexer deleting entity", zap.String("guid", guid))
	}
	if err := idx.storage.DeleteEntity(ctx, guid); err != nil {
		return fmt.Errorf("failed to delete entity: %w", err)
	}
	entity, err := idx.storage.GetEntity(ctx, guid)
	if err != nil {
		return fmt.Errorf("failed to reload entity: %w", err)
	}
	if err := idx.keywordIndex.Index(ctx, entity); err != nil {
		return fmt.Errorf("failed to index keywords: %w", err)
	}
	return nil
}

// PurgeEntity removes an entity from the keyword index and storage.
func (idx *Indexer) PurgeEntity(ctx context.Context, guid string) error {
	if idx.logger != nil {
		idx.logger.Debug("indexer purging entity", zap.String("guid", guid))
	}
	if err := idx.keywordIndex.Delete(ctx, guid); err != nil {
		return fmt.Errorf("failed to delete from keyword index: %w", err)
	}
	if err := idx.storage.PurgeEntity(ctx, guid); err != nil {
		return fmt.Errorf("failed to purge entity: %w", err)
	}
	return nil
}

// ImportFile reads an entity file and indexes its types and entities. Entities are tagged
// with the file's absolute path; entities a previous import of the same file produced that
// are missing now are purged. If allowedExts is non-empty, the file's extension must be in
// the list (case-insensitive). Skips the import if the file is unchanged since the last one
// (same mtime and size). Returns the number of entities indexed.
func (idx *Indexer) ImportFile(ctx context.Context, path string, allowedExts []string) (int, error) {
	if idx.logger != nil {
		idx.logger.Debug("indexer importing file", zap.String("path", path))
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts) {
		return 0, fmt.Errorf("extension %q not in allowed list", ext)
	}
	if !extract.Supported(absPath) {
		return 0, fmt.Errorf("unsupported import format %q", ext)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return 0, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("not a regular file: %s", absPath)
	}
	if idx.shouldSkipFile(ctx, absPath, info) {
		// Ensure the entities are in the keyword index (repopulates if Bleve was opened empty).
		previous, listErr := idx.storage.ListEntitiesBySource(ctx, absPath)
		if listErr == nil {
			for _, e := range previous {
				_ = idx.keywordIndex.Index(ctx, e)
			}
		}
		if idx.logger != nil {
			idx.logger.Debug("indexer skipping unchanged file", zap.String("path", absPath))
		}
		return 0, nil
	}

	batch, err := idx.extractor.Extract(absPath)
	if err != nil {
		return 0, fmt.Errorf("extract entities: %w", err)
	}
	for _, def := range batch.Types {
		if err := idx.RegisterType(ctx, def); err != nil {
			return 0, err
		}
	}

	seen := make(map[string]bool, len(batch.Entities))
	for i, input := range batch.Entities {
		entity, err := idx.indexEntity(ctx, input, absPath, strconv.Itoa(i))
		if err != nil {
			return 0, fmt.Errorf("entity %d: %w", i, err)
		}
		seen[entity.GUID] = true
	}
	if err := idx.purgeSource(ctx, absPath, seen); err != nil {
		return 0, err
	}
	if err := idx.storage.PutSource(ctx, &models.Source{
		Path:    absPath,
		ModTime: info.ModTime().UnixNano(),
		Size:    info.Size(),
	}); err != nil {
		return 0, fmt.Errorf("failed to record source: %w", err)
	}
	if idx.logger != nil {
		idx.logger.Debug("indexer file imported",
			zap.String("path", absPath),
			zap.Int("entities", len(batch.Entities)),
		)
	}
	return len(batch.Entities), nil
}

// shouldSkipFile returns true if the file was already imported with the same mtime and size.
func (idx *Indexer) shouldSkipFile(ctx context.Context, absPath string, info os.FileInfo) bool {
	src, err := idx.storage.GetSource(ctx, absPath)
	if err != nil {
		return false
	}
	return src.ModTime == info.ModTime().UnixNano() && src.Size == info.Size()
}

// purgeSource purges the entities recorded for sourcePath whose GUID is not in keep.
func (idx *Indexer) purgeSource(ctx context.Context, sourcePath string, keep map[string]bool) error {
	previous, err := idx.storage.ListEntitiesBySource(ctx, sourcePath)
	if err != nil {
		return fmt.Errorf("failed to list entities for %s: %w", sourcePath, err)
	}
	for _, e := range previous {
		if keep[e.GUID] {
			continue
		}
		if err := idx.PurgeEntity(ctx, e.GUID); err != nil {
			return err
		}
	}
	return nil
}

// RemoveSource purges every entity imported from path and forgets the import record.
func (idx *Indexer) RemoveSource(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	if idx.logger != nil {
		idx.logger.Debug("indexer removing source", zap.String("path", absPath))
	}
	if err := idx.purgeSource(ctx, absPath, nil); err != nil {
		return err
	}
	if err := idx.storage.DeleteSource(ctx, absPath); err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}
	return nil
}

// ImportDirectory walks dir recursively and imports each regular file whose extension
// is in allowedExts (if non-nil and non-empty; otherwise every supported file). Returns the
// number of files imported and the first error encountered, if any.
func (idx *Indexer) ImportDirectory(ctx context.Context, dir string, allowedExts []string) (n int, err error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts) {
			return nil
		}
		if !extract.Supported(path) {
			return nil
		}
		// Resolve symlinks so we only import regular files
		finfo, statErr := os.Stat(path)
		if statErr != nil {
			return nil
		}
		if !finfo.Mode().IsRegular() {
			return nil
		}
		if _, importErr := idx.ImportFile(ctx, path, allowedExts); importErr != nil {
			return fmt.Errorf("%s: %w", path, importErr)
		}
		n++
		return nil
	})
	return n, err
}

// Rebuild re-indexes every stored entity. Used when the keyword index was recreated.
func (idx *Indexer) Rebuild(ctx context.Context) (int, error) {
	const pageSize = 500
	n := 0
	for offset := 0; ; offset += pageSize {
		page, err := idx.storage.ListEntities(ctx, offset, pageSize)
		if err != nil {
			return n, fmt.Errorf("failed to list entities: %w", err)
		}
		for _, e := range page {
			if err := idx.keywordIndex.Index(ctx, e); err != nil {
				return n, fmt.Errorf("failed to index %s: %w", e.GUID, err)
			}
			n++
		}
		if len(page) < pageSize {
			break
		}
	}
	if idx.logger != nil {
		idx.logger.Debug("indexer rebuilt keyword index", zap.Int("entities", n))
	}
	return n, nil
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
