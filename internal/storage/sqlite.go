package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/tansaku/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS entity_types (
		name TEXT PRIMARY KEY,
		description TEXT,
		super_types TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS entities (
		guid TEXT PRIMARY KEY,
		type_name TEXT NOT NULL,
		status TEXT NOT NULL,
		attributes TEXT,
		source_path TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_entities_type_name ON entities(type_name);
	CREATE INDEX IF NOT EXISTS idx_entities_source_path ON entities(source_path);
	CREATE INDEX IF NOT EXISTS idx_entities_created_at ON entities(created_at);

	CREATE TABLE IF NOT EXISTS import_sources (
		path TEXT PRIMARY KEY,
		mod_time INTEGER NOT NULL,
		size INTEGER NOT NULL,
		imported_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateType registers a type. Registering an existing name is a no-op.
func (s *SQLiteStorage) CreateType(ctx context.Context, def *models.TypeDef) error {
	superJSON, err := json.Marshal(def.SuperTypes)
	if err != nil {
		return fmt.Errorf("failed to marshal super types: %w", err)
	}
	if def.CreatedAt.IsZero() {
		def.CreatedAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO entity_types (name, description, super_types, created_at)
		 VALUES (?, ?, ?, ?)`,
		def.Name, def.Description, string(superJSON), def.CreatedAt,
	)
	return err
}

// GetType returns a type by name.
func (s *SQLiteStorage) GetType(ctx context.Context, name string) (*models.TypeDef, error) {
	var def models.TypeDef
	var superJSON sql.NullString
	var description sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT name, description, super_types, created_at FROM entity_types WHERE name = ?`, name,
	).Scan(&def.Name, &description, &superJSON, &def.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("type %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	def.Description = description.String
	if err := unmarshalSuperTypes(superJSON, &def); err != nil {
		return nil, err
	}
	return &def, nil
}

// ListTypes returns all registered types ordered by name.
func (s *SQLiteStorage) ListTypes(ctx context.Context) ([]*models.TypeDef, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, description, super_types, created_at FROM entity_types ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []*models.TypeDef
	for rows.Next() {
		var def models.TypeDef
		var superJSON, description sql.NullString
		if err := rows.Scan(&def.Name, &description, &superJSON, &def.CreatedAt); err != nil {
			return nil, err
		}
		def.Description = description.String
		if err := unmarshalSuperTypes(superJSON, &def); err != nil {
			return nil, err
		}
		defs = append(defs, &def)
	}
	return defs, rows.Err()
}

func unmarshalSuperTypes(raw sql.NullString, def *models.TypeDef) error {
	if !raw.Valid || raw.String == "" || raw.String == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw.String), &def.SuperTypes); err != nil {
		return fmt.Errorf("failed to unmarshal super types: %w", err)
	}
	return nil
}

// CreateEntity inserts an entity.
func (s *SQLiteStorage) CreateEntity(ctx context.Context, entity *models.Entity) error {
	attrsJSON, err := json.Marshal(entity.Attributes)
	if err != nil {
		return fmt.Errorf("failed to marshal attributes: %w", err)
	}

	now := time.Now()
	entity.CreatedAt = now
	entity.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO entities (guid, type_name, status, attributes, source_path, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entity.GUID, entity.TypeName, entity.Status, string(attrsJSON), entity.SourcePath,
		entity.CreatedAt, entity.UpdatedAt,
	)
	return err
}

// GetEntity returns an entity by GUID.
func (s *SQLiteStorage) GetEntity(ctx context.Context, guid string) (*models.Entity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT guid, type_name, status, attributes, source_path, created_at, updated_at
		 FROM entities WHERE guid = ?`, guid,
	)
	entity, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entity %s: %w", guid, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// UpdateEntity updates an existing entity.
func (s *SQLiteStorage) UpdateEntity(ctx context.Context, entity *models.Entity) error {
	attrsJSON, err := json.Marshal(entity.Attributes)
	if err != nil {
		return fmt.Errorf("failed to marshal attributes: %w", err)
	}

	entity.UpdatedAt = time.Now()

	result, err := s.db.ExecContext(ctx,
		`UPDATE entities SET type_name = ?, status = ?, attributes = ?, source_path = ?, updated_at = ?
		 WHERE guid = ?`,
		entity.TypeName, entity.Status, string(attrsJSON), entity.SourcePath, entity.UpdatedAt, entity.GUID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("entity %s: %w", entity.GUID, ErrNotFound)
	}
	return nil
}

// DeleteEntity marks an entity DELETED. It stays searchable by full text unless excluded.
func (s *SQLiteStorage) DeleteEntity(ctx context.Context, guid string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE entities SET status = ?, updated_at = ? WHERE guid = ?`,
		models.StatusDeleted, time.Now(), guid,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("entity %s: %w", guid, ErrNotFound)
	}
	return nil
}

// PurgeEntity removes an entity by GUID.
func (s *SQLiteStorage) PurgeEntity(ctx context.Context, guid string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM entities WHERE guid = ?`, guid)
	return err
}

// ListEntities returns entities with offset and limit, newest first.
func (s *SQLiteStorage) ListEntities(ctx context.Context, offset, limit int) ([]*models.Entity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT guid, type_name, status, attributes, source_path, created_at, updated_at
		 FROM entities ORDER BY created_at DESC, guid LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntities(rows)
}

// ListEntitiesBySource returns the entities imported from sourcePath.
func (s *SQLiteStorage) ListEntitiesBySource(ctx context.Context, sourcePath string) ([]*models.Entity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT guid, type_name, status, attributes, source_path, created_at, updated_at
		 FROM entities WHERE source_path = ? ORDER BY guid`,
		sourcePath,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntities(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntity(row rowScanner) (*models.Entity, error) {
	var e models.Entity
	var attrsJSON, sourcePath sql.NullString
	if err := row.Scan(&e.GUID, &e.TypeName, &e.Status, &attrsJSON, &sourcePath, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.SourcePath = sourcePath.String
	if attrsJSON.Valid && attrsJSON.String != "" {
		if err := json.Unmarshal([]byte(attrsJSON.String), &e.Attributes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal attributes: %w", err)
		}
	}
	return &e, nil
}

func scanEntities(rows *sql.Rows) ([]*models.Entity, error) {
	var entities []*models.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// GetSource returns the import record for path.
func (s *SQLiteStorage) GetSource(ctx context.Context, path string) (*models.Source, error) {
	var src models.Source
	err := s.db.QueryRowContext(ctx,
		`SELECT path, mod_time, size, imported_at FROM import_sources WHERE path = ?`, path,
	).Scan(&src.Path, &src.ModTime, &src.Size, &src.ImportedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("source %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &src, nil
}

// PutSource inserts or replaces the import record for src.Path.
func (s *SQLiteStorage) PutSource(ctx context.Context, src *models.Source) error {
	src.ImportedAt = time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO import_sources (path, mod_time, size, imported_at) VALUES (?, ?, ?, ?)`,
		src.Path, src.ModTime, src.Size, src.ImportedAt,
	)
	return err
}

// DeleteSource removes the import record for path.
func (s *SQLiteStorage) DeleteSource(ctx context.Context, path string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM import_sources WHERE path = ?`, path)
	return err
}

// CountEntities returns the total number of entities, deleted ones included.
func (s *SQLiteStorage) CountEntities(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entities`).Scan(&count)
	return count, err
}

// CountTypes returns the number of registered types.
func (s *SQLiteStorage) CountTypes(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entity_types`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
