package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hyperjump/tansaku/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStorage_EntityCRUD(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	entity := &models.Entity{
		GUID:       "g1",
		TypeName:   "hive_table",
		Status:     models.StatusActive,
		Attributes: map[string]interface{}{"name": "sales_fact", "qualifiedName": "db.sales_fact@cl1"},
		SourcePath: "/data/tables.json",
	}
	if err := store.CreateEntity(ctx, entity); err != nil {
		t.Fatal(err)
	}
	if entity.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	got, err := store.GetEntity(ctx, "g1")
	if err != nil {
		t.Fatal(err)
	}
	if got.TypeName != "hive_table" || got.Attributes["name"] != "sales_fact" {
		t.Errorf("got %+v", got)
	}
	if got.SourcePath != "/data/tables.json" {
		t.Errorf("SourcePath = %q", got.SourcePath)
	}

	entity.Attributes["name"] = "sales_dim"
	if err := store.UpdateEntity(ctx, entity); err != nil {
		t.Fatal(err)
	}
	got, _ = store.GetEntity(ctx, "g1")
	if got.Attributes["name"] != "sales_dim" {
		t.Errorf("expected sales_dim, got %v", got.Attributes["name"])
	}

	list, err := store.ListEntities(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 entity, got %d", len(list))
	}

	if err := store.DeleteEntity(ctx, "g1"); err != nil {
		t.Fatal(err)
	}
	got, err = store.GetEntity(ctx, "g1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.StatusDeleted {
		t.Errorf("status after delete = %s, want %s", got.Status, models.StatusDeleted)
	}

	if err := store.PurgeEntity(ctx, "g1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetEntity(ctx, "g1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after purge, got %v", err)
	}
}

func TestSQLiteStorage_NotFound(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	if _, err := store.GetEntity(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetEntity: expected ErrNotFound, got %v", err)
	}
	if err := store.UpdateEntity(ctx, &models.Entity{GUID: "missing", TypeName: "t", Status: models.StatusActive}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateEntity: expected ErrNotFound, got %v", err)
	}
	if err := store.DeleteEntity(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteEntity: expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetType(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetType: expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetSource(ctx, "/missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSource: expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStorage_Types(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	def := &models.TypeDef{Name: "hive_table", Description: "Hive table", SuperTypes: []string{"DataSet"}}
	if err := store.CreateType(ctx, def); err != nil {
		t.Fatal(err)
	}
	// Registering again keeps the first definition.
	if err := store.CreateType(ctx, &models.TypeDef{Name: "hive_table", Description: "other"}); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateType(ctx, &models.TypeDef{Name: "hive_db"}); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetType(ctx, "hive_table")
	if err != nil {
		t.Fatal(err)
	}
	if got.Description != "Hive table" {
		t.Errorf("Description = %q", got.Description)
	}
	if len(got.SuperTypes) != 1 || got.SuperTypes[0] != "DataSet" {
		t.Errorf("SuperTypes = %v", got.SuperTypes)
	}

	types, err := store.ListTypes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(types) != 2 || types[0].Name != "hive_db" || types[1].Name != "hive_table" {
		t.Errorf("ListTypes = %+v", types)
	}
	n, err := store.CountTypes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("CountTypes = %d, want 2", n)
	}
}

func TestSQLiteStorage_Sources(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	src := &models.Source{Path: "/data/a.yaml", ModTime: 100, Size: 42}
	if err := store.PutSource(ctx, src); err != nil {
		t.Fatal(err)
	}
	src.ModTime = 200
	if err := store.PutSource(ctx, src); err != nil {
		t.Fatal(err)
	}
	got, err := store.GetSource(ctx, "/data/a.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if got.ModTime != 200 || got.Size != 42 {
		t.Errorf("got %+v", got)
	}

	if err := store.DeleteSource(ctx, "/data/a.yaml"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetSource(ctx, "/data/a.yaml"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStorage_ListEntitiesBySource(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	for _, e := range []*models.Entity{
		{GUID: "b", TypeName: "t", Status: models.StatusActive, SourcePath: "/x.json"},
		{GUID: "a", TypeName: "t", Status: models.StatusActive, SourcePath: "/x.json"},
		{GUID: "c", TypeName: "t", Status: models.StatusActive, SourcePath: "/y.json"},
	} {
		if err := store.CreateEntity(ctx, e); err != nil {
			t.Fatal(err)
		}
	}
	list, err := store.ListEntitiesBySource(ctx, "/x.json")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].GUID != "a" || list[1].GUID != "b" {
		t.Errorf("ListEntitiesBySource = %v", list)
	}
	n, err := store.CountEntities(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("CountEntities = %d, want 3", n)
	}
}
