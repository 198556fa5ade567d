// Package integration provides end-to-end tests (requires real storage and indices).
package integration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/internal/discovery"
	"github.com/hyperjump/tansaku/internal/indexer"
	"github.com/hyperjump/tansaku/internal/keyword"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/search"
	"github.com/hyperjump/tansaku/internal/storage"
)

const catalogYAML = `
types:
  - name: hive_table
    superTypes: [DataSet]
entities:
  - typeName: hive_table
    attributes:
      name: sales_fact
      qualifiedName: default.sales_fact@cl1
      owner: jane
  - typeName: hive_table
    attributes:
      name: customer_dim
      qualifiedName: default.customer_dim@cl1
      owner: joe
  - typeName: hive_table
    status: DELETED
    attributes:
      name: sales_archive
      qualifiedName: default.sales_archive@cl1
      owner: jane
`

func TestIntegration_Discovery(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Storage: config.StorageConfig{
			DatabasePath:   filepath.Join(dir, "catalog.db"),
			BleveIndexPath: filepath.Join(dir, "bleve"),
		},
		Search: config.SearchConfig{DefaultLimit: 10, MaxLimit: 100},
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	kwIndex, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		t.Fatal(err)
	}
	defer kwIndex.Close()

	engine := search.NewEngine(store, kwIndex)
	idx := indexer.NewIndexer(store, kwIndex, nil)
	dispatcher, err := discovery.NewDispatcher(cfg.Search.Discovery(), engine, engine, func(context.Context) string { return "it-1" })
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	path := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(path, []byte(catalogYAML), 0600); err != nil {
		t.Fatal(err)
	}
	n, err := idx.ImportFile(ctx, path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("imported %d entities, want 3", n)
	}

	env, err := dispatcher.Search(ctx, "hive_table where owner:jane", models.Unset, models.Unset)
	if err != nil {
		t.Fatal(err)
	}
	if env.QueryType != discovery.QueryTypeDSL || env.DataType != "hive_table" || env.Count != 2 || env.RequestID != "it-1" {
		t.Errorf("dsl envelope = %+v", env)
	}

	env, err = dispatcher.Search(ctx, "hive_table where owner:jane limit 1", models.Unset, models.Unset)
	if err != nil {
		t.Fatal(err)
	}
	if env.Count != 1 {
		t.Errorf("query limit: count %d, want 1", env.Count)
	}

	env, err = dispatcher.Search(ctx, "sales", 5, 0)
	if err != nil {
		t.Fatal(err)
	}
	if env.QueryType != discovery.QueryTypeFullText || env.Count != 2 || env.DataType != "" {
		t.Errorf("fallback envelope = %+v", env)
	}

	env, err = dispatcher.SearchFullText(ctx, "sales", 5, 0, true)
	if err != nil {
		t.Fatal(err)
	}
	if env.Count != 1 || env.Results[0].Attributes["name"] != "sales_fact" {
		t.Errorf("excluding deleted: %+v", env.Results)
	}

	if _, err := dispatcher.SearchDSL(ctx, "sales", 5, 0); !errors.Is(err, discovery.ErrParse) {
		t.Errorf("SearchDSL(unknown type): expected ErrParse, got %v", err)
	}
	if _, err := dispatcher.Search(ctx, "sales", 100, 0); !errors.Is(err, discovery.ErrInvalidArgument) {
		t.Errorf("limit at max: expected ErrInvalidArgument, got %v", err)
	}
}
