package benchmark

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/hyperjump/tansaku/internal/discovery"
	"github.com/hyperjump/tansaku/internal/indexer"
	"github.com/hyperjump/tansaku/internal/keyword"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/search"
	"github.com/hyperjump/tansaku/internal/storage"
)

func BenchmarkParseDSL(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = search.ParseDSL(`hive_table where owner:jane AND name:sales* limit 20 offset 40`)
	}
}

func newBenchDispatcher(b *testing.B, entities int) *discovery.Dispatcher {
	b.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(b.TempDir(), "bench.db"))
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = store.Close() })
	kwIndex, err := keyword.NewMemoryBleveIndex()
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = kwIndex.Close() })

	idx := indexer.NewIndexer(store, kwIndex, nil)
	ctx := context.Background()
	for i := 0; i < entities; i++ {
		if _, err := idx.IndexEntity(ctx, &models.EntityInput{
			TypeName: "hive_table",
			Attributes: map[string]interface{}{
				"name":          fmt.Sprintf("table_%d", i),
				"qualifiedName": fmt.Sprintf("default.table_%d@cl1", i),
				"owner":         []string{"jane", "joe", "mei"}[i%3],
			},
		}); err != nil {
			b.Fatal(err)
		}
	}
	engine := search.NewEngine(store, kwIndex)
	d, err := discovery.NewDispatcher(discovery.Config{MaxLimit: 1000, DefaultLimit: 100}, engine, engine, nil)
	if err != nil {
		b.Fatal(err)
	}
	return d
}

func BenchmarkDispatcher_SearchDSL(b *testing.B) {
	d := newBenchDispatcher(b, 500)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = d.Search(ctx, "hive_table where owner:jane", 20, 0)
	}
}

func BenchmarkDispatcher_SearchFallback(b *testing.B) {
	d := newBenchDispatcher(b, 500)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = d.Search(ctx, "table 42", 20, 0)
	}
}
