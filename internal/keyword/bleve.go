package keyword

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/tansaku/internal/models"
)

// BleveIndex implements EntityIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path.
// If the path already exists, the existing index is opened and reused.
// If you change the index mapping in code, remove the index directory to force a full re-index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, newIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// NewMemoryBleveIndex creates an in-memory index (tests and throwaway CLI runs).
func NewMemoryBleveIndex() (*BleveIndex, error) {
	index, err := bleve.NewMemOnly(newIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

func newIndexMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so "sales" matches "Sales" but not "sale".
	im.DefaultAnalyzer = standard.Name

	entityMapping := bleve.NewDocumentMapping()
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	entityMapping.AddFieldMappingsAt(FieldGUID, keywordFieldMapping)
	entityMapping.AddFieldMappingsAt(FieldTypeName, keywordFieldMapping)
	entityMapping.AddFieldMappingsAt(FieldStatus, keywordFieldMapping)
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	entityMapping.AddFieldMappingsAt(FieldText, textFieldMapping)

	im.AddDocumentMapping("entity", entityMapping)
	im.DefaultType = "entity"
	im.DefaultMapping = entityMapping // attributes are mapped dynamically next to the fixed fields
	return im
}

// Index indexes an entity by GUID, replacing any previous version.
func (b *BleveIndex) Index(ctx context.Context, entity *models.Entity) error {
	if entity.GUID == "" {
		return fmt.Errorf("entity has no guid")
	}
	return b.index.Index(entity.GUID, entityDocument(entity))
}

// Delete removes an entity from the index.
func (b *BleveIndex) Delete(ctx context.Context, guid string) error {
	return b.index.Delete(guid)
}

// FullText runs a match query over the flattened entity text.
// When excludeDeleted is true, entities with status DELETED are filtered out.
func (b *BleveIndex) FullText(ctx context.Context, query string, excludeDeleted bool, limit, offset int) ([]*Hit, error) {
	match := bleve.NewMatchQuery(normalizeForKeywordSearch(query))
	match.SetField(FieldText)

	var q blevequery.Query = match
	if excludeDeleted {
		deleted := bleve.NewTermQuery(models.StatusDeleted)
		deleted.SetField(FieldStatus)
		bq := bleve.NewBooleanQuery()
		bq.AddMust(match)
		bq.AddMustNot(deleted)
		q = bq
	}
	return b.search(ctx, q, limit, offset)
}

// Structured runs the conjunction of a typeName term and expr.
// A syntactically invalid expr returns an error wrapping ErrQuerySyntax.
func (b *BleveIndex) Structured(ctx context.Context, typeName, expr string, limit, offset int) ([]*Hit, error) {
	typeQuery := bleve.NewTermQuery(typeName)
	typeQuery.SetField(FieldTypeName)

	expr = strings.TrimSpace(expr)
	if expr == "" {
		return b.search(ctx, typeQuery, limit, offset)
	}
	parsed, err := bleve.NewQueryStringQuery(expr).Parse()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuerySyntax, err)
	}
	return b.search(ctx, bleve.NewConjunctionQuery(typeQuery, parsed), limit, offset)
}

func (b *BleveIndex) search(ctx context.Context, q blevequery.Query, limit, offset int) ([]*Hit, error) {
	// Bleve sizes its collector by offset+limit; past MaxInt there is nothing to return.
	if limit <= 0 || offset > math.MaxInt-limit {
		return []*Hit{}, nil
	}
	req := bleve.NewSearchRequestOptions(q, limit, offset, false)
	req.SortBy([]string{"-_score", FieldGUID})
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*Hit, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &Hit{GUID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// DocCount returns the total number of entities in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// entityDocument builds the indexed form of an entity: every attribute under its own name,
// plus the fixed fields, which win over attributes of the same name.
func entityDocument(e *models.Entity) map[string]interface{} {
	doc := make(map[string]interface{}, len(e.Attributes)+4)
	for k, v := range e.Attributes {
		doc[k] = v
	}
	doc[FieldGUID] = e.GUID
	doc[FieldTypeName] = e.TypeName
	doc[FieldStatus] = e.Status
	doc[FieldText] = flattenText(e)
	return doc
}

// flattenText joins the type name and all attribute values in key order.
func flattenText(e *models.Entity) string {
	parts := []string{e.TypeName}
	appendValues(&parts, e.Attributes)
	return normalizeForKeywordSearch(strings.Join(parts, " "))
}

func appendValues(parts *[]string, v interface{}) {
	switch x := v.(type) {
	case nil:
	case string:
		if x != "" {
			*parts = append(*parts, x)
		}
	case []interface{}:
		for _, item := range x {
			appendValues(parts, item)
		}
	case []string:
		for _, item := range x {
			appendValues(parts, item)
		}
	case map[string]interface{}:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			appendValues(parts, x[k])
		}
	default:
		*parts = append(*parts, fmt.Sprint(x))
	}
}

// normalizeForKeywordSearch replaces underscores with spaces so "sales_fact" is
// searchable as "sales fact" (the standard analyzer does not split on underscore).
func normalizeForKeywordSearch(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}
