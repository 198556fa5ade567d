package e2e

import (
	"path/filepath"
	"testing"

	"github.com/hyperjump/tansaku/internal/extract"
)

func TestEncodeFixture_AllFormatsExtractable(t *testing.T) {
	e := extract.NewExtractor()
	c := BuildCorpus()
	for typeName, entities := range c.ByType() {
		name := FixtureFiles[typeName]
		t.Run(name, func(t *testing.T) {
			content, err := EncodeFixture(filepath.Ext(name), typeName, entities)
			if err != nil {
				t.Fatalf("EncodeFixture: %v", err)
			}
			got, err := e.ExtractBytes(content, filepath.Ext(name))
			if err != nil {
				t.Fatalf("ExtractBytes: %v", err)
			}
			if len(got.Entities) != len(entities) {
				t.Fatalf("extracted %d entities, want %d", len(got.Entities), len(entities))
			}
			first := got.Entities[0]
			if first.GUID != entities[0].GUID || first.TypeName != typeName || first.Attributes["name"] != entities[0].Name {
				t.Errorf("first entity = %+v", first)
			}
			if len(got.Types) != 1 || got.Types[0].Name != typeName {
				t.Errorf("types = %+v", got.Types)
			}
		})
	}
}
