package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/tansaku/internal/models"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

// FixtureFiles maps each corpus type to the import file it is written to. Together they
// cover every import format.
var FixtureFiles = map[string]string{
	TypeDatabase: "databases.yaml",
	TypeTable:    "tables.json",
	TypeTopic:    "topics.xlsx",
}

// fixtureBatch mirrors the object form of a JSON/YAML import file.
type fixtureBatch struct {
	Types    []*models.TypeDef     `json:"types" yaml:"types"`
	Entities []*models.EntityInput `json:"entities" yaml:"entities"`
}

// WriteFixtures writes the corpus into dir as one import file per type and returns the paths.
func WriteFixtures(dir string, c *Corpus) ([]string, error) {
	var paths []string
	for typeName, entities := range c.ByType() {
		name, ok := FixtureFiles[typeName]
		if !ok {
			return nil, fmt.Errorf("no fixture file for type %s", typeName)
		}
		content, err := EncodeFixture(filepath.Ext(name), typeName, entities)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, content, 0644); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// EncodeFixture renders entities of one type as an import file of the given extension.
func EncodeFixture(ext, typeName string, entities []E2EEntity) ([]byte, error) {
	batch := fixtureBatch{Types: []*models.TypeDef{{Name: typeName, SuperTypes: []string{"DataSet"}}}}
	for _, e := range entities {
		batch.Entities = append(batch.Entities, e.Input())
	}
	switch ext {
	case ".json":
		return json.MarshalIndent(batch, "", "  ")
	case ".yaml", ".yml":
		return yaml.Marshal(batch)
	case ".xlsx":
		return encodeExcel(typeName, entities)
	default:
		return nil, fmt.Errorf("unsupported fixture extension %q", ext)
	}
}

func encodeExcel(typeName string, entities []E2EEntity) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", typeName); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(typeName, "A1", &[]interface{}{"guid", "name", "qualifiedName", "owner"}); err != nil {
		return nil, err
	}
	for i, e := range entities {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{e.GUID, e.Name, e.QualifiedName(), e.Owner}
		if err := f.SetSheetRow(typeName, cell, &row); err != nil {
			return nil, err
		}
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
