// Package extract reads catalog entity batches from import files.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/tansaku/internal/models"
)

// SupportedExtensions lists the file extensions Extract understands.
var SupportedExtensions = []string{".json", ".yaml", ".yml", ".xlsx"}

// Batch is the content of one import file: optional type definitions and the entities.
type Batch struct {
	Types    []*models.TypeDef     `json:"types,omitempty" yaml:"types,omitempty"`
	Entities []*models.EntityInput `json:"entities" yaml:"entities"`
}

// Extractor reads entity batches from import files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its batch.
// Returns an error if the file cannot be read, the format is unsupported, or a record is invalid.
func (e *Extractor) Extract(path string) (*Batch, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return e.ExtractBytes(content, ext)
}

// ExtractBytes decodes content based on the given extension.
// ext should include the leading dot (e.g. ".json").
func (e *Extractor) ExtractBytes(content []byte, ext string) (*Batch, error) {
	var (
		batch *Batch
		err   error
	)
	switch strings.ToLower(ext) {
	case ".json":
		batch, err = extractJSON(content)
	case ".yaml", ".yml":
		batch, err = extractYAML(content)
	case ".xlsx":
		batch, err = extractExcel(content)
	default:
		return nil, fmt.Errorf("unsupported import format %q", ext)
	}
	if err != nil {
		return nil, err
	}
	if err := batch.validate(); err != nil {
		return nil, err
	}
	return batch, nil
}

func (b *Batch) validate() error {
	for i, t := range b.Types {
		if t == nil || strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("type %d: name is required", i)
		}
	}
	for i, in := range b.Entities {
		if in == nil || strings.TrimSpace(in.TypeName) == "" {
			return fmt.Errorf("entity %d: typeName is required", i)
		}
		if in.Status != "" && in.Status != models.StatusActive && in.Status != models.StatusDeleted {
			return fmt.Errorf("entity %d: unknown status %q", i, in.Status)
		}
	}
	return nil
}

// Supported reports whether path has an importable extension.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedExtensions {
		if s == ext {
			return true
		}
	}
	return false
}
