package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/tansaku/internal/models"
	"gopkg.in/yaml.v3"
)

// validUTF8 replaces invalid UTF-8 sequences with the replacement character.
func validUTF8(content []byte) []byte {
	if !utf8.Valid(content) {
		return []byte(strings.ToValidUTF8(string(content), "\ufffd"))
	}
	return content
}

// extractJSON accepts either a bare array of entities or a {"types": [...], "entities": [...]} object.
func extractJSON(content []byte) (*Batch, error) {
	content = bytes.TrimSpace(validUTF8(content))
	if len(content) == 0 {
		return &Batch{}, nil
	}
	if content[0] == '[' {
		var entities []*models.EntityInput
		if err := json.Unmarshal(content, &entities); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
		return &Batch{Entities: entities}, nil
	}
	var batch Batch
	if err := json.Unmarshal(content, &batch); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}
	return &batch, nil
}

// extractYAML accepts the same two shapes as extractJSON.
func extractYAML(content []byte) (*Batch, error) {
	content = validUTF8(content)
	var node yaml.Node
	if err := yaml.Unmarshal(content, &node); err != nil {
		return nil, fmt.Errorf("decode YAML: %w", err)
	}
	if len(node.Content) == 0 {
		return &Batch{}, nil
	}
	if node.Content[0].Kind == yaml.SequenceNode {
		var entities []*models.EntityInput
		if err := node.Decode(&entities); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
		return &Batch{Entities: entities}, nil
	}
	var batch Batch
	if err := node.Decode(&batch); err != nil {
		return nil, fmt.Errorf("decode YAML: %w", err)
	}
	return &batch, nil
}
