// Package models defines core data structures for catalog entities, paging, and search results.
package models

import (
	"errors"
	"regexp"
	"time"
)

// Entity status values.
const (
	StatusActive  = "ACTIVE"
	StatusDeleted = "DELETED"
)

// Entity is a typed catalog record (table, column, process, ...).
type Entity struct {
	GUID       string                 `json:"guid" db:"guid"`
	TypeName   string                 `json:"typeName" db:"type_name"`
	Status     string                 `json:"status" db:"status"`
	Attributes map[string]interface{} `json:"attributes" db:"attributes"`
	SourcePath string                 `json:"sourcePath,omitempty" db:"source_path"`
	CreatedAt  time.Time              `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time              `json:"updatedAt" db:"updated_at"`
}

// QualifiedName returns the qualifiedName attribute, or "" when unset.
func (e *Entity) QualifiedName() string {
	if e.Attributes == nil {
		return ""
	}
	s, _ := e.Attributes["qualifiedName"].(string)
	return s
}

// EntityInput is the input for creating or updating an entity.
type EntityInput struct {
	GUID       string                 `json:"guid,omitempty" yaml:"guid,omitempty"`
	TypeName   string                 `json:"typeName" yaml:"typeName"`
	Status     string                 `json:"status,omitempty" yaml:"status,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// TypeNamePattern is the shape of a type name, as written at the head of a DSL query.
const TypeNamePattern = `[A-Za-z_][A-Za-z0-9_.\-]*`

var typeNameRe = regexp.MustCompile(`^` + TypeNamePattern + `$`)

// ErrInvalidTypeName is returned for type names a DSL query could not address.
var ErrInvalidTypeName = errors.New("invalid type name")

// ValidTypeName reports whether name matches TypeNamePattern.
func ValidTypeName(name string) bool {
	return typeNameRe.MatchString(name)
}

// TypeDef registers an entity type name that DSL queries may address.
type TypeDef struct {
	Name        string    `json:"name" yaml:"name" db:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty" db:"description"`
	SuperTypes  []string  `json:"superTypes,omitempty" yaml:"superTypes,omitempty" db:"super_types"`
	CreatedAt   time.Time `json:"createdAt" yaml:"-" db:"created_at"`
}
