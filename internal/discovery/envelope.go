package discovery

import (
	"fmt"

	"github.com/hyperjump/tansaku/internal/models"
)

// Query types reported in the envelope.
const (
	QueryTypeDSL      = "dsl"
	QueryTypeFullText = "full-text"
)

// OutcomeKind tags which engine produced a result set.
type OutcomeKind int

const (
	// KindStructured is a DSL result set.
	KindStructured OutcomeKind = iota + 1
	// KindFullText is a full-text result set.
	KindFullText
)

// QueryType returns the envelope query type for k, or "" for an unknown kind.
func (k OutcomeKind) QueryType() string {
	switch k {
	case KindStructured:
		return QueryTypeDSL
	case KindFullText:
		return QueryTypeFullText
	default:
		return ""
	}
}

// Outcome is a successful search result tagged with its engine.
type Outcome struct {
	Kind OutcomeKind
	Rows []models.Row
}

// Structured wraps rows returned by the DSL engine.
func Structured(rows []models.Row) Outcome {
	return Outcome{Kind: KindStructured, Rows: rows}
}

// FullText wraps rows returned by the full-text engine.
func FullText(rows []models.Row) Outcome {
	return Outcome{Kind: KindFullText, Rows: rows}
}

// Envelope is the response shape shared by every search endpoint.
// DataType is only set for DSL results with at least one row.
type Envelope struct {
	RequestID string       `json:"requestId"`
	Query     string       `json:"query"`
	QueryType string       `json:"queryType"`
	Count     int          `json:"count"`
	Results   []models.Row `json:"results"`
	DataType  string       `json:"dataType,omitempty"`
}

// BuildEnvelope shapes an outcome into an Envelope.
// Count always equals len(Results). An empty DSL result set has no DataType.
func BuildEnvelope(requestID, query string, outcome Outcome) (*Envelope, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", ErrPreconditionViolation)
	}
	queryType := outcome.Kind.QueryType()
	if queryType == "" {
		return nil, fmt.Errorf("%w: query type must be specified", ErrPreconditionViolation)
	}
	rows := outcome.Rows
	if rows == nil {
		rows = []models.Row{}
	}
	env := &Envelope{
		RequestID: requestID,
		Query:     query,
		QueryType: queryType,
		Count:     len(rows),
		Results:   rows,
	}
	if outcome.Kind == KindStructured && len(rows) > 0 {
		env.DataType = rows[0].Meta.DataType
	}
	return env, nil
}
