// Package cli renders discovery results for the Tansaku command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hyperjump/tansaku/internal/discovery"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/pkg/utils"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputCompact prints one result per line.
	OutputCompact SearchOutputFormat = "compact"
	// OutputJSON is the envelope as returned by the HTTP API.
	OutputJSON SearchOutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (SearchOutputFormat, error) {
	switch f := SearchOutputFormat(strings.ToLower(s)); f {
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
	}
}

const maxValueLen = 120

// WriteEnvelope writes a search envelope to w in the given format.
// Unknown formats are written as text.
func WriteEnvelope(w io.Writer, env *discovery.Envelope, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(env)
	case OutputCompact:
		writeEnvelopeCompact(w, env)
		return nil
	default:
		writeEnvelopeText(w, env)
		return nil
	}
}

func writeEnvelopeText(w io.Writer, env *discovery.Envelope) {
	fmt.Fprintf(w, "\nFound %d results (%s)", env.Count, env.QueryType)
	if env.DataType != "" {
		fmt.Fprintf(w, " of type %s", env.DataType)
	}
	if env.RequestID != "" {
		fmt.Fprintf(w, " [request %s]", env.RequestID)
	}
	fmt.Fprint(w, "\n\n")
	for i, row := range env.Results {
		writeOneRow(w, i+1, row)
	}
}

func writeOneRow(w io.Writer, rank int, row models.Row) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Type: %s", rank, row.Meta.DataType)
	if row.Meta.Status != "" {
		fmt.Fprintf(w, " | Status: %s", row.Meta.Status)
	}
	if row.Score > 0 {
		fmt.Fprintf(w, " | Score: %.4f", row.Score)
	}
	fmt.Fprintf(w, "\nGUID: %s\n", row.Meta.GUID)
	for _, key := range sortedKeys(row.Attributes) {
		fmt.Fprintf(w, "  %s: %s\n", key, utils.Truncate(FormatValue(row.Attributes[key]), maxValueLen))
	}
	fmt.Fprintln(w)
}

func writeEnvelopeCompact(w io.Writer, env *discovery.Envelope) {
	for _, row := range env.Results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", row.Meta.GUID, row.Meta.DataType, row.Meta.Status, displayName(row))
	}
}

// displayName prefers qualifiedName, then name.
func displayName(row models.Row) string {
	for _, key := range []string{"qualifiedName", "name"} {
		if v, ok := row.Attributes[key]; ok {
			return FormatValue(v)
		}
	}
	return ""
}

// FormatValue renders an attribute value on one line. Strings are printed as-is; anything else as JSON.
func FormatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
