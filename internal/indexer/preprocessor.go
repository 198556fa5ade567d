package indexer

import (
	"strings"
	"unicode"
)

// Preprocess normalizes text for indexing (trim, collapse whitespace).
func Preprocess(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	wasSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}

// PreprocessAttributes applies Preprocess to every string value, descending into nested
// maps and lists. The input map is not modified.
func PreprocessAttributes(attrs map[string]interface{}) map[string]interface{} {
	if attrs == nil {
		return map[string]interface{}{}
	}
	out := make(map[string]interface{}, len(attrs))
	for k, v := range attrs {
		out[k] = preprocessValue(v)
	}
	return out
}

func preprocessValue(v interface{}) interface{} {
	switch x := v.(type) {
	case string:
		return Preprocess(x)
	case map[string]interface{}:
		return PreprocessAttributes(x)
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, item := range x {
			out[i] = preprocessValue(item)
		}
		return out
	default:
		return v
	}
}
