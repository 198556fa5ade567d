// Package utils provides the root logger and text helpers shared by the CLI and server.
package utils

// Truncate shortens s to at most maxLen runes and marks the cut with "...".
// Attribute values are user data, so the cut never splits a multi-byte character.
// maxLen <= 0 disables truncation.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	n := 0
	for i := range s {
		if n == maxLen {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
