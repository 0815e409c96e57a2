// Package utils contains tiny helpers shared across the HTTP layer. Nothing
// in here knows about the domain.
package utils

import "strconv"

// AtoiDefault parses s as a base-10 integer and returns def when s is empty
// or not a valid number. Query parameters arrive as raw strings; callers are
// expected to clamp the result to their own bounds. No whitespace trimming is
// performed, matching strconv.Atoi.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
