// Package strings provides string list helpers used by configuration parsing.
package strings

import (
	"strings"
)

// SplitList splits v on sep and returns the trimmed, non-empty, unique
// elements in their original order. An empty v yields nil.
func SplitList(v, sep string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return DedupeAndTrim(strings.Split(v, sep))
}

// DedupeAndTrim drops empty and repeated elements after trimming whitespace.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
