// Package strings holds small string-slice helpers shared across packages.
package strings

import "strings"

// DedupeAndTrim trims each element, drops empties, and removes duplicates
// while preserving first-seen order. Used for comma-separated config lists
// such as broker addresses, where a repeated entry must not count twice.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
