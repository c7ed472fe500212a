// Package strings provides string manipulation utilities.
package strings

import (
	"strings"
)

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
//
// Example:
//
//	DedupeAndTrim([]string{"  foo ", "bar", "foo", "", "  "})
//	// Returns: []string{"foo", "bar"}
func DedupeAndTrim(values []string) []string {
	return DedupeAndNormalize(values, nil)
}

// DedupeAndNormalize is like DedupeAndTrim but passes each trimmed element
// through normalize before comparing. Elements that normalize to "" are
// dropped. A nil normalize behaves like DedupeAndTrim.
//
// Example:
//
//	DedupeAndNormalize([]string{"  FOO ", "bar", "Foo"}, strings.ToLower)
//	// Returns: []string{"foo", "bar"}
func DedupeAndNormalize(values []string, normalize func(string) string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		n := strings.TrimSpace(v)
		if normalize != nil {
			n = normalize(n)
		}
		if n == "" {
			continue
		}
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			result = append(result, n)
		}
	}

	return result
}
