// Package strings holds small helpers for string-keyed lists.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each element and drops blanks and repeats, keeping
// first-seen order. It works on any string-kinded type so typed keys do
// not need converting.
//
//	DedupeAndTrim([]ProviderKey{" oecd", "scb", "oecd", ""})
//	// []ProviderKey{"oecd", "scb"}
func DedupeAndTrim[T ~string](values []T) []T {
	return dedupeBy(values, strings.TrimSpace)
}

// DedupeFold is DedupeAndTrim with case-insensitive matching. The first
// spelling seen is the one kept.
func DedupeFold[T ~string](values []T) []T {
	return dedupeBy(values, func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	})
}

func dedupeBy[T ~string](values []T, key func(string) string) []T {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]T, 0, len(values))
	for _, v := range values {
		k := key(string(v))
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, T(strings.TrimSpace(string(v))))
	}
	return out
}
