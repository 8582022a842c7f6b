package alias

import (
	"strings"
	"unicode"
)

// Normalize folds a free-form indicator name into its lookup key:
// trimmed, lowercased, whitespace and hyphen runs replaced by "_", other
// characters outside [a-z0-9_] dropped, underscores collapsed and trimmed.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	for _, r := range s {
		switch {
		case r == '_' || r == '-' || unicode.IsSpace(r):
			pendingSep = true
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		}
	}
	return b.String()
}
