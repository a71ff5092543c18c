package identity

import "strings"

// NormalizeEmail performs case-insensitive canonicalization.
// The normalized form is what uniqueness is enforced on.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeUsername trims surrounding whitespace. Display names are not
// unique, so case is preserved.
func NormalizeUsername(s string) string {
	return strings.TrimSpace(s)
}
