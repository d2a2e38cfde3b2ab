package core

import "strings"

// CleanString trims all leading and trailing whitespace in `s`.
func CleanString(s string) string {
	return strings.TrimSpace(s)
}

// NormalizeEmail folds a trimmed email to lower case so service lookups and
// the store's unique index on lower(email) agree on a single key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
