// Package sanitize implements tunnel name canonicalization (spec §3).
package sanitize

import "strings"

const (
	base   = "innisfree"
	prefix = base + "-"
	suffix = "-" + base
)

// CleanName returns s unchanged if it equals "innisfree"; otherwise it
// strips any leading "innisfree-" and trailing "-innisfree" and prepends
// "innisfree-". CleanName is idempotent: CleanName(CleanName(s)) ==
// CleanName(s) for all s.
//
// The prefix and suffix are stripped to a fixed point (not just once) so
// that a value already carrying one or more affixes can't grow a new one
// on a second pass — that's what makes repeated application a no-op.
func CleanName(s string) string {
	if s == base {
		return s
	}

	trimmed := s
	for strings.HasPrefix(trimmed, prefix) {
		trimmed = strings.TrimPrefix(trimmed, prefix)
	}
	for strings.HasSuffix(trimmed, suffix) {
		trimmed = strings.TrimSuffix(trimmed, suffix)
	}
	return prefix + trimmed
}
