// Package textx provides small text utilities used across the project.
package textx

import (
	"strings"
)

// SanitizeText removes control characters except tab/newline/CR and trims spaces.
func SanitizeText(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// CollapseWhitespace sanitizes s and folds all whitespace runs into single
// spaces. Used for extracted PDF text where layout whitespace carries no
// meaning.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(SanitizeText(s)), " ")
}

// FirstNonEmptyLines splits s on newlines and returns the trimmed non-empty
// lines, at most limit of them (limit <= 0 means all).
func FirstNonEmptyLines(s string, limit int) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
