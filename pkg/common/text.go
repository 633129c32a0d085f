package common

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FoldText lowercases s and strips combining marks, so "Câmera" and "camera" compare equal.
func FoldText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// Slugify folds s and joins its ASCII alphanumeric runs with "-".
func Slugify(s string) string {
	folded := FoldText(strings.TrimSpace(s))
	var b strings.Builder
	dash := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if b.Len() > 0 && !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// ContainsFolded reports whether needle occurs in any of the haystacks, ignoring case and accents.
func ContainsFolded(needle string, haystacks ...string) bool {
	n := FoldText(strings.TrimSpace(needle))
	if n == "" {
		return true
	}
	for _, h := range haystacks {
		if strings.Contains(FoldText(h), n) {
			return true
		}
	}
	return false
}
