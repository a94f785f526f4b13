package util

import "strings"

// Truncate shortens s to at most max runes, marking the cut with an
// ellipsis. Chat APIs reject over-long message bodies outright.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 1 {
		return "…"
	}
	return string(runes[:max-1]) + "…"
}

// NormalizeHashtags ensures each tag carries exactly one leading # and no
// inner whitespace, dropping empties.
func NormalizeHashtags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(strings.TrimLeft(tag, "#"))
		tag = strings.ReplaceAll(tag, " ", "")
		if tag == "" {
			continue
		}
		out = append(out, "#"+tag)
	}
	return out
}
