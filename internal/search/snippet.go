package search

import (
	"strings"
)

const (
	snippetBefore = 100
	snippetAfter  = 200
	ellipsis      = "..."
)

// Snippet cuts a window of content around the first occurrence of query,
// or of its first matching word. Without a hit it returns the opening.
func Snippet(content, query string) string {
	runes := []rune(content)
	lower := []rune(strings.ToLower(content))

	hit := -1
	q := strings.ToLower(strings.TrimSpace(query))
	candidates := append([]string{q}, queryWords(q)...)
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if idx := runeIndex(lower, []rune(c)); idx >= 0 {
			hit = idx
			break
		}
	}

	start, end := 0, len(runes)
	if hit >= 0 {
		start = max(0, hit-snippetBefore)
		end = min(len(runes), hit+snippetAfter)
	} else if end > snippetAfter {
		end = snippetAfter
	}

	out := strings.TrimSpace(string(runes[start:end]))
	if start > 0 {
		out = ellipsis + out
	}
	if end < len(runes) {
		out += ellipsis
	}
	return out
}

func runeIndex(haystack, needle []rune) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j, r := range needle {
			if haystack[i+j] != r {
				continue outer
			}
		}
		return i
	}
	return -1
}
