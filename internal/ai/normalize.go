package ai

import "strings"

const (
	maxTagLen = 50
	maxTags   = 100
)

// NormalizeTags trims and lowercases tags, drops empty and over-length
// entries, removes duplicates keeping first occurrence, and caps the set
// at 100. The save step applies the same normalization, so tags reaching
// persistence are identical regardless of which path produced them.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || len([]rune(tag)) > maxTagLen {
			continue
		}
		if seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
		if len(out) == maxTags {
			break
		}
	}
	return out
}
