package models

import "strings"

// NormalizeTags trims tags, joins inner whitespace with "-", and drops
// case-insensitive duplicates. The first spelling of a tag wins.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		cleaned := strings.Join(strings.Fields(tag), "-")
		if cleaned == "" {
			continue
		}
		key := strings.ToLower(cleaned)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, cleaned)
	}
	return out
}

// ParseTagList splits a comma or whitespace separated tag string.
func ParseTagList(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	return NormalizeTags(parts)
}
