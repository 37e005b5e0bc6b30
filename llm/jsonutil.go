package llm

import (
	"regexp"
	"strings"
)

// Patterns for pulling a JSON array out of a model response. Models wrap
// output in markdown fences or prepend prose despite instructions.
var (
	arrayFencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\[.*\\])\\s*```")
	arrayPattern      = regexp.MustCompile(`(?s)\[[\s\S]*\]`)
	trailingComma     = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSONArray extracts a JSON array from a model response, stripping
// markdown code fences and trailing commas. Returns "" when no array is
// present.
func ExtractJSONArray(content string) string {
	raw := ""
	if m := arrayFencePattern.FindStringSubmatch(content); len(m) > 1 {
		raw = m[1]
	} else if m := arrayPattern.FindString(content); m != "" {
		raw = m
	}
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(trailingComma.ReplaceAllString(raw, "$1"))
}
