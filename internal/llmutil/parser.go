// internal/llmutil/parser.go
package llmutil

import (
	"fmt"
	"regexp"
	"strings"

	json "github.com/json-iterator/go"
)

// fencedObject matches a JSON object wrapped in a markdown code fence.
var fencedObject = regexp.MustCompile("(?s)\x60\x60\x60(?:json|JSON)?\\s*({.*})\\s*\x60\x60\x60")

// ExtractJSONObject pulls the outermost JSON object out of a model reply,
// tolerating markdown fences and conversational text around it.
func ExtractJSONObject(response string) string {
	response = strings.TrimSpace(response)
	if strings.HasPrefix(response, "```") {
		if m := fencedObject.FindStringSubmatch(response); len(m) > 1 {
			return m[1]
		}
	}
	first := strings.Index(response, "{")
	last := strings.LastIndex(response, "}")
	if first != -1 && last > first {
		return response[first : last+1]
	}
	return response
}

// ParseJSONResponse decodes a model reply into T.
func ParseJSONResponse[T any](response string) (*T, error) {
	raw := ExtractJSONObject(response)
	var result T
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal LLM JSON response: %w. Extracted JSON (truncated): %s", err, Truncate(raw, 500))
	}
	return &result, nil
}

// Truncate shortens s to at most maxLen bytes, marking the cut with "...".
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
