package llm

import (
	"encoding/json"
	"strings"
)

// ExtractJSON strips markdown code fences and surrounding whitespace from an
// LLM response, returning the bare JSON text.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		endIdx := len(lines) - 1
		for i := len(lines) - 1; i > 0; i-- {
			if strings.TrimSpace(lines[i]) == "```" {
				endIdx = i
				break
			}
		}
		text = strings.Join(lines[1:endIdx], "\n")
	}

	return text
}

// ParseJSONObject parses a JSON object response from an LLM, handling
// markdown code blocks. Returns an error for unparseable input; callers
// treat that as a hard failure rather than silently degrading.
func ParseJSONObject(text string) (map[string]any, error) {
	var result map[string]any
	if err := json.Unmarshal([]byte(ExtractJSON(text)), &result); err != nil {
		return nil, err
	}
	return result, nil
}
