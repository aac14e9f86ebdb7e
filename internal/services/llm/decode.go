package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// DecodeJSON unmarshals a model response into dst, tolerating markdown code
// fences and leading prose that some models emit around the JSON payload.
func DecodeJSON(content string, dst any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("decode llm json: empty content")
	}

	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}

	if err := json.Unmarshal([]byte(trimmed), dst); err == nil {
		return nil
	}

	start := strings.IndexAny(trimmed, "{[")
	if start < 0 {
		return errors.New("decode llm json: no JSON payload found")
	}
	return json.Unmarshal([]byte(trimmed[start:]), dst)
}
