package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSONObject pulls the first balanced JSON object out of model output.
// Handles bare JSON, ```json fences, and leading prose before the object.
func ExtractJSONObject(text string) (map[string]any, error) {
	text = stripFence(strings.TrimSpace(text))

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, fmt.Errorf("no JSON object in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				var out map[string]any
				if err := json.Unmarshal([]byte(text[start:i+1]), &out); err != nil {
					return nil, fmt.Errorf("parse JSON object: %w", err)
				}
				return out, nil
			}
		}
	}
	return nil, fmt.Errorf("unbalanced JSON object in response")
}

func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		// Drop the language tag line (```json).
		text = text[nl+1:]
	}
	if end := strings.LastIndex(text, "```"); end >= 0 {
		text = text[:end]
	}
	return strings.TrimSpace(text)
}
