package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/newthinker/specforge/internal/core"
)

// parseEnvelope extracts a JSON object from raw model output. Models
// sometimes wrap JSON in markdown fences or lead with prose, so the
// parse falls back to the outermost brace pair before giving up.
func parseEnvelope(content string) (map[string]any, error) {
	trimmed := strings.TrimSpace(content)
	trimmed = stripFences(trimmed)

	var envelope map[string]any
	if err := json.Unmarshal([]byte(trimmed), &envelope); err == nil {
		return envelope, nil
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(trimmed[start:end+1]), &envelope); err == nil {
			return envelope, nil
		}
	}

	return nil, core.WrapError(core.ErrResponseNotJSON,
		fmt.Errorf("response is not a JSON object (%d bytes)", len(content)))
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// Drop the language tag line ("json").
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
