package generator

import "strconv"

// buildNotes coerces the model's free-form notes object into a stable
// shape: complexity and reasoning_summary are strings, assumptions and
// unsupported_features are lists, mapping_confidence is clamped to
// [0, 1]. Normalization assumptions are appended after the model's own.
func buildNotes(raw any, normalization []string) map[string]any {
	notes, ok := raw.(map[string]any)
	if !ok {
		notes = map[string]any{}
	}

	assumptions := stringList(notes["assumptions"])
	assumptions = append(assumptions, normalization...)
	notes["assumptions"] = assumptions

	notes["complexity"] = stringOr(notes["complexity"], "medium")
	notes["reasoning_summary"] = stringOr(notes["reasoning_summary"],
		"Generated from natural language strategy request.")
	notes["unsupported_features"] = stringList(notes["unsupported_features"])

	confidence, ok := toFloat(notes["mapping_confidence"])
	if !ok {
		confidence = 0.75
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	notes["mapping_confidence"] = confidence

	return notes
}

func stringOr(v any, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}

func stringList(v any) []string {
	out := []string{}
	list, ok := v.([]any)
	if !ok {
		return out
	}
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
