package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Loose coercions. Unlike the validator's strict probes, these accept
// string-typed numbers, "8%" suffixes, and yes/no booleans, because the
// input comes from a generator that is not guaranteed to emit clean
// types.

// toInt coerces v to an integer. Fractional values and non-numeric
// strings return false.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case bool:
		return 0, false
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == math.Trunc(n) {
			return int(n), true
		}
		return 0, false
	case string:
		stripped := strings.TrimSpace(n)
		if stripped == "" {
			return 0, false
		}
		if strings.Contains(stripped, ".") {
			f, err := strconv.ParseFloat(stripped, 64)
			if err != nil || f != math.Trunc(f) {
				return 0, false
			}
			return int(f), true
		}
		i, err := strconv.Atoi(stripped)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// toFloat coerces v to a float. Strings may carry thousands separators
// and a trailing percent sign.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case bool:
		return 0, false
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case string:
		stripped := strings.ReplaceAll(strings.TrimSpace(n), ",", "")
		stripped = strings.TrimSuffix(stripped, "%")
		f, err := strconv.ParseFloat(stripped, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// toBool coerces v to a bool, falling back to def.
func toBool(v any, def bool) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "yes", "y":
			return true
		case "false", "0", "no", "n":
			return false
		}
	case int:
		return b != 0
	case int64:
		return b != 0
	case float64:
		return b != 0
	}
	return def
}

var nonKebab = regexp.MustCompile(`[^a-z0-9]+`)

// sanitizeKebab lowercases and collapses everything non-alphanumeric
// into single hyphens; empty results fall back.
func sanitizeKebab(value, fallback string) string {
	cleaned := nonKebab.ReplaceAllString(strings.ToLower(value), "-")
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		return fallback
	}
	return cleaned
}

// pctRatio resolves percent-vs-ratio ambiguity by magnitude: a value in
// (1, 100] is read as a percent and divided by 100; anything else passes
// through. A value like 1.5 therefore becomes 0.015 — the boundary
// between 1 and 2 is inherently ambiguous and is kept as the runtime has
// always read it.
func pctRatio(v any) (float64, bool) {
	n, ok := toFloat(v)
	if !ok {
		return 0, false
	}
	if n > 1 && n <= 100 {
		return n / 100.0, true
	}
	return n, true
}

// normalizeTimeframe maps aliases to canonical timeframes, defaulting
// unrecognized values to 1h.
func normalizeTimeframe(v any) string {
	if s, ok := v.(string); ok {
		if canonical, known := timeframeAliases[strings.ToLower(strings.TrimSpace(s))]; known {
			return canonical
		}
	}
	return defaultTimeframe
}

// normalizeMarket uppercases a symbol and strips perpetual-contract
// suffixes. Returns "" when nothing usable remains.
func normalizeMarket(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	cleaned := strings.ToUpper(strings.TrimSpace(s))
	cleaned = strings.ReplaceAll(cleaned, "-PERP", "")
	cleaned = strings.ReplaceAll(cleaned, "PERP", "")
	cleaned = strings.Trim(cleaned, "-_ ")
	return cleaned
}

// normalizeMarketList accepts a comma-separated string or a list and
// returns deduplicated canonical symbols, preserving first-seen order.
func normalizeMarketList(v any) []string {
	var parts []any
	switch raw := v.(type) {
	case string:
		for _, part := range strings.Split(raw, ",") {
			parts = append(parts, strings.TrimSpace(part))
		}
	case []any:
		parts = raw
	}

	seen := map[string]struct{}{}
	var symbols []string
	for _, part := range parts {
		normalized := normalizeMarket(part)
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		symbols = append(symbols, normalized)
	}
	return symbols
}

// normalizeOrderType canonicalizes order type spellings, falling back
// when unrecognized.
func normalizeOrderType(v any, fallback string) string {
	if s, ok := v.(string); ok {
		if mapped, known := entryOrderAliases[strings.ToLower(strings.TrimSpace(s))]; known {
			return mapped
		}
	}
	return fallback
}

// deepCopy clones a JSON-shaped value so normalization never mutates the
// caller's document.
func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = deepCopy(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = deepCopy(child)
		}
		return out
	default:
		return v
	}
}
