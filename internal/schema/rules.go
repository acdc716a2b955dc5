package schema

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Type probes over decoded JSON. encoding/json decodes every number to
// float64, but documents built in-process may carry native ints, so the
// numeric probes accept both.

// Number returns the numeric value of v. Booleans are not numbers.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Int returns v as an integer. Integral floats qualify, fractional ones
// do not.
func Int(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == math.Trunc(n) && !math.IsInf(n, 0) {
			return int(n), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// Str returns v as a string.
func Str(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// Bool returns v as a bool.
func Bool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

// Object returns v as a JSON object.
func Object(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// Array returns v as a JSON array.
func Array(v any) ([]any, bool) {
	a, ok := v.([]any)
	return a, ok
}

// OneOfMessage renders the canonical "must be one of" message with the
// allowed set sorted, so every enum diagnostic cites the full set in a
// stable order.
func OneOfMessage(allowed []string) string {
	sorted := make([]string, len(allowed))
	copy(sorted, allowed)
	sort.Strings(sorted)
	return fmt.Sprintf("must be one of: [%s]", strings.Join(sorted, " "))
}

// RequireOneOf checks that v is a string inside the allowed set and
// reports the full set otherwise. Returns the matched value and whether
// it matched.
func RequireOneOf(r *Report, path string, v any, allowed []string) (string, bool) {
	s, ok := v.(string)
	if ok {
		for _, a := range allowed {
			if s == a {
				return s, true
			}
		}
	}
	r.Add(path, OneOfMessage(allowed))
	return "", false
}

// RequireNonEmptyString checks doc[key] is a non-blank string and returns it.
func RequireNonEmptyString(r *Report, doc map[string]any, prefix, key string) (string, bool) {
	s, ok := Str(doc[key])
	if !ok || strings.TrimSpace(s) == "" {
		r.Add(Field(prefix, key), "must be a non-empty string")
		return "", false
	}
	return s, true
}

// RequirePositiveNumber checks doc[key] is a number > 0.
func RequirePositiveNumber(r *Report, doc map[string]any, prefix, key string) {
	n, ok := Number(doc[key])
	if !ok || n <= 0 {
		r.Add(Field(prefix, key), "must be a positive number")
	}
}

// RequireNonNegativeNumber checks doc[key] is a number >= 0.
func RequireNonNegativeNumber(r *Report, doc map[string]any, prefix, key string) {
	n, ok := Number(doc[key])
	if !ok || n < 0 {
		r.Add(Field(prefix, key), "must be a non-negative number")
	}
}

// RequirePositiveInt checks doc[key] is an integer > 0.
func RequirePositiveInt(r *Report, doc map[string]any, prefix, key string) {
	n, ok := Int(doc[key])
	if !ok || n <= 0 {
		r.Add(Field(prefix, key), "must be a positive integer")
	}
}

// RequireRatio checks doc[key] is a number in (0, 1].
func RequireRatio(r *Report, doc map[string]any, prefix, key string) {
	n, ok := Number(doc[key])
	if !ok || n <= 0 || n > 1 {
		r.Add(Field(prefix, key), "must be a number in (0, 1]")
	}
}

// RequireUnitRange checks doc[key] is a number in [0, 1].
func RequireUnitRange(r *Report, doc map[string]any, prefix, key string) {
	n, ok := Number(doc[key])
	if !ok || n < 0 || n > 1 {
		r.Add(Field(prefix, key), "must be a number in [0, 1]")
	}
}

// RequireBool checks doc[key] is a boolean.
func RequireBool(r *Report, doc map[string]any, prefix, key string) {
	if _, ok := Bool(doc[key]); !ok {
		r.Add(Field(prefix, key), "must be a boolean")
	}
}

// OptionalPositiveNumber applies RequirePositiveNumber only when the key
// is present.
func OptionalPositiveNumber(r *Report, doc map[string]any, prefix, key string) {
	if _, present := doc[key]; present {
		RequirePositiveNumber(r, doc, prefix, key)
	}
}

// OptionalPositiveInt applies RequirePositiveInt only when the key is present.
func OptionalPositiveInt(r *Report, doc map[string]any, prefix, key string) {
	if _, present := doc[key]; present {
		RequirePositiveInt(r, doc, prefix, key)
	}
}

// OptionalRatio applies RequireRatio only when the key is present.
func OptionalRatio(r *Report, doc map[string]any, prefix, key string) {
	if _, present := doc[key]; present {
		RequireRatio(r, doc, prefix, key)
	}
}

// OptionalBool applies RequireBool only when the key is present.
func OptionalBool(r *Report, doc map[string]any, prefix, key string) {
	if _, present := doc[key]; present {
		RequireBool(r, doc, prefix, key)
	}
}
