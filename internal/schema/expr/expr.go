// Package expr validates the algebraic expression language used inside
// workflow steps and signal conditions: a recursive union of literals,
// {ref: path} references, {op: name, args: [...]} applications, and plain
// nested objects/arrays of expressions.
package expr

import (
	"sort"

	"github.com/newthinker/specforge/internal/schema"
)

// MaxDepth bounds expression nesting. Deeper trees are reported as a
// diagnostic and recursion stops, so adversarial input cannot exhaust
// the stack.
const MaxDepth = 24

// reservedKeys would corrupt the interpreter's scope objects when the
// expression is later evaluated.
var reservedKeys = map[string]struct{}{
	"__proto__":   {},
	"constructor": {},
	"prototype":   {},
}

// Validate walks an expression tree rooted at value, appending every
// defect to r addressed relative to path.
func Validate(r *schema.Report, path string, value any) {
	validate(r, path, value, 0)
}

func validate(r *schema.Report, path string, value any, depth int) {
	if depth > MaxDepth {
		r.Addf(path, "expression nesting exceeds maximum depth %d", MaxDepth)
		return
	}

	switch v := value.(type) {
	case nil, bool, string, float64, float32, int, int64:
		return

	case []any:
		for i, item := range v {
			validate(r, schema.Index(path, i), item, depth+1)
		}
		return

	case map[string]any:
		if _, hasRef := v["ref"]; hasRef {
			ref, ok := schema.Str(v["ref"])
			if len(v) != 1 || !ok || ref == "" {
				r.Add(path, "ref expression must be {ref: <non-empty-string>}")
			}
			return
		}

		if _, hasOp := v["op"]; hasOp {
			op, ok := schema.Str(v["op"])
			if !ok || op == "" {
				r.Add(schema.Field(path, "op"), "must be a non-empty string")
			}
			args, present := v["args"]
			if !present {
				return
			}
			list, ok := schema.Array(args)
			if !ok {
				r.Add(schema.Field(path, "args"), "must be a list")
				return
			}
			argsPath := schema.Field(path, "args")
			for i, arg := range list {
				validate(r, schema.Index(argsPath, i), arg, depth+1)
			}
			return
		}

		// Plain object literal: validate children, keys sorted for
		// deterministic diagnostic order.
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			childPath := schema.Field(path, k)
			if _, reserved := reservedKeys[k]; reserved {
				r.Add(childPath, "reserved key is not allowed")
				continue
			}
			validate(r, childPath, v[k], depth+1)
		}
		return

	default:
		r.Add(path, "must be a primitive, list, or object expression")
	}
}
