package backtest

import (
	"github.com/newthinker/specforge/internal/schema"
)

// Conditions and hooks carry their own id scopes and may reference
// declared signal ids. Declarations are collected in one pass, then every
// reference is resolved against the matching set; each duplicate and each
// dangling reference is reported, never just the first.

// declaredSignalIDs collects signal ids without reporting anything; the
// duplicate diagnostics belong to validateSignals.
func declaredSignalIDs(spec map[string]any) map[string]struct{} {
	ids := map[string]struct{}{}
	signals, ok := schema.Array(spec["signals"])
	if !ok {
		return ids
	}
	for _, raw := range signals {
		sig, ok := schema.Object(raw)
		if !ok {
			continue
		}
		if id, ok := schema.Str(sig["id"]); ok && id != "" {
			ids[id] = struct{}{}
		}
	}
	return ids
}

func validateConditions(r *schema.Report, spec map[string]any) {
	raw, present := spec["conditions"]
	if !present {
		return
	}
	conditions, ok := schema.Array(raw)
	if !ok {
		r.Add("conditions", "must be a list")
		return
	}

	signalIDs := declaredSignalIDs(spec)
	seen := map[string]struct{}{}
	for i, rawCond := range conditions {
		path := schema.Index("conditions", i)
		cond, ok := schema.Object(rawCond)
		if !ok {
			r.Add(path, "must be an object")
			continue
		}

		id, idOK := schema.Str(cond["id"])
		if !idOK || id == "" {
			r.Add(schema.Field(path, "id"), "must be a non-empty string")
		} else if _, dup := seen[id]; dup {
			r.Addf(schema.Field(path, "id"), "duplicate condition id: %s", id)
		} else {
			seen[id] = struct{}{}
		}

		schema.RequireOneOf(r, schema.Field(path, "operator"), cond["operator"], ConditionOperators)
		schema.RequireOneOf(r, schema.Field(path, "action"), cond["action"], Actions)
		if _, present := cond["priority"]; present {
			if _, ok := schema.Int(cond["priority"]); !ok {
				r.Add(schema.Field(path, "priority"), "must be an integer")
			}
		}

		clauses, ok := schema.Array(cond["clauses"])
		if !ok || len(clauses) == 0 {
			r.Add(schema.Field(path, "clauses"), "must be a non-empty list")
			continue
		}
		for j, rawClause := range clauses {
			clausePath := schema.Index(schema.Field(path, "clauses"), j)
			clause, ok := schema.Object(rawClause)
			if !ok {
				r.Add(clausePath, "must be an object")
				continue
			}
			validateClause(r, clause, clausePath, signalIDs)
		}
	}
}

func validateClause(r *schema.Report, clause map[string]any, path string, signalIDs map[string]struct{}) {
	clauseType, ok := schema.Str(clause["type"])
	if !ok {
		r.Add(schema.Field(path, "type"), schema.OneOfMessage(ClauseTypes))
		return
	}

	switch clauseType {
	case "indicator_compare":
		schema.RequireNonEmptyString(r, clause, path, "indicator")
		schema.RequireNonEmptyString(r, clause, path, "field")
		schema.RequireOneOf(r, schema.Field(path, "operator"), clause["operator"], ThresholdOperators)
		if _, ok := schema.Number(clause["value"]); !ok {
			r.Add(schema.Field(path, "value"), "must be a number")
		}

	case "volume_compare":
		schema.RequirePositiveNumber(r, clause, path, "volume_ratio_above")
		schema.OptionalPositiveInt(r, clause, path, "volume_lookback")

	case "position_state":
		schema.OptionalBool(r, clause, path, "has_position")
		for _, key := range []string{"position_pnl_pct_above", "position_pnl_pct_below"} {
			if _, present := clause[key]; present {
				if _, ok := schema.Number(clause[key]); !ok {
					r.Add(schema.Field(path, key), "must be a number")
				}
			}
		}

	case "signal_active":
		id, ok := schema.RequireNonEmptyString(r, clause, path, "signal_id")
		if ok {
			if _, declared := signalIDs[id]; !declared {
				r.Addf(schema.Field(path, "signal_id"), "references unknown signal id: %s", id)
			}
		}

	default:
		r.Add(schema.Field(path, "type"), schema.OneOfMessage(ClauseTypes))
	}
}

func validateHooks(r *schema.Report, spec map[string]any) {
	raw, present := spec["hooks"]
	if !present {
		return
	}
	hooks, ok := schema.Array(raw)
	if !ok {
		r.Add("hooks", "must be a list")
		return
	}

	seen := map[string]struct{}{}
	for i, rawHook := range hooks {
		path := schema.Index("hooks", i)
		hook, ok := schema.Object(rawHook)
		if !ok {
			r.Add(path, "must be an object")
			continue
		}

		id, idOK := schema.Str(hook["id"])
		if !idOK || id == "" {
			r.Add(schema.Field(path, "id"), "must be a non-empty string")
		} else if _, dup := seen[id]; dup {
			r.Addf(schema.Field(path, "id"), "duplicate hook id: %s", id)
		} else {
			seen[id] = struct{}{}
		}

		schema.RequireOneOf(r, schema.Field(path, "trigger"), hook["trigger"], HookTriggers)
		schema.RequireNonEmptyString(r, hook, path, "code")
		schema.OptionalPositiveNumber(r, hook, path, "timeout_ms")
	}
}
