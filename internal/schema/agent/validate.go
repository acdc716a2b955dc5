package agent

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/newthinker/specforge/internal/core"
	"github.com/newthinker/specforge/internal/schema"
	"github.com/newthinker/specforge/internal/schema/expr"
)

var kebabID = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Validate runs every applicable check against doc and returns all
// diagnostics from one pass. It never mutates doc.
func Validate(doc any) (bool, []schema.Diagnostic) {
	r := &schema.Report{}

	spec, ok := schema.Object(doc)
	if !ok {
		r.Add("root", "strategy_spec must be an object")
		return false, r.Diagnostics()
	}

	if version, _ := schema.Str(spec["version"]); version != SupportedVersion {
		r.Addf("version", "must equal supported version %s", SupportedVersion)
	}

	if id, ok := schema.RequireNonEmptyString(r, spec, "", "strategy_id"); ok && !kebabID.MatchString(id) {
		r.Add("strategy_id", "must be kebab-case (lowercase letters, digits, hyphens)")
	}
	schema.RequireNonEmptyString(r, spec, "", "name")

	if _, present := spec["mode"]; present {
		schema.RequireOneOf(r, "mode", spec["mode"], Modes)
	}

	validateVariables(r, spec)
	validateInitialState(r, spec)
	validateRiskLimits(r, spec)

	triggers := validateTriggers(r, spec)
	workflowIDs := validateWorkflows(r, spec)
	resolveTriggerTargets(r, triggers, workflowIDs)

	return r.OK(), r.Diagnostics()
}

// AssertValid wraps Validate for callers that want fail-fast semantics.
func AssertValid(doc any) error {
	valid, diags := Validate(doc)
	if valid {
		return nil
	}
	return core.WrapError(core.ErrSpecInvalid, fmt.Errorf("invalid strategy_spec: %s", schema.Join(diags)))
}

// validateVariables checks the free-variable mapping. Values are
// expression-validated so a reserved key or over-deep literal is caught
// before an interpreter ever sees it.
func validateVariables(r *schema.Report, spec map[string]any) {
	raw, present := spec["variables"]
	if !present {
		return
	}
	vars, ok := schema.Object(raw)
	if !ok {
		r.Add("variables", "must be an object")
		return
	}
	expr.Validate(r, "variables", map[string]any(vars))
}

func validateInitialState(r *schema.Report, spec map[string]any) {
	raw, present := spec["initial_state"]
	if !present {
		return
	}
	state, ok := schema.Object(raw)
	if !ok {
		r.Add("initial_state", "must be an object")
		return
	}
	expr.Validate(r, "initial_state", map[string]any(state))
}

// validateRiskLimits checks the flat risk-limits record. All numeric
// limits must be positive when present; null disables a limit.
func validateRiskLimits(r *schema.Report, spec map[string]any) {
	raw, present := spec["risk"]
	if !present {
		return
	}
	risk, ok := schema.Object(raw)
	if !ok {
		r.Add("risk", "must be an object")
		return
	}

	for _, key := range []string{"maxPositionSize", "maxLeverage", "dailyLossLimit", "minNotional", "maxConcurrentPositions"} {
		v, present := risk[key]
		if !present || v == nil {
			continue
		}
		n, ok := schema.Number(v)
		if !ok || n < 0 {
			r.Add(schema.Field("risk", key), "must be a non-negative number or null")
		}
	}
	schema.OptionalBool(r, risk, "risk", "requireSafetyCheck")
	schema.OptionalBool(r, risk, "risk", "allowUnsafeOrderMethods")
}

// validateTriggers checks the trigger list and returns the raw entries
// for the later cross-reference pass.
func validateTriggers(r *schema.Report, spec map[string]any) []any {
	triggers, ok := schema.Array(spec["triggers"])
	if !ok || len(triggers) == 0 {
		r.Add("triggers", "must be a non-empty list")
		return nil
	}

	seen := map[string]struct{}{}
	for i, raw := range triggers {
		path := schema.Index("triggers", i)
		trigger, ok := schema.Object(raw)
		if !ok {
			r.Add(path, "must be an object")
			continue
		}
		validateTrigger(r, trigger, path)

		if id, ok := schema.Str(trigger["id"]); ok && id != "" {
			if _, dup := seen[id]; dup {
				r.Addf(schema.Field(path, "id"), "duplicate trigger id: %s", id)
			}
			seen[id] = struct{}{}
		}
	}
	return triggers
}

func validateTrigger(r *schema.Report, trigger map[string]any, path string) {
	triggerType, ok := schema.Str(trigger["type"])
	if !ok {
		r.Add(schema.Field(path, "type"), schema.OneOfMessage(TriggerTypes))
		return
	}
	validator, known := triggerValidators[triggerType]
	if !known {
		r.Add(schema.Field(path, "type"), schema.OneOfMessage(TriggerTypes))
		return
	}

	schema.RequireNonEmptyString(r, trigger, path, "id")

	if target, ok := schema.Str(trigger["onTrigger"]); !ok || strings.TrimSpace(target) == "" {
		r.Add(schema.Field(path, "onTrigger"), "must be a non-empty workflow id")
	}

	if _, present := trigger["cooldownMs"]; present {
		n, ok := schema.Number(trigger["cooldownMs"])
		if !ok || n < 0 {
			r.Add(schema.Field(path, "cooldownMs"), "must be >= 0")
		}
	}
	if _, present := trigger["maxExecutions"]; present {
		schema.RequirePositiveInt(r, trigger, path, "maxExecutions")
	}

	validator(r, trigger, path)
}

// triggerValidators dispatches on the type discriminant.
var triggerValidators = map[string]func(r *schema.Report, trigger map[string]any, path string){
	string(TriggerPrice):     validatePriceTrigger,
	string(TriggerTechnical): validateTechnicalTrigger,
	string(TriggerScheduled): validateScheduledTrigger,
	string(TriggerEvent):     validateEventTrigger,
}

func validatePriceTrigger(r *schema.Report, trigger map[string]any, path string) {
	if coin, ok := schema.Str(trigger["coin"]); !ok || strings.TrimSpace(coin) == "" {
		r.Add(schema.Field(path, "coin"), "is required for price trigger")
	}

	condPath := schema.Field(path, "condition")
	cond, ok := schema.Object(trigger["condition"])
	if !ok {
		r.Add(condPath, "must be an object")
		return
	}
	for _, key := range PriceConditionKeys {
		if _, present := cond[key]; present {
			return
		}
	}
	r.Addf(condPath, "must include one of: %s", strings.Join(PriceConditionKeys, ", "))
}

func validateTechnicalTrigger(r *schema.Report, trigger map[string]any, path string) {
	if coin, ok := schema.Str(trigger["coin"]); !ok || strings.TrimSpace(coin) == "" {
		r.Add(schema.Field(path, "coin"), "is required for technical trigger")
	}
	schema.RequireOneOf(r, schema.Field(path, "indicator"), trigger["indicator"], TechnicalIndicators)
	if _, ok := schema.Object(trigger["params"]); !ok {
		r.Add(schema.Field(path, "params"), "must be an object")
	}
}

func validateScheduledTrigger(r *schema.Report, trigger map[string]any, path string) {
	n, ok := schema.Number(trigger["intervalMs"])
	if !ok || n <= 0 {
		r.Add(schema.Field(path, "intervalMs"), "must be > 0")
	}
}

func validateEventTrigger(r *schema.Report, trigger map[string]any, path string) {
	schema.RequireOneOf(r, schema.Field(path, "eventType"), trigger["eventType"], EventTypes)
}

// validateWorkflows checks the workflow mapping and returns the set of
// declared workflow ids.
func validateWorkflows(r *schema.Report, spec map[string]any) map[string]struct{} {
	workflows, ok := schema.Object(spec["workflows"])
	if !ok || len(workflows) == 0 {
		r.Add("workflows", "must be a non-empty object")
		return nil
	}

	ids := make(map[string]struct{}, len(workflows))
	for _, workflowID := range sortedKeys(workflows) {
		ids[workflowID] = struct{}{}
		path := schema.Field("workflows", workflowID)
		workflow, ok := schema.Object(workflows[workflowID])
		if !ok {
			r.Add(path, "must be an object")
			continue
		}
		validateSteps(r, workflow["steps"], schema.Field(path, "steps"), 0)
	}
	return ids
}

// resolveTriggerTargets confirms every onTrigger names a declared
// workflow. Every dangling reference is reported at its trigger index.
func resolveTriggerTargets(r *schema.Report, triggers []any, workflowIDs map[string]struct{}) {
	if workflowIDs == nil {
		return
	}
	for i, raw := range triggers {
		trigger, ok := schema.Object(raw)
		if !ok {
			continue
		}
		target, ok := schema.Str(trigger["onTrigger"])
		if !ok || target == "" {
			continue
		}
		if _, declared := workflowIDs[target]; !declared {
			r.Addf(schema.Field(schema.Index("triggers", i), "onTrigger"), "references unknown workflow %s", target)
		}
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Deterministic diagnostic order across runs.
	sort.Strings(keys)
	return keys
}
