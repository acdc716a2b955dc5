package agent

import (
	"strings"

	"github.com/newthinker/specforge/internal/schema"
	"github.com/newthinker/specforge/internal/schema/expr"
)

// validateSteps checks one step sequence. if/for_each recurse into child
// sequences with depth+1; exceeding MaxStepDepth is its own diagnostic
// and recursion stops there.
func validateSteps(r *schema.Report, raw any, path string, depth int) {
	if depth > MaxStepDepth {
		r.Addf(path, "step nesting exceeds maximum depth %d", MaxStepDepth)
		return
	}

	steps, ok := schema.Array(raw)
	if !ok || len(steps) == 0 {
		r.Add(path, "must be a non-empty list")
		return
	}

	for i, rawStep := range steps {
		stepPath := schema.Index(path, i)
		step, ok := schema.Object(rawStep)
		if !ok {
			r.Add(stepPath, "must be an object")
			continue
		}

		action, actionOK := schema.Str(step["action"])
		validator, known := stepValidators[action]
		if !actionOK || !known {
			r.Add(schema.Field(stepPath, "action"), schema.OneOfMessage(StepActions))
			continue
		}
		validator(r, step, stepPath, depth)
	}
}

// stepValidators dispatches on the action discriminant. Populated in init
// to break the initialization cycle with validateIfStep/validateForEachStep,
// which recurse back into validateSteps.
var stepValidators map[string]func(r *schema.Report, step map[string]any, path string, depth int)

func init() {
	stepValidators = map[string]func(r *schema.Report, step map[string]any, path string, depth int){
		string(ActionSet):           validateSetStep,
		string(ActionIf):            validateIfStep,
		string(ActionForEach):       validateForEachStep,
		string(ActionCall):          validateCallStep,
		string(ActionLog):           validateLeafStep,
		string(ActionUpdateState):   validateLeafStep,
		string(ActionSyncPositions): validateLeafStep,
		string(ActionPauseMs):       validateLeafStep,
		string(ActionReturn):        validateLeafStep,
		string(ActionAssert):        validateLeafStep,
	}
}

func validateSetStep(r *schema.Report, step map[string]any, path string, depth int) {
	if p, ok := schema.Str(step["path"]); !ok || strings.TrimSpace(p) == "" {
		r.Add(schema.Field(path, "path"), "must be a non-empty string")
	}
	if _, present := step["value"]; !present {
		r.Add(schema.Field(path, "value"), "is required")
	} else {
		expr.Validate(r, schema.Field(path, "value"), step["value"])
	}
}

func validateIfStep(r *schema.Report, step map[string]any, path string, depth int) {
	expr.Validate(r, schema.Field(path, "condition"), step["condition"])
	validateSteps(r, step["then"], schema.Field(path, "then"), depth+1)
	if _, present := step["else"]; present {
		validateSteps(r, step["else"], schema.Field(path, "else"), depth+1)
	}
}

func validateForEachStep(r *schema.Report, step map[string]any, path string, depth int) {
	expr.Validate(r, schema.Field(path, "list"), step["list"])
	if item, ok := schema.Str(step["item"]); !ok || strings.TrimSpace(item) == "" {
		r.Add(schema.Field(path, "item"), "must be a non-empty string")
	}
	validateSteps(r, step["steps"], schema.Field(path, "steps"), depth+1)
}

func validateCallStep(r *schema.Report, step map[string]any, path string, depth int) {
	schema.RequireOneOf(r, schema.Field(path, "target"), step["target"], CallTargets)
	if method, ok := schema.Str(step["method"]); !ok || strings.TrimSpace(method) == "" {
		r.Add(schema.Field(path, "method"), "must be a non-empty string")
	}
	if raw, present := step["args"]; present {
		args, ok := schema.Array(raw)
		if !ok {
			r.Add(schema.Field(path, "args"), "must be a list")
			return
		}
		argsPath := schema.Field(path, "args")
		for i, arg := range args {
			expr.Validate(r, schema.Index(argsPath, i), arg)
		}
	}
}

// validateLeafStep covers the non-nesting actions: whatever expression-
// bearing fields are present get validated.
func validateLeafStep(r *schema.Report, step map[string]any, path string, depth int) {
	for _, key := range []string{"message", "data", "ms", "value", "condition"} {
		if _, present := step[key]; present {
			expr.Validate(r, schema.Field(path, key), step[key])
		}
	}
}
