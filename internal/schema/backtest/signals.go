package backtest

import (
	"github.com/newthinker/specforge/internal/schema"
)

// signalValidators dispatches on the kind discriminant. An unknown kind
// produces one diagnostic citing the allowed set and skips the rest of
// the fragment; known kinds run the variant check below.
var signalValidators = map[string]func(r *schema.Report, sig map[string]any, path string){
	string(KindThreshold):   validateThresholdSignal,
	string(KindCrossover):   validateCrossoverSignal,
	string(KindPrice):       validatePriceSignal,
	string(KindScheduled):   validateScheduledSignal,
	string(KindPositionPnL): validatePositionPnLSignal,
	string(KindRanking):     validateRankingSignal,
}

// paramKind selects the primitive rule applied to one indicator parameter.
type paramKind int

const (
	paramPositiveInt paramKind = iota
	paramPositiveNumber
)

type paramRule struct {
	key  string
	kind paramKind
}

// indicatorParams encodes per-indicator required parameters as data, so
// adding an indicator means adding one table entry rather than another
// branch chain.
var indicatorParams = map[string][]paramRule{
	"RSI":            {{"period", paramPositiveInt}},
	"EMA":            {{"period", paramPositiveInt}},
	"SMA":            {{"period", paramPositiveInt}},
	"ATR":            {{"period", paramPositiveInt}},
	"ADX":            {{"period", paramPositiveInt}},
	"VWAP":           {{"period", paramPositiveInt}},
	"Stochastic":     {{"period", paramPositiveInt}},
	"MACD":           {{"fastPeriod", paramPositiveInt}, {"slowPeriod", paramPositiveInt}, {"signalPeriod", paramPositiveInt}},
	"BollingerBands": {{"period", paramPositiveInt}, {"stdDev", paramPositiveNumber}},
}

func validateIndicatorParams(r *schema.Report, sig map[string]any, path, indicator string) {
	for _, rule := range indicatorParams[indicator] {
		switch rule.kind {
		case paramPositiveInt:
			schema.RequirePositiveInt(r, sig, path, rule.key)
		case paramPositiveNumber:
			schema.RequirePositiveNumber(r, sig, path, rule.key)
		}
	}
}

func validateThresholdSignal(r *schema.Report, sig map[string]any, path string) {
	indicator, _ := schema.RequireOneOf(r, schema.Field(path, "indicator"), sig["indicator"], Indicators)

	checkField := sig["check_field"]
	if checkField == nil {
		checkField = "value"
	}
	schema.RequireOneOf(r, schema.Field(path, "check_field"), checkField, CheckFields)

	schema.RequireOneOf(r, schema.Field(path, "operator"), sig["operator"], ThresholdOperators)

	if _, ok := schema.Number(sig["value"]); !ok {
		r.Add(schema.Field(path, "value"), "must be a number")
	}

	schema.RequireOneOf(r, schema.Field(path, "action"), sig["action"], Actions)

	if indicator != "" {
		validateIndicatorParams(r, sig, path, indicator)
	}

	if tf, present := sig["timeframe"]; present {
		schema.RequireOneOf(r, schema.Field(path, "timeframe"), tf, Timeframes)
	}

	validateGateField(r, sig, path)
}

func validateCrossoverSignal(r *schema.Report, sig map[string]any, path string) {
	for _, leg := range []string{"fast", "slow"} {
		legPath := schema.Field(path, leg)
		legObj, ok := schema.Object(sig[leg])
		if !ok {
			r.Add(legPath, "must be an object")
			continue
		}
		schema.RequireOneOf(r, schema.Field(legPath, "indicator"), legObj["indicator"], CrossoverLegIndicators)
		schema.RequirePositiveInt(r, legObj, legPath, "period")
	}

	schema.RequireOneOf(r, schema.Field(path, "direction"), sig["direction"], CrossoverDirections)
	schema.RequireOneOf(r, schema.Field(path, "action_on_bullish"), sig["action_on_bullish"], Actions)
	schema.RequireOneOf(r, schema.Field(path, "action_on_bearish"), sig["action_on_bearish"], Actions)

	validateGateField(r, sig, path)
}

func validatePriceSignal(r *schema.Report, sig map[string]any, path string) {
	condPath := schema.Field(path, "condition")
	cond, ok := schema.Object(sig["condition"])
	if !ok {
		r.Add(condPath, "must be an object")
	} else {
		found := false
		for _, key := range PriceConditionKeys {
			if _, present := cond[key]; present {
				found = true
				n, isNum := schema.Number(cond[key])
				if !isNum || n <= 0 {
					r.Add(schema.Field(condPath, key), "must be a positive number")
				}
			}
		}
		if !found {
			r.Add(condPath, "must include at least one of above/below/crosses")
		}
	}

	schema.RequireOneOf(r, schema.Field(path, "action"), sig["action"], Actions)

	validateGateField(r, sig, path)
}

func validateScheduledSignal(r *schema.Report, sig map[string]any, path string) {
	schema.RequirePositiveInt(r, sig, path, "every_n_bars")
	schema.RequireOneOf(r, schema.Field(path, "action"), sig["action"], Actions)
	validateGateField(r, sig, path)
}

func validatePositionPnLSignal(r *schema.Report, sig map[string]any, path string) {
	_, hasAbove := sig["pnl_pct_above"]
	_, hasBelow := sig["pnl_pct_below"]
	if !hasAbove && !hasBelow {
		r.Add(path, "must include at least one of pnl_pct_above/pnl_pct_below")
	}
	for _, key := range []string{"pnl_pct_above", "pnl_pct_below"} {
		if _, present := sig[key]; present {
			if _, ok := schema.Number(sig[key]); !ok {
				r.Add(schema.Field(path, key), "must be a number")
			}
		}
	}

	schema.RequireOneOf(r, schema.Field(path, "action"), sig["action"], Actions)
	validateGateField(r, sig, path)
}

func validateRankingSignal(r *schema.Report, sig map[string]any, path string) {
	schema.RequireNonEmptyString(r, sig, path, "rank_by")

	longN, longOK := schema.Int(sig["long_top_n"])
	if !longOK || longN < 0 {
		r.Add(schema.Field(path, "long_top_n"), "must be a non-negative integer")
	}
	shortN, shortOK := schema.Int(sig["short_bottom_n"])
	if !shortOK || shortN < 0 {
		r.Add(schema.Field(path, "short_bottom_n"), "must be a non-negative integer")
	}
	if longOK && shortOK && longN == 0 && shortN == 0 {
		r.Add(path, "at least one of long_top_n/short_bottom_n must be > 0")
	}

	schema.OptionalBool(r, sig, path, "rebalance")
	schema.OptionalBool(r, sig, path, "close_before_open")
	validateGateField(r, sig, path)
}

// validateGateField checks the optional re-entry gate of a signal.
func validateGateField(r *schema.Report, sig map[string]any, path string) {
	raw, present := sig["gate"]
	if !present {
		return
	}
	gatePath := schema.Field(path, "gate")
	gate, ok := schema.Object(raw)
	if !ok {
		r.Add(gatePath, "must be an object")
		return
	}

	schema.OptionalPositiveInt(r, gate, gatePath, "cooldown_bars")
	schema.OptionalPositiveInt(r, gate, gatePath, "max_total_fires")
	schema.OptionalBool(r, gate, gatePath, "requires_no_position")
	schema.OptionalBool(r, gate, gatePath, "requires_position")

	noPos, _ := schema.Bool(gate["requires_no_position"])
	hasPos, _ := schema.Bool(gate["requires_position"])
	if noPos && hasPos {
		r.Add(gatePath, "requires_no_position and requires_position are mutually exclusive")
	}
}
