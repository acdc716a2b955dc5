package backtest

import (
	"fmt"

	"github.com/newthinker/specforge/internal/core"
	"github.com/newthinker/specforge/internal/schema"
)

// Validate runs every applicable check against doc and returns all
// diagnostics from one pass. It never mutates doc and never stops at the
// first defect.
func Validate(doc any) (bool, []schema.Diagnostic) {
	r := &schema.Report{}

	spec, ok := schema.Object(doc)
	if !ok {
		r.Add("root", "strategy_spec must be an object")
		return false, r.Diagnostics()
	}

	validateVersion(r, spec)

	for _, field := range []string{"strategy_id", "name"} {
		schema.RequireNonEmptyString(r, spec, "", field)
	}

	validateMarkets(r, spec)
	schema.RequireOneOf(r, "timeframe", spec["timeframe"], Timeframes)
	validateWindow(r, spec)
	validateSignals(r, spec)
	validateSizing(r, spec)
	validateRisk(r, spec)
	validateExits(r, spec)
	validateExecution(r, spec)
	validateConditions(r, spec)
	validateHooks(r, spec)
	validateAuxTimeframes(r, spec)

	schema.OptionalPositiveNumber(r, spec, "", "initial_capital_usd")
	if _, present := spec["seed"]; present {
		if _, ok := schema.Int(spec["seed"]); !ok {
			r.Add("seed", "must be an integer")
		}
	}

	return r.OK(), r.Diagnostics()
}

// AssertValid wraps Validate for callers that want fail-fast semantics:
// every diagnostic joined into one error.
func AssertValid(doc any) error {
	valid, diags := Validate(doc)
	if valid {
		return nil
	}
	return core.WrapError(core.ErrSpecInvalid, fmt.Errorf("invalid backtest strategy_spec: %s", schema.Join(diags)))
}

func validateVersion(r *schema.Report, spec map[string]any) {
	version, ok := schema.RequireNonEmptyString(r, spec, "", "version")
	if ok && version != SupportedVersion {
		r.Addf("version", "must equal %s", SupportedVersion)
	}
}

func validateMarkets(r *schema.Report, spec map[string]any) {
	markets, ok := schema.Array(spec["markets"])
	if !ok || len(markets) == 0 {
		r.Add("markets", "must be a non-empty list")
		return
	}
	for i, market := range markets {
		s, ok := schema.Str(market)
		if !ok || s == "" {
			r.Add(schema.Index("markets", i), "must be a non-empty string")
		}
	}
}

func validateWindow(r *schema.Report, spec map[string]any) {
	start, startOK := schema.Int(spec["start_ts"])
	if !startOK || start <= 0 {
		r.Add("start_ts", "must be a positive integer epoch ms")
	}
	end, endOK := schema.Int(spec["end_ts"])
	if !endOK || end <= 0 {
		r.Add("end_ts", "must be a positive integer epoch ms")
	}
	if startOK && endOK && end <= start {
		r.Add("end_ts", "must be greater than start_ts")
	}
}

func validateSignals(r *schema.Report, spec map[string]any) {
	signals, ok := schema.Array(spec["signals"])
	if !ok || len(signals) == 0 {
		r.Add("signals", "must be a non-empty list")
		return
	}

	seen := map[string]struct{}{}
	for i, raw := range signals {
		path := schema.Index("signals", i)
		sig, ok := schema.Object(raw)
		if !ok {
			r.Add(path, "must be an object")
			continue
		}

		id, idOK := schema.Str(sig["id"])
		if !idOK || id == "" {
			r.Add(schema.Field(path, "id"), "must be a non-empty string")
		} else if _, dup := seen[id]; dup {
			r.Addf(schema.Field(path, "id"), "duplicate signal id: %s", id)
		} else {
			seen[id] = struct{}{}
		}

		kind, kindOK := schema.Str(sig["kind"])
		validator, known := signalValidators[kind]
		if !kindOK || !known {
			// Fail fast on this fragment, fail soft across the document.
			r.Add(schema.Field(path, "kind"), schema.OneOfMessage(SignalKinds))
			continue
		}
		validator(r, sig, path)
	}
}

func validateSizing(r *schema.Report, spec map[string]any) {
	sizing, ok := schema.Object(spec["sizing"])
	if !ok {
		r.Add("sizing", "must be an object")
		return
	}

	mode, _ := schema.RequireOneOf(r, "sizing.mode", sizing["mode"], SizingModes)
	schema.RequirePositiveNumber(r, sizing, "sizing", "value")

	switch mode {
	case "equity_pct":
		if n, ok := schema.Number(sizing["value"]); ok && n > 1 {
			r.Add("sizing.value", "must be <= 1.0 when mode is equity_pct")
		}
	case "risk_based":
		schema.RequirePositiveNumber(r, sizing, "sizing", "risk_per_trade_usd")
		schema.RequirePositiveNumber(r, sizing, "sizing", "sl_atr_multiple")
	case "kelly":
		schema.RequireRatio(r, sizing, "sizing", "kelly_fraction")
		schema.OptionalPositiveInt(r, sizing, "sizing", "kelly_lookback_trades")
		schema.OptionalPositiveInt(r, sizing, "sizing", "kelly_min_trades")
		schema.OptionalRatio(r, sizing, "sizing", "max_balance_pct")
	case "signal_proportional":
		schema.OptionalPositiveNumber(r, sizing, "sizing", "base_notional_usd")
		schema.OptionalPositiveNumber(r, sizing, "sizing", "max_notional_usd")
		if _, present := sizing["signal_field"]; present {
			schema.RequireNonEmptyString(r, sizing, "sizing", "signal_field")
		}
	}
}

func validateRisk(r *schema.Report, spec map[string]any) {
	risk, ok := schema.Object(spec["risk"])
	if !ok {
		r.Add("risk", "must be an object")
		return
	}

	schema.RequirePositiveNumber(r, risk, "risk", "leverage")
	schema.RequirePositiveInt(r, risk, "risk", "max_positions")
	schema.RequirePositiveNumber(r, risk, "risk", "min_notional_usd")
	schema.OptionalPositiveNumber(r, risk, "risk", "daily_loss_limit_usd")
	schema.OptionalPositiveNumber(r, risk, "risk", "max_position_notional_usd")
	schema.OptionalPositiveNumber(r, risk, "risk", "max_total_notional_usd")
	schema.OptionalPositiveNumber(r, risk, "risk", "max_total_margin_usd")
	schema.OptionalRatio(r, risk, "risk", "maintenance_margin_rate")
	schema.OptionalBool(r, risk, "risk", "allow_position_add")
	schema.OptionalBool(r, risk, "risk", "allow_flip")
	schema.OptionalBool(r, risk, "risk", "independent_sub_positions")
}

func validateExits(r *schema.Report, spec map[string]any) {
	exits, ok := schema.Object(spec["exits"])
	if !ok {
		r.Add("exits", "must be an object")
		return
	}

	for _, key := range []string{"stop_loss_pct", "take_profit_pct", "trailing_stop_pct"} {
		schema.OptionalRatio(r, exits, "exits", key)
	}
	schema.OptionalPositiveInt(r, exits, "exits", "max_hold_bars")
	schema.OptionalBool(r, exits, "exits", "move_stop_to_break_even_after_tp")

	hasPartials := false
	if raw, present := exits["partial_take_profit_levels"]; present {
		partials, ok := schema.Array(raw)
		if !ok {
			r.Add("exits.partial_take_profit_levels", "must be a list")
		} else {
			hasPartials = len(partials) > 0
			closeSum := 0.0
			for i, rawLevel := range partials {
				path := schema.Index("exits.partial_take_profit_levels", i)
				level, ok := schema.Object(rawLevel)
				if !ok {
					r.Add(path, "must be an object")
					continue
				}
				schema.RequireRatio(r, level, path, "profit_pct")
				schema.RequireRatio(r, level, path, "close_fraction")
				if n, ok := schema.Number(level["close_fraction"]); ok {
					closeSum += n
				}
			}
			if closeSum > 1.000001 {
				r.Add("exits.partial_take_profit_levels", "sum(close_fraction) cannot exceed 1.0")
			}
		}
	}

	hasPrimary := false
	for _, key := range []string{"stop_loss_pct", "take_profit_pct", "trailing_stop_pct"} {
		if _, present := exits[key]; present {
			hasPrimary = true
		}
	}
	if !hasPrimary && !hasPartials {
		r.Add("exits", "at least one exit rule is required (stop_loss_pct, take_profit_pct, trailing_stop_pct, or partial_take_profit_levels)")
	}
}

func validateExecution(r *schema.Report, spec map[string]any) {
	execution, ok := schema.Object(spec["execution"])
	if !ok {
		r.Add("execution", "must be an object")
		return
	}

	schema.RequireOneOf(r, "execution.entry_order_type", execution["entry_order_type"], EntryOrderTypes)

	for _, key := range []string{"slippage_bps", "maker_fee_rate", "taker_fee_rate"} {
		schema.RequireNonNegativeNumber(r, execution, "execution", key)
	}
	if _, present := execution["limit_offset_bps"]; present {
		schema.RequireNonNegativeNumber(r, execution, "execution", "limit_offset_bps")
	}

	schema.RequireOneOf(r, "execution.stop_order_type", execution["stop_order_type"], ExitOrderTypes)
	schema.RequireOneOf(r, "execution.take_profit_order_type", execution["take_profit_order_type"], ExitOrderTypes)

	for _, key := range []string{"stop_limit_slippage_pct", "take_profit_limit_slippage_pct"} {
		schema.RequireUnitRange(r, execution, "execution", key)
	}

	schema.RequireOneOf(r, "execution.trigger_type", execution["trigger_type"], PriceTriggerTypes)
	schema.RequireBool(r, execution, "execution", "reduce_only_on_exits")
}

func validateAuxTimeframes(r *schema.Report, spec map[string]any) {
	raw, present := spec["auxiliary_timeframes"]
	if !present {
		return
	}
	aux, ok := schema.Array(raw)
	if !ok {
		r.Add("auxiliary_timeframes", "must be a list")
		return
	}
	for i, rawEntry := range aux {
		path := schema.Index("auxiliary_timeframes", i)
		entry, ok := schema.Object(rawEntry)
		if !ok {
			r.Add(path, "must be an object")
			continue
		}
		schema.RequireOneOf(r, schema.Field(path, "timeframe"), entry["timeframe"], Timeframes)
		markets, ok := schema.Array(entry["markets"])
		if !ok || len(markets) == 0 {
			r.Add(schema.Field(path, "markets"), "must be a non-empty list")
			continue
		}
		for j, market := range markets {
			s, ok := schema.Str(market)
			if !ok || s == "" {
				r.Add(schema.Index(schema.Field(path, "markets"), j), "must be a non-empty string")
			}
		}
	}
}
