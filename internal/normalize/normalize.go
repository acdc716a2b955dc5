package normalize

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/newthinker/specforge/internal/core"
)

// Backtest canonicalizes a candidate backtest document. The input may be
// the bare spec object or an envelope with a strategy_spec key. It
// returns a fresh canonical document and the assumptions log — one
// sentence per inferred default or coercion. The caller's document is
// never mutated.
func Backtest(input map[string]any, description string, now time.Time) (map[string]any, []string, error) {
	nowMs := now.UnixMilli()
	var assumptions []string

	payload := input
	if raw, present := input["strategy_spec"]; present {
		inner, ok := raw.(map[string]any)
		if !ok {
			return nil, nil, core.ErrSpecNotObject
		}
		payload = inner
	}

	spec := deepCopy(payload).(map[string]any)

	name := "Generated Backtest Strategy"
	if s, ok := spec["name"].(string); ok && strings.TrimSpace(s) != "" {
		name = strings.TrimSpace(s)
	}

	strategyID, hasID := spec["strategy_id"].(string)
	if !hasID || strings.TrimSpace(strategyID) == "" {
		seed := name
		if seed == "" {
			seed = description
		}
		strategyID = sanitizeKebab(seed, "generated-strategy")
		assumptions = append(assumptions, "strategy_id was auto-generated from strategy name.")
	}

	spec["version"] = "1.0"
	spec["strategy_id"] = sanitizeKebab(strategyID, "generated-strategy")
	spec["name"] = name

	markets := normalizeMarketList(spec["markets"])
	if len(markets) == 0 {
		inferred := normalizeMarket(spec["coin"])
		if inferred == "" {
			inferred = "BTC"
		}
		markets = []string{inferred}
		assumptions = append(assumptions, "markets was missing; defaulted to BTC.")
	}
	spec["markets"] = toAnySlice(markets)
	delete(spec, "coin")

	timeframe := normalizeTimeframe(spec["timeframe"])
	if raw, _ := spec["timeframe"].(string); raw != timeframe {
		assumptions = append(assumptions, fmt.Sprintf("timeframe normalized to %s.", timeframe))
	}
	spec["timeframe"] = timeframe

	defaultStart, defaultEnd := defaultWindow(timeframe, nowMs)
	startTS, startOK := toInt(spec["start_ts"])
	endTS, endOK := toInt(spec["end_ts"])
	start64, end64 := int64(startTS), int64(endTS)
	if !startOK || start64 <= 0 {
		start64 = defaultStart
		assumptions = append(assumptions, "start_ts defaulted from lookback window.")
	}
	if !endOK || end64 <= 0 {
		end64 = defaultEnd
		assumptions = append(assumptions, "end_ts defaulted to current timestamp.")
	}
	if end64 <= start64 {
		start64, end64 = defaultStart, defaultEnd
		assumptions = append(assumptions, "invalid time range replaced with default lookback window.")
	}
	spec["start_ts"] = start64
	spec["end_ts"] = end64

	signals := normalizeSignals(spec["signals"], timeframe)
	if len(signals) == 0 {
		signals = []any{map[string]any{
			"id":          "fallback_rsi",
			"kind":        "threshold",
			"indicator":   "RSI",
			"period":      14,
			"check_field": "value",
			"operator":    "lt",
			"value":       30.0,
			"action":      "buy",
		}}
		assumptions = append(assumptions, "signals were missing; inserted fallback RSI threshold signal.")
	}
	spec["signals"] = signals

	spec["sizing"] = normalizeSizing(spec["sizing"], &assumptions)
	spec["risk"] = normalizeRisk(spec["risk"], len(markets), &assumptions)
	spec["exits"] = normalizeExits(spec["exits"], &assumptions)
	spec["execution"] = normalizeExecution(spec["execution"])

	capital, ok := toFloat(spec["initial_capital_usd"])
	if !ok || capital <= 0 {
		capital = 10000.0
		assumptions = append(assumptions, "initial_capital_usd defaulted to 10000.")
	}
	spec["initial_capital_usd"] = capital

	if _, present := spec["seed"]; present {
		if seed, ok := toInt(spec["seed"]); ok {
			spec["seed"] = seed
		} else {
			delete(spec, "seed")
		}
	}

	// Extended fields pass through when list-shaped; the validator owns
	// their content.
	for _, key := range []string{"conditions", "hooks", "auxiliary_timeframes"} {
		if raw, present := spec[key]; present {
			if _, ok := raw.([]any); !ok {
				delete(spec, key)
			}
		}
	}

	return spec, assumptions, nil
}

func defaultWindow(timeframe string, nowMs int64) (int64, int64) {
	days, ok := lookbackDaysByTimeframe[timeframe]
	if !ok {
		days = defaultLookbackDays
	}
	end := nowMs
	start := end - int64(days)*24*60*60*1000
	return start, end
}

// inferSignalKind resolves the kind discriminant, falling back to shape
// probing when it is absent.
func inferSignalKind(signal map[string]any) string {
	if raw, ok := signal["kind"].(string); ok {
		kind := strings.ToLower(strings.TrimSpace(raw))
		switch kind {
		case "position_pnl", "pnl", "positionpnl":
			return "position_pnl"
		case "ranking", "rank":
			return "ranking"
		}
		return kind
	}
	if _, ok := signal["pnl_pct_above"]; ok {
		return "position_pnl"
	}
	if _, ok := signal["pnl_pct_below"]; ok {
		return "position_pnl"
	}
	if _, ok := signal["rank_by"]; ok {
		return "ranking"
	}
	_, hasIndicator := signal["indicator"]
	_, hasOperator := signal["operator"]
	if hasIndicator && hasOperator {
		return "threshold"
	}
	_, hasFast := signal["fast"]
	_, hasSlow := signal["slow"]
	if hasFast && hasSlow {
		return "crossover"
	}
	if _, ok := signal["condition"]; ok {
		return "price"
	}
	if _, ok := signal["every_n_bars"]; ok {
		return "scheduled"
	}
	if _, ok := signal["intervalMs"]; ok {
		return "scheduled"
	}
	return "threshold"
}

func normalizeIndicator(v any) string {
	raw, ok := v.(string)
	if !ok {
		return "RSI"
	}
	raw = strings.TrimSpace(raw)
	switch upper := strings.ToUpper(raw); upper {
	case "RSI", "EMA", "SMA", "MACD", "ATR", "ADX", "VWAP":
		return upper
	case "BOLLINGERBANDS", "BOLLINGER_BANDS", "BBANDS", "BOLLINGER":
		return "BollingerBands"
	case "STOCHASTIC", "STOCH", "STOCHASTICS":
		return "Stochastic"
	}
	return raw
}

func normalizeSignalAction(v any, fallback string) string {
	if s, ok := v.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "buy", "long":
			return "buy"
		case "sell", "short":
			return "sell"
		}
	}
	return fallback
}

func normalizeGate(gate map[string]any) map[string]any {
	normalized := map[string]any{}
	if cooldown, ok := toInt(gate["cooldown_bars"]); ok && cooldown > 0 {
		normalized["cooldown_bars"] = cooldown
	}
	if maxFires, ok := toInt(gate["max_total_fires"]); ok && maxFires > 0 {
		normalized["max_total_fires"] = maxFires
	}
	if _, present := gate["requires_no_position"]; present {
		normalized["requires_no_position"] = toBool(gate["requires_no_position"], false)
	}
	if _, present := gate["requires_position"]; present {
		normalized["requires_position"] = toBool(gate["requires_position"], false)
	}
	return normalized
}

func normalizeGateField(signal map[string]any) {
	if gate, ok := signal["gate"].(map[string]any); ok {
		signal["gate"] = normalizeGate(gate)
	}
}

var periodIndicators = map[string]struct{}{
	"RSI": {}, "EMA": {}, "SMA": {}, "BollingerBands": {},
	"ATR": {}, "ADX": {}, "VWAP": {}, "Stochastic": {},
}

func normalizeSignals(raw any, timeframe string) []any {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}

	var normalized []any
	for idx, rawSignal := range list {
		original, ok := rawSignal.(map[string]any)
		if !ok {
			continue
		}
		signal := deepCopy(original).(map[string]any)

		if id, ok := signal["id"].(string); !ok || strings.TrimSpace(id) == "" {
			signal["id"] = fmt.Sprintf("signal_%d", idx+1)
		}

		kind := inferSignalKind(signal)
		signal["kind"] = kind

		switch kind {
		case "threshold":
			normalizeThresholdSignal(signal)
		case "crossover":
			normalizeCrossoverSignal(signal)
		case "price":
			normalizePriceSignal(signal)
		case "scheduled":
			normalizeScheduledSignal(signal, timeframe)
		case "position_pnl":
			normalizePositionPnLSignal(signal)
		case "ranking":
			normalizeRankingSignal(signal)
		}

		normalized = append(normalized, signal)
	}
	return normalized
}

func normalizeThresholdSignal(signal map[string]any) {
	indicator := normalizeIndicator(signal["indicator"])
	signal["indicator"] = indicator

	checkField := "value"
	if s, ok := signal["check_field"].(string); ok && s != "" {
		checkField = s
	}
	signal["check_field"] = checkField

	operator := "lt"
	if s, ok := signal["operator"].(string); ok && s != "" {
		operator = strings.ToLower(s)
	}
	signal["operator"] = operator
	signal["action"] = normalizeSignalAction(signal["action"], "buy")

	if _, periodBased := periodIndicators[indicator]; periodBased {
		period, ok := toInt(signal["period"])
		if !ok || period <= 0 {
			period = 14
		}
		signal["period"] = period
	}
	if indicator == "BollingerBands" {
		stdDev, ok := toFloat(signal["stdDev"])
		if !ok || stdDev <= 0 {
			stdDev = 2.0
		}
		signal["stdDev"] = stdDev
	}
	if indicator == "MACD" {
		signal["fastPeriod"] = positiveIntOr(signal["fastPeriod"], 12)
		signal["slowPeriod"] = positiveIntOr(signal["slowPeriod"], 26)
		signal["signalPeriod"] = positiveIntOr(signal["signalPeriod"], 9)
	}
	if indicator == "Stochastic" {
		if sp, ok := toInt(signal["signalPeriod"]); ok && sp > 0 {
			signal["signalPeriod"] = sp
		}
	}

	value, ok := toFloat(signal["value"])
	if !ok {
		value = 0.0
	}
	signal["value"] = value

	normalizeGateField(signal)
	if _, present := signal["timeframe"]; present {
		signal["timeframe"] = normalizeTimeframe(signal["timeframe"])
	}
}

func normalizeCrossoverSignal(signal map[string]any) {
	signal["fast"] = normalizeLeg(signal["fast"], 9)
	signal["slow"] = normalizeLeg(signal["slow"], 21)

	direction := "both"
	if s, ok := signal["direction"].(string); ok {
		lowered := strings.ToLower(s)
		if lowered == "bullish" || lowered == "bearish" || lowered == "both" {
			direction = lowered
		}
	}
	signal["direction"] = direction
	signal["action_on_bullish"] = normalizeSignalAction(signal["action_on_bullish"], "buy")
	signal["action_on_bearish"] = normalizeSignalAction(signal["action_on_bearish"], "sell")
	normalizeGateField(signal)
}

func normalizeLeg(raw any, defaultPeriod int) map[string]any {
	leg, _ := raw.(map[string]any)
	indicator := "EMA"
	if s, ok := leg["indicator"].(string); ok && strings.ToUpper(s) == "SMA" {
		indicator = "SMA"
	}
	period := positiveIntOr(leg["period"], defaultPeriod)
	if period < 1 {
		period = 1
	}
	return map[string]any{"indicator": indicator, "period": period}
}

func normalizePriceSignal(signal map[string]any) {
	condition, _ := signal["condition"].(map[string]any)
	normalized := map[string]any{}
	for _, key := range []string{"above", "below", "crosses"} {
		if n, ok := toFloat(condition[key]); ok && n > 0 {
			normalized[key] = n
		}
	}
	signal["condition"] = normalized
	signal["action"] = normalizeSignalAction(signal["action"], "buy")
	normalizeGateField(signal)
}

func normalizeScheduledSignal(signal map[string]any, timeframe string) {
	bars, ok := toInt(signal["every_n_bars"])
	if !ok || bars <= 0 {
		bars = 1
		if intervalMs, ok := toInt(signal["intervalMs"]); ok && intervalMs > 0 {
			tfMinutes, known := timeframeMinutes[timeframe]
			if !known {
				tfMinutes = 60
			}
			computed := int(math.Round(float64(intervalMs) / float64(tfMinutes*60*1000)))
			if computed > bars {
				bars = computed
			}
		}
	}
	signal["every_n_bars"] = bars
	delete(signal, "intervalMs")
	signal["action"] = normalizeSignalAction(signal["action"], "buy")
	normalizeGateField(signal)
}

func normalizePositionPnLSignal(signal map[string]any) {
	for _, key := range []string{"pnl_pct_above", "pnl_pct_below"} {
		if _, present := signal[key]; !present {
			continue
		}
		v, ok := toFloat(signal[key])
		if !ok {
			continue
		}
		if math.Abs(v) > 1 {
			if ratio, ok := pctRatio(v); ok {
				v = ratio
			}
		}
		signal[key] = v
	}
	signal["action"] = normalizeSignalAction(signal["action"], "buy")
	normalizeGateField(signal)
}

func normalizeRankingSignal(signal map[string]any) {
	if rankBy, ok := signal["rank_by"].(string); !ok || strings.TrimSpace(rankBy) == "" {
		signal["rank_by"] = "change_24h"
	}
	longTopN, ok := toInt(signal["long_top_n"])
	if !ok || longTopN < 0 {
		longTopN = 1
	}
	signal["long_top_n"] = longTopN

	shortBottomN, ok := toInt(signal["short_bottom_n"])
	if !ok || shortBottomN < 0 {
		shortBottomN = 0
	}
	signal["short_bottom_n"] = shortBottomN

	for _, key := range []string{"rebalance", "close_before_open"} {
		if _, present := signal[key]; present {
			signal[key] = toBool(signal[key], false)
		}
	}
	normalizeGateField(signal)
}

func normalizeSizing(raw any, assumptions *[]string) map[string]any {
	sizing, _ := raw.(map[string]any)

	mode, _ := sizing["mode"].(string)
	switch mode {
	case "notional_usd", "margin_usd", "equity_pct", "base_units", "risk_based", "kelly", "signal_proportional":
	default:
		mode = "notional_usd"
		*assumptions = append(*assumptions, "sizing.mode defaulted to notional_usd.")
	}

	value, ok := toFloat(sizing["value"])
	if !ok || value <= 0 {
		value = 100.0
		*assumptions = append(*assumptions, "sizing.value defaulted to 100.")
	}
	if mode == "equity_pct" && value > 1 {
		value = value / 100.0
		*assumptions = append(*assumptions, "sizing.value converted from percent to ratio for equity_pct.")
	}

	normalized := map[string]any{"mode": mode, "value": value}

	switch mode {
	case "risk_based":
		if rpt, ok := toFloat(sizing["risk_per_trade_usd"]); ok && rpt > 0 {
			normalized["risk_per_trade_usd"] = rpt
		}
		if slATR, ok := toFloat(sizing["sl_atr_multiple"]); ok && slATR > 0 {
			normalized["sl_atr_multiple"] = slATR
		}
	case "kelly":
		if kf, ok := toFloat(sizing["kelly_fraction"]); ok && kf > 0 && kf <= 1 {
			normalized["kelly_fraction"] = kf
		}
		if klt, ok := toInt(sizing["kelly_lookback_trades"]); ok && klt > 0 {
			normalized["kelly_lookback_trades"] = klt
		}
		if kmt, ok := toInt(sizing["kelly_min_trades"]); ok && kmt > 0 {
			normalized["kelly_min_trades"] = kmt
		}
		if mbp, ok := toFloat(sizing["max_balance_pct"]); ok && mbp > 0 && mbp <= 1 {
			normalized["max_balance_pct"] = mbp
		}
	case "signal_proportional":
		if bn, ok := toFloat(sizing["base_notional_usd"]); ok && bn > 0 {
			normalized["base_notional_usd"] = bn
		}
		if mn, ok := toFloat(sizing["max_notional_usd"]); ok && mn > 0 {
			normalized["max_notional_usd"] = mn
		}
		if sf, ok := sizing["signal_field"].(string); ok && strings.TrimSpace(sf) != "" {
			normalized["signal_field"] = strings.TrimSpace(sf)
		}
	}

	return normalized
}

func normalizeRisk(raw any, marketCount int, assumptions *[]string) map[string]any {
	risk, _ := raw.(map[string]any)

	leverage, ok := toFloat(risk["leverage"])
	if !ok || leverage <= 0 {
		leverage = 3.0
		*assumptions = append(*assumptions, "risk.leverage defaulted to 3.")
	}

	maxPositions, ok := toInt(risk["max_positions"])
	if !ok || maxPositions <= 0 {
		maxPositions = marketCount
		*assumptions = append(*assumptions, "risk.max_positions defaulted to number of markets.")
	}

	minNotional, ok := toFloat(risk["min_notional_usd"])
	if !ok || minNotional <= 0 {
		minNotional = 10.0
	}

	normalized := map[string]any{
		"leverage":           leverage,
		"max_positions":      maxPositions,
		"min_notional_usd":   minNotional,
		"allow_position_add": toBool(risk["allow_position_add"], true),
		"allow_flip":         toBool(risk["allow_flip"], true),
	}

	for _, key := range []string{"daily_loss_limit_usd", "max_position_notional_usd", "max_total_notional_usd", "max_total_margin_usd"} {
		if opt, ok := toFloat(risk[key]); ok && opt > 0 {
			normalized[key] = opt
		}
	}

	if mmr, ok := toFloat(risk["maintenance_margin_rate"]); ok && mmr > 0 && mmr <= 1 {
		normalized["maintenance_margin_rate"] = mmr
	}

	if _, present := risk["independent_sub_positions"]; present {
		normalized["independent_sub_positions"] = toBool(risk["independent_sub_positions"], false)
	}

	return normalized
}

func normalizeExits(raw any, assumptions *[]string) map[string]any {
	exits, _ := raw.(map[string]any)
	normalized := map[string]any{}

	for _, key := range []string{"stop_loss_pct", "take_profit_pct", "trailing_stop_pct"} {
		if _, present := exits[key]; !present {
			continue
		}
		// Out-of-percent-range values pass through untouched and are
		// left for the validator's (0, 1] check.
		if ratio, ok := pctRatio(exits[key]); ok && ratio > 0 {
			normalized[key] = ratio
		}
	}

	if maxHold, ok := toInt(exits["max_hold_bars"]); ok && maxHold > 0 {
		normalized["max_hold_bars"] = maxHold
	}

	if _, present := exits["move_stop_to_break_even_after_tp"]; present {
		normalized["move_stop_to_break_even_after_tp"] = toBool(exits["move_stop_to_break_even_after_tp"], false)
	}

	if partials, ok := exits["partial_take_profit_levels"].([]any); ok {
		var normalizedPartials []any
		for _, rawLevel := range partials {
			level, ok := rawLevel.(map[string]any)
			if !ok {
				continue
			}
			profitPct, profitOK := pctRatio(level["profit_pct"])
			closeFraction, closeOK := pctRatio(level["close_fraction"])
			if !profitOK || !closeOK || profitPct <= 0 || closeFraction <= 0 {
				continue
			}
			normalizedPartials = append(normalizedPartials, map[string]any{
				"profit_pct":     profitPct,
				"close_fraction": closeFraction,
			})
		}
		if len(normalizedPartials) > 0 {
			normalized["partial_take_profit_levels"] = normalizedPartials
		}
	}

	hasRule := false
	for _, key := range []string{"stop_loss_pct", "take_profit_pct", "trailing_stop_pct", "partial_take_profit_levels"} {
		if _, present := normalized[key]; present {
			hasRule = true
		}
	}
	if !hasRule {
		normalized["stop_loss_pct"] = 0.08
		normalized["take_profit_pct"] = 0.12
		*assumptions = append(*assumptions, "exits defaulted to stop_loss_pct=0.08 and take_profit_pct=0.12.")
	}

	return normalized
}

func normalizeExecution(raw any) map[string]any {
	execution, _ := raw.(map[string]any)

	stopOrderType := "market"
	if s, ok := execution["stop_order_type"].(string); ok && strings.ToLower(s) == "limit" {
		stopOrderType = "limit"
	}
	tpOrderType := "market"
	if s, ok := execution["take_profit_order_type"].(string); ok && strings.ToLower(s) == "limit" {
		tpOrderType = "limit"
	}

	triggerType := "last"
	if s, ok := execution["trigger_type"].(string); ok {
		lowered := strings.ToLower(s)
		if lowered == "mark" || lowered == "last" || lowered == "oracle" {
			triggerType = lowered
		}
	}

	return map[string]any{
		"entry_order_type":               normalizeOrderType(execution["entry_order_type"], "market"),
		"limit_offset_bps":               math.Max(0, floatOr(execution["limit_offset_bps"], 0.0)),
		"slippage_bps":                   math.Max(0, floatOr(execution["slippage_bps"], 5.0)),
		"maker_fee_rate":                 math.Max(0, floatOr(execution["maker_fee_rate"], 0.00015)),
		"taker_fee_rate":                 math.Max(0, floatOr(execution["taker_fee_rate"], 0.00045)),
		"stop_order_type":                stopOrderType,
		"take_profit_order_type":         tpOrderType,
		"stop_limit_slippage_pct":        ratioOr(execution["stop_limit_slippage_pct"], 0.03),
		"take_profit_limit_slippage_pct": ratioOr(execution["take_profit_limit_slippage_pct"], 0.01),
		"trigger_type":                   triggerType,
		"reduce_only_on_exits":           toBool(execution["reduce_only_on_exits"], true),
	}
}

// floatOr coerces or falls back; zero counts as absent, matching the
// runtime the defaults were lifted from.
func floatOr(v any, def float64) float64 {
	n, ok := toFloat(v)
	if !ok || n == 0 {
		return def
	}
	return n
}

func ratioOr(v any, def float64) float64 {
	n, ok := pctRatio(v)
	if !ok || n == 0 {
		return def
	}
	return n
}

func positiveIntOr(v any, def int) int {
	n, ok := toInt(v)
	if !ok || n <= 0 {
		return def
	}
	return n
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
