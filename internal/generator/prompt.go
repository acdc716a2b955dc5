package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/newthinker/specforge/internal/schema"
)

const backtestSystemPrompt = `You are an elite quant strategy transpiler for Hyperliquid backtesting.
Convert plain-English strategy requests into strict JSON for a candle-based backtest engine.

Rules:
- Return valid JSON only. No JavaScript, no pseudocode.
- Prefer deterministic, conservative mappings. Keep assumptions explicit.
- If a feature can't be represented, approximate it and note the gap.
- Optimize for: schema validity, execution realism, safe defaults.

Engine capabilities:
- 9 indicators: RSI, EMA, SMA, MACD, BollingerBands, ATR, ADX, VWAP, Stochastic
- 6 signal kinds: threshold, crossover, price, scheduled, position_pnl, ranking
- Compound conditions (AND/OR), signal gates, custom hooks (sandboxed JS)
- Dynamic sizing (risk_based, kelly, signal_proportional)
- Portfolio risk (notional/margin caps, liquidation sim), multi-timeframe, multi-market
Use these features when the strategy calls for them.`

const backtestGenerationPrompt = `Convert the strategy request into a backtest strategy_spec JSON envelope.

Timestamp (epoch ms): {now_ts}
Request: {strategy_description}

Output format:
{ "strategy_spec": {...}, "notes": { "complexity": "simple|medium|high|extreme", "reasoning_summary": "...", "assumptions": [...], "unsupported_features": [...], "mapping_confidence": 0.0 } }

REQUIRED FIELDS:
version: "1.0" | strategy_id: kebab-case | name: string | markets: string[]
timeframe: "1m"|"3m"|"5m"|"15m"|"30m"|"1h"|"2h"|"4h"|"8h"|"12h"|"1d"|"3d"|"1w"|"1M"
start_ts / end_ts: epoch ms | signals: [>=1] | sizing | risk | exits | execution
initial_capital_usd: number | seed: optional int
OPTIONAL: auxiliary_timeframes, conditions, hooks

SIGNALS (all support optional "gate": { cooldown_bars?, max_total_fires?, requires_no_position?, requires_position? }):
1) threshold: { id, kind:"threshold", indicator, period, check_field, operator:"lt|lte|gt|gte", value, action:"buy|sell", timeframe?, gate? }
   MACD needs fastPeriod/slowPeriod/signalPeriod (no period). BollingerBands needs period+stdDev.
2) crossover: { id, kind:"crossover", fast:{indicator,period}, slow:{indicator,period}, direction:"bullish|bearish|both", action_on_bullish, action_on_bearish }
3) price: { id, kind:"price", condition:{above?,below?,crosses?}, action }
4) scheduled: { id, kind:"scheduled", every_n_bars, action, gate? }
5) position_pnl: { id, kind:"position_pnl", pnl_pct_above?, pnl_pct_below?, action, gate? }
6) ranking: { id, kind:"ranking", rank_by, long_top_n, short_bottom_n, rebalance?, close_before_open?, gate? }

SIZING: { mode:"notional_usd|margin_usd|equity_pct|base_units|risk_based|kelly|signal_proportional", value, ... }
RISK: { leverage, max_positions, min_notional_usd, daily_loss_limit_usd?, allow_position_add, allow_flip, max_total_notional_usd?, maintenance_margin_rate?, independent_sub_positions? }
EXITS: { stop_loss_pct?:(0,1], take_profit_pct?:(0,1], trailing_stop_pct?:(0,1], max_hold_bars?, partial_take_profit_levels?:[{profit_pct,close_fraction}], move_stop_to_break_even_after_tp? }
EXECUTION: { entry_order_type:"market|limit|Ioc|Gtc|Alo", limit_offset_bps?, slippage_bps, maker_fee_rate, taker_fee_rate, stop_order_type, take_profit_order_type, stop_limit_slippage_pct, take_profit_limit_slippage_pct, trigger_type:"mark|last|oracle", reduce_only_on_exits }

DEFAULTS & MAPPING:
- Percents become decimals (8% -> 0.08). Markets uppercase, no suffixes.
- Missing timeframe -> "1h". Missing range -> end=now, start=now-180d.
- Missing sizing -> notional_usd:100. Missing risk -> leverage:3, min_notional:10, max_pos=len(markets).
- Missing exits -> SL:0.08, TP:0.12. Deterministic IDs, minimal signals.
- "double down X%" -> position_pnl(pnl_pct_below:-X/100). "max N buys" -> gate(max_total_fires:N).

Example: "Buy SOL when RSI(14,1h)<25, sell>75. 5x leverage."
-> markets:["SOL"], timeframe:"1h", signals:[
   {id:"rsi_buy", kind:"threshold", indicator:"RSI", period:14, check_field:"value", operator:"lt", value:25, action:"buy", gate:{requires_no_position:true}},
   {id:"rsi_sell", kind:"threshold", indicator:"RSI", period:14, check_field:"value", operator:"gt", value:75, action:"sell", gate:{requires_position:true}}],
   risk:{leverage:5, max_positions:1, min_notional_usd:10, allow_position_add:true, allow_flip:true}

IMPORTANT: Your output must be a COMPLETE, VALID JSON object with all required fields expanded.
Include full execution, risk, exits, sizing.`

const agentSystemPrompt = `You are an expert translator of trading strategy descriptions into declarative agent specs for Hyperliquid.
Convert plain-English strategy requests into strict JSON: triggers that fire on market conditions, and workflows of interpreted steps.

Rules:
- Return valid JSON only. No code, no prose outside the JSON.
- Every trigger's onTrigger must name a declared workflow.
- Keep nesting shallow; the interpreter bounds expression depth at 24 and step depth at 32.

Capabilities:
- 4 trigger types: price, technical, scheduled, event
- 10 step actions: set, if, for_each, call, log, update_state, sync_positions, pause_ms, return, assert
- Expressions: literals, {"ref":"path"}, {"op":"<name>","args":[...]}`

const agentGenerationPrompt = `Convert the strategy request into an agent strategy_spec JSON envelope.

Request: {strategy_description}

Output format:
{ "strategy_spec": {...}, "notes": { "complexity": "simple|medium|high|extreme", "reasoning_summary": "...", "assumptions": [...], "unsupported_features": [...], "mapping_confidence": 0.0 } }

REQUIRED FIELDS:
version: "1.0" | strategy_id: kebab-case | name: string
triggers: [>=1] | workflows: {workflow_id: {steps:[...]}}
OPTIONAL: mode:"spec|hybrid", description, initial_state, variables, risk

TRIGGERS (all have id, onTrigger:<workflow id>, optional cooldownMs/maxExecutions):
- price: { type:"price", coin, condition:{above?|below?|crosses?|crosses_above?|crosses_below?} }
- technical: { type:"technical", coin, indicator, params:{...} }
- scheduled: { type:"scheduled", intervalMs:>0 }
- event: { type:"event", eventType:"liquidation|largeTrade|userFill|l2Book" }

STEPS:
- set: { action:"set", path, value:<expr> }
- if: { action:"if", condition:<expr>, then:[...], else?:[...] }
- for_each: { action:"for_each", list:<expr>, item, steps:[...] }
- call: { action:"call", target:"market|user|order|agent|state", method, args?:[<expr>] }
- log / update_state / sync_positions / pause_ms / return / assert

RISK: { maxPositionSize?, maxLeverage?, dailyLossLimit?, minNotional?, maxConcurrentPositions?, requireSafetyCheck?, allowUnsafeOrderMethods? }
Numeric limits are positive numbers or null (null disables the limit).`

// renderBacktestPrompt fills the generation template.
func renderBacktestPrompt(description string, nowMs int64) string {
	out := strings.ReplaceAll(backtestGenerationPrompt, "{now_ts}", fmt.Sprintf("%d", nowMs))
	return strings.ReplaceAll(out, "{strategy_description}", strings.TrimSpace(description))
}

func renderAgentPrompt(description string) string {
	return strings.ReplaceAll(agentGenerationPrompt, "{strategy_description}", strings.TrimSpace(description))
}

// buildCorrectionPrompt asks the model to repair the listed fields and
// nothing else.
func buildCorrectionPrompt(spec map[string]any, diags []schema.Diagnostic) string {
	var sb strings.Builder
	sb.WriteString("The strategy_spec you generated failed schema validation.\n")
	sb.WriteString("Fix ONLY the fields listed below and return the corrected full JSON envelope ")
	sb.WriteString(`({ "strategy_spec": {...}, "notes": {...} }).` + "\n\n")
	sb.WriteString("Validation errors:\n")
	for _, d := range diags {
		fmt.Fprintf(&sb, "  - %s: %s\n", d.Path, d.Message)
	}
	sb.WriteString("\nOriginal spec:\n")
	encoded, err := json.MarshalIndent(spec, "", "  ")
	if err == nil {
		sb.Write(encoded)
	}
	return sb.String()
}
