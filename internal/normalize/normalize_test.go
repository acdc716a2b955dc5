package normalize

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/newthinker/specforge/internal/core"
	"github.com/newthinker/specforge/internal/schema/backtest"
)

var testNow = time.UnixMilli(1735689600000) // 2025-01-01T00:00:00Z

func TestMinimalInputBecomesValidSpec(t *testing.T) {
	input := map[string]any{
		"strategy_spec": map[string]any{
			"signals": []any{},
			"markets": "btc-perp,eth",
		},
	}

	spec, assumptions, err := Backtest(input, "buy dips on btc", testNow)
	if err != nil {
		t.Fatal(err)
	}

	if got := spec["markets"]; !reflect.DeepEqual(got, []any{"BTC", "ETH"}) {
		t.Errorf("markets = %v", got)
	}

	signals := spec["signals"].([]any)
	if len(signals) != 1 {
		t.Fatalf("signals = %v", signals)
	}
	fallback := signals[0].(map[string]any)
	if fallback["id"] != "fallback_rsi" || fallback["kind"] != "threshold" || fallback["indicator"] != "RSI" {
		t.Errorf("fallback signal = %v", fallback)
	}

	sizing := spec["sizing"].(map[string]any)
	if sizing["mode"] != "notional_usd" || sizing["value"] != 100.0 {
		t.Errorf("sizing = %v", sizing)
	}

	exits := spec["exits"].(map[string]any)
	if exits["stop_loss_pct"] != 0.08 || exits["take_profit_pct"] != 0.12 {
		t.Errorf("exits = %v", exits)
	}

	if len(assumptions) < 4 {
		t.Errorf("expected several assumptions, got %v", assumptions)
	}

	// The normalizer's output must always survive the validator.
	if valid, diags := backtest.Validate(spec); !valid {
		t.Errorf("normalized spec fails validation: %v", diags)
	}
}

func TestAssumptionWording(t *testing.T) {
	input := map[string]any{"name": "My Strategy"}
	_, assumptions, err := Backtest(input, "", testNow)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		"strategy_id was auto-generated from strategy name.",
		"markets was missing; defaulted to BTC.",
		"start_ts defaulted from lookback window.",
		"end_ts defaulted to current timestamp.",
		"signals were missing; inserted fallback RSI threshold signal.",
		"sizing.mode defaulted to notional_usd.",
		"sizing.value defaulted to 100.",
		"risk.leverage defaulted to 3.",
		"risk.max_positions defaulted to number of markets.",
		"exits defaulted to stop_loss_pct=0.08 and take_profit_pct=0.12.",
		"initial_capital_usd defaulted to 10000.",
	}
	for _, w := range want {
		found := false
		for _, a := range assumptions {
			if a == w {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing assumption %q in %v", w, assumptions)
		}
	}
}

func TestStrategyIDFromName(t *testing.T) {
	spec, _, err := Backtest(map[string]any{"name": "RSI Bounce Strategy"}, "", testNow)
	if err != nil {
		t.Fatal(err)
	}
	if spec["strategy_id"] != "rsi-bounce-strategy" {
		t.Errorf("strategy_id = %v", spec["strategy_id"])
	}
	if spec["version"] != "1.0" {
		t.Errorf("version = %v", spec["version"])
	}
}

func TestWindowDefaults(t *testing.T) {
	spec, _, err := Backtest(map[string]any{"timeframe": "1h"}, "", testNow)
	if err != nil {
		t.Fatal(err)
	}
	end := spec["end_ts"].(int64)
	start := spec["start_ts"].(int64)
	if end != testNow.UnixMilli() {
		t.Errorf("end_ts = %d", end)
	}
	if got := end - start; got != int64(365)*24*60*60*1000 {
		t.Errorf("window = %d ms", got)
	}
}

func TestInvertedWindowReplaced(t *testing.T) {
	spec, assumptions, err := Backtest(map[string]any{
		"start_ts": float64(2000),
		"end_ts":   float64(1000),
	}, "", testNow)
	if err != nil {
		t.Fatal(err)
	}
	if spec["start_ts"].(int64) >= spec["end_ts"].(int64) {
		t.Errorf("window not repaired: %v..%v", spec["start_ts"], spec["end_ts"])
	}
	found := false
	for _, a := range assumptions {
		if a == "invalid time range replaced with default lookback window." {
			found = true
		}
	}
	if !found {
		t.Errorf("assumptions = %v", assumptions)
	}
}

func TestSignalNormalization(t *testing.T) {
	input := map[string]any{
		"signals": []any{
			// kind inferred from shape, defaults filled in.
			map[string]any{"indicator": "rsi", "operator": "LT", "value": "30", "action": "long"},
			// scheduled shorthand: intervalMs converted to bars.
			map[string]any{"kind": "scheduled", "intervalMs": float64(4 * 60 * 60 * 1000)},
			// position_pnl percents become ratios.
			map[string]any{"kind": "pnl", "pnl_pct_above": float64(10), "action": "sell"},
		},
		"timeframe": "1h",
	}

	spec, _, err := Backtest(input, "", testNow)
	if err != nil {
		t.Fatal(err)
	}
	signals := spec["signals"].([]any)
	if len(signals) != 3 {
		t.Fatalf("signals = %v", signals)
	}

	threshold := signals[0].(map[string]any)
	if threshold["kind"] != "threshold" || threshold["id"] != "signal_1" {
		t.Errorf("threshold = %v", threshold)
	}
	if threshold["indicator"] != "RSI" || threshold["operator"] != "lt" || threshold["action"] != "buy" {
		t.Errorf("threshold = %v", threshold)
	}
	if threshold["period"] != 14 || threshold["value"] != 30.0 {
		t.Errorf("threshold = %v", threshold)
	}

	scheduled := signals[1].(map[string]any)
	if scheduled["every_n_bars"] != 4 {
		t.Errorf("scheduled = %v", scheduled)
	}
	if _, present := scheduled["intervalMs"]; present {
		t.Error("intervalMs should be dropped after conversion")
	}

	pnl := signals[2].(map[string]any)
	if pnl["kind"] != "position_pnl" || pnl["pnl_pct_above"] != 0.1 {
		t.Errorf("pnl = %v", pnl)
	}
}

func TestEquityPctPercentToRatio(t *testing.T) {
	spec, assumptions, err := Backtest(map[string]any{
		"sizing": map[string]any{"mode": "equity_pct", "value": float64(25)},
	}, "", testNow)
	if err != nil {
		t.Fatal(err)
	}
	sizing := spec["sizing"].(map[string]any)
	if sizing["value"] != 0.25 {
		t.Errorf("sizing = %v", sizing)
	}
	found := false
	for _, a := range assumptions {
		if a == "sizing.value converted from percent to ratio for equity_pct." {
			found = true
		}
	}
	if !found {
		t.Errorf("assumptions = %v", assumptions)
	}
}

func TestExecutionDefaults(t *testing.T) {
	spec, _, err := Backtest(map[string]any{
		"execution": map[string]any{
			"entry_order_type": "IOC",
			"slippage_bps":     float64(0),
			"trigger_type":     "index",
		},
	}, "", testNow)
	if err != nil {
		t.Fatal(err)
	}
	execution := spec["execution"].(map[string]any)
	if execution["entry_order_type"] != "Ioc" {
		t.Errorf("entry_order_type = %v", execution["entry_order_type"])
	}
	// Zero counts as absent for the fee and slippage defaults.
	if execution["slippage_bps"] != 5.0 {
		t.Errorf("slippage_bps = %v", execution["slippage_bps"])
	}
	if execution["maker_fee_rate"] != 0.00015 || execution["taker_fee_rate"] != 0.00045 {
		t.Errorf("fees = %v %v", execution["maker_fee_rate"], execution["taker_fee_rate"])
	}
	if execution["trigger_type"] != "last" {
		t.Errorf("trigger_type = %v", execution["trigger_type"])
	}
	if execution["reduce_only_on_exits"] != true {
		t.Errorf("reduce_only_on_exits = %v", execution["reduce_only_on_exits"])
	}
}

func TestExitsPercentCoercion(t *testing.T) {
	spec, _, err := Backtest(map[string]any{
		"exits": map[string]any{
			"stop_loss_pct":   float64(8),
			"take_profit_pct": "12%",
		},
	}, "", testNow)
	if err != nil {
		t.Fatal(err)
	}
	exits := spec["exits"].(map[string]any)
	if exits["stop_loss_pct"] != 0.08 || exits["take_profit_pct"] != 0.12 {
		t.Errorf("exits = %v", exits)
	}
}

func TestNormalizationIsIdempotent(t *testing.T) {
	input := map[string]any{
		"name":    "Momentum",
		"markets": "btc,eth",
		"signals": []any{
			map[string]any{"kind": "threshold", "indicator": "RSI", "operator": "gt", "value": float64(70), "action": "sell"},
		},
	}
	first, _, err := Backtest(input, "", testNow)
	if err != nil {
		t.Fatal(err)
	}
	second, assumptions, err := Backtest(first, "", testNow)
	if err != nil {
		t.Fatal(err)
	}
	if len(assumptions) != 0 {
		t.Errorf("second pass should assume nothing, got %v", assumptions)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("not idempotent:\nfirst  = %v\nsecond = %v", first, second)
	}
}

func TestNonObjectEnvelope(t *testing.T) {
	_, _, err := Backtest(map[string]any{"strategy_spec": "nope"}, "", testNow)
	if !errors.Is(err, core.ErrSpecNotObject) {
		t.Errorf("err = %v", err)
	}
}

func TestInputIsNotMutated(t *testing.T) {
	input := map[string]any{
		"strategy_spec": map[string]any{
			"name":    "Original",
			"signals": []any{map[string]any{"kind": "scheduled", "every_n_bars": float64(2)}},
		},
	}
	if _, _, err := Backtest(input, "", testNow); err != nil {
		t.Fatal(err)
	}

	inner := input["strategy_spec"].(map[string]any)
	if _, present := inner["sizing"]; present {
		t.Error("input grew a sizing block")
	}
	signal := inner["signals"].([]any)[0].(map[string]any)
	if _, present := signal["id"]; present {
		t.Error("input signal grew an id")
	}
}
