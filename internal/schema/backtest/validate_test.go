package backtest

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/newthinker/specforge/internal/schema"
)

// validSpec builds a canonical document the way encoding/json would
// decode it: all numbers as float64.
func validSpec() map[string]any {
	return map[string]any{
		"version":     "1.0",
		"strategy_id": "rsi-bounce",
		"name":        "RSI Bounce",
		"markets":     []any{"SOL"},
		"timeframe":   "1h",
		"start_ts":    float64(1700000000000),
		"end_ts":      float64(1710000000000),
		"signals": []any{
			map[string]any{
				"id":          "rsi_buy",
				"kind":        "threshold",
				"indicator":   "RSI",
				"period":      float64(14),
				"check_field": "value",
				"operator":    "lt",
				"value":       float64(25),
				"action":      "buy",
				"gate":        map[string]any{"requires_no_position": true},
			},
		},
		"sizing": map[string]any{"mode": "notional_usd", "value": float64(100)},
		"risk": map[string]any{
			"leverage":         float64(5),
			"max_positions":    float64(1),
			"min_notional_usd": float64(10),
		},
		"exits": map[string]any{"stop_loss_pct": 0.08, "take_profit_pct": 0.12},
		"execution": map[string]any{
			"entry_order_type":               "market",
			"slippage_bps":                   float64(5),
			"maker_fee_rate":                 0.00015,
			"taker_fee_rate":                 0.00045,
			"stop_order_type":                "market",
			"take_profit_order_type":         "market",
			"stop_limit_slippage_pct":        0.03,
			"take_profit_limit_slippage_pct": 0.01,
			"trigger_type":                   "last",
			"reduce_only_on_exits":           true,
		},
		"initial_capital_usd": float64(10000),
	}
}

func findDiag(diags []schema.Diagnostic, path string) (schema.Diagnostic, bool) {
	for _, d := range diags {
		if d.Path == path {
			return d, true
		}
	}
	return schema.Diagnostic{}, false
}

func TestValidSpecPasses(t *testing.T) {
	valid, diags := Validate(validSpec())
	if !valid {
		t.Fatalf("canonical spec should validate, got: %v", diags)
	}
}

func TestValidSpecSurvivesJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(validSpec())
	if err != nil {
		t.Fatal(err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if valid, diags := Validate(doc); !valid {
		t.Fatalf("round-tripped spec should validate, got: %v", diags)
	}
}

func TestNonObjectRoot(t *testing.T) {
	valid, diags := Validate([]any{})
	if valid || len(diags) != 1 {
		t.Fatalf("diags = %v", diags)
	}
	if diags[0].Path != "root" || diags[0].Message != "strategy_spec must be an object" {
		t.Errorf("unexpected root diagnostic: %v", diags[0])
	}
}

func TestRootFieldRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(spec map[string]any)
		path   string
	}{
		{"wrong version", func(s map[string]any) { s["version"] = "2.0" }, "version"},
		{"missing version", func(s map[string]any) { delete(s, "version") }, "version"},
		{"blank strategy_id", func(s map[string]any) { s["strategy_id"] = "  " }, "strategy_id"},
		{"missing name", func(s map[string]any) { delete(s, "name") }, "name"},
		{"empty markets", func(s map[string]any) { s["markets"] = []any{} }, "markets"},
		{"blank market entry", func(s map[string]any) { s["markets"] = []any{"BTC", ""} }, "markets[1]"},
		{"bad timeframe", func(s map[string]any) { s["timeframe"] = "7h" }, "timeframe"},
		{"zero start_ts", func(s map[string]any) { s["start_ts"] = float64(0) }, "start_ts"},
		{"fractional end_ts", func(s map[string]any) { s["end_ts"] = 1.5 }, "end_ts"},
		{"inverted window", func(s map[string]any) { s["end_ts"], s["start_ts"] = s["start_ts"], s["end_ts"] }, "end_ts"},
		{"missing sizing", func(s map[string]any) { delete(s, "sizing") }, "sizing"},
		{"missing risk", func(s map[string]any) { delete(s, "risk") }, "risk"},
		{"missing exits", func(s map[string]any) { delete(s, "exits") }, "exits"},
		{"missing execution", func(s map[string]any) { delete(s, "execution") }, "execution"},
		{"negative capital", func(s map[string]any) { s["initial_capital_usd"] = float64(-1) }, "initial_capital_usd"},
		{"fractional seed", func(s map[string]any) { s["seed"] = 1.5 }, "seed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			tt.mutate(spec)
			valid, diags := Validate(spec)
			if valid {
				t.Fatal("expected invalid")
			}
			if _, found := findDiag(diags, tt.path); !found {
				t.Errorf("no diagnostic at %q, got %v", tt.path, diags)
			}
		})
	}
}

func TestDuplicateSignalIDReportedAtSecondOccurrence(t *testing.T) {
	spec := validSpec()
	signals := spec["signals"].([]any)
	second := map[string]any{}
	for k, v := range signals[0].(map[string]any) {
		second[k] = v
	}
	spec["signals"] = append(signals, second)

	valid, diags := Validate(spec)
	if valid {
		t.Fatal("expected invalid")
	}
	d, found := findDiag(diags, "signals[1].id")
	if !found || d.Message != "duplicate signal id: rsi_buy" {
		t.Errorf("diags = %v", diags)
	}
}

func TestUnknownKindFailsFragmentOnly(t *testing.T) {
	spec := validSpec()
	spec["signals"] = []any{
		map[string]any{"id": "weird", "kind": "sentiment", "operator": 5},
		map[string]any{"id": "sched", "kind": "scheduled", "every_n_bars": float64(0), "action": "buy"},
	}

	_, diags := Validate(spec)
	d, found := findDiag(diags, "signals[0].kind")
	if !found {
		t.Fatalf("no kind diagnostic: %v", diags)
	}
	want := schema.OneOfMessage(SignalKinds)
	if d.Message != want {
		t.Errorf("kind message = %q, want %q", d.Message, want)
	}
	// The unknown fragment is skipped, but the next signal still gets
	// checked.
	if _, found := findDiag(diags, "signals[0].operator"); found {
		t.Error("unknown kind fragment should not be checked further")
	}
	if _, found := findDiag(diags, "signals[1].every_n_bars"); !found {
		t.Errorf("second signal not checked: %v", diags)
	}
}

func TestSignalKindRules(t *testing.T) {
	tests := []struct {
		name   string
		signal map[string]any
		path   string
	}{
		{
			"threshold bad operator",
			map[string]any{"id": "a", "kind": "threshold", "indicator": "RSI", "period": float64(14), "operator": "eq", "value": float64(30), "action": "buy"},
			"signals[0].operator",
		},
		{
			"macd missing periods",
			map[string]any{"id": "a", "kind": "threshold", "indicator": "MACD", "check_field": "histogram", "operator": "gt", "value": float64(0), "action": "buy"},
			"signals[0].fastPeriod",
		},
		{
			"bollinger missing stdDev",
			map[string]any{"id": "a", "kind": "threshold", "indicator": "BollingerBands", "period": float64(20), "check_field": "upper", "operator": "gt", "value": float64(1), "action": "sell"},
			"signals[0].stdDev",
		},
		{
			"crossover bad leg",
			map[string]any{"id": "a", "kind": "crossover", "fast": map[string]any{"indicator": "RSI", "period": float64(9)}, "slow": map[string]any{"indicator": "EMA", "period": float64(21)}, "direction": "both", "action_on_bullish": "buy", "action_on_bearish": "sell"},
			"signals[0].fast.indicator",
		},
		{
			"price empty condition",
			map[string]any{"id": "a", "kind": "price", "condition": map[string]any{}, "action": "buy"},
			"signals[0].condition",
		},
		{
			"price non-positive level",
			map[string]any{"id": "a", "kind": "price", "condition": map[string]any{"above": float64(0)}, "action": "buy"},
			"signals[0].condition.above",
		},
		{
			"scheduled zero cadence",
			map[string]any{"id": "a", "kind": "scheduled", "every_n_bars": float64(0), "action": "buy"},
			"signals[0].every_n_bars",
		},
		{
			"position_pnl missing thresholds",
			map[string]any{"id": "a", "kind": "position_pnl", "action": "sell"},
			"signals[0]",
		},
		{
			"ranking both zero",
			map[string]any{"id": "a", "kind": "ranking", "rank_by": "change_24h", "long_top_n": float64(0), "short_bottom_n": float64(0)},
			"signals[0]",
		},
		{
			"gate mutual exclusion",
			map[string]any{"id": "a", "kind": "scheduled", "every_n_bars": float64(1), "action": "buy", "gate": map[string]any{"requires_no_position": true, "requires_position": true}},
			"signals[0].gate",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			spec["signals"] = []any{tt.signal}
			valid, diags := Validate(spec)
			if valid {
				t.Fatal("expected invalid")
			}
			if _, found := findDiag(diags, tt.path); !found {
				t.Errorf("no diagnostic at %q, got %v", tt.path, diags)
			}
		})
	}
}

func TestSizingModeRules(t *testing.T) {
	tests := []struct {
		name   string
		sizing map[string]any
		path   string
	}{
		{"unknown mode", map[string]any{"mode": "martingale", "value": float64(1)}, "sizing.mode"},
		{"equity_pct over one", map[string]any{"mode": "equity_pct", "value": float64(25)}, "sizing.value"},
		{"risk_based missing fields", map[string]any{"mode": "risk_based", "value": float64(100)}, "sizing.risk_per_trade_usd"},
		{"kelly missing fraction", map[string]any{"mode": "kelly", "value": float64(100)}, "sizing.kelly_fraction"},
		{"kelly fraction over one", map[string]any{"mode": "kelly", "value": float64(100), "kelly_fraction": float64(1.5)}, "sizing.kelly_fraction"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			spec["sizing"] = tt.sizing
			valid, diags := Validate(spec)
			if valid {
				t.Fatal("expected invalid")
			}
			if _, found := findDiag(diags, tt.path); !found {
				t.Errorf("no diagnostic at %q, got %v", tt.path, diags)
			}
		})
	}
}

func TestExitsRules(t *testing.T) {
	t.Run("ratio out of range", func(t *testing.T) {
		spec := validSpec()
		spec["exits"] = map[string]any{"stop_loss_pct": float64(8)}
		_, diags := Validate(spec)
		if _, found := findDiag(diags, "exits.stop_loss_pct"); !found {
			t.Errorf("diags = %v", diags)
		}
	})

	t.Run("no exit rule", func(t *testing.T) {
		spec := validSpec()
		spec["exits"] = map[string]any{"max_hold_bars": float64(10)}
		_, diags := Validate(spec)
		d, found := findDiag(diags, "exits")
		if !found || !strings.Contains(d.Message, "at least one exit rule") {
			t.Errorf("diags = %v", diags)
		}
	})

	t.Run("partial close fractions exceed one", func(t *testing.T) {
		spec := validSpec()
		spec["exits"] = map[string]any{
			"partial_take_profit_levels": []any{
				map[string]any{"profit_pct": 0.05, "close_fraction": 0.6},
				map[string]any{"profit_pct": 0.10, "close_fraction": 0.6},
			},
		}
		_, diags := Validate(spec)
		d, found := findDiag(diags, "exits.partial_take_profit_levels")
		if !found || d.Message != "sum(close_fraction) cannot exceed 1.0" {
			t.Errorf("diags = %v", diags)
		}
	})

	t.Run("partials alone satisfy the exit requirement", func(t *testing.T) {
		spec := validSpec()
		spec["exits"] = map[string]any{
			"partial_take_profit_levels": []any{
				map[string]any{"profit_pct": 0.05, "close_fraction": 0.5},
			},
		}
		valid, diags := Validate(spec)
		if !valid {
			t.Errorf("diags = %v", diags)
		}
	})
}

func TestExecutionRules(t *testing.T) {
	spec := validSpec()
	execution := spec["execution"].(map[string]any)
	execution["entry_order_type"] = "IOC" // wrong case
	execution["trigger_type"] = "index"
	execution["stop_limit_slippage_pct"] = float64(1.5)
	delete(execution, "reduce_only_on_exits")

	_, diags := Validate(spec)
	for _, path := range []string{
		"execution.entry_order_type",
		"execution.trigger_type",
		"execution.stop_limit_slippage_pct",
		"execution.reduce_only_on_exits",
	} {
		if _, found := findDiag(diags, path); !found {
			t.Errorf("no diagnostic at %q, got %v", path, diags)
		}
	}
}

func TestConditionsCrossReference(t *testing.T) {
	spec := validSpec()
	spec["conditions"] = []any{
		map[string]any{
			"id":       "c1",
			"operator": "and",
			"action":   "buy",
			"clauses": []any{
				map[string]any{"type": "signal_active", "signal_id": "rsi_buy"},
				map[string]any{"type": "signal_active", "signal_id": "ghost"},
			},
		},
		map[string]any{
			"id":       "c1",
			"operator": "or",
			"action":   "sell",
			"clauses": []any{
				map[string]any{"type": "volume_compare", "volume_ratio_above": 1.5},
			},
		},
	}

	valid, diags := Validate(spec)
	if valid {
		t.Fatal("expected invalid")
	}
	d, found := findDiag(diags, "conditions[0].clauses[1].signal_id")
	if !found || d.Message != "references unknown signal id: ghost" {
		t.Errorf("diags = %v", diags)
	}
	d, found = findDiag(diags, "conditions[1].id")
	if !found || d.Message != "duplicate condition id: c1" {
		t.Errorf("diags = %v", diags)
	}
}

func TestHooksRules(t *testing.T) {
	spec := validSpec()
	spec["hooks"] = []any{
		map[string]any{"id": "h1", "trigger": "per_tick", "code": "return {};"},
		map[string]any{"id": "h1", "trigger": "per_bar", "code": ""},
	}

	_, diags := Validate(spec)
	for _, path := range []string{"hooks[0].trigger", "hooks[1].id", "hooks[1].code"} {
		if _, found := findDiag(diags, path); !found {
			t.Errorf("no diagnostic at %q, got %v", path, diags)
		}
	}
}

func TestAuxiliaryTimeframes(t *testing.T) {
	spec := validSpec()
	spec["auxiliary_timeframes"] = []any{
		map[string]any{"timeframe": "4h", "markets": []any{"BTC"}},
		map[string]any{"timeframe": "9h", "markets": []any{}},
	}

	_, diags := Validate(spec)
	if _, found := findDiag(diags, "auxiliary_timeframes[1].timeframe"); !found {
		t.Errorf("diags = %v", diags)
	}
	if _, found := findDiag(diags, "auxiliary_timeframes[1].markets"); !found {
		t.Errorf("diags = %v", diags)
	}
}

func TestAllDefectsCollectedInOnePass(t *testing.T) {
	spec := validSpec()
	spec["version"] = "0.9"
	spec["timeframe"] = "2w"
	delete(spec, "sizing")
	spec["exits"] = map[string]any{"take_profit_pct": float64(150)}

	valid, diags := Validate(spec)
	if valid {
		t.Fatal("expected invalid")
	}
	if len(diags) < 4 {
		t.Errorf("expected at least 4 diagnostics, got %d: %v", len(diags), diags)
	}
}

func TestAssertValidJoinsDiagnostics(t *testing.T) {
	spec := validSpec()
	spec["version"] = "0.9"
	err := AssertValid(spec)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "version: must equal 1.0") {
		t.Errorf("error = %v", err)
	}

	if err := AssertValid(validSpec()); err != nil {
		t.Errorf("valid spec: %v", err)
	}
}
