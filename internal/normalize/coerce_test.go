package normalize

import (
	"reflect"
	"testing"
)

func TestToInt(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int
		ok   bool
	}{
		{"int", 7, 7, true},
		{"int64", int64(9), 9, true},
		{"integral float", float64(14), 14, true},
		{"fractional float", 14.5, 0, false},
		{"numeric string", "42", 42, true},
		{"integral float string", "42.0", 42, true},
		{"fractional string", "42.5", 0, false},
		{"padded string", " 12 ", 12, true},
		{"empty string", "", 0, false},
		{"bool", true, 0, false},
		{"nil", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := toInt(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("toInt(%v) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestToFloat(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
		ok   bool
	}{
		{"float", 3.5, 3.5, true},
		{"int", 3, 3, true},
		{"plain string", "0.08", 0.08, true},
		{"percent string", "8%", 8, true},
		{"thousands separators", "10,000.5", 10000.5, true},
		{"garbage", "lots", 0, false},
		{"bool", true, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := toFloat(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("toFloat(%v) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestToBool(t *testing.T) {
	tests := []struct {
		in   any
		def  bool
		want bool
	}{
		{true, false, true},
		{"yes", false, true},
		{"No", true, false},
		{"1", false, true},
		{float64(0), true, false},
		{"maybe", true, true},
		{nil, false, false},
	}
	for _, tt := range tests {
		if got := toBool(tt.in, tt.def); got != tt.want {
			t.Errorf("toBool(%v, %v) = %v, want %v", tt.in, tt.def, got, tt.want)
		}
	}
}

func TestSanitizeKebab(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"RSI Bounce Strategy", "rsi-bounce-strategy"},
		{"btc_dip__buyer", "btc-dip-buyer"},
		{"--Already--kebab--", "already-kebab"},
		{"!!!", "fallback"},
		{"", "fallback"},
	}
	for _, tt := range tests {
		if got := sanitizeKebab(tt.in, "fallback"); got != tt.want {
			t.Errorf("sanitizeKebab(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPctRatio(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
		ok   bool
	}{
		{"percent", float64(8), 0.08, true},
		{"ratio passes through", 0.08, 0.08, true},
		{"one is a ratio", 1.0, 1.0, true},
		{"hundred is a percent", float64(100), 1.0, true},
		{"over hundred preserved", float64(150), 150, true},
		{"ambiguous boundary value", 1.5, 0.015, true},
		{"percent string", "8%", 0.08, true},
		{"negative passes through", -0.05, -0.05, true},
		{"garbage", "no", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := pctRatio(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("pctRatio(%v) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestNormalizeTimeframe(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"1h", "1h"},
		{"60m", "1h"},
		{"hourly", "1h"},
		{"Daily", "1d"},
		{"weekly", "1w"},
		{"7h", "1h"},
		{nil, "1h"},
	}
	for _, tt := range tests {
		if got := normalizeTimeframe(tt.in); got != tt.want {
			t.Errorf("normalizeTimeframe(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeMarket(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"btc", "BTC"},
		{"BTC-PERP", "BTC"},
		{"ethperp", "ETH"},
		{"  sol  ", "SOL"},
		{42, ""},
		{"-", ""},
	}
	for _, tt := range tests {
		if got := normalizeMarket(tt.in); got != tt.want {
			t.Errorf("normalizeMarket(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeMarketList(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []string
	}{
		{"comma string", "btc-perp, eth", []string{"BTC", "ETH"}},
		{"list", []any{"sol", "SOL", "btc"}, []string{"SOL", "BTC"}},
		{"empty entries dropped", []any{"", "btc"}, []string{"BTC"}},
		{"non-list", float64(1), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeMarketList(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("normalizeMarketList(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeOrderType(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"market", "market"},
		{"IOC", "Ioc"},
		{"gtc", "Gtc"},
		{"alo", "Alo"},
		{"limit", "limit"},
		{"fok", "market"},
		{nil, "market"},
	}
	for _, tt := range tests {
		if got := normalizeOrderType(tt.in, "market"); got != tt.want {
			t.Errorf("normalizeOrderType(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDeepCopyDoesNotShare(t *testing.T) {
	original := map[string]any{
		"nested": map[string]any{"k": float64(1)},
		"list":   []any{map[string]any{"x": "y"}},
	}
	clone := deepCopy(original).(map[string]any)
	clone["nested"].(map[string]any)["k"] = float64(2)
	clone["list"].([]any)[0].(map[string]any)["x"] = "z"

	if original["nested"].(map[string]any)["k"] != float64(1) {
		t.Error("nested map was shared")
	}
	if original["list"].([]any)[0].(map[string]any)["x"] != "y" {
		t.Error("nested list element was shared")
	}
}
