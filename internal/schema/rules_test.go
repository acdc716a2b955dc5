package schema

import (
	"testing"
)

func TestIntAcceptsIntegralFloats(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int
		ok   bool
	}{
		{"int", 14, 14, true},
		{"int64", int64(7), 7, true},
		{"integral float", float64(14), 14, true},
		{"fractional float", 14.5, 0, false},
		{"string", "14", 0, false},
		{"bool", true, 0, false},
		{"nil", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Int(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Int(%v) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestNumberRejectsBooleans(t *testing.T) {
	if _, ok := Number(true); ok {
		t.Error("Number(true) should not be a number")
	}
	if n, ok := Number(3.5); !ok || n != 3.5 {
		t.Errorf("Number(3.5) = (%v, %v)", n, ok)
	}
}

func TestOneOfMessageSortsAllowedSet(t *testing.T) {
	got := OneOfMessage([]string{"gt", "lt", "gte", "lte"})
	want := "must be one of: [gt gte lt lte]"
	if got != want {
		t.Errorf("OneOfMessage = %q, want %q", got, want)
	}
}

func TestFieldAndIndex(t *testing.T) {
	if got := Field("", "version"); got != "version" {
		t.Errorf("Field empty prefix = %q", got)
	}
	if got := Field("sizing", "mode"); got != "sizing.mode" {
		t.Errorf("Field = %q", got)
	}
	if got := Index("signals", 2); got != "signals[2]" {
		t.Errorf("Index = %q", got)
	}
	if got := Field(Index("signals", 0), "id"); got != "signals[0].id" {
		t.Errorf("nested path = %q", got)
	}
}

func TestRequireRatioBounds(t *testing.T) {
	tests := []struct {
		name  string
		value any
		valid bool
	}{
		{"zero", 0.0, false},
		{"small", 0.001, true},
		{"one", 1.0, true},
		{"above one", 1.01, false},
		{"negative", -0.5, false},
		{"non-number", "0.5", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Report{}
			RequireRatio(r, map[string]any{"x": tt.value}, "", "x")
			if r.OK() != tt.valid {
				t.Errorf("RequireRatio(%v): OK()=%v, want %v", tt.value, r.OK(), tt.valid)
			}
		})
	}
}

func TestOptionalRulesSkipAbsentKeys(t *testing.T) {
	r := &Report{}
	doc := map[string]any{}
	OptionalPositiveNumber(r, doc, "", "a")
	OptionalPositiveInt(r, doc, "", "b")
	OptionalRatio(r, doc, "", "c")
	OptionalBool(r, doc, "", "d")
	if !r.OK() {
		t.Errorf("absent optional keys should not report: %v", r.Diagnostics())
	}

	OptionalRatio(r, map[string]any{"c": 2.0}, "", "c")
	if r.Len() != 1 {
		t.Errorf("present invalid optional key should report, got %d", r.Len())
	}
}

func TestJoin(t *testing.T) {
	diags := []Diagnostic{
		{Path: "version", Message: "must equal 1.0"},
		{Path: "signals", Message: "must be a non-empty list"},
	}
	want := "version: must equal 1.0; signals: must be a non-empty list"
	if got := Join(diags); got != want {
		t.Errorf("Join = %q, want %q", got, want)
	}
}

func TestReportCollectsInOrder(t *testing.T) {
	r := &Report{}
	r.Add("a", "first")
	r.Addf("b", "second %d", 2)
	diags := r.Diagnostics()
	if len(diags) != 2 || diags[0].Path != "a" || diags[1].Message != "second 2" {
		t.Errorf("unexpected diagnostics: %v", diags)
	}
}
