package generator

import (
	"reflect"
	"testing"
)

func TestBuildNotesDefaults(t *testing.T) {
	notes := buildNotes(nil, nil)
	if notes["complexity"] != "medium" {
		t.Errorf("complexity = %v", notes["complexity"])
	}
	if notes["reasoning_summary"] != "Generated from natural language strategy request." {
		t.Errorf("reasoning_summary = %v", notes["reasoning_summary"])
	}
	if notes["mapping_confidence"] != 0.75 {
		t.Errorf("mapping_confidence = %v", notes["mapping_confidence"])
	}
	if got := notes["assumptions"].([]string); len(got) != 0 {
		t.Errorf("assumptions = %v", got)
	}
	if got := notes["unsupported_features"].([]string); len(got) != 0 {
		t.Errorf("unsupported_features = %v", got)
	}
}

func TestBuildNotesAppendsNormalizationAssumptions(t *testing.T) {
	raw := map[string]any{
		"assumptions": []any{"model says so", 42, "another"},
	}
	notes := buildNotes(raw, []string{"markets was missing; defaulted to BTC."})
	want := []string{"model says so", "another", "markets was missing; defaulted to BTC."}
	if got := notes["assumptions"].([]string); !reflect.DeepEqual(got, want) {
		t.Errorf("assumptions = %v, want %v", got, want)
	}
}

func TestBuildNotesClampsConfidence(t *testing.T) {
	tests := []struct {
		in   any
		want float64
	}{
		{float64(0.5), 0.5},
		{float64(3), 1},
		{float64(-1), 0},
		{"0.9", 0.9},
		{"high", 0.75},
		{nil, 0.75},
	}
	for _, tt := range tests {
		notes := buildNotes(map[string]any{"mapping_confidence": tt.in}, nil)
		if notes["mapping_confidence"] != tt.want {
			t.Errorf("mapping_confidence(%v) = %v, want %v", tt.in, notes["mapping_confidence"], tt.want)
		}
	}
}

func TestBuildNotesKeepsModelFields(t *testing.T) {
	raw := map[string]any{
		"complexity":           "high",
		"reasoning_summary":    "Mapped crossover intent to two EMA legs.",
		"unsupported_features": []any{"on-chain data"},
	}
	notes := buildNotes(raw, nil)
	if notes["complexity"] != "high" {
		t.Errorf("complexity = %v", notes["complexity"])
	}
	if notes["reasoning_summary"] != "Mapped crossover intent to two EMA legs." {
		t.Errorf("reasoning_summary = %v", notes["reasoning_summary"])
	}
	if got := notes["unsupported_features"].([]string); len(got) != 1 || got[0] != "on-chain data" {
		t.Errorf("unsupported_features = %v", got)
	}
}
