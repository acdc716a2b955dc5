package generator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/specforge/internal/core"
	"github.com/newthinker/specforge/internal/schema"
	"github.com/newthinker/specforge/internal/schema/agent"
)

// GenerateAgent produces a validated agent spec from a natural-language
// description. Agent specs have no lossy normalization pass, so the
// guardrail is a single correction attempt against the raw output.
func (g *Generator) GenerateAgent(ctx context.Context, description string) (*Result, error) {
	started := time.Now()

	envelope, err := g.chat(ctx, agentSystemPrompt, renderAgentPrompt(description))
	if err != nil {
		g.recordGeneration("agent", "error", started, 0)
		return nil, err
	}

	spec, err := agentSpecOf(envelope)
	if err != nil {
		g.recordGeneration("agent", "error", started, 0)
		return nil, err
	}
	diags := g.checkAgent(spec)

	state := newCorrectionState(1)
	for len(diags) > 0 && state.retry() {
		g.log.Warn("agent spec validation failed, requesting correction",
			zap.Int("errors", len(diags)))

		corrected, err := g.chat(ctx, agentSystemPrompt, buildCorrectionPrompt(spec, diags))
		if err != nil {
			g.log.Error("agent correction pass failed", zap.Error(err))
			state.terminate()
			break
		}
		fixed, err := agentSpecOf(corrected)
		if err != nil {
			state.terminate()
			break
		}
		envelope = corrected
		spec = fixed
		diags = g.checkAgent(spec)
	}

	if g.validate && len(diags) > 0 {
		g.recordGeneration("agent", "rejected", started, state.attempts())
		return nil, core.WrapError(core.ErrCorrectionExhausted,
			fmt.Errorf("invalid strategy_spec: %s", schema.Join(diags)))
	}

	g.recordGeneration("agent", "accepted", started, state.attempts())
	return &Result{
		StrategySpec: spec,
		Notes:        buildNotes(envelope["notes"], nil),
		Corrections:  state.attempts(),
	}, nil
}

// agentSpecOf unwraps the strategy_spec envelope, accepting a bare spec
// object as well.
func agentSpecOf(envelope map[string]any) (map[string]any, error) {
	raw, present := envelope["strategy_spec"]
	if !present {
		return envelope, nil
	}
	spec, ok := raw.(map[string]any)
	if !ok {
		return nil, core.WrapError(core.ErrSpecNotObject,
			fmt.Errorf("strategy_spec must be an object"))
	}
	return spec, nil
}

func (g *Generator) checkAgent(spec map[string]any) []schema.Diagnostic {
	if !g.validate {
		return nil
	}
	valid, diags := agent.Validate(spec)
	if g.metrics != nil {
		g.metrics.RecordValidation("agent", valid, len(diags))
	}
	if valid {
		return nil
	}
	return diags
}
