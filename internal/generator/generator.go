// Package generator turns natural-language strategy descriptions into
// validated strategy specs via an LLM, with a validate-or-correct
// guardrail: when the model's output fails schema validation after
// normalization, the diagnostics are sent back for a bounded number of
// correction passes.
package generator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/specforge/internal/config"
	"github.com/newthinker/specforge/internal/core"
	"github.com/newthinker/specforge/internal/llm"
	"github.com/newthinker/specforge/internal/metrics"
	"github.com/newthinker/specforge/internal/normalize"
	"github.com/newthinker/specforge/internal/schema"
	"github.com/newthinker/specforge/internal/schema/backtest"
)

// Result is the accepted output envelope: the canonical spec plus the
// coerced notes object.
type Result struct {
	StrategySpec map[string]any `json:"strategy_spec"`
	Notes        map[string]any `json:"notes"`
	Corrections  int            `json:"-"`
}

// Generator drives generation for both spec families against one
// provider.
type Generator struct {
	provider llm.Provider
	cfg      config.GeneratorConfig
	log      *zap.Logger
	metrics  *metrics.Registry
	validate bool
	now      func() time.Time
}

// New creates a generator. reg may be nil to disable metrics.
func New(provider llm.Provider, cfg config.GeneratorConfig, log *zap.Logger, reg *metrics.Registry) *Generator {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 8192
	}
	return &Generator{
		provider: provider,
		cfg:      cfg,
		log:      log,
		metrics:  reg,
		validate: true,
		now:      time.Now,
	}
}

// SetValidate toggles the validation guardrail. Disabled, generation
// returns whatever normalization produced.
func (g *Generator) SetValidate(enabled bool) {
	g.validate = enabled
}

// SetClock overrides the time source used for default windows.
func (g *Generator) SetClock(now func() time.Time) {
	g.now = now
}

// GenerateBacktest produces a canonical, validated backtest spec from a
// natural-language description.
func (g *Generator) GenerateBacktest(ctx context.Context, description string) (*Result, error) {
	started := time.Now()
	now := g.now()

	envelope, err := g.chat(ctx, backtestSystemPrompt, renderBacktestPrompt(description, now.UnixMilli()))
	if err != nil {
		g.recordGeneration("backtest", "error", started, 0)
		return nil, err
	}

	spec, assumptions, err := normalize.Backtest(envelope, description, now)
	if err != nil {
		g.recordGeneration("backtest", "error", started, 0)
		return nil, err
	}
	diags := g.checkBacktest(spec)

	state := newCorrectionState(g.cfg.MaxCorrections)
	for len(diags) > 0 && state.retry() {
		g.log.Warn("backtest spec validation failed, requesting correction",
			zap.Int("errors", len(diags)),
			zap.Int("attempt", state.attempts()),
			zap.Int("max_attempts", g.cfg.MaxCorrections))

		corrected, err := g.chat(ctx, backtestSystemPrompt, buildCorrectionPrompt(spec, diags))
		if err != nil {
			g.log.Error("correction pass failed", zap.Int("attempt", state.attempts()), zap.Error(err))
			state.terminate()
			break
		}

		fixed, extra, err := normalize.Backtest(corrected, description, now)
		if err != nil {
			state.terminate()
			break
		}
		envelope = corrected
		spec = fixed
		assumptions = append(assumptions, extra...)
		diags = g.checkBacktest(spec)
		if len(diags) == 0 {
			assumptions = append(assumptions,
				fmt.Sprintf("Spec was auto-corrected after %d correction pass(es).", state.attempts()))
		}
	}

	if g.validate && len(diags) > 0 {
		g.recordGeneration("backtest", "rejected", started, state.attempts())
		return nil, core.WrapError(core.ErrCorrectionExhausted,
			fmt.Errorf("invalid strategy_spec: %s", schema.Join(diags)))
	}

	g.recordGeneration("backtest", "accepted", started, state.attempts())
	return &Result{
		StrategySpec: spec,
		Notes:        buildNotes(envelope["notes"], assumptions),
		Corrections:  state.attempts(),
	}, nil
}

// chat sends one JSON-mode request and parses the response envelope.
func (g *Generator) chat(ctx context.Context, system, user string) (map[string]any, error) {
	resp, err := g.provider.Chat(ctx, llm.ChatRequest{
		SystemPrompt: system,
		Messages:     []llm.Message{{Role: "user", Content: user}},
		MaxTokens:    g.cfg.MaxTokens,
		Temperature:  g.cfg.Temperature,
		JSONMode:     true,
	})
	if err != nil {
		return nil, core.WrapError(core.ErrLLMFailed, err)
	}
	if g.metrics != nil {
		g.metrics.RecordTokens(g.provider.Name(), resp.Usage.InputTokens, resp.Usage.OutputTokens)
	}
	return parseEnvelope(resp.Content)
}

func (g *Generator) checkBacktest(spec map[string]any) []schema.Diagnostic {
	if !g.validate {
		return nil
	}
	valid, diags := backtest.Validate(spec)
	if g.metrics != nil {
		g.metrics.RecordValidation("backtest", valid, len(diags))
	}
	if valid {
		return nil
	}
	return diags
}

func (g *Generator) recordGeneration(family, outcome string, started time.Time, corrections int) {
	if g.metrics == nil {
		return
	}
	g.metrics.RecordGeneration(family, outcome, time.Since(started).Seconds(), corrections)
}
