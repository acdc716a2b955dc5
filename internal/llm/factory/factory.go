package factory

import (
	"fmt"

	"github.com/newthinker/specforge/internal/config"
	"github.com/newthinker/specforge/internal/llm"
	"github.com/newthinker/specforge/internal/llm/claude"
	"github.com/newthinker/specforge/internal/llm/ollama"
	"github.com/newthinker/specforge/internal/llm/openai"
)

// New creates an LLM provider from configuration.
func New(cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "claude":
		return claude.New(cfg.Claude.APIKey, cfg.Claude.Model)
	case "openai":
		return openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	case "ollama":
		return ollama.New(cfg.Ollama.Endpoint, cfg.Ollama.Model)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}
