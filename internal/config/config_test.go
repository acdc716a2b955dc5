package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/newthinker/specforge/internal/core"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8080 || cfg.Generator.MaxCorrections != 2 {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		sentinel error
	}{
		{"port too low", func(c *Config) { c.Server.Port = 0 }, core.ErrConfigInvalid},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, core.ErrConfigInvalid},
		{"negative corrections", func(c *Config) { c.Generator.MaxCorrections = -1 }, core.ErrConfigInvalid},
		{"temperature out of range", func(c *Config) { c.Generator.Temperature = 2.5 }, core.ErrConfigInvalid},
		{"claude without key", func(c *Config) { c.LLM.Provider = "claude" }, core.ErrConfigMissing},
		{"openai without key", func(c *Config) { c.LLM.Provider = "openai" }, core.ErrConfigMissing},
		{"ollama without endpoint", func(c *Config) { c.LLM.Provider = "ollama" }, core.ErrConfigMissing},
		{"archive localfs without path", func(c *Config) {
			c.Archive.Enabled = true
			c.Archive.Path = ""
		}, core.ErrConfigMissing},
		{"archive s3 without bucket", func(c *Config) {
			c.Archive.Enabled = true
			c.Archive.Type = "s3"
		}, core.ErrConfigMissing},
		{"unknown archive type", func(c *Config) {
			c.Archive.Enabled = true
			c.Archive.Type = "tape"
		}, core.ErrConfigInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("err = %v", err)
			}
		})
	}
}

func TestValidateAcceptsConfiguredProviders(t *testing.T) {
	cfg := Defaults()
	cfg.LLM.Provider = "claude"
	cfg.LLM.Claude.APIKey = "sk-test"
	if err := cfg.Validate(); err != nil {
		t.Errorf("claude: %v", err)
	}

	cfg = Defaults()
	cfg.LLM.Provider = "ollama"
	cfg.LLM.Ollama.Endpoint = "http://localhost:11434"
	if err := cfg.Validate(); err != nil {
		t.Errorf("ollama: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `
server:
  host: 127.0.0.1
  port: 9090
  api_key: topsecret
llm:
  provider: ollama
  ollama:
    endpoint: http://localhost:11434
    model: qwen2.5:32b
generator:
  max_corrections: 1
  temperature: 0.5
archive:
  enabled: true
  type: localfs
  path: /tmp/archive
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9090 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.LLM.Provider != "ollama" || cfg.LLM.Ollama.Model != "qwen2.5:32b" {
		t.Errorf("llm = %+v", cfg.LLM)
	}
	if cfg.Generator.MaxCorrections != 1 || cfg.Generator.Temperature != 0.5 {
		t.Errorf("generator = %+v", cfg.Generator)
	}
	if !cfg.Archive.Enabled || cfg.Archive.Path != "/tmp/archive" {
		t.Errorf("archive = %+v", cfg.Archive)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config should validate: %v", err)
	}
}

func TestLoadExpandsEnvReferences(t *testing.T) {
	t.Setenv("TEST_CLAUDE_KEY", "sk-from-env")
	content := `
llm:
  provider: claude
  claude:
    api_key: ${TEST_CLAUDE_KEY}
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Claude.APIKey != "sk-from-env" {
		t.Errorf("api_key = %q", cfg.LLM.Claude.APIKey)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
