package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/newthinker/specforge/internal/generator"
	"github.com/newthinker/specforge/internal/llm/factory"
	"github.com/newthinker/specforge/internal/logger"
)

var (
	generateFamily  string
	generateOutput  string
	generateTimeout time.Duration
)

var generateCmd = &cobra.Command{
	Use:   "generate <description>",
	Short: "Generate a strategy spec from a description",
	Long: `Generate a validated strategy spec from a natural-language strategy
description using the configured LLM provider. Requires a config file
with an llm section.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateFamily, "family", "f", "backtest", "spec family: backtest or agent")
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "write the envelope to a file instead of stdout")
	generateCmd.Flags().DurationVar(&generateTimeout, "timeout", 10*time.Minute, "overall generation timeout")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.LLM.Provider == "" {
		return fmt.Errorf("no LLM provider configured (set llm.provider in the config file)")
	}

	log, err := logger.New(cfg.Log.Development || debug, cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	provider, err := factory.New(cfg.LLM)
	if err != nil {
		return fmt.Errorf("creating LLM provider: %w", err)
	}
	gen := generator.New(provider, cfg.Generator, log, nil)

	ctx, cancel := context.WithTimeout(context.Background(), generateTimeout)
	defer cancel()

	description := strings.Join(args, " ")

	var result *generator.Result
	switch generateFamily {
	case "backtest":
		result, err = gen.GenerateBacktest(ctx, description)
	case "agent":
		result, err = gen.GenerateAgent(ctx, description)
	default:
		return fmt.Errorf("unknown family: %s (want backtest or agent)", generateFamily)
	}
	if err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	if generateOutput != "" {
		return os.WriteFile(generateOutput, append(encoded, '\n'), 0o644)
	}
	fmt.Println(string(encoded))
	return nil
}
