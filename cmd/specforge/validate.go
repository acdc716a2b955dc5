package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/newthinker/specforge/internal/normalize"
	"github.com/newthinker/specforge/internal/schema"
	"github.com/newthinker/specforge/internal/schema/agent"
	"github.com/newthinker/specforge/internal/schema/backtest"
)

var (
	validateFamily    string
	validateNormalize bool
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a strategy spec file",
	Long: `Validate a strategy spec JSON document against the backtest or agent
schema family. Use "-" to read from stdin. With --normalize the backtest
normalization pass runs first and its assumptions are printed.

Exits non-zero when the spec is invalid.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validateFamily, "family", "f", "backtest", "spec family: backtest or agent")
	validateCmd.Flags().BoolVarP(&validateNormalize, "normalize", "n", false, "run the normalization pass first (backtest only)")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	data, err := readInput(args[0])
	if err != nil {
		return err
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing input: %w", err)
	}
	// Accept both the bare spec and the generation envelope.
	if envelope, ok := doc.(map[string]any); ok {
		if inner, ok := envelope["strategy_spec"].(map[string]any); ok {
			doc = inner
		}
	}

	var valid bool
	var diags []schema.Diagnostic

	switch validateFamily {
	case "backtest":
		if validateNormalize {
			input, ok := doc.(map[string]any)
			if !ok {
				return fmt.Errorf("spec must be a JSON object")
			}
			normalized, assumptions, err := normalize.Backtest(input, "", time.Now())
			if err != nil {
				return err
			}
			doc = normalized
			for _, a := range assumptions {
				fmt.Fprintf(os.Stderr, "assumption: %s\n", a)
			}
		}
		valid, diags = backtest.Validate(doc)
	case "agent":
		valid, diags = agent.Validate(doc)
	default:
		return fmt.Errorf("unknown family: %s (want backtest or agent)", validateFamily)
	}

	if valid {
		fmt.Println("valid")
		return nil
	}
	for _, d := range diags {
		fmt.Printf("%s: %s\n", d.Path, d.Message)
	}
	return fmt.Errorf("%d validation error(s)", len(diags))
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
