package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vizloom/vizloom-cli/internal/ai"
	cfgpkg "github.com/vizloom/vizloom-cli/internal/config"
	"github.com/vizloom/vizloom-cli/internal/plan"
)

var (
	// Global flags (wired to config)
	cfgFile string
	debug   bool
	// Retry/HTTP flags (override config if set)
	flagHTTPTimeoutSec   int
	flagRetryMaxAttempts int
	flagRetryBaseDelayMs int
	flagRetryMaxDelayMs  int

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:           "vizloom",
	Short:         "VizLoom CLI: profile a tabular dataset and weave charts from it",
	Long:          `VizLoom reads a delimited data file, computes per-column statistics, plans charts (heuristically or via an optional LLM planner), renders them to PNG, and prints a report.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.vizloom/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxAttempts, "retry-max", 0, "max retry attempts on 429/5xx (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryBaseDelayMs, "retry-base-ms", 0, "base retry backoff in ms (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxDelayMs, "retry-max-ms", 0, "max retry backoff cap in ms (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: heuristic mode needs no config at all
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		cfg = &cfgpkg.Global{}
		return
	}
	cfg = c

	f := rootCmd.PersistentFlags()
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("retry-max") && flagRetryMaxAttempts > 0 {
		cfg.RetryMaxAttempts = flagRetryMaxAttempts
	}
	if f.Changed("retry-base-ms") && flagRetryBaseDelayMs > 0 {
		cfg.RetryBaseDelayMs = flagRetryBaseDelayMs
	}
	if f.Changed("retry-max-ms") && flagRetryMaxDelayMs > 0 {
		cfg.RetryMaxDelayMs = flagRetryMaxDelayMs
	}
}

// llmFlags are the per-command planner overrides shared by run, plan, serve.
type llmFlags struct {
	model       string
	baseURL     string
	apiKey      string
	temperature float64
	maxCharts   int
}

func registerLLMFlags(cmd *cobra.Command, f *llmFlags) {
	cmd.Flags().StringVar(&f.model, "llm-model", "", "chat model for delegated chart planning (empty = heuristic mode)")
	cmd.Flags().StringVar(&f.baseURL, "llm-base-url", "", "base URL of an OpenAI-compatible endpoint (overrides config)")
	cmd.Flags().StringVar(&f.apiKey, "llm-api-key", "", "API key for the chat endpoint (overrides config/env)")
	cmd.Flags().Float64Var(&f.temperature, "llm-temperature", 0, "sampling temperature for the planner (overrides config)")
	cmd.Flags().IntVar(&f.maxCharts, "max-charts", 0, "maximum charts per plan (overrides config)")
}

// buildPlanner resolves flags over config over environment into a planner.
// Without a model it returns the heuristic planner.
func buildPlanner(f llmFlags) plan.Planner {
	maxCharts := cfg.MaxCharts
	if f.maxCharts > 0 {
		maxCharts = f.maxCharts
	}
	heuristic := plan.Heuristic{MaxCharts: maxCharts, BarTopN: cfg.BarTopN}

	model := f.model
	if model == "" {
		model = cfg.Model
	}
	if model == "" {
		return heuristic
	}

	apiKey := f.apiKey
	if apiKey == "" {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	baseURL := f.baseURL
	if baseURL == "" {
		baseURL = cfg.BaseURL
	}
	temperature := f.temperature
	if temperature == 0 {
		temperature = cfg.Temperature
	}

	client := ai.NewClient(
		apiKey,
		baseURL,
		time.Duration(cfg.HTTPTimeoutSec)*time.Second,
		cfg.RetryMaxAttempts,
		time.Duration(cfg.RetryBaseDelayMs)*time.Millisecond,
		time.Duration(cfg.RetryMaxDelayMs)*time.Millisecond,
	)
	return plan.Delegated{
		Client:      client,
		Model:       model,
		Temperature: temperature,
		MaxTokens:   cfg.MaxTokens,
		MaxCharts:   maxCharts,
		SampleRows:  cfg.SampleRows,
		Timeout:     time.Duration(cfg.HTTPTimeoutSec) * time.Second,
		Fallback:    heuristic,
	}
}

func debugf(format string, args ...any) {
	if debug {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
