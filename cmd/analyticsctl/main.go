// Package main is the entry point for analyticsctl, a command-line client that
// runs the analytics use cases directly against the configured store and
// prints their results as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/helixir/research-analytics-service/internal/analytics"
	"github.com/helixir/research-analytics-service/internal/app"
	"github.com/helixir/research-analytics-service/internal/config"
	"github.com/helixir/research-analytics-service/internal/observability"
	"github.com/helixir/research-analytics-service/internal/store"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	svc          *analytics.Service
	closeBackend = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "analyticsctl",
	Short: "Query research publication analytics from the command line",
	Long: `analyticsctl runs the same aggregation pipeline as the HTTP API against the
store configured through RANALYTICS_* variables or config.yaml, and prints the
result as JSON on stdout.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		level := "warn"
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = "debug"
		}
		logger := observability.NewLogger(observability.LoggingConfig{
			Level:      level,
			Format:     "console",
			Output:     "stderr",
			TimeFormat: time.RFC3339,
		}).With().Str("component", "analyticsctl").Logger()

		backend, release, err := app.OpenStore(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		closeBackend = release
		svc = analytics.NewService(store.Instrument(backend, cfg.Store.Backend, nil, logger), analytics.ConfigFrom(cfg.Pipeline), logger, nil)
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		closeBackend()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log pipeline activity to stderr")
	rootCmd.PersistentFlags().Bool("compact", false, "print JSON on a single line")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		closeBackend()
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// printJSON writes v to the command's output.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if compact, _ := cmd.Flags().GetBool("compact"); !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// result prints v, or returns err.
func result(cmd *cobra.Command, v any, err error) error {
	if err != nil {
		return err
	}
	return printJSON(cmd, v)
}
