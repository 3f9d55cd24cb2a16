package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/buildtrace/bha/internal/config"
	"github.com/buildtrace/bha/internal/observability"
	"github.com/buildtrace/bha/internal/render"
	"github.com/buildtrace/bha/pkg/bha/bhaerr"
	"github.com/buildtrace/bha/pkg/bha/pipeline"
)

// analyzeCommand holds the flag state for `bha analyze`.
type analyzeCommand struct {
	configFile string
	format     string
	noColor    bool
}

// NewAnalyzeCommand creates the `analyze` subcommand: run the full
// pipeline over a trace file and print ranked findings.
func NewAnalyzeCommand() *cobra.Command {
	ac := &analyzeCommand{}

	cmd := &cobra.Command{
		Use:   "analyze <trace.json>",
		Short: "Run the analysis pipeline over a build trace and print findings",
		Args:  cobra.ExactArgs(1),
		RunE:  ac.run,
	}

	cmd.Flags().StringVar(&ac.configFile, "config", "", "Configuration file path")
	cmd.Flags().StringVar(&ac.format, "format", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&ac.noColor, "no-color", false, "Disable colored table output")

	return cmd
}

func (ac *analyzeCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(ac.configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	bt, err := loadBuildTrace(args[0])
	if err != nil {
		return err
	}

	start := time.Now()

	result, err := pipeline.Run(context.Background(), bt, pipelineOptions(cfg))
	if err != nil {
		recordLimiterRejection(err)

		return fmt.Errorf("analyze %s: %w", args[0], err)
	}

	recordPipelineMetrics(result, time.Since(start))

	return ac.render(cmd, result)
}

// recordPipelineMetrics pushes one run's totals into the process-wide
// Prometheus registry set up by the root command, tolerating a nil
// meter when observability was never initialised (e.g. in tests).
func recordPipelineMetrics(result pipeline.AnalysisResult, elapsed time.Duration) {
	if Providers.Meter == nil {
		return
	}

	metrics, err := observability.NewPipelineMetrics(Providers.Meter)
	if err != nil {
		return
	}

	ctx := context.Background()

	metrics.RecordComponent(ctx, "pipeline", elapsed)

	counts := make(map[string]int64)
	for _, s := range result.Suggestions {
		counts[string(s.Type)]++
	}

	for suggestionType, count := range counts {
		metrics.RecordSuggestions(ctx, suggestionType, count)
	}
}

// recordLimiterRejection records a resource-limiter rejection when err
// carries bhaerr.KindResourceExhausted, tolerating a nil meter.
func recordLimiterRejection(err error) {
	if Providers.Meter == nil || !bhaerr.Is(err, bhaerr.KindResourceExhausted) {
		return
	}

	metrics, merr := observability.NewPipelineMetrics(Providers.Meter)
	if merr != nil {
		return
	}

	metrics.RecordLimiterRejection(context.Background(), "analysis")
}

func (ac *analyzeCommand) render(cmd *cobra.Command, result pipeline.AnalysisResult) error {
	out := cmd.OutOrStdout()

	if ac.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		return enc.Encode(result)
	}

	for _, w := range result.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
	}

	fmt.Fprintln(out, render.Files(result.Performance.Files))
	fmt.Fprintln(out, render.Headers(result.Dependencies.Headers))
	fmt.Fprintln(out, render.Templates(result.Templates.Signatures))
	fmt.Fprintln(out, render.Bottlenecks(result.Bottlenecks.Entries, ac.noColor))
	fmt.Fprintln(out, render.Suggestions(result.Suggestions, ac.noColor))

	return nil
}
