// Package pipeline orchestrates a single analysis run: it fuses
// performance, dependency, and template analysis — optionally in
// parallel — then feeds their outputs to bottleneck detection and
// the suggestion engine, producing one AnalysisResult.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/buildtrace/bha/pkg/bha/bhaerr"
	"github.com/buildtrace/bha/pkg/bha/bottleneck"
	"github.com/buildtrace/bha/pkg/bha/depgraph"
	"github.com/buildtrace/bha/pkg/bha/limiter"
	"github.com/buildtrace/bha/pkg/bha/perf"
	"github.com/buildtrace/bha/pkg/bha/suggest"
	"github.com/buildtrace/bha/pkg/bha/templates"
	"github.com/buildtrace/bha/pkg/bha/trace"
)

// AnalysisResult is the full aggregate produced by one analysis run:
// the union of every component's output plus run metadata.
type AnalysisResult struct {
	RunID          string
	CreatedAt      time.Time
	GitCommit      string
	GitBranch      string
	TotalBuildTime trace.Duration
	FileCount      int
	Performance    perf.Result
	Dependencies   depgraph.Result
	Templates      templates.Result
	Bottlenecks    bottleneck.Result
	Suggestions    []suggest.Suggestion
	Warnings       []string
}

// Options bundles every component's configuration knobs plus the
// pipeline's own concurrency switch.
type Options struct {
	Perf       perf.Options
	Bottleneck bottleneck.Options
	Suggest    suggest.Options
	Parallel   bool
	Limiter    *limiter.Limiter
	// Tracer, if set, wraps each analysis stage in its own span,
	// per the logging/tracing ambient stack. Nil disables tracing.
	Tracer oteltrace.Tracer
}

// DefaultOptions returns each component's default policy with
// parallel fan-out enabled and no resource limiter attached.
func DefaultOptions() Options {
	return Options{
		Perf:       perf.DefaultOptions(),
		Bottleneck: bottleneck.DefaultOptions(),
		Suggest:    suggest.DefaultOptions(),
		Parallel:   true,
	}
}

// Run normalises bt and executes the full analysis pipeline, returning
// the combined AnalysisResult. It never panics; cancellation and
// resource-limit breaches surface as a tagged error.
func Run(ctx context.Context, bt trace.BuildTrace, opts Options) (AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return AnalysisResult{}, bhaerr.Wrap(bhaerr.KindCancelled, "analysis cancelled before start", err)
	}

	normalized := bt.Normalize()

	warnings := collectWarnings(bt)

	if opts.Limiter != nil {
		if err := opts.Limiter.CheckUnitCount(len(normalized.Units)); err != nil {
			return AnalysisResult{}, err
		}

		nodes, edges := graphSize(normalized)
		if err := opts.Limiter.CheckGraphSize(nodes, edges); err != nil {
			return AnalysisResult{}, err
		}
	}

	var (
		perfResult perf.Result
		depResult  depgraph.Result
		tplResult  templates.Result
	)

	if opts.Parallel {
		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return bhaerr.Wrap(bhaerr.KindCancelled, "performance analysis cancelled", err)
			}

			if err := checkLimits(opts.Limiter); err != nil {
				return err
			}

			withSpan(gctx, opts.Tracer, "bha.performance", func(context.Context) {
				perfResult = perf.Analyze(normalized, opts.Perf)
			})

			return nil
		})

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return bhaerr.Wrap(bhaerr.KindCancelled, "dependency analysis cancelled", err)
			}

			if err := checkLimits(opts.Limiter); err != nil {
				return err
			}

			withSpan(gctx, opts.Tracer, "bha.dependencies", func(context.Context) {
				depResult = depgraph.Analyze(normalized)
			})

			return nil
		})

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return bhaerr.Wrap(bhaerr.KindCancelled, "template analysis cancelled", err)
			}

			if err := checkLimits(opts.Limiter); err != nil {
				return err
			}

			withSpan(gctx, opts.Tracer, "bha.templates", func(context.Context) {
				tplResult = templates.Analyze(normalized)
			})

			return nil
		})

		if err := g.Wait(); err != nil {
			return AnalysisResult{}, err
		}
	} else {
		if err := checkLimits(opts.Limiter); err != nil {
			return AnalysisResult{}, err
		}

		withSpan(ctx, opts.Tracer, "bha.performance", func(context.Context) {
			perfResult = perf.Analyze(normalized, opts.Perf)
		})
		withSpan(ctx, opts.Tracer, "bha.dependencies", func(context.Context) {
			depResult = depgraph.Analyze(normalized)
		})
		withSpan(ctx, opts.Tracer, "bha.templates", func(context.Context) {
			tplResult = templates.Analyze(normalized)
		})
	}

	if err := checkLimits(opts.Limiter); err != nil {
		return AnalysisResult{}, err
	}

	var bnResult bottleneck.Result

	withSpan(ctx, opts.Tracer, "bha.bottlenecks", func(context.Context) {
		bnResult = bottleneck.Analyze(normalized, opts.Bottleneck)
	})

	if err := checkLimits(opts.Limiter); err != nil {
		return AnalysisResult{}, err
	}

	var (
		suggestions    []suggest.Suggestion
		suggestWarning string
	)

	withSpan(ctx, opts.Tracer, "bha.suggestions", func(context.Context) {
		suggestions, suggestWarning = safeGenerate(normalized, perfResult, depResult, tplResult, bnResult, opts.Suggest)
	})
	if suggestWarning != "" {
		warnings = append(warnings, suggestWarning)
	}

	return AnalysisResult{
		TotalBuildTime: normalized.TotalTime,
		FileCount:      len(normalized.Units),
		Performance:    perfResult,
		Dependencies:   depResult,
		Templates:      tplResult,
		Bottlenecks:    bnResult,
		Suggestions:    suggestions,
		Warnings:       warnings,
	}, nil
}

// checkLimits runs the wall-time and memory checks against lim,
// tolerating a nil limiter. Called once per analysis stage so a
// long-running or memory-hungry run is rejected between stages rather
// than only at startup.
func checkLimits(lim *limiter.Limiter) error {
	if lim == nil {
		return nil
	}

	if err := lim.CheckWallTime(); err != nil {
		return err
	}

	return lim.CheckMemory()
}

// graphSize counts the nodes and edges of the unit+header dependency
// graph that perf, depgraph, and bottleneck each build independently:
// one node per source file and per unique header, one edge per
// include. Computed directly from bt rather than by constructing a
// graph.Graph, so an oversized build is rejected before any of the
// three components pays to build their own copy of it.
func graphSize(bt trace.BuildTrace) (nodes, edges int) {
	seen := make(map[trace.FileId]struct{}, len(bt.Units))

	for _, u := range bt.Units {
		seen[u.SourceFile] = struct{}{}

		for _, inc := range u.Includes {
			seen[inc.Header] = struct{}{}
			edges++
		}
	}

	return len(seen), edges
}

// withSpan runs fn inside its own span when tracer is set, and plainly
// otherwise. Each analysis stage gets one span this way.
func withSpan(ctx context.Context, tracer oteltrace.Tracer, name string, fn func(context.Context)) {
	if tracer == nil {
		fn(ctx)

		return
	}

	spanCtx, span := tracer.Start(ctx, name)
	defer span.End()

	fn(spanCtx)
}

// safeGenerate runs the suggestion engine and converts any failure
// into a warning rather than aborting the run (a best-effort component:
// "a failed suggestion generator does not abort the analysis").
func safeGenerate(bt trace.BuildTrace, p perf.Result, d depgraph.Result, t templates.Result, b bottleneck.Result, opts suggest.Options) (suggestions []suggest.Suggestion, warning string) {
	defer func() {
		if r := recover(); r != nil {
			warning = fmt.Sprintf("suggestion engine failed: %v", r)
			suggestions = nil
		}
	}()

	return suggest.Generate(bt, p, d, t, b, opts), ""
}

// collectWarnings surfaces input-tolerance coercions as diagnostics
// rather than silently discarding them, per the original validator's
// diagnostics-list behaviour. It reports empty source paths, negative
// unit total_time, negative include parse_time, and instantiation_count
// below 1. Negative frontend, backend, breakdown-phase and template
// times are clamped by Normalize without a warning.
func collectWarnings(bt trace.BuildTrace) []string {
	var warnings []string

	for i, u := range bt.Units {
		if u.SourceFile.IsEmpty() {
			warnings = append(warnings, fmt.Sprintf("unit %d: empty source_file", i))
		}

		if u.Metrics.TotalTime < 0 {
			warnings = append(warnings, fmt.Sprintf("unit %d (%s): negative total_time coerced to zero", i, u.SourceFile))
		}

		for j, inc := range u.Includes {
			if inc.ParseTime < 0 {
				warnings = append(warnings, fmt.Sprintf("unit %d (%s) include %d: negative parse_time coerced to zero", i, u.SourceFile, j))
			}
		}

		for j, tpl := range u.Templates {
			if tpl.InstantiationCount < 1 {
				warnings = append(warnings, fmt.Sprintf("unit %d (%s) template %d: instantiation_count < 1 coerced to 1", i, u.SourceFile, j))
			}
		}
	}

	return warnings
}
