// Package commands implements the bha CLI subcommands: analyze,
// record, compare, baseline, snapshot, suggest, and render. Each
// subcommand is built by a NewXCommand constructor returning a
// *cobra.Command, following the codefang cmd/codefang/commands
// pattern of keeping flag state on a small per-command struct.
package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/buildtrace/bha/internal/config"
	"github.com/buildtrace/bha/internal/observability"
	"github.com/buildtrace/bha/pkg/bha/bottleneck"
	"github.com/buildtrace/bha/pkg/bha/limiter"
	"github.com/buildtrace/bha/pkg/bha/perf"
	"github.com/buildtrace/bha/pkg/bha/pipeline"
	"github.com/buildtrace/bha/pkg/bha/snapshot"
	"github.com/buildtrace/bha/pkg/bha/suggest"
	"github.com/buildtrace/bha/pkg/bha/trace"
)

// Exit codes: 0 success, 1 on a detected
// regression for comparison commands, 1 on internal error.
const (
	ExitSuccess   = 0
	ExitRegressed = 1
	ExitError     = 1
)

// Providers holds the observability stack initialised once by the
// root command's PersistentPreRunE; subcommands read it when building
// pipeline options so every analysis run is traced.
var Providers observability.Providers

// loadBuildTrace reads the canonical CompilationUnit-contract JSON
// document a decoder collaborator would produce and decodes it into
// a BuildTrace. The pipeline normalises it; this function does not.
func loadBuildTrace(path string) (trace.BuildTrace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return trace.BuildTrace{}, fmt.Errorf("read trace %s: %w", path, err)
	}

	var bt trace.BuildTrace
	if err := json.Unmarshal(data, &bt); err != nil {
		return trace.BuildTrace{}, fmt.Errorf("decode trace %s: %w", path, err)
	}

	return bt, nil
}

// pipelineOptions translates the loaded configuration into the
// pipeline's per-component option bundle.
func pipelineOptions(cfg *config.Config) pipeline.Options {
	opts := pipeline.Options{
		Perf: perf.Options{
			SlowestCap: perf.DefaultSlowestCap,
		},
		Bottleneck: bottleneck.Options{
			MaxBottlenecks: cfg.Suggest.MaxBottlenecks,
		},
		Suggest: suggest.Options{
			MinConfidence:          cfg.Suggest.MinConfidence,
			IncludeUnsafe:          cfg.Suggest.IncludeUnsafe,
			MaxSuggestions:         cfg.Suggest.MaxSuggestions,
			PCHInclusionCountMin:   cfg.Suggest.PCHInclusionCountMin,
			PCHParseTimeMin:        trace.Duration(cfg.Suggest.PCHParseTimeMinMs * float64(1_000_000)),
			TemplateTimePercentMin: cfg.Suggest.TemplateTimePercentMin,
			SmallFileThreshold:     suggest.DefaultOptions().SmallFileThreshold,
			SmallFileGroupMinCount: suggest.DefaultOptions().SmallFileGroupMinCount,
		},
		Parallel: true,
		Tracer:   Providers.Tracer,
	}

	if cfg.Limiter.Enabled {
		opts.Limiter = limiter.New(limiter.Limits{
			MaxMemoryBytes: uint64(cfg.Limiter.MaxMemoryBytes),
			MaxWallTime:    time.Duration(cfg.Limiter.MaxWallSeconds) * time.Second,
			MaxNodes:       cfg.Limiter.MaxNodes,
			MaxEdges:       cfg.Limiter.MaxEdges,
			MaxUnits:       cfg.Limiter.MaxUnits,
		})
	}

	return opts
}

// newStore builds the snapshot store rooted at the configured
// snapshot directory, creating it if necessary.
func newStore(cfg *config.Config) (*snapshot.Store, error) {
	if err := os.MkdirAll(cfg.Snapshot.Directory, 0o750); err != nil {
		return nil, fmt.Errorf("create snapshot directory %s: %w", cfg.Snapshot.Directory, err)
	}

	return snapshot.NewStore(cfg.Snapshot.Directory), nil
}
