package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildtrace/bha/pkg/bha/limiter"
	"github.com/buildtrace/bha/pkg/bha/pipeline"
	"github.com/buildtrace/bha/pkg/bha/trace"
)

func TestScenarioAEmptyTrace(t *testing.T) {
	res, err := pipeline.Run(context.Background(), trace.BuildTrace{}, pipeline.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 0, res.FileCount)
	assert.Empty(t, res.Performance.Files)
	assert.Empty(t, res.Suggestions)
	assert.Empty(t, res.Performance.CriticalPath)
}

func TestParallelAndSequentialAgree(t *testing.T) {
	bt := trace.BuildTrace{
		TotalTime: 3000,
		Units: []trace.CompilationUnit{
			{SourceFile: "a.cc", Metrics: trace.Metrics{TotalTime: 1000}},
			{SourceFile: "b.cc", Metrics: trace.Metrics{TotalTime: 2000}},
		},
	}

	parallelOpts := pipeline.DefaultOptions()
	parallelOpts.Parallel = true

	sequentialOpts := pipeline.DefaultOptions()
	sequentialOpts.Parallel = false

	pRes, err := pipeline.Run(context.Background(), bt, parallelOpts)
	require.NoError(t, err)

	sRes, err := pipeline.Run(context.Background(), bt, sequentialOpts)
	require.NoError(t, err)

	assert.Equal(t, sRes.Performance.SequentialTime, pRes.Performance.SequentialTime)
	assert.Equal(t, sRes.Dependencies.TotalIncludes, pRes.Dependencies.TotalIncludes)
	assert.Equal(t, sRes.Templates.TotalTemplateTime, pRes.Templates.TotalTemplateTime)
}

func TestWarningsSurfaceNegativeDurations(t *testing.T) {
	bt := trace.BuildTrace{
		Units: []trace.CompilationUnit{
			{SourceFile: "a.cc", Metrics: trace.Metrics{TotalTime: -5}},
		},
	}

	res, err := pipeline.Run(context.Background(), bt, pipeline.DefaultOptions())
	require.NoError(t, err)
	require.NotEmpty(t, res.Warnings)
}

func TestUnitCountLimiterRejectsOversizedTrace(t *testing.T) {
	bt := trace.BuildTrace{
		Units: make([]trace.CompilationUnit, 5),
	}

	opts := pipeline.DefaultOptions()
	opts.Limiter = limiter.New(limiter.Limits{MaxUnits: 2})

	_, err := pipeline.Run(context.Background(), bt, opts)
	require.Error(t, err)
}

func TestGraphSizeLimiterRejectsOversizedTrace(t *testing.T) {
	bt := trace.BuildTrace{
		Units: []trace.CompilationUnit{
			{
				SourceFile: "a.cc",
				Includes: []trace.Include{
					{Header: "a.h"},
					{Header: "b.h"},
					{Header: "c.h"},
				},
			},
		},
	}

	opts := pipeline.DefaultOptions()
	opts.Limiter = limiter.New(limiter.Limits{MaxEdges: 2})

	_, err := pipeline.Run(context.Background(), bt, opts)
	require.Error(t, err)
}

func TestCancelledContextErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pipeline.Run(ctx, trace.BuildTrace{}, pipeline.DefaultOptions())
	require.Error(t, err)
}
