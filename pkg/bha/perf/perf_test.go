package perf_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildtrace/bha/pkg/bha/perf"
	"github.com/buildtrace/bha/pkg/bha/trace"
)

func TestScenarioAEmpty(t *testing.T) {
	res := perf.Analyze(trace.BuildTrace{}, perf.DefaultOptions())

	assert.Equal(t, 0, res.TotalFiles)
	assert.Empty(t, res.CriticalPath)
	assert.Equal(t, trace.Duration(0), res.SequentialTime)
}

func TestScenarioBSingleUnit(t *testing.T) {
	bt := trace.BuildTrace{
		TotalTime: 1000,
		Units: []trace.CompilationUnit{
			{SourceFile: "a.cc", Metrics: trace.Metrics{TotalTime: 1000}},
		},
	}

	res := perf.Analyze(bt, perf.DefaultOptions())

	assert.InDelta(t, 1.0, res.ParallelismEfficiency, 0.0001)
	assert.Equal(t, trace.Duration(1000), res.Percentiles.P50)
	assert.Equal(t, trace.Duration(1000), res.Percentiles.P90)
	assert.Equal(t, trace.Duration(1000), res.Percentiles.P99)
	require.Len(t, res.Files, 1)
	assert.InDelta(t, 100.0, res.Files[0].TimePercent, 0.0001)
	assert.Equal(t, 1, res.Files[0].Rank)
}

func TestScenarioCParallel(t *testing.T) {
	bt := trace.BuildTrace{
		TotalTime: 30 * 1_000_000_000,
		Units: []trace.CompilationUnit{
			{SourceFile: "a.cc", Metrics: trace.Metrics{TotalTime: 20 * 1_000_000_000}},
			{SourceFile: "b.cc", Metrics: trace.Metrics{TotalTime: 20 * 1_000_000_000}},
			{SourceFile: "c.cc", Metrics: trace.Metrics{TotalTime: 20 * 1_000_000_000}},
		},
	}

	res := perf.Analyze(bt, perf.DefaultOptions())

	assert.Equal(t, trace.Duration(60*1_000_000_000), res.SequentialTime)
	assert.Equal(t, trace.Duration(30*1_000_000_000), res.ParallelTime)
	assert.InDelta(t, 2.0, res.ParallelismEfficiency, 0.0001)
}

func TestScenarioDPercentiles(t *testing.T) {
	bt := trace.BuildTrace{
		TotalTime: 1500,
		Units: []trace.CompilationUnit{
			{SourceFile: "a", Metrics: trace.Metrics{TotalTime: 100}},
			{SourceFile: "b", Metrics: trace.Metrics{TotalTime: 200}},
			{SourceFile: "c", Metrics: trace.Metrics{TotalTime: 300}},
			{SourceFile: "d", Metrics: trace.Metrics{TotalTime: 400}},
			{SourceFile: "e", Metrics: trace.Metrics{TotalTime: 500}},
		},
	}

	res := perf.Analyze(bt, perf.DefaultOptions())

	assert.Equal(t, trace.Duration(300), res.Percentiles.P50)
	assert.GreaterOrEqual(t, res.Percentiles.P90, trace.Duration(400))
	assert.GreaterOrEqual(t, res.Percentiles.P99, trace.Duration(400))
}

func TestRanksAreDenseWithTieBreak(t *testing.T) {
	bt := trace.BuildTrace{
		TotalTime: 200,
		Units: []trace.CompilationUnit{
			{SourceFile: "first", Metrics: trace.Metrics{TotalTime: 100}},
			{SourceFile: "second", Metrics: trace.Metrics{TotalTime: 100}},
		},
	}

	res := perf.Analyze(bt, perf.DefaultOptions())

	require.Len(t, res.Files, 2)
	assert.Equal(t, "first", string(res.Files[0].File))
	assert.Equal(t, "second", string(res.Files[1].File))
	assert.Equal(t, 1, res.Files[0].Rank)
	assert.Equal(t, 2, res.Files[1].Rank)
}

func TestTotalFilesMatchesUnitCount(t *testing.T) {
	bt := trace.BuildTrace{
		Units: make([]trace.CompilationUnit, 7),
	}

	res := perf.Analyze(bt, perf.DefaultOptions())
	assert.Equal(t, 7, res.TotalFiles)
}

func TestSequentialTimeIsSumOfUnitTimes(t *testing.T) {
	bt := trace.BuildTrace{
		Units: []trace.CompilationUnit{
			{Metrics: trace.Metrics{TotalTime: 10}},
			{Metrics: trace.Metrics{TotalTime: 20}},
		},
	}

	res := perf.Analyze(bt, perf.DefaultOptions())
	assert.Equal(t, trace.Duration(30), res.SequentialTime)
}

func TestCriticalPathFallbackOnCycle(t *testing.T) {
	// Two units that mutually include each other's headers — not
	// representable through real include records (headers aren't
	// units), so the fallback path is exercised via perf's own unit
	// graph instead: a unit that includes itself as a header, forming
	// a header->unit->... self-cycle through shared identifiers.
	bt := trace.BuildTrace{
		TotalTime: 1000,
		Units: []trace.CompilationUnit{
			{
				SourceFile: "a.cc",
				Metrics:    trace.Metrics{TotalTime: 600},
				Includes:   []trace.Include{{Header: "a.cc", ParseTime: 50, Depth: 0}},
			},
			{
				SourceFile: "b.cc",
				Metrics:    trace.Metrics{TotalTime: 400},
			},
		},
	}

	res := perf.Analyze(bt, perf.DefaultOptions())
	require.NotEmpty(t, res.CriticalPath)
}
