package bottleneck_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildtrace/bha/pkg/bha/bottleneck"
	"github.com/buildtrace/bha/pkg/bha/trace"
)

func TestScoresFavorCompileTimeAndFanOut(t *testing.T) {
	bt := trace.BuildTrace{
		Units: []trace.CompilationUnit{
			{
				SourceFile: "a.cc",
				Metrics:    trace.Metrics{TotalTime: 500 * 1_000_000},
				Includes: []trace.Include{
					{Header: "hot.h", ParseTime: 400 * 1_000_000, Depth: 0},
				},
			},
			{
				SourceFile: "b.cc",
				Metrics:    trace.Metrics{TotalTime: 500 * 1_000_000},
				Includes: []trace.Include{
					{Header: "hot.h", ParseTime: 400 * 1_000_000, Depth: 0},
				},
			},
		},
	}

	res := bottleneck.Analyze(bt, bottleneck.DefaultOptions())

	require.NotEmpty(t, res.Entries)

	var hot bottleneck.Entry

	found := false

	for _, e := range res.Entries {
		if e.File == "hot.h" {
			hot = e
			found = true
		}
	}

	require.True(t, found)
	assert.Equal(t, 2, hot.DependentCount)
	assert.Greater(t, hot.BottleneckScore, 0.0)
}

func TestOnlyPositiveScoresIncluded(t *testing.T) {
	bt := trace.BuildTrace{
		Units: []trace.CompilationUnit{
			{SourceFile: "zero.cc", Metrics: trace.Metrics{TotalTime: 0}},
		},
	}

	res := bottleneck.Analyze(bt, bottleneck.DefaultOptions())
	assert.Empty(t, res.Entries)
}

func TestMaxBottlenecksCapsResultCount(t *testing.T) {
	units := make([]trace.CompilationUnit, 0, 30)
	for i := 0; i < 30; i++ {
		units = append(units, trace.CompilationUnit{
			SourceFile: trace.FileId(string(rune('a' + i))),
			Metrics:    trace.Metrics{TotalTime: trace.Duration(1_000_000 * (i + 1))},
		})
	}

	res := bottleneck.Analyze(trace.BuildTrace{Units: units}, bottleneck.Options{MaxBottlenecks: 5})
	assert.Len(t, res.Entries, 5)
}
