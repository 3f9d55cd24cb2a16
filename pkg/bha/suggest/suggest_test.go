package suggest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildtrace/bha/pkg/bha/bottleneck"
	"github.com/buildtrace/bha/pkg/bha/depgraph"
	"github.com/buildtrace/bha/pkg/bha/perf"
	"github.com/buildtrace/bha/pkg/bha/suggest"
	"github.com/buildtrace/bha/pkg/bha/templates"
	"github.com/buildtrace/bha/pkg/bha/trace"
)

func TestPCHCandidateOverThreshold(t *testing.T) {
	bt := trace.BuildTrace{TotalTime: 10000}
	for i := 0; i < 6; i++ {
		bt.Units = append(bt.Units, trace.CompilationUnit{
			SourceFile: trace.FileId(string(rune('a' + i)) + ".cc"),
			Includes:   []trace.Include{{Header: "heavy.h", ParseTime: 250 * 1_000_000, Depth: 0}},
		})
	}

	dep := depgraph.Analyze(bt)
	tpl := templates.Analyze(bt)
	p := perf.Analyze(bt, perf.DefaultOptions())
	bn := bottleneck.Analyze(bt, bottleneck.DefaultOptions())

	suggestions := suggest.Generate(bt, p, dep, tpl, bn, suggest.DefaultOptions())

	var found bool

	for _, s := range suggestions {
		if s.Type == suggest.TypePCH {
			found = true
			assert.Equal(t, suggest.PriorityHigh, s.Priority)
			assert.InDelta(t, 0.8, s.Confidence, 0.0001)
		}
	}

	assert.True(t, found)
}

func TestUnsafeSuggestionsFilteredWhenExcluded(t *testing.T) {
	bt := trace.BuildTrace{
		Units: []trace.CompilationUnit{
			{
				SourceFile: "h1",
				Includes:   []trace.Include{{Header: "h2", ParseTime: 1, Depth: 0}},
			},
			{
				SourceFile: "h2",
				Includes:   []trace.Include{{Header: "h1", ParseTime: 1, Depth: 0}},
			},
		},
	}

	dep := depgraph.Analyze(bt)
	tpl := templates.Analyze(bt)
	p := perf.Analyze(bt, perf.DefaultOptions())
	bn := bottleneck.Analyze(bt, bottleneck.DefaultOptions())

	opts := suggest.DefaultOptions()
	opts.IncludeUnsafe = false

	suggestions := suggest.Generate(bt, p, dep, tpl, bn, opts)

	for _, s := range suggestions {
		assert.False(t, s.Unsafe)
	}
}

func TestMaxSuggestionsCapsOutput(t *testing.T) {
	bt := trace.BuildTrace{TotalTime: 100000}
	for i := 0; i < 10; i++ {
		bt.Units = append(bt.Units, trace.CompilationUnit{
			SourceFile: trace.FileId(string(rune('a'+i)) + ".cc"),
			Includes:   []trace.Include{{Header: trace.FileId(string(rune('a'+i)) + ".h"), ParseTime: 300 * 1_000_000, Depth: 0}},
		})
		for j := 0; j < 5; j++ {
			bt.Units[i].Includes = append(bt.Units[i].Includes, trace.Include{
				Header:    trace.FileId(string(rune('a'+i)) + ".h"),
				ParseTime: 300 * 1_000_000,
				Depth:     0,
			})
		}
	}

	dep := depgraph.Analyze(bt)
	tpl := templates.Analyze(bt)
	p := perf.Analyze(bt, perf.DefaultOptions())
	bn := bottleneck.Analyze(bt, bottleneck.DefaultOptions())

	opts := suggest.DefaultOptions()
	opts.MaxSuggestions = 2

	suggestions := suggest.Generate(bt, p, dep, tpl, bn, opts)
	require.Len(t, suggestions, 2)
}

func TestSortedByPriorityThenSavings(t *testing.T) {
	bt := trace.BuildTrace{TotalTime: 10000}
	bt.Units = []trace.CompilationUnit{
		{
			SourceFile: "a.cc",
			Includes: []trace.Include{
				{Header: "big.h", ParseTime: 500 * 1_000_000, Depth: 0},
				{Header: "big.h", ParseTime: 500 * 1_000_000, Depth: 0},
				{Header: "big.h", ParseTime: 500 * 1_000_000, Depth: 0},
				{Header: "big.h", ParseTime: 500 * 1_000_000, Depth: 0},
				{Header: "big.h", ParseTime: 500 * 1_000_000, Depth: 0},
			},
		},
	}

	dep := depgraph.Analyze(bt)
	tpl := templates.Analyze(bt)
	p := perf.Analyze(bt, perf.DefaultOptions())
	bn := bottleneck.Analyze(bt, bottleneck.DefaultOptions())

	suggestions := suggest.Generate(bt, p, dep, tpl, bn, suggest.DefaultOptions())

	for i := 1; i < len(suggestions); i++ {
		prev, cur := suggestions[i-1], suggestions[i]
		if prev.Priority == cur.Priority {
			assert.GreaterOrEqual(t, prev.EstimatedSavings, cur.EstimatedSavings)
		}
	}
}
