// Package bottleneck implements bottleneck and critical-path scoring:
// it runs over the combined unit+header dependency graph (the same
// shape the performance analyser builds for its own critical-path
// derivation) and scores every node by its compile time and fan-out,
// boosting nodes that sit on the critical path.
package bottleneck

import (
	"math"
	"sort"

	"github.com/buildtrace/bha/pkg/bha/graph"
	"github.com/buildtrace/bha/pkg/bha/trace"
)

// Entry is one scored bottleneck node.
type Entry struct {
	File            string
	CompileTime     trace.Duration
	DependentCount  int
	BottleneckScore float64
	OnCriticalPath  bool
}

// DefaultMaxBottlenecks is the default cap on the returned list.
const DefaultMaxBottlenecks = 20

// Options configures the scorer.
type Options struct {
	MaxBottlenecks int
}

// DefaultOptions returns the default bottleneck-scoring policy.
func DefaultOptions() Options {
	return Options{MaxBottlenecks: DefaultMaxBottlenecks}
}

// Result is the `bottlenecks` portion of AnalysisResult.
type Result struct {
	Entries      []Entry
	CriticalPath []string
}

// Analyze builds the combined unit+header graph, derives the critical
// path, scores every node, and returns the top entries by descending
// score.
func Analyze(bt trace.BuildTrace, opts Options) Result {
	g := graph.New()

	for _, u := range bt.Units {
		g.AddNode(string(u.SourceFile), u.Metrics.TotalTime)

		for _, inc := range u.Includes {
			if !g.HasNode(string(inc.Header)) {
				g.AddNode(string(inc.Header), inc.ParseTime)
			}

			g.AddEdge(string(inc.Header), string(u.SourceFile), graph.EdgeWeight{Time: inc.ParseTime, Count: 1})
		}
	}

	var criticalPath []string

	if cp, err := g.FindCriticalPath(); err == nil {
		criticalPath = cp.Nodes
	}

	onCP := make(map[string]struct{}, len(criticalPath))
	for _, n := range criticalPath {
		onCP[n] = struct{}{}
	}

	nodes := allNodes(bt)

	entries := make([]Entry, 0, len(nodes))

	for _, id := range nodes {
		t := g.NodeTime(id)
		d := len(g.Successors(id))
		tMs := t.Milliseconds()
		score := tMs * (1 + math.Log(1+float64(d)))

		_, isOnCP := onCP[id]
		if isOnCP {
			score *= 1.5
		}

		if score <= 0 {
			continue
		}

		entries = append(entries, Entry{
			File:            id,
			CompileTime:     t,
			DependentCount:  d,
			BottleneckScore: score,
			OnCriticalPath:  isOnCP,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].BottleneckScore > entries[j].BottleneckScore
	})

	cap := opts.MaxBottlenecks
	if cap <= 0 {
		cap = DefaultMaxBottlenecks
	}

	if len(entries) > cap {
		entries = entries[:cap]
	}

	return Result{Entries: entries, CriticalPath: criticalPath}
}

// allNodes returns every unit and header identifier seen in the trace,
// in a deterministic (insertion) order, so scoring covers the whole
// combined graph rather than relying on internal Graph iteration order.
func allNodes(bt trace.BuildTrace) []string {
	seen := make(map[string]struct{})

	var order []string

	add := func(id string) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			order = append(order, id)
		}
	}

	for _, u := range bt.Units {
		add(string(u.SourceFile))

		for _, inc := range u.Includes {
			add(string(inc.Header))
		}
	}

	return order
}
