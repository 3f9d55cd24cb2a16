package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildtrace/bha/pkg/bha/graph"
	"github.com/buildtrace/bha/pkg/bha/trace"
)

func TestAddEdgeMergesWeights(t *testing.T) {
	g := graph.New()
	g.AddEdge("a", "b", graph.EdgeWeight{Time: 10, Count: 1})
	g.AddEdge("a", "b", graph.EdgeWeight{Time: 5, Count: 1})

	stats, ok := g.Stats("b")
	require.True(t, ok)
	assert.Equal(t, 1, stats.InDegree)
	// b's cumulative time is the merged edge time (10+5) over a zero-time a.
	assert.Equal(t, trace.Duration(15), stats.CumulativeTime)
}

func TestAddNodeExplicitTimeSurvivesEdge(t *testing.T) {
	g := graph.New()
	g.AddNode("h", 500)
	g.AddEdge("h", "u", graph.EdgeWeight{Time: 10, Count: 1})

	assert.Equal(t, trace.Duration(500), g.NodeTime("h"))
}

func TestEdgeCreatesImplicitNodeWithZeroTime(t *testing.T) {
	g := graph.New()
	g.AddEdge("x", "y", graph.EdgeWeight{Time: 1, Count: 1})
	assert.Equal(t, trace.Duration(0), g.NodeTime("x"))
}

func TestRootsAndLeaves(t *testing.T) {
	g := graph.New()
	g.AddEdge("a", "b", graph.EdgeWeight{Time: 1, Count: 1})
	g.AddEdge("b", "c", graph.EdgeWeight{Time: 1, Count: 1})

	assert.ElementsMatch(t, []string{"a"}, g.Roots())
	assert.ElementsMatch(t, []string{"c"}, g.Leaves())
}

func TestTopoSortAcyclic(t *testing.T) {
	g := graph.New()
	g.AddEdge("a", "b", graph.EdgeWeight{Time: 1, Count: 1})
	g.AddEdge("a", "c", graph.EdgeWeight{Time: 1, Count: 1})
	g.AddEdge("b", "d", graph.EdgeWeight{Time: 1, Count: 1})
	g.AddEdge("c", "d", graph.EdgeWeight{Time: 1, Count: 1})

	order, ok := g.TopoSort()
	require.True(t, ok)
	require.Len(t, order, 4)

	pos := make(map[string]int)
	for i, n := range order {
		pos[n] = i
	}

	assert.Less(t, pos["a"], pos["b"])
	assert.Less(t, pos["a"], pos["c"])
	assert.Less(t, pos["b"], pos["d"])
	assert.Less(t, pos["c"], pos["d"])
}

// A cycle A->B->C->A must be detected, topo sort must fail, critical
// path must error, and cycle breakers must be non-empty.
func TestScenarioECycle(t *testing.T) {
	g := graph.New()
	g.AddEdge("A", "B", graph.EdgeWeight{Time: 1, Count: 1})
	g.AddEdge("B", "C", graph.EdgeWeight{Time: 1, Count: 1})
	g.AddEdge("C", "A", graph.EdgeWeight{Time: 1, Count: 1})

	report := g.DetectCycles(10)
	assert.True(t, report.HasCycles)
	require.NotEmpty(t, report.Cycles)

	_, ok := g.TopoSort()
	assert.False(t, ok)

	_, err := g.FindCriticalPath()
	require.Error(t, err)

	breakers := g.FindCycleBreakers()
	assert.NotEmpty(t, breakers)
}

func TestSelfLoopIsCycle(t *testing.T) {
	g := graph.New()
	g.AddEdge("a", "a", graph.EdgeWeight{Time: 1, Count: 1})

	report := g.DetectCycles(5)
	assert.True(t, report.HasCycles)
}

func TestCriticalPathIsMaxTimeChain(t *testing.T) {
	g := graph.New()
	g.AddNode("a", 10)
	g.AddNode("b", 20)
	g.AddNode("c", 100)
	g.AddEdge("a", "b", graph.EdgeWeight{Time: 0, Count: 1})
	g.AddEdge("b", "c", graph.EdgeWeight{Time: 0, Count: 1})

	cp, err := g.FindCriticalPath()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, cp.Nodes)
	assert.Equal(t, trace.Duration(130), cp.TotalTime)
}

func TestCriticalPathEmptyGraph(t *testing.T) {
	g := graph.New()

	cp, err := g.FindCriticalPath()
	require.NoError(t, err)
	assert.Empty(t, cp.Nodes)
}

func TestTransitiveClosure(t *testing.T) {
	g := graph.New()
	g.AddEdge("a", "b", graph.EdgeWeight{Time: 1, Count: 1})
	g.AddEdge("b", "c", graph.EdgeWeight{Time: 1, Count: 1})

	pairs := g.TransitiveClosure()
	assert.Contains(t, pairs, graph.Pair{From: "a", To: "b"})
	assert.Contains(t, pairs, graph.Pair{From: "a", To: "c"})
	assert.Contains(t, pairs, graph.Pair{From: "b", To: "c"})
}

func TestAllPathsBounded(t *testing.T) {
	g := graph.New()
	g.AddEdge("a", "b", graph.EdgeWeight{Time: 1, Count: 1})
	g.AddEdge("a", "c", graph.EdgeWeight{Time: 1, Count: 1})
	g.AddEdge("b", "d", graph.EdgeWeight{Time: 1, Count: 1})
	g.AddEdge("c", "d", graph.EdgeWeight{Time: 1, Count: 1})

	paths := g.AllPaths("a", "d", 1)
	assert.Len(t, paths, 1)

	paths = g.AllPaths("a", "d", 10)
	assert.Len(t, paths, 2)
}
