// Package graph implements the directed graph over file identifiers that
// backs the dependency analyser, critical-path and bottleneck scoring
// components. Nodes are keyed by string identifier and carry a node
// weight (compile/parse time); edges carry a merged time+count weight.
//
// There are no owning pointers between nodes: adjacency is id-indexed,
// and predecessor sets are a secondary index updated on every edge insertion,
// so the structure stays cycle-safe to construct even though it may
// legitimately contain cycles once built.
package graph

import (
	"sort"

	"github.com/buildtrace/bha/pkg/bha/bhaerr"
	"github.com/buildtrace/bha/pkg/bha/trace"
)

// EdgeWeight is the weight carried by a single edge. Adding the same
// edge twice sums both fields.
type EdgeWeight struct {
	Time  trace.Duration
	Count int
}

// Graph is a directed graph over string-identified nodes.
type Graph struct {
	strToID map[string]int
	idToStr []string

	nodeTime []trace.Duration
	hasTime  []bool

	succOrder  [][]int
	succIndex  []map[int]int
	succWeight [][]EdgeWeight

	predSet []map[int]struct{}

	inDegree []int
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{strToID: make(map[string]int)}
}

func (g *Graph) intern(name string) int {
	if id, ok := g.strToID[name]; ok {
		return id
	}

	id := len(g.idToStr)
	g.idToStr = append(g.idToStr, name)
	g.strToID[name] = id

	g.nodeTime = append(g.nodeTime, 0)
	g.hasTime = append(g.hasTime, false)
	g.succOrder = append(g.succOrder, nil)
	g.succIndex = append(g.succIndex, make(map[int]int))
	g.succWeight = append(g.succWeight, nil)
	g.predSet = append(g.predSet, make(map[int]struct{}))
	g.inDegree = append(g.inDegree, 0)

	return id
}

func (g *Graph) size() int { return len(g.idToStr) }

// AddNode inserts (or updates) an explicit node with the given time.
// Idempotent on presence: calling it again with a new time updates the
// node's recorded time.
func (g *Graph) AddNode(id string, t trace.Duration) {
	nid := g.intern(id)
	g.nodeTime[nid] = t
	g.hasTime[nid] = true
}

// AddEdge inserts a directed edge from -> to, creating both endpoints
// implicitly (with zero time) if absent. A later edge endpoint never
// overwrites a node's explicitly set time. Repeated calls for the same
// pair merge (sum) the weight.
func (g *Graph) AddEdge(from, to string, w EdgeWeight) {
	fid := g.intern(from)
	tid := g.intern(to)

	if idx, ok := g.succIndex[fid][tid]; ok {
		g.succWeight[fid][idx].Time += w.Time
		g.succWeight[fid][idx].Count += w.Count

		return
	}

	g.succIndex[fid][tid] = len(g.succOrder[fid])
	g.succOrder[fid] = append(g.succOrder[fid], tid)
	g.succWeight[fid] = append(g.succWeight[fid], w)
	g.predSet[tid][fid] = struct{}{}
	g.inDegree[tid]++
}

// NodeTime returns the recorded time for id, or zero if unknown.
func (g *Graph) NodeTime(id string) trace.Duration {
	nid, ok := g.strToID[id]
	if !ok {
		return 0
	}

	return g.nodeTime[nid]
}

// HasNode reports whether id has been added (explicitly or via an edge).
func (g *Graph) HasNode(id string) bool {
	_, ok := g.strToID[id]

	return ok
}

// Successors returns the (unordered) neighbours reachable via an
// outgoing edge from id; empty if id is unknown.
func (g *Graph) Successors(id string) []string {
	nid, ok := g.strToID[id]
	if !ok {
		return nil
	}

	out := make([]string, len(g.succOrder[nid]))
	for i, v := range g.succOrder[nid] {
		out[i] = g.idToStr[v]
	}

	return out
}

// Predecessors returns the (unordered) neighbours with an outgoing
// edge into id; empty if id is unknown.
func (g *Graph) Predecessors(id string) []string {
	nid, ok := g.strToID[id]
	if !ok {
		return nil
	}

	out := make([]string, 0, len(g.predSet[nid]))
	for u := range g.predSet[nid] {
		out = append(out, g.idToStr[u])
	}

	return out
}

// Roots returns nodes with zero in-degree.
func (g *Graph) Roots() []string {
	var out []string

	for i := 0; i < g.size(); i++ {
		if g.inDegree[i] == 0 {
			out = append(out, g.idToStr[i])
		}
	}

	return out
}

// Leaves returns nodes with zero out-degree.
func (g *Graph) Leaves() []string {
	var out []string

	for i := 0; i < g.size(); i++ {
		if len(g.succOrder[i]) == 0 {
			out = append(out, g.idToStr[i])
		}
	}

	return out
}

// NodeStats is the summary returned by Stats.
type NodeStats struct {
	InDegree      int
	OutDegree     int
	Depth         int
	CumulativeTime trace.Duration
}

// Stats returns degree/depth/cumulative-time info for id. Depth and
// CumulativeTime require an acyclic graph; on a cyclic graph they
// default to -1 and the node's own time, respectively.
func (g *Graph) Stats(id string) (NodeStats, bool) {
	nid, ok := g.strToID[id]
	if !ok {
		return NodeStats{}, false
	}

	stats := NodeStats{
		InDegree:       g.inDegree[nid],
		OutDegree:      len(g.succOrder[nid]),
		Depth:          -1,
		CumulativeTime: g.nodeTime[nid],
	}

	depths, dist, ok := g.longestPaths()
	if ok {
		stats.Depth = depths[nid]
		stats.CumulativeTime = dist[nid] + g.nodeTime[nid]
	}

	return stats, true
}

// topoSortIDs performs Kahn's algorithm over node ids. Ready nodes are
// processed FIFO in insertion order, giving deterministic output within
// a single run even when multiple nodes become ready at once.
func (g *Graph) topoSortIDs() ([]int, bool) {
	n := g.size()
	if n == 0 {
		return nil, true
	}

	inDegree := make([]int, n)
	copy(inDegree, g.inDegree)

	queue := make([]int, 0, n)

	for i := 0; i < n; i++ {
		if inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	result := make([]int, 0, n)

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		result = append(result, u)

		for _, v := range g.succOrder[u] {
			inDegree[v]--
			if inDegree[v] == 0 {
				queue = append(queue, v)
			}
		}
	}

	return result, len(result) == n
}

// TopoSort returns the nodes in topological order, or ok=false if the
// graph contains a cycle.
func (g *Graph) TopoSort() ([]string, bool) {
	ids, ok := g.topoSortIDs()

	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = g.idToStr[id]
	}

	return out, ok
}

// longestPaths computes, for an acyclic graph, the longest edge-count
// distance from any root (depths) and the longest time-weighted
// distance (dist, predecessor_dist + predecessor_node_time + edge_time)
// to each node. Returns ok=false on a cyclic graph.
func (g *Graph) longestPaths() (depths []int, dist []trace.Duration, ok bool) {
	order, acyclic := g.topoSortIDs()
	if !acyclic {
		return nil, nil, false
	}

	n := g.size()
	depths = make([]int, n)
	dist = make([]trace.Duration, n)

	for _, u := range order {
		for i, v := range g.succOrder[u] {
			w := g.succWeight[u][i]

			if d := depths[u] + 1; d > depths[v] {
				depths[v] = d
			}

			if cand := dist[u] + g.nodeTime[u] + w.Time; cand > dist[v] {
				dist[v] = cand
			}
		}
	}

	return depths, dist, true
}

// CriticalPath is the longest time-weighted chain through the graph.
type CriticalPath struct {
	Nodes     []string
	TotalTime trace.Duration
}

// FindCriticalPath requires an acyclic graph; on a cycle it returns the
// offending cycle wrapped in a graph-kind error.
func (g *Graph) FindCriticalPath() (CriticalPath, error) {
	order, acyclic := g.topoSortIDs()
	if !acyclic {
		report := g.DetectCycles(1)

		return CriticalPath{}, bhaerr.Wrap(bhaerr.KindGraph, "critical path requires an acyclic graph",
			cycleError{cycles: report.Cycles})
	}

	n := g.size()
	if n == 0 {
		return CriticalPath{}, nil
	}

	dist := make([]trace.Duration, n)
	pred := make([]int, n)

	for i := range pred {
		pred[i] = -1
	}

	for _, u := range order {
		for i, v := range g.succOrder[u] {
			w := g.succWeight[u][i]
			if cand := dist[u] + g.nodeTime[u] + w.Time; cand > dist[v] {
				dist[v] = cand
				pred[v] = u
			}
		}
	}

	best := order[0]
	bestVal := dist[best] + g.nodeTime[best]

	for _, v := range order[1:] {
		if val := dist[v] + g.nodeTime[v]; val > bestVal {
			bestVal = val
			best = v
		}
	}

	var path []int

	for cur := best; cur != -1; cur = pred[cur] {
		path = append(path, cur)
	}

	// path was built end-to-start; reverse it.
	for left, right := 0, len(path)-1; left < right; left, right = left+1, right-1 {
		path[left], path[right] = path[right], path[left]
	}

	var total trace.Duration

	names := make([]string, len(path))

	for i, id := range path {
		names[i] = g.idToStr[id]
		total += g.nodeTime[id]
	}

	return CriticalPath{Nodes: names, TotalTime: total}, nil
}

// cycleError adapts a CycleReport into an error value for wrapping.
type cycleError struct{ cycles []Cycle }

func (c cycleError) Error() string {
	if len(c.cycles) == 0 {
		return "cycle present"
	}

	return "cycle: " + joinCycle(c.cycles[0].Nodes)
}

func joinCycle(nodes []string) string {
	out := ""
	for i, n := range nodes {
		if i > 0 {
			out += " -> "
		}

		out += n
	}

	return out
}

// Cycles extracts the offending cycles from a FindCriticalPath error,
// if any were attached.
func Cycles(err error) []Cycle {
	var ce cycleError
	if e, ok := err.(*bhaerr.Error); ok { //nolint:errorlint // unwrap is shallow by construction here.
		if inner, ok := e.Cause.(cycleError); ok { //nolint:errorlint
			ce = inner
		}
	}

	return ce.cycles
}

// Cycle is one detected cycle: the node path with the closing edge
// appended (first == last), and the sum of node times along it.
type Cycle struct {
	Nodes     []string
	TotalTime trace.Duration
}

// CycleReport is the result of DetectCycles.
type CycleReport struct {
	Cycles    []Cycle
	HasCycles bool
}

// DetectCycles runs a three-colour DFS, capping results at maxCycles.
// Self-loops are reported like any other cycle.
func (g *Graph) DetectCycles(maxCycles int) CycleReport {
	n := g.size()
	color := make([]int, n) // 0 white, 1 grey, 2 black
	pathPos := make([]int, n)

	for i := range pathPos {
		pathPos[i] = -1
	}

	var path []int

	var cycles []Cycle

	var dfs func(u int)

	dfs = func(u int) {
		if len(cycles) >= maxCycles {
			return
		}

		color[u] = 1
		path = append(path, u)
		pathPos[u] = len(path) - 1

		for _, v := range g.succOrder[u] {
			if len(cycles) >= maxCycles {
				break
			}

			switch color[v] {
			case 1:
				start := pathPos[v]
				nodes := append([]int{}, path[start:]...)
				nodes = append(nodes, v)
				cycles = append(cycles, g.buildCycle(nodes))
			case 0:
				dfs(v)
			}
		}

		color[u] = 2
		path = path[:len(path)-1]
		pathPos[u] = -1
	}

	for u := 0; u < n; u++ {
		if color[u] == 0 && len(cycles) < maxCycles {
			dfs(u)
		}
	}

	return CycleReport{Cycles: cycles, HasCycles: len(cycles) > 0}
}

func (g *Graph) buildCycle(ids []int) Cycle {
	names := make([]string, len(ids))

	var total trace.Duration

	for i, id := range ids {
		names[i] = g.idToStr[id]
		if i < len(ids)-1 {
			total += g.nodeTime[id]
		}
	}

	return Cycle{Nodes: names, TotalTime: total}
}

// CycleBreaker is a node ranked by how many reported cycles it
// participates in.
type CycleBreaker struct {
	Node  string
	Count int
}

const cycleBreakerCap = 100

// FindCycleBreakers ranks nodes by participation across up to 100
// reported cycles, descending.
func (g *Graph) FindCycleBreakers() []CycleBreaker {
	report := g.DetectCycles(cycleBreakerCap)

	counts := make(map[string]int)

	for _, c := range report.Cycles {
		seen := make(map[string]bool)

		for _, n := range c.Nodes {
			if !seen[n] {
				seen[n] = true
				counts[n]++
			}
		}
	}

	out := make([]CycleBreaker, 0, len(counts))
	for node, count := range counts {
		out = append(out, CycleBreaker{Node: node, Count: count})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}

		return out[i].Node < out[j].Node
	})

	return out
}

// AllPaths returns every simple path from `from` to `to`, bounded by
// maxPaths, via DFS with a per-path visited set (so DAG re-convergence
// within a single path is prevented but re-visiting the same node on
// two different branches is allowed).
func (g *Graph) AllPaths(from, to string, maxPaths int) [][]string {
	fid, ok1 := g.strToID[from]
	tid, ok2 := g.strToID[to]

	if !ok1 || !ok2 {
		return nil
	}

	var results [][]string

	visited := make(map[int]bool)

	var path []int

	var dfs func(u int)

	dfs = func(u int) {
		if len(results) >= maxPaths {
			return
		}

		visited[u] = true
		path = append(path, u)

		if u == tid {
			names := make([]string, len(path))
			for i, id := range path {
				names[i] = g.idToStr[id]
			}

			results = append(results, names)
		} else {
			for _, v := range g.succOrder[u] {
				if len(results) >= maxPaths {
					break
				}

				if !visited[v] {
					dfs(v)
				}
			}
		}

		path = path[:len(path)-1]
		visited[u] = false
	}

	dfs(fid)

	return results
}

// Pair is an edge in the transitive closure: from is reachable to to.
type Pair struct{ From, To string }

// TransitiveClosure returns every (from, to) pair where to is
// BFS-reachable from from, for every node in the graph.
func (g *Graph) TransitiveClosure() []Pair {
	var pairs []Pair

	for u := 0; u < g.size(); u++ {
		visited := make(map[int]bool)
		queue := append([]int{}, g.succOrder[u]...)

		for _, v := range queue {
			visited[v] = true
		}

		for i := 0; i < len(queue); i++ {
			v := queue[i]
			pairs = append(pairs, Pair{From: g.idToStr[u], To: g.idToStr[v]})

			for _, w := range g.succOrder[v] {
				if !visited[w] {
					visited[w] = true
					queue = append(queue, w)
				}
			}
		}
	}

	return pairs
}
