// Package depgraph implements the dependency analyser: a
// header-keyed aggregation distinct from the performance analyser's combined unit+header
// graph, plus cycle detection over the header-inclusion graph.
package depgraph

import (
	"math"
	"sort"

	"github.com/buildtrace/bha/pkg/bha/graph"
	"github.com/buildtrace/bha/pkg/bha/trace"
)

// HeaderResult is one header's aggregated inclusion statistics.
type HeaderResult struct {
	Header          trace.FileId
	IncludingFiles  []trace.FileId
	TotalParseTime  trace.Duration
	InclusionCount  int
	MaxDepth        int
	ImpactScore     float64
}

// Cycle mirrors graph.Cycle but over header identifiers only.
type Cycle struct {
	Nodes     []string
	TotalTime trace.Duration
}

// Result is the `dependencies` portion of AnalysisResult.
type Result struct {
	Headers          []HeaderResult
	Cycles           []Cycle
	TotalIncludes    int
	UniqueHeaders    int
	MaxIncludeDepth  int
	TotalIncludeTime trace.Duration
}

// Analyze aggregates per-header parse time, inclusion count, and
// including-files sets, then scores and ranks headers and detects
// cycles in the u->h header-inclusion graph.
func Analyze(bt trace.BuildTrace) Result {
	type accum struct {
		including map[trace.FileId]struct{}
		order     []trace.FileId
		parseTime trace.Duration
		count     int
		maxDepth  int
	}

	headerOrder := make([]trace.FileId, 0)
	headers := make(map[trace.FileId]*accum)

	g := graph.New()

	var res Result

	for _, u := range bt.Units {
		for _, inc := range u.Includes {
			h := inc.Header

			a, ok := headers[h]
			if !ok {
				a = &accum{including: make(map[trace.FileId]struct{})}
				headers[h] = a
				headerOrder = append(headerOrder, h)
			}

			a.parseTime += inc.ParseTime
			a.count++

			if inc.Depth > a.maxDepth {
				a.maxDepth = inc.Depth
			}

			if _, seen := a.including[u.SourceFile]; !seen {
				a.including[u.SourceFile] = struct{}{}
				a.order = append(a.order, u.SourceFile)
			}

			res.TotalIncludes++
			res.TotalIncludeTime += inc.ParseTime

			if inc.Depth > res.MaxIncludeDepth {
				res.MaxIncludeDepth = inc.Depth
			}

			g.AddEdge(string(u.SourceFile), string(h), graph.EdgeWeight{Time: inc.ParseTime, Count: 1})
		}
	}

	res.UniqueHeaders = len(headerOrder)

	results := make([]HeaderResult, 0, len(headerOrder))

	var maxRaw float64

	for _, h := range headerOrder {
		a := headers[h]
		raw := a.parseTime.Milliseconds() * math.Log(1+float64(len(a.including)))

		if raw > maxRaw {
			maxRaw = raw
		}

		results = append(results, HeaderResult{
			Header:         h,
			IncludingFiles: a.order,
			TotalParseTime: a.parseTime,
			InclusionCount: a.count,
			MaxDepth:       a.maxDepth,
			ImpactScore:    raw,
		})
	}

	if maxRaw > 0 {
		for i := range results {
			results[i].ImpactScore /= maxRaw
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].ImpactScore > results[j].ImpactScore
	})

	res.Headers = results
	res.Cycles = detectHeaderCycles(g)

	return res
}

func detectHeaderCycles(g *graph.Graph) []Cycle {
	report := g.DetectCycles(100)

	cycles := make([]Cycle, len(report.Cycles))
	for i, c := range report.Cycles {
		cycles[i] = Cycle{Nodes: c.Nodes, TotalTime: c.TotalTime}
	}

	return cycles
}
