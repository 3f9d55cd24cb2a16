// Package perf implements the performance analyser: it aggregates
// per-unit times into sequential/parallel/efficiency figures, computes
// percentiles, ranks files by compile time, and derives the build's
// critical path over a unit+header dependency graph.
package perf

import (
	"sort"

	"github.com/buildtrace/bha/pkg/bha/graph"
	"github.com/buildtrace/bha/pkg/bha/trace"
)

// FileResult is one unit's contribution to the ranked file list.
type FileResult struct {
	Memory        *trace.Memory
	File          trace.FileId
	Breakdown     map[string]trace.Duration
	CompileTime   trace.Duration
	FrontendTime  trace.Duration
	BackendTime   trace.Duration
	TimePercent   float64
	Rank          int
	IncludeCount  int
	TemplateCount int
}

// Percentiles holds the P50/P90/P99 of per-unit compile times.
type Percentiles struct {
	P50 trace.Duration
	P90 trace.Duration
	P99 trace.Duration
}

// Options configures the analyser; thresholds are policy, not law,
// and must be overridable by configuration.
type Options struct {
	MinDurationThreshold trace.Duration
	SlowestCap           int
}

// DefaultSlowestCap is the default bound on the displayed slowest-files list.
const DefaultSlowestCap = 20

// DefaultOptions returns the default performance-analysis policy.
func DefaultOptions() Options {
	return Options{MinDurationThreshold: 0, SlowestCap: DefaultSlowestCap}
}

// Result is the `performance` + `files` portion of AnalysisResult.
type Result struct {
	Files                  []FileResult
	SlowestFiles           []FileResult
	CriticalPath           []string
	TotalFiles             int
	SlowestFilesTotalCount int
	SequentialTime         trace.Duration
	ParallelTime           trace.Duration
	CriticalPathTime       trace.Duration
	ParallelismEfficiency  float64
	Percentiles            Percentiles
}

// Analyze fuses a normalised BuildTrace into a performance Result.
func Analyze(bt trace.BuildTrace, opts Options) Result {
	res := Result{TotalFiles: len(bt.Units), ParallelTime: bt.TotalTime}

	files := make([]FileResult, len(bt.Units))
	allTimes := make([]trace.Duration, len(bt.Units))

	var sequential trace.Duration

	for i, u := range bt.Units {
		files[i] = FileResult{
			File:          u.SourceFile,
			CompileTime:   u.Metrics.TotalTime,
			FrontendTime:  u.Metrics.FrontendTime,
			BackendTime:   u.Metrics.BackendTime,
			Breakdown:     u.Metrics.Breakdown,
			IncludeCount:  len(u.Includes),
			TemplateCount: len(u.Templates),
			Memory:        u.Memory,
		}
		allTimes[i] = u.Metrics.TotalTime
		sequential += u.Metrics.TotalTime
	}

	res.SequentialTime = sequential

	if res.ParallelTime > 0 {
		res.ParallelismEfficiency = float64(sequential) / float64(res.ParallelTime)
	} else {
		res.ParallelismEfficiency = 1.0
	}

	res.Percentiles = percentiles(allTimes)
	res.CriticalPath, res.CriticalPathTime = criticalPath(bt, files)

	// Stable sort descending by compile time: equal times keep their
	// original (insertion) order, but ranks remain dense and distinct.
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].CompileTime > files[j].CompileTime
	})

	for i := range files {
		files[i].Rank = i + 1
		files[i].TimePercent = trace.Percent(files[i].CompileTime, bt.TotalTime)
	}

	res.Files = files

	cap := opts.SlowestCap
	if cap <= 0 {
		cap = DefaultSlowestCap
	}

	for _, f := range files {
		if f.CompileTime > opts.MinDurationThreshold {
			res.SlowestFilesTotalCount++

			if len(res.SlowestFiles) < cap {
				res.SlowestFiles = append(res.SlowestFiles, f)
			}
		}
	}

	return res
}

// percentileIndex implements the floor((n-1)*p/100) nearest-rank rule.
func percentileIndex(n, p int) int {
	return (n - 1) * p / 100
}

func percentiles(sorted []trace.Duration) Percentiles {
	if len(sorted) == 0 {
		return Percentiles{}
	}

	values := make([]trace.Duration, len(sorted))
	copy(values, sorted)
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	n := len(values)

	return Percentiles{
		P50: values[percentileIndex(n, 50)],
		P90: values[percentileIndex(n, 90)],
		P99: values[percentileIndex(n, 99)],
	}
}

// criticalPath builds the combined unit+header dependency graph (each
// unit a node with its total_time, each include a node with its
// parse_time, edge header->unit modelling "header must be parsed
// before unit") and finds the longest time-weighted chain. On a cycle
// it falls back to a single-node path containing the slowest file.
func criticalPath(bt trace.BuildTrace, files []FileResult) ([]string, trace.Duration) {
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

	cp, err := g.FindCriticalPath()
	if err == nil {
		return cp.Nodes, cp.TotalTime
	}

	if len(files) == 0 {
		return nil, 0
	}

	slowest := files[0]
	for _, f := range files[1:] {
		if f.CompileTime > slowest.CompileTime {
			slowest = f
		}
	}

	return []string{string(slowest.File)}, slowest.CompileTime
}
