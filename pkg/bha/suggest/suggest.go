// Package suggest implements the suggestion engine: it consumes
// the dependency, template, and bottleneck results and emits ranked,
// actionable optimisation suggestions with estimated savings.
package suggest

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/buildtrace/bha/pkg/bha/bottleneck"
	"github.com/buildtrace/bha/pkg/bha/depgraph"
	"github.com/buildtrace/bha/pkg/bha/perf"
	"github.com/buildtrace/bha/pkg/bha/templates"
	"github.com/buildtrace/bha/pkg/bha/trace"
)

// Type tags a suggestion's kind.
type Type string

const (
	TypePCH               Type = "PCH"
	TypeForwardDecl       Type = "ForwardDecl"
	TypeUnityBuild        Type = "UnityBuild"
	TypeTemplateReduction Type = "TemplateReduction"
	TypeIncludeRemoval    Type = "IncludeRemoval"
	TypeHeaderSplit       Type = "HeaderSplit"
)

// Priority ranks urgency; values are ordered Critical > High > Medium > Low.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

func priorityRank(p Priority) int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

// Action is the intended edit action on a target file.
type Action string

const (
	ActionEdit   Action = "Edit"
	ActionCreate Action = "Create"
	ActionRemove Action = "Remove"
	ActionSplit  Action = "Split"
)

// TargetFile identifies where a suggestion applies.
type TargetFile struct {
	File      trace.FileId
	LineStart int
	LineEnd   int
	Action    Action
}

// Suggestion is one actionable recommendation.
type Suggestion struct {
	Type                    Type
	Priority                Priority
	Confidence              float64
	EstimatedSavings        trace.Duration
	EstimatedSavingsPercent float64
	Title                   string
	Description             string
	Rationale               string
	TargetFile              TargetFile
	ImplementationSteps     []string
	Caveats                 []string
	BeforeCode              string
	AfterCode               string
	Verification            string
	Unsafe                  bool
}

// Options configures the rule thresholds; these are policy, not law
// and must be overridable by configuration.
type Options struct {
	MinConfidence             float64
	IncludeUnsafe             bool
	MaxSuggestions            int
	PCHInclusionCountMin      int
	PCHParseTimeMin           trace.Duration
	TemplateTimePercentMin    float64
	SmallFileThreshold        trace.Duration
	SmallFileGroupMinCount    int
}

// DefaultOptions returns the default suggestion policy.
func DefaultOptions() Options {
	return Options{
		MinConfidence:          0,
		IncludeUnsafe:          true,
		MaxSuggestions:         50,
		PCHInclusionCountMin:   5,
		PCHParseTimeMin:        200 * 1_000_000,
		TemplateTimePercentMin: 10.0,
		SmallFileThreshold:     50 * 1_000_000,
		SmallFileGroupMinCount: 5,
	}
}

// Generate consumes the performance, dependency, template, and
// bottleneck results and produces a ranked,
// filtered, capped suggestion list.
func Generate(bt trace.BuildTrace, perfResult perf.Result, depResult depgraph.Result, tplResult templates.Result, bnResult bottleneck.Result, opts Options) []Suggestion {
	var out []Suggestion

	out = append(out, pchCandidates(depResult, opts)...)
	out = append(out, headerSplitCandidates(depResult)...)
	out = append(out, templateReductionCandidates(tplResult, opts)...)
	out = append(out, criticalPathCandidates(perfResult, bnResult)...)
	out = append(out, unityBuildCandidates(bt, opts)...)

	filtered := make([]Suggestion, 0, len(out))

	for _, s := range out {
		if s.Confidence < opts.MinConfidence {
			continue
		}

		if s.Unsafe && !opts.IncludeUnsafe {
			continue
		}

		filtered = append(filtered, s)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		pi, pj := priorityRank(filtered[i].Priority), priorityRank(filtered[j].Priority)
		if pi != pj {
			return pi < pj
		}

		return filtered[i].EstimatedSavings > filtered[j].EstimatedSavings
	})

	max := opts.MaxSuggestions
	if max > 0 && len(filtered) > max {
		filtered = filtered[:max]
	}

	return filtered
}

func pchCandidates(dep depgraph.Result, opts Options) []Suggestion {
	var out []Suggestion

	for _, h := range dep.Headers {
		if h.InclusionCount < opts.PCHInclusionCountMin || h.TotalParseTime < opts.PCHParseTimeMin {
			continue
		}

		savings := h.TotalParseTime * trace.Duration(h.InclusionCount-1) / trace.Duration(h.InclusionCount)

		out = append(out, Suggestion{
			Type:                    TypePCH,
			Priority:                PriorityHigh,
			Confidence:              0.8,
			EstimatedSavings:        savings,
			EstimatedSavingsPercent: trace.Percent(savings, h.TotalParseTime),
			Title:                   fmt.Sprintf("Precompile %s", h.Header),
			Description:             fmt.Sprintf("%s is parsed %d times across the build, costing %.1fms each time on average.", h.Header, h.InclusionCount, h.TotalParseTime.Milliseconds()/float64(h.InclusionCount)),
			Rationale:               "repeated parsing of a stable header is amortised once by a precompiled header",
			TargetFile:              TargetFile{File: h.Header, Action: ActionEdit},
			ImplementationSteps:     []string{"add the header to the precompiled header unit", "rebuild the PCH", "include it first in dependent translation units"},
			Caveats:                 []string{"the PCH must be rebuilt whenever the header changes"},
			Verification:            "re-run the build and compare total_parse_time for this header",
			Unsafe:                  false,
		})
	}

	return out
}

func headerSplitCandidates(dep depgraph.Result) []Suggestion {
	var out []Suggestion

	for _, c := range dep.Cycles {
		if len(c.Nodes) == 0 {
			continue
		}

		victim := trace.FileId(c.Nodes[0])

		out = append(out, Suggestion{
			Type:                TypeHeaderSplit,
			Priority:            PriorityHigh,
			Confidence:          0.7,
			EstimatedSavings:    c.TotalTime,
			Title:               fmt.Sprintf("Break the include cycle through %s", victim),
			Description:         fmt.Sprintf("headers %v form an inclusion cycle", c.Nodes),
			Rationale:           "cyclic header inclusion forces redundant reparsing and fragile ordering",
			TargetFile:          TargetFile{File: victim, Action: ActionSplit},
			ImplementationSteps: []string{"identify the shared declarations causing the cycle", "extract them into a new header with no upward dependency", "update includes on both sides of the cycle"},
			Caveats:             []string{"splitting a header can require touching every translation unit that includes it"},
			Verification:        "re-run cycle detection and confirm the cycle is gone",
			Unsafe:              true,
		})
	}

	return out
}

func templateReductionCandidates(tpl templates.Result, opts Options) []Suggestion {
	var out []Suggestion

	for _, sig := range tpl.Signatures {
		if tpl.TotalTemplateTime <= 0 {
			continue
		}

		pctOfTemplateTime := trace.Percent(sig.TotalTime, tpl.TotalTemplateTime)
		if pctOfTemplateTime < opts.TemplateTimePercentMin {
			continue
		}

		savings := sig.TotalTime / 2

		out = append(out, Suggestion{
			Type:                    TypeTemplateReduction,
			Priority:                PriorityMedium,
			Confidence:              0.6,
			EstimatedSavings:        savings,
			EstimatedSavingsPercent: trace.Percent(savings, sig.TotalTime),
			Title:                   fmt.Sprintf("Reduce instantiations of %s", trace.SignatureBase(sig.Signature)),
			Description:             fmt.Sprintf("%s accounts for %.1f%% of all template instantiation time (%d instantiations)", sig.Signature, pctOfTemplateTime, sig.InstantiationCount),
			Rationale:               "a single heavily-instantiated template dominating compile time is a candidate for explicit instantiation or extern template",
			TargetFile:              TargetFile{Action: ActionEdit},
			ImplementationSteps:     []string{"add an explicit instantiation definition in one translation unit", "declare extern template in headers that use it"},
			Caveats:                 []string{"explicit instantiation fixes the template's type arguments; new instantiations elsewhere still cost full time"},
			Verification:            "re-run analysis and confirm instantiation_count for this signature drops",
			Unsafe:                  true,
		})
	}

	return out
}

func criticalPathCandidates(p perf.Result, bn bottleneck.Result) []Suggestion {
	p90 := p.Percentiles.P90

	var out []Suggestion

	onCP := make(map[string]struct{}, len(bn.CriticalPath))
	for _, n := range bn.CriticalPath {
		onCP[n] = struct{}{}
	}

	for _, f := range p.Files {
		if _, ok := onCP[string(f.File)]; !ok {
			continue
		}

		if f.CompileTime <= p90 {
			continue
		}

		out = append(out,
			Suggestion{
				Type:             TypeForwardDecl,
				Priority:         PriorityHigh,
				Confidence:       0.5,
				EstimatedSavings: f.CompileTime / 5,
				Title:            fmt.Sprintf("Forward-declare dependencies of %s", f.File),
				Description:      fmt.Sprintf("%s sits on the critical path and compiles slower than 90%% of the build (%.1fms)", f.File, f.CompileTime.Milliseconds()),
				Rationale:        "critical-path files above P90 compile time gate the whole build",
				TargetFile:       TargetFile{File: f.File, Action: ActionEdit},
				ImplementationSteps: []string{
					"replace full includes with forward declarations where only pointer/reference types are used",
					"move the full include into the translation unit that needs the complete type",
				},
				Verification: "re-run analysis and confirm this file leaves the critical path or its compile_time drops",
				Unsafe:       true,
			},
			Suggestion{
				Type:             TypeIncludeRemoval,
				Priority:         PriorityHigh,
				Confidence:       0.5,
				EstimatedSavings: f.CompileTime / 10,
				Title:            fmt.Sprintf("Audit includes in %s", f.File),
				Description:      fmt.Sprintf("%s sits on the critical path with %d includes", f.File, f.IncludeCount),
				Rationale:        "unused or redundant includes inflate parse time on a file that gates the build",
				TargetFile:       TargetFile{File: f.File, Action: ActionEdit},
				ImplementationSteps: []string{
					"run an include-what-you-use pass over this file",
					"remove includes not required by any symbol actually used",
				},
				Verification: "re-run analysis and confirm parse-time contribution drops",
				Unsafe:       true,
			},
		)
	}

	return out
}

func unityBuildCandidates(bt trace.BuildTrace, opts Options) []Suggestion {
	byDir := make(map[string][]trace.FileId)
	dirTime := make(map[string]trace.Duration)
	order := make([]string, 0)

	for _, u := range bt.Units {
		if u.Metrics.TotalTime >= opts.SmallFileThreshold {
			continue
		}

		dir := filepath.Dir(string(u.SourceFile))
		if _, ok := byDir[dir]; !ok {
			order = append(order, dir)
		}

		byDir[dir] = append(byDir[dir], u.SourceFile)
		dirTime[dir] += u.Metrics.TotalTime
	}

	var out []Suggestion

	for _, dir := range order {
		files := byDir[dir]
		if len(files) < opts.SmallFileGroupMinCount {
			continue
		}

		total := dirTime[dir]

		out = append(out, Suggestion{
			Type:                    TypeUnityBuild,
			Priority:                PriorityMedium,
			Confidence:              0.5,
			EstimatedSavings:        total * 3 / 10,
			EstimatedSavingsPercent: 30.0,
			Title:                   fmt.Sprintf("Unity-build the %d small files in %s", len(files), dir),
			Description:             fmt.Sprintf("%s contains %d translation units each under the small-file threshold", dir, len(files)),
			Rationale:               "many small translation units pay redundant header-parsing overhead; combining them amortises it",
			TargetFile:              TargetFile{File: trace.FileId(dir), Action: ActionCreate},
			ImplementationSteps:     []string{"create a unity source file that #includes the small files", "remove the small files from the build's individual compile list", "add the unity file instead"},
			Caveats:                 []string{"unity builds can surface ODR violations and break incremental rebuilds of a single file"},
			Verification:            "re-run analysis and confirm sequential_time drops for this directory's files",
			Unsafe:                  false,
		})
	}

	return out
}
