// Package templates implements the template analyser: per-
// signature aggregation of instantiation counts and total time, ranked
// descending with percentage attribution.
package templates

import (
	"sort"

	"github.com/buildtrace/bha/pkg/bha/trace"
)

// SignatureResult is one template signature's aggregated statistics.
type SignatureResult struct {
	Signature          string
	TotalTime          trace.Duration
	InstantiationCount int
	TimePercent        float64
	Rank               int
}

// Result is the `templates` portion of AnalysisResult.
type Result struct {
	Signatures           []SignatureResult
	TotalTemplateTime    trace.Duration
	TotalInstantiations  int
	TemplateTimePercent  float64
}

// Analyze aggregates every unit's template records by signature, ranks
// them descending by total_time, and attributes percentages against
// the build's total time.
func Analyze(bt trace.BuildTrace) Result {
	order := make([]string, 0)

	type accum struct {
		totalTime trace.Duration
		count     int
	}

	bySig := make(map[string]*accum)

	for _, u := range bt.Units {
		for _, tpl := range u.Templates {
			a, ok := bySig[tpl.Signature]
			if !ok {
				a = &accum{}
				bySig[tpl.Signature] = a
				order = append(order, tpl.Signature)
			}

			a.totalTime += tpl.TotalTime
			a.count += tpl.InstantiationCount
		}
	}

	sigs := make([]SignatureResult, 0, len(order))

	var res Result

	for _, sig := range order {
		a := bySig[sig]
		res.TotalTemplateTime += a.totalTime
		res.TotalInstantiations += a.count

		sigs = append(sigs, SignatureResult{
			Signature:          sig,
			TotalTime:          a.totalTime,
			InstantiationCount: a.count,
		})
	}

	sort.SliceStable(sigs, func(i, j int) bool {
		return sigs[i].TotalTime > sigs[j].TotalTime
	})

	for i := range sigs {
		sigs[i].Rank = i + 1
		sigs[i].TimePercent = trace.Percent(sigs[i].TotalTime, bt.TotalTime)
	}

	res.Signatures = sigs
	res.TemplateTimePercent = trace.Percent(res.TotalTemplateTime, bt.TotalTime)

	return res
}
