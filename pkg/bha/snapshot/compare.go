package snapshot

import "sort"

// SignificanceThreshold is the default per-file delta threshold (10%)
// used when no caller-configured value is available, e.g. in tests that
// call Compare directly. Production callers pass
// internal/config's suggest.significance_threshold instead.
const SignificanceThreshold = 0.10

// SignificantChangePercent is the default 5% threshold for is_significant.
const SignificantChangePercent = 5.0

// FileDelta describes one file's change between two snapshots.
type FileDelta struct {
	Path           string
	OldTimeMs      float64
	NewTimeMs      float64
	DeltaMs        float64
	PercentChange  float64
	IsRegression   bool
	IsImprovement  bool
	IsSignificant  bool
}

// HeaderDelta describes one header's change between two snapshots.
type HeaderDelta struct {
	Path          string
	OldTimeMs     float64
	NewTimeMs     float64
	DeltaMs       float64
	PercentChange float64
}

// TemplateDelta describes one template signature's change between two snapshots.
type TemplateDelta struct {
	Signature     string
	OldTimeMs     float64
	NewTimeMs     float64
	DeltaMs       float64
	PercentChange float64
}

// ComparisonResult is the full deterministic diff between two snapshots.
type ComparisonResult struct {
	BuildTimeDeltaMs      float64
	BuildTimePercentChange float64
	FileCountDelta        int
	Regressions           []FileDelta
	Improvements          []FileDelta
	NewFiles              []string
	RemovedFiles          []string
	HeaderDeltas          []HeaderDelta
	TemplateDeltas        []TemplateDelta
	IsRegression          bool
	IsImprovement         bool
	IsSignificant         bool
}

// Compare produces a deterministic ComparisonResult for old -> new.
// significanceThreshold is the fractional per-file delta (e.g. 0.10 for
// 10%) above which a file's change is flagged as a regression or
// improvement; callers load it from their own configuration rather than
// relying on a fixed policy. Sorting is stable; map enumeration follows
// each snapshot's own file/header/template insertion order.
func Compare(old, newSnap Snapshot, significanceThreshold float64) ComparisonResult {
	result := ComparisonResult{
		FileCountDelta: len(newSnap.Files) - len(old.Files),
	}

	result.BuildTimeDeltaMs = newSnap.TotalBuildTimeMs - old.TotalBuildTimeMs
	if old.TotalBuildTimeMs != 0 {
		result.BuildTimePercentChange = 100 * result.BuildTimeDeltaMs / old.TotalBuildTimeMs
	}

	result.IsRegression = result.BuildTimeDeltaMs > 0
	result.IsImprovement = result.BuildTimeDeltaMs < 0
	result.IsSignificant = absf(result.BuildTimePercentChange) > SignificantChangePercent

	oldFiles := make(map[string]FileDoc, len(old.Files))
	for _, f := range old.Files {
		oldFiles[f.Path] = f
	}

	newFiles := make(map[string]FileDoc, len(newSnap.Files))
	for _, f := range newSnap.Files {
		newFiles[f.Path] = f
	}

	for _, nf := range newSnap.Files {
		of, ok := oldFiles[nf.Path]
		if !ok {
			result.NewFiles = append(result.NewFiles, nf.Path)
			continue
		}

		delta := nf.CompileTimeMs - of.CompileTimeMs

		var percent float64
		if of.CompileTimeMs != 0 {
			percent = 100 * delta / of.CompileTimeMs
		}

		fd := FileDelta{
			Path:          nf.Path,
			OldTimeMs:     of.CompileTimeMs,
			NewTimeMs:     nf.CompileTimeMs,
			DeltaMs:       delta,
			PercentChange: percent,
		}

		if absf(percent) > significanceThreshold*100 {
			fd.IsRegression = delta > 0
			fd.IsImprovement = delta < 0
			fd.IsSignificant = true

			if fd.IsRegression {
				result.Regressions = append(result.Regressions, fd)
			} else if fd.IsImprovement {
				result.Improvements = append(result.Improvements, fd)
			}
		}
	}

	for _, of := range old.Files {
		if _, ok := newFiles[of.Path]; !ok {
			result.RemovedFiles = append(result.RemovedFiles, of.Path)
		}
	}

	sort.SliceStable(result.Regressions, func(i, j int) bool {
		return absf(result.Regressions[i].DeltaMs) > absf(result.Regressions[j].DeltaMs)
	})

	sort.SliceStable(result.Improvements, func(i, j int) bool {
		return absf(result.Improvements[i].DeltaMs) > absf(result.Improvements[j].DeltaMs)
	})

	result.HeaderDeltas = compareHeaders(old.Dependencies.Headers, newSnap.Dependencies.Headers)
	result.TemplateDeltas = compareTemplates(old.Templates.Templates, newSnap.Templates.Templates)

	return result
}

func compareHeaders(old, newHeaders []HeaderDoc) []HeaderDelta {
	oldByPath := make(map[string]HeaderDoc, len(old))
	for _, h := range old {
		oldByPath[h.Path] = h
	}

	var deltas []HeaderDelta

	for _, nh := range newHeaders {
		oh, ok := oldByPath[nh.Path]
		if !ok {
			continue
		}

		delta := nh.TotalParseTimeMs - oh.TotalParseTimeMs

		var percent float64
		if oh.TotalParseTimeMs != 0 {
			percent = 100 * delta / oh.TotalParseTimeMs
		}

		deltas = append(deltas, HeaderDelta{
			Path:          nh.Path,
			OldTimeMs:     oh.TotalParseTimeMs,
			NewTimeMs:     nh.TotalParseTimeMs,
			DeltaMs:       delta,
			PercentChange: percent,
		})
	}

	sort.SliceStable(deltas, func(i, j int) bool {
		return absf(deltas[i].DeltaMs) > absf(deltas[j].DeltaMs)
	})

	return deltas
}

func compareTemplates(old, newTemplates []TemplateDoc) []TemplateDelta {
	oldBySig := make(map[string]TemplateDoc, len(old))
	for _, t := range old {
		oldBySig[t.FullSignature] = t
	}

	var deltas []TemplateDelta

	for _, nt := range newTemplates {
		ot, ok := oldBySig[nt.FullSignature]
		if !ok {
			continue
		}

		delta := nt.TotalTimeMs - ot.TotalTimeMs

		var percent float64
		if ot.TotalTimeMs != 0 {
			percent = 100 * delta / ot.TotalTimeMs
		}

		deltas = append(deltas, TemplateDelta{
			Signature:     nt.FullSignature,
			OldTimeMs:     ot.TotalTimeMs,
			NewTimeMs:     nt.TotalTimeMs,
			DeltaMs:       delta,
			PercentChange: percent,
		})
	}

	sort.SliceStable(deltas, func(i, j int) bool {
		return absf(deltas[i].DeltaMs) > absf(deltas[j].DeltaMs)
	})

	return deltas
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}

	return v
}
