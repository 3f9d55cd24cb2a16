// Package render formats analysis results for terminal and file output:
// ranked tables via go-pretty, priority/regression colouring via
// fatih/color, and byte formatting via go-humanize. Durations are
// printed as plain milliseconds.
package render

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/buildtrace/bha/pkg/bha/bottleneck"
	"github.com/buildtrace/bha/pkg/bha/depgraph"
	"github.com/buildtrace/bha/pkg/bha/perf"
	"github.com/buildtrace/bha/pkg/bha/snapshot"
	"github.com/buildtrace/bha/pkg/bha/suggest"
	"github.com/buildtrace/bha/pkg/bha/templates"
	"github.com/buildtrace/bha/pkg/bha/trace"
)

// Files renders the ranked slowest-files table.
func Files(files []perf.FileResult) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Rank", "File", "Compile Time", "Time %", "Includes", "Templates", "Peak Mem"})

	for _, f := range files {
		t.AppendRow(table.Row{
			f.Rank,
			f.File.String(),
			msString(f.CompileTime.Milliseconds()),
			fmt.Sprintf("%.1f%%", f.TimePercent),
			f.IncludeCount,
			f.TemplateCount,
			peakMemory(f.Memory),
		})
	}

	return t.Render()
}

func peakMemory(m *trace.Memory) string {
	if m == nil || m.PeakMemoryBytes <= 0 {
		return "-"
	}

	return humanize.Bytes(uint64(m.PeakMemoryBytes))
}

// Headers renders the ranked header-impact table.
func Headers(headers []depgraph.HeaderResult) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Header", "Parse Time", "Inclusions", "Impact"})

	for _, h := range headers {
		t.AppendRow(table.Row{
			h.Header.String(),
			msString(h.TotalParseTime.Milliseconds()),
			h.InclusionCount,
			fmt.Sprintf("%.3f", h.ImpactScore),
		})
	}

	return t.Render()
}

// Templates renders the ranked template-instantiation table.
func Templates(sigs []templates.SignatureResult) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Rank", "Signature", "Total Time", "Instantiations", "Time %"})

	for _, s := range sigs {
		t.AppendRow(table.Row{
			s.Rank,
			s.Signature,
			msString(s.TotalTime.Milliseconds()),
			s.InstantiationCount,
			fmt.Sprintf("%.1f%%", s.TimePercent),
		})
	}

	return t.Render()
}

// Bottlenecks renders the scored bottleneck table, marking nodes on
// the critical path in red.
func Bottlenecks(entries []bottleneck.Entry, noColor bool) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"File", "Compile Time", "Dependents", "Score", "Critical Path"})

	for _, e := range entries {
		file := e.File
		if e.OnCriticalPath {
			file = colorize(file, color.FgRed, noColor)
		}

		t.AppendRow(table.Row{
			file,
			msString(e.CompileTime.Milliseconds()),
			e.DependentCount,
			fmt.Sprintf("%.1f", e.BottleneckScore),
			e.OnCriticalPath,
		})
	}

	return t.Render()
}

// Suggestions renders the ranked suggestion table, colouring priority.
func Suggestions(suggestions []suggest.Suggestion, noColor bool) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Priority", "Type", "Title", "Confidence", "Est. Savings"})

	for _, s := range suggestions {
		priority := priorityColor(string(s.Priority), s.Priority, noColor)

		t.AppendRow(table.Row{
			priority,
			string(s.Type),
			s.Title,
			fmt.Sprintf("%.2f", s.Confidence),
			msString(s.EstimatedSavings.Milliseconds()),
		})
	}

	return t.Render()
}

// Comparison renders a ComparisonResult's regressions and improvements.
func Comparison(cmp snapshot.ComparisonResult, noColor bool) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"File", "Old (ms)", "New (ms)", "Delta (ms)", "Change %"})

	for _, r := range cmp.Regressions {
		path := colorize(r.Path, color.FgRed, noColor)
		t.AppendRow(table.Row{path, fmt.Sprintf("%.1f", r.OldTimeMs), fmt.Sprintf("%.1f", r.NewTimeMs), fmt.Sprintf("%.1f", r.DeltaMs), fmt.Sprintf("%.1f%%", r.PercentChange)})
	}

	for _, imp := range cmp.Improvements {
		path := colorize(imp.Path, color.FgGreen, noColor)
		t.AppendRow(table.Row{path, fmt.Sprintf("%.1f", imp.OldTimeMs), fmt.Sprintf("%.1f", imp.NewTimeMs), fmt.Sprintf("%.1f", imp.DeltaMs), fmt.Sprintf("%.1f%%", imp.PercentChange)})
	}

	return t.Render()
}

func priorityColor(text string, p suggest.Priority, noColor bool) string {
	switch p {
	case suggest.PriorityCritical:
		return colorize(text, color.FgHiRed, noColor)
	case suggest.PriorityHigh:
		return colorize(text, color.FgRed, noColor)
	case suggest.PriorityMedium:
		return colorize(text, color.FgYellow, noColor)
	default:
		return colorize(text, color.FgGreen, noColor)
	}
}

func colorize(text string, attr color.Attribute, noColor bool) string {
	if noColor {
		return text
	}

	return color.New(attr).Sprint(text)
}

func msString(ms float64) string {
	return fmt.Sprintf("%.1fms", ms)
}
