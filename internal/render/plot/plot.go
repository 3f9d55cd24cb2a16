// Package plot renders an analysis result as a self-contained HTML
// page: a P50/P90/P99 bar chart and a per-file bar chart, via
// go-echarts. This backs the optional `bha render` command.
package plot

import (
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/buildtrace/bha/pkg/bha/perf"
)

const topFilesLimit = 20

// Render writes an HTML page combining a percentile bar chart and a
// top-files bar chart for result to w.
func Render(result perf.Result, w io.Writer) error {
	page := components.NewPage()
	page.PageTitle = "Build Hotspot Analysis"

	page.AddCharts(
		percentileBar(result.Percentiles),
		topFilesBar(result.Files),
	)

	return page.Render(w)
}

func percentileBar(p perf.Percentiles) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Compile Time Percentiles", Subtitle: "P50 / P90 / P99, milliseconds"}),
	)

	bar.SetXAxis([]string{"P50", "P90", "P99"}).
		AddSeries("percentile_ms", []opts.BarData{
			{Value: p.P50.Milliseconds()},
			{Value: p.P90.Milliseconds()},
			{Value: p.P99.Milliseconds()},
		})

	return bar
}

func topFilesBar(files []perf.FileResult) *charts.Bar {
	sorted := make([]perf.FileResult, len(files))
	copy(sorted, files)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CompileTime > sorted[j].CompileTime
	})

	if len(sorted) > topFilesLimit {
		sorted = sorted[:topFilesLimit]
	}

	names := make([]string, len(sorted))
	values := make([]opts.BarData, len(sorted))

	for i, f := range sorted {
		names[i] = f.File.String()
		values[i] = opts.BarData{Value: f.CompileTime.Milliseconds()}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Slowest Files", Subtitle: "Compile time, milliseconds"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: 45}}),
	)

	bar.SetXAxis(names).AddSeries("compile_time_ms", values)

	return bar
}
