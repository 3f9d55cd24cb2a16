package render_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/buildtrace/bha/internal/render"
	"github.com/buildtrace/bha/pkg/bha/perf"
	"github.com/buildtrace/bha/pkg/bha/suggest"
	"github.com/buildtrace/bha/pkg/bha/trace"
)

func TestFilesRendersRankAndPath(t *testing.T) {
	files := []perf.FileResult{
		{Rank: 1, File: "a.cc", CompileTime: 500 * 1_000_000, TimePercent: 50},
	}

	out := render.Files(files)
	assert.Contains(t, out, "a.cc")
	assert.Contains(t, out, "500.0ms")
}

func TestFilesShowsDashWithoutMemory(t *testing.T) {
	files := []perf.FileResult{{Rank: 1, File: "a.cc"}}

	out := render.Files(files)
	assert.Contains(t, out, "-")
}

func TestFilesShowsHumanizedMemory(t *testing.T) {
	files := []perf.FileResult{
		{Rank: 1, File: "a.cc", Memory: &trace.Memory{PeakMemoryBytes: 2 * 1024 * 1024}},
	}

	out := render.Files(files)
	assert.True(t, strings.Contains(out, "MB") || strings.Contains(out, "M"))
}

func TestSuggestionsColorDisabledIsPlainText(t *testing.T) {
	suggestions := []suggest.Suggestion{
		{Priority: suggest.PriorityHigh, Type: suggest.TypePCH, Title: "precompile x.h", Confidence: 0.8},
	}

	out := render.Suggestions(suggestions, true)
	assert.Contains(t, out, "precompile x.h")
	assert.NotContains(t, out, "\033[")
}
