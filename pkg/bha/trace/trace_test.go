package trace_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildtrace/bha/pkg/bha/trace"
)

func TestDurationClamp(t *testing.T) {
	assert.Equal(t, trace.Duration(0), trace.Duration(-5).Clamp())
	assert.Equal(t, trace.Duration(5), trace.Duration(5).Clamp())
}

func TestPercentZeroBase(t *testing.T) {
	assert.InDelta(t, 0.0, trace.Percent(10, 0), 0)
	assert.InDelta(t, 0.0, trace.Percent(10, -1), 0)
	assert.InDelta(t, 50.0, trace.Percent(5, 10), 0.0001)
}

func TestNormalizeFileIdEmptyPreserved(t *testing.T) {
	assert.Equal(t, trace.FileId(""), trace.NormalizeFileId(""))
}

func TestNormalizeFileIdCleansPath(t *testing.T) {
	assert.Equal(t, trace.FileId("a/b/c.h"), trace.NormalizeFileId(`a/b/../b/c.h`))
}

func TestCompilationUnitNormalizeClampsNegatives(t *testing.T) {
	u := trace.CompilationUnit{
		SourceFile: "foo.cc",
		Metrics:    trace.Metrics{TotalTime: -100, FrontendTime: -1, BackendTime: 5},
		Includes: []trace.Include{
			{Header: "bar.h", ParseTime: -1, Depth: -1},
		},
		Templates: []trace.Template{
			{Signature: "Foo<T>", InstantiationCount: 0, TotalTime: -1},
		},
	}

	got := u.Normalize()

	require.Len(t, got.Includes, 1)
	assert.Equal(t, trace.Duration(0), got.Metrics.TotalTime)
	assert.Equal(t, trace.Duration(5), got.Metrics.BackendTime)
	assert.Equal(t, trace.Duration(0), got.Includes[0].ParseTime)
	assert.Equal(t, 0, got.Includes[0].Depth)
	assert.Equal(t, 1, got.Templates[0].InstantiationCount)
}

func TestBuildTraceNormalize(t *testing.T) {
	bt := trace.BuildTrace{
		TotalTime: -1,
		Timestamp: time.Now(),
		Units: []trace.CompilationUnit{
			{SourceFile: "a.cc", Metrics: trace.Metrics{TotalTime: -1}},
		},
	}

	got := bt.Normalize()
	assert.Equal(t, trace.Duration(0), got.TotalTime)
	require.Len(t, got.Units, 1)
	assert.Equal(t, trace.Duration(0), got.Units[0].Metrics.TotalTime)
}

func TestSignatureBase(t *testing.T) {
	assert.Equal(t, "std::vector", trace.SignatureBase("std::vector<int>"))
	assert.Equal(t, "foo", trace.SignatureBase("foo"))
}
