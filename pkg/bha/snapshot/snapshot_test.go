package snapshot_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildtrace/bha/pkg/bha/pipeline"
	"github.com/buildtrace/bha/pkg/bha/snapshot"
	"github.com/buildtrace/bha/pkg/bha/trace"
)

func analyze(t *testing.T, totalTime trace.Duration) pipeline.AnalysisResult {
	t.Helper()

	bt := trace.BuildTrace{
		TotalTime: totalTime,
		Units: []trace.CompilationUnit{
			{SourceFile: "a.cc", Metrics: trace.Metrics{TotalTime: totalTime}},
		},
	}

	res, err := pipeline.Run(context.Background(), bt, pipeline.DefaultOptions())
	require.NoError(t, err)

	return res
}

func TestSaveLoadRoundTripModuloCreatedAt(t *testing.T) {
	dir := t.TempDir()
	store := snapshot.NewStore(dir)

	result := analyze(t, 1000)
	snap := snapshot.FromAnalysisResult(result, snapshot.Meta{Name: "run1"}, time.Unix(0, 0))

	require.NoError(t, store.Save(snap))

	loaded, err := store.Load("run1")
	require.NoError(t, err)

	snap.CreatedAt = loaded.CreatedAt
	assert.Equal(t, snap, loaded)
}

func TestSaveRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	store := snapshot.NewStore(dir)

	result := analyze(t, 1000)
	snap := snapshot.FromAnalysisResult(result, snapshot.Meta{Name: "dup"}, time.Unix(0, 0))

	require.NoError(t, store.Save(snap))
	require.Error(t, store.Save(snap))
}

func TestBaselinePointerClearedOnDelete(t *testing.T) {
	dir := t.TempDir()
	store := snapshot.NewStore(dir)

	result := analyze(t, 1000)
	snap := snapshot.FromAnalysisResult(result, snapshot.Meta{Name: "base"}, time.Unix(0, 0))

	require.NoError(t, store.Save(snap))
	require.NoError(t, store.SetBaseline("base"))

	name, err := store.Baseline()
	require.NoError(t, err)
	assert.Equal(t, "base", name)

	require.NoError(t, store.Delete("base"))

	_, err = store.Baseline()
	assert.Error(t, err)
}

func TestListSortedByCreatedAtDescending(t *testing.T) {
	dir := t.TempDir()
	store := snapshot.NewStore(dir)

	result := analyze(t, 1000)

	older := snapshot.FromAnalysisResult(result, snapshot.Meta{Name: "older"}, time.Unix(100, 0))
	newer := snapshot.FromAnalysisResult(result, snapshot.Meta{Name: "newer"}, time.Unix(200, 0))

	require.NoError(t, store.Save(older))
	require.NoError(t, store.Save(newer))

	infos, err := store.List()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "newer", infos[0].Name)
	assert.Equal(t, "older", infos[1].Name)
}

// Comparing two builds: X total=10s, Y total=12s.
func TestScenarioFComparisonRegression(t *testing.T) {
	x := analyze(t, 10*1_000_000_000)
	y := analyze(t, 12*1_000_000_000)

	snapX := snapshot.FromAnalysisResult(x, snapshot.Meta{Name: "x"}, time.Unix(0, 0))
	snapY := snapshot.FromAnalysisResult(y, snapshot.Meta{Name: "y"}, time.Unix(0, 0))

	cmp := snapshot.Compare(snapX, snapY, snapshot.SignificanceThreshold)
	assert.InDelta(t, 2000.0, cmp.BuildTimeDeltaMs, 0.001)
	assert.InDelta(t, 20.0, cmp.BuildTimePercentChange, 0.001)
	assert.True(t, cmp.IsRegression)
	assert.True(t, cmp.IsSignificant)

	mirrored := snapshot.Compare(snapY, snapX, snapshot.SignificanceThreshold)
	assert.True(t, mirrored.IsImprovement)
	assert.InDelta(t, -cmp.BuildTimeDeltaMs, mirrored.BuildTimeDeltaMs, 0.001)
}

// Property 9: compare(A,B).delta == -compare(B,A).delta
func TestCompareIsAntisymmetric(t *testing.T) {
	a := analyze(t, 5000)
	b := analyze(t, 9000)

	snapA := snapshot.FromAnalysisResult(a, snapshot.Meta{Name: "a"}, time.Unix(0, 0))
	snapB := snapshot.FromAnalysisResult(b, snapshot.Meta{Name: "b"}, time.Unix(0, 0))

	ab := snapshot.Compare(snapA, snapB, snapshot.SignificanceThreshold)
	ba := snapshot.Compare(snapB, snapA, snapshot.SignificanceThreshold)

	assert.InDelta(t, -ab.BuildTimeDeltaMs, ba.BuildTimeDeltaMs, 0.0001)
}

// Property 10: compare(A,A) is empty/non-significant/zero-delta.
func TestCompareSelfIsEmpty(t *testing.T) {
	a := analyze(t, 7000)
	snapA := snapshot.FromAnalysisResult(a, snapshot.Meta{Name: "a"}, time.Unix(0, 0))

	cmp := snapshot.Compare(snapA, snapA, snapshot.SignificanceThreshold)
	assert.Empty(t, cmp.Regressions)
	assert.Empty(t, cmp.Improvements)
	assert.Equal(t, 0.0, cmp.BuildTimeDeltaMs)
	assert.False(t, cmp.IsSignificant)
}

// A caller-supplied threshold changes which per-file deltas are flagged,
// confirming Compare no longer hardcodes the 10% default internally.
func TestCompareSignificanceThresholdIsConfigurable(t *testing.T) {
	x := analyze(t, 10*1_000_000_000)
	y := analyze(t, 10*1_000_000_000)

	snapX := snapshot.FromAnalysisResult(x, snapshot.Meta{Name: "x"}, time.Unix(0, 0))
	snapY := snapshot.FromAnalysisResult(y, snapshot.Meta{Name: "y"}, time.Unix(0, 0))
	snapY.Files[0].CompileTimeMs = snapX.Files[0].CompileTimeMs * 1.02

	loose := snapshot.Compare(snapX, snapY, snapshot.SignificanceThreshold)
	assert.Empty(t, loose.Regressions)

	strict := snapshot.Compare(snapX, snapY, 0.01)
	assert.NotEmpty(t, strict.Regressions)
}
