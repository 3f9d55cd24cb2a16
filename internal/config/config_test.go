package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildtrace/bha/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Suggest.MaxSuggestions)
	assert.Equal(t, 20, cfg.Suggest.MaxBottlenecks)
	assert.Equal(t, 5, cfg.Suggest.PCHInclusionCountMin)
	assert.InDelta(t, 0.10, cfg.Suggest.SignificanceThreshold, 0.0001)
	assert.Equal(t, ".bha/snapshots", cfg.Snapshot.Directory)
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	content := `
suggest:
  max_suggestions: 10
  min_confidence: 0.5

snapshot:
  directory: "/tmp/bha-snaps"
`

	tmpDir := t.TempDir()

	tmpFile, err := os.CreateTemp(tmpDir, "bha-config-*.yaml")
	require.NoError(t, err)

	_, err = tmpFile.WriteString(content)
	require.NoError(t, err)
	tmpFile.Close()

	cfg, err := config.Load(tmpFile.Name())
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Suggest.MaxSuggestions)
	assert.InDelta(t, 0.5, cfg.Suggest.MinConfidence, 0.0001)
	assert.Equal(t, "/tmp/bha-snaps", cfg.Snapshot.Directory)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("BHA_SUGGEST_MAX_SUGGESTIONS", "7")
	t.Setenv("BHA_SNAPSHOT_DIRECTORY", "/tmp/env-snaps")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Suggest.MaxSuggestions)
	assert.Equal(t, "/tmp/env-snaps", cfg.Snapshot.Directory)
}

func TestValidateRejectsOutOfRangeConfidence(t *testing.T) {
	t.Setenv("BHA_SUGGEST_MIN_CONFIDENCE", "1.5")

	_, err := config.Load("")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidConfidence)
}

func TestValidateRejectsEmptySnapshotDir(t *testing.T) {
	t.Setenv("BHA_SNAPSHOT_DIRECTORY", "")

	_, err := config.Load("")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidSnapshotDir)
}
