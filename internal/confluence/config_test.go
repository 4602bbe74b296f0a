package confluence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "confluence.yaml")
	yaml := `
factors:
  trend_threshold_pct: 4.0
  trend_points: 3
  level_size_floor: 500000
  level_points: 2
  mega_cap_points: 1
  volume_threshold: 2.0
  volume_points: 1
  panic_regime_points: 2
thresholds:
  upgrade_low: 3
  upgrade_high: 5
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Factors.TrendPoints)
	assert.Equal(t, 4.0, cfg.Factors.TrendThresholdPct)
	assert.Equal(t, 5, cfg.Thresholds.UpgradeHigh)
}

func TestLoad_UnknownFieldFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "confluence.yaml")
	yaml := `
factors:
  trend_threshold_pct: 4.0
  trend_pointz: 3
thresholds:
  upgrade_low: 2
  upgrade_high: 4
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	_, err := Load(path)
	assert.Error(t, err, "typo in a field name must not be silently ignored")
}

func TestLoad_InvalidThresholds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "confluence.yaml")
	yaml := `
factors:
  trend_threshold_pct: 4.0
thresholds:
  upgrade_low: 4
  upgrade_high: 2
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadOrDefault_EmptyPath(t *testing.T) {
	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
}
