package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  name: insulinctl\n"))
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.History.MaxItems)
	assert.Equal(t, 30, cfg.Export.DefaultRangeDays)
	assert.Equal(t, []int{3, 7, 14, 30, 90}, cfg.Export.AllowedRanges)
	assert.Equal(t, 50*time.Millisecond, cfg.Export.ChartSettleDelay)
	assert.Equal(t, "insulin_calc_history", cfg.Storage.HistoryKey)
	assert.Equal(t, "insulin_calc_settings", cfg.Storage.SettingsKey)
	assert.Equal(t, int64(5*1024*1024), cfg.Storage.QuotaBytes)
	assert.True(t, cfg.Export.Share)
	assert.True(t, cfg.Export.CheckPermissions)
	assert.NotEmpty(t, cfg.Storage.Path)
}

func TestLoadFileOverrides(t *testing.T) {
	path := writeConfig(t, `
storage:
  path: /tmp/insulin-test.db
  quota_bytes: 2048
history:
  max_items: 50
export:
  default_range_days: 7
  chart_settle_delay: 0s
  share: false
report:
  timezone: UTC
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/insulin-test.db", cfg.Storage.Path)
	assert.Equal(t, int64(2048), cfg.Storage.QuotaBytes)
	assert.Equal(t, 50, cfg.History.MaxItems)
	assert.Equal(t, 7, cfg.Export.DefaultRangeDays)
	assert.Zero(t, cfg.Export.ChartSettleDelay)
	assert.False(t, cfg.Export.Share)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("INSULINCALC_HISTORY_MAX_ITEMS", "200")
	cfg, err := Load(writeConfig(t, "app:\n  name: insulinctl\n"))
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.History.MaxItems)
}

func TestValidateRejectsUnknownDefaultRange(t *testing.T) {
	_, err := Load(writeConfig(t, "export:\n  default_range_days: 5\n"))
	require.Error(t, err)
}

func TestValidateRejectsBadTimezone(t *testing.T) {
	_, err := Load(writeConfig(t, "report:\n  timezone: Mars/Olympus\n"))
	require.Error(t, err)
}

func TestResolveRangeDays(t *testing.T) {
	cfg := &Config{Export: ExportConfig{DefaultRangeDays: 30, AllowedRanges: []int{3, 7, 14, 30, 90}}}
	assert.Equal(t, 30, cfg.ResolveRangeDays(0))
	assert.Equal(t, 7, cfg.ResolveRangeDays(7))
	assert.True(t, cfg.IsAllowedRange(90))
	assert.False(t, cfg.IsAllowedRange(60))
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}
