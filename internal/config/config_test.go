package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, "demo", cfg.MarketData.AlphaVantageAPIKey)
	assert.Equal(t, 25, cfg.MarketData.AlphaVantageDailyLimit)
	assert.Equal(t, 15*time.Minute, cfg.MarketData.PriceCacheTTL)
	assert.Equal(t, "10000", cfg.Analytics.DefaultInvestmentAmount.String())
	assert.Equal(t, "zero", cfg.Analytics.FetchFailurePolicy)
	assert.Equal(t, "0 0 22 * * MON-FRI", cfg.Analytics.SnapshotSchedule)
	assert.Equal(t, 1000, cfg.Analytics.FrontierSamples)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Backup.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("PORT", "9100")
	t.Setenv("PRICE_CACHE_TTL", "5m")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("SNAPSHOT_FETCH_FAILURE_POLICY", "Exclude")
	t.Setenv("SNAPSHOT_SCHEDULE", "")
	t.Setenv("DEFAULT_INVESTMENT_AMOUNT", "2500.50")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, 5*time.Minute, cfg.MarketData.PriceCacheTTL)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "exclude", cfg.Analytics.FetchFailurePolicy)
	assert.Empty(t, cfg.Analytics.SnapshotSchedule, "an explicitly empty schedule disables the job")
	assert.Equal(t, "2500.5", cfg.Analytics.DefaultInvestmentAmount.String())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"policy", "SNAPSHOT_FETCH_FAILURE_POLICY", "retry"},
		{"investment", "DEFAULT_INVESTMENT_AMOUNT", "-1"},
		{"investment text", "DEFAULT_INVESTMENT_AMOUNT", "lots"},
		{"port", "PORT", "70000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATA_DIR", t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestBackupCredentialsMustBePaired(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("BACKUP_BUCKET", "portfolio-backups")
	t.Setenv("BACKUP_ACCESS_KEY_ID", "key")

	_, err := Load()
	assert.Error(t, err)
}
