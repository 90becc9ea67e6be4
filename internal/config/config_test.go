package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FUNDPULSE_DATA_DIR", filepath.Join(t.TempDir(), "data"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(cfg.DataDir))
	assert.DirExists(t, cfg.DataDir)
	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, 20, cfg.FetchWorkers)
	assert.Equal(t, 2*time.Second, cfg.AdapterTimeout)
	assert.Equal(t, 5*time.Second, cfg.BatchDeadline)
	assert.Equal(t, 30*time.Second, cfg.QuoteTTL)
	assert.Equal(t, 3, cfg.TickRetentionDays)
	assert.Equal(t, "@every 30s", cfg.PollSchedule)
	assert.Equal(t, 0.03, cfg.RiskFreeRate)
	assert.Equal(t, DefaultIndices, cfg.DashboardIndices)
	assert.Empty(t, cfg.StreamOriginPatterns)
	assert.False(t, cfg.AIEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FUNDPULSE_DATA_DIR", t.TempDir())
	t.Setenv("FETCH_WORKERS", "8")
	t.Setenv("ADAPTER_TIMEOUT", "1500ms")
	t.Setenv("QUOTE_TTL", "not-a-duration")
	t.Setenv("DASHBOARD_INDICES", " s_sh000001 , ,int_dji")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("STREAM_ORIGIN_PATTERNS", "localhost:5173,*.fundpulse.dev")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.FetchWorkers)
	assert.Equal(t, 1500*time.Millisecond, cfg.AdapterTimeout)
	assert.Equal(t, 30*time.Second, cfg.QuoteTTL, "unparsable value keeps the default")
	assert.Equal(t, []string{"s_sh000001", "int_dji"}, cfg.DashboardIndices)
	assert.Equal(t, []string{"localhost:5173", "*.fundpulse.dev"}, cfg.StreamOriginPatterns)
	assert.True(t, cfg.AIEnabled())
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Port:              8001,
			FetchWorkers:      20,
			AdapterTimeout:    time.Second,
			BatchDeadline:     time.Second,
			QuoteTTL:          time.Second,
			HistoryTTL:        time.Hour,
			DirectoryTTL:      time.Hour,
			TickRetentionDays: 3,
			PollSchedule:      "@every 30s",
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero workers", func(c *Config) { c.FetchWorkers = 0 }},
		{"negative timeout", func(c *Config) { c.AdapterTimeout = -time.Second }},
		{"retention below one day", func(c *Config) { c.TickRetentionDays = 0 }},
		{"bad port", func(c *Config) { c.Port = 70000 }},
		{"empty schedule", func(c *Config) { c.PollSchedule = " " }},
	}

	base := valid()
	require.NoError(t, base.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
