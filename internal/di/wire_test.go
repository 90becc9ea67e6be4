package di

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fundpulse/internal/config"
	"github.com/aristath/fundpulse/internal/scheduler"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		DataDir:           t.TempDir(),
		Port:              8001,
		LogLevel:          "info",
		FetchWorkers:      4,
		AdapterTimeout:    time.Second,
		BatchDeadline:     2 * time.Second,
		QuoteTTL:          30 * time.Second,
		HistoryTTL:        time.Hour,
		DirectoryTTL:      24 * time.Hour,
		TickRetentionDays: 3,
		PollSchedule:      "@every 30s",
		RiskFreeRate:      0.02,
		DashboardIndices:  []string{"sh000001"},
	}
}

func TestWire(t *testing.T) {
	cfg := testConfig(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)

	container, jobs, err := Wire(cfg, log)
	require.NoError(t, err)
	defer container.Close()

	assert.Len(t, container.Databases(), 3)
	for _, name := range []string{"ticks.db", "portfolio.db", "client_data.db"} {
		_, err := os.Stat(filepath.Join(cfg.DataDir, name))
		assert.NoError(t, err, name)
	}

	assert.NotNil(t, container.ValuationService)
	assert.NotNil(t, container.HoldingsService)
	assert.NotNil(t, container.CommentaryService)
	assert.False(t, container.CommentaryService.AIEnabled())
	indices, err := container.IndexRepo.Codes()
	require.NoError(t, err)
	assert.Equal(t, []string{"sh000001"}, indices)
	assert.Len(t, container.Caches, 6)

	names := make([]string, 0, len(jobs.All()))
	for _, j := range jobs.All() {
		names = append(names, j.Job.Name())
	}
	assert.Equal(t, []string{"tick_poller", "tick_retention", "client_data_cleanup", "cache_sweep", "asset_snapshot", "wal_checkpoint"}, names)

	s := scheduler.New(log)
	require.NoError(t, ScheduleJobs(s, jobs))
}

func TestWire_BadScoringRules(t *testing.T) {
	cfg := testConfig(t)
	cfg.ScoringRulesFile = filepath.Join(cfg.DataDir, "missing.yaml")

	_, _, err := Wire(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestLoadRules_DefaultsUseRiskFreeRate(t *testing.T) {
	cfg := testConfig(t)
	rules, err := loadRules(cfg)
	require.NoError(t, err)
	assert.InDelta(t, 0.02, rules.RiskFreeRate, 1e-9)
}
