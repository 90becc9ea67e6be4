package server

import (
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/fundpulse/internal/cache"
	"github.com/aristath/fundpulse/internal/database"
	"github.com/aristath/fundpulse/internal/di"
	"github.com/aristath/fundpulse/internal/modules/market_hours"
)

// SystemHandlers serves process and store diagnostics.
type SystemHandlers struct {
	container   *di.Container
	log         zerolog.Logger
	startupTime time.Time
	now         func() time.Time
}

// NewSystemHandlers creates the system handlers.
func NewSystemHandlers(container *di.Container, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		container:   container,
		log:         log.With().Str("handler", "system").Logger(),
		startupTime: time.Now(),
		now:         time.Now,
	}
}

// SystemStatusResponse is the body of GET /api/system/status.
type SystemStatusResponse struct {
	Status        string              `json:"status"`
	UptimeSeconds int64               `json:"uptime_seconds"`
	CPUPercent    float64             `json:"cpu_percent"`
	MemoryPercent float64             `json:"memory_percent"`
	Market        market_hours.Status `json:"market"`
	Strategy      map[string][]string `json:"strategy"`
	AICommentary  bool                `json:"ai_commentary"`
	Indices       []string            `json:"indices"`
}

// CacheStats describes one in-memory cache.
type CacheStats struct {
	Name    string  `json:"name"`
	Entries int     `json:"entries"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	Loads   uint64  `json:"loads"`
	HitRate float64 `json:"hit_rate"`
}

// HandleSystemStatus returns process health, market state and the active
// source strategy.
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	c := h.container
	cpuPercent, memPercent := h.getSystemStats()

	resp := SystemStatusResponse{
		Status:        "ok",
		UptimeSeconds: int64(h.now().Sub(h.startupTime).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
	}
	if c.IndexRepo != nil {
		indices, err := c.IndexRepo.Codes()
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to list dashboard indices")
		}
		resp.Indices = indices
	}
	if c.Calendar != nil {
		resp.Market = c.Calendar.Status(h.now())
	}
	if c.StrategyTable != nil {
		resp.Strategy = c.StrategyTable.Describe()
	}
	if c.CommentaryService != nil {
		resp.AICommentary = c.CommentaryService.AIEnabled()
	}

	if err := writeEnvelope(w, resp); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

// DatabaseStatus is a store's footprint plus its integrity check result.
type DatabaseStatus struct {
	*database.Stats
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// HandleDatabaseStats returns the footprint and integrity of each store.
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	dbs := h.container.Databases()
	stats := make([]DatabaseStatus, 0, len(dbs))
	for _, db := range dbs {
		s, err := db.GetStats()
		if err != nil {
			h.log.Error().Err(err).Str("database", db.Name()).Msg("Failed to get database stats")
			http.Error(w, "failed to read database stats", http.StatusInternalServerError)
			return
		}
		status := DatabaseStatus{Stats: s, Healthy: true}
		if err := db.HealthCheck(r.Context()); err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Database integrity check failed")
			status.Healthy = false
			status.Error = err.Error()
		}
		stats = append(stats, status)
	}

	if err := writeEnvelope(w, stats); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

// HandleCacheStats returns hit/miss counters of the in-memory caches.
func (h *SystemHandlers) HandleCacheStats(w http.ResponseWriter, r *http.Request) {
	out := make([]CacheStats, 0, len(h.container.Caches))
	for _, c := range h.container.Caches {
		out = append(out, cacheStats(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	if err := writeEnvelope(w, out); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func cacheStats(c cache.Sweeper) CacheStats {
	s := c.Stats()
	out := CacheStats{
		Name:    c.Name(),
		Entries: c.Len(),
		Hits:    s.Hits,
		Misses:  s.Misses,
		Loads:   s.Loads,
	}
	if total := s.Hits + s.Misses; total > 0 {
		out.HitRate = float64(s.Hits) / float64(total)
	}
	return out
}

// getSystemStats returns CPU and RAM usage percentages. The CPU sample is
// short so the endpoint stays responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}
