package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/aristath/fundpulse/internal/cache"
)

// CacheSweepJob drops expired entries from the in-memory caches.
type CacheSweepJob struct {
	caches []cache.Sweeper
	log    zerolog.Logger
}

// NewCacheSweepJob creates the job
func NewCacheSweepJob(caches []cache.Sweeper, log zerolog.Logger) *CacheSweepJob {
	return &CacheSweepJob{caches: caches, log: log.With().Str("job", "cache_sweep").Logger()}
}

// Run executes the job
func (j *CacheSweepJob) Run() error {
	total := 0
	for _, c := range j.caches {
		if n := c.Sweep(); n > 0 {
			j.log.Debug().Str("cache", c.Name()).Int("dropped", n).Msg("Swept cache")
			total += n
		}
	}
	if total > 0 {
		j.log.Info().Int("dropped", total).Msg("Cache sweep completed")
	}
	return nil
}

// Name returns the job name
func (j *CacheSweepJob) Name() string {
	return "cache_sweep"
}
