package ticks

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// PruneObserver receives prune counts for metrics.
type PruneObserver interface {
	ObserveTicks(appended, pruned int64)
}

// RetentionJob prunes ticks outside the retention window
type RetentionJob struct {
	repo          *Repository
	retentionDays int
	observer      PruneObserver
	log           zerolog.Logger
}

// NewRetentionJob creates the job. observer may be nil.
func NewRetentionJob(repo *Repository, retentionDays int, observer PruneObserver, log zerolog.Logger) *RetentionJob {
	return &RetentionJob{
		repo:          repo,
		retentionDays: retentionDays,
		observer:      observer,
		log:           log.With().Str("job", "tick_retention").Logger(),
	}
}

// Run executes the prune
func (j *RetentionJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deleted, err := j.repo.Prune(ctx, j.retentionDays)
	if err != nil {
		j.log.Error().Err(err).Msg("Tick pruning failed")
		return err
	}
	if j.observer != nil {
		j.observer.ObserveTicks(0, deleted)
	}

	j.log.Info().
		Int64("deleted", deleted).
		Int("retention_days", j.retentionDays).
		Msg("Tick retention completed")
	return nil
}

// Name returns the job name
func (j *RetentionJob) Name() string {
	return "tick_retention"
}
