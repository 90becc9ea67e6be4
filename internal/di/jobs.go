package di

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundpulse/internal/clientdata"
	"github.com/aristath/fundpulse/internal/config"
	"github.com/aristath/fundpulse/internal/modules/holdings"
	"github.com/aristath/fundpulse/internal/modules/ticks"
	"github.com/aristath/fundpulse/internal/scheduler"
)

const (
	tickRetentionSchedule     = "0 30 3 * * *"
	clientDataCleanupSchedule = "0 0 4 * * *"
	cacheSweepSchedule        = "@every 5m"
	assetSnapshotSchedule     = "0 10 15 * * MON-FRI"
	walCheckpointSchedule     = "0 15 * * * *"

	// Expired upstream responses stay readable as a fallback for this long.
	clientDataGrace = 7 * 24 * time.Hour
	pollTimeout     = 20 * time.Second
)

// RegisterJobs creates the background jobs. Nothing is scheduled until
// ScheduleJobs is called.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) *JobInstances {
	return &JobInstances{
		TickPoller: ScheduledJob{
			Schedule: cfg.PollSchedule,
			Job: scheduler.NewTickPollerJob(container.HoldingsService, container.IndexRepo,
				container.ValuationService, container.Calendar, pollTimeout, log),
		},
		TickRetention: ScheduledJob{
			Schedule: tickRetentionSchedule,
			Job:      ticks.NewRetentionJob(container.TickRepo, cfg.TickRetentionDays, container.Metrics, log),
		},
		ClientDataCleanup: ScheduledJob{
			Schedule: clientDataCleanupSchedule,
			Job:      clientdata.NewCleanupJob(container.ClientDataRepo, clientDataGrace, log),
		},
		CacheSweep: ScheduledJob{
			Schedule: cacheSweepSchedule,
			Job:      scheduler.NewCacheSweepJob(container.Caches, log),
		},
		AssetSnapshot: ScheduledJob{
			Schedule: assetSnapshotSchedule,
			Job:      holdings.NewSnapshotJob(container.HoldingsService, log),
		},
		WALCheckpoint: ScheduledJob{
			Schedule: walCheckpointSchedule,
			Job:      scheduler.NewWALCheckpointJob(checkpointers(container), log),
		},
	}
}

func checkpointers(container *Container) []scheduler.Checkpointer {
	dbs := container.Databases()
	out := make([]scheduler.Checkpointer, len(dbs))
	for i, db := range dbs {
		out[i] = db
	}
	return out
}

// ScheduleJobs adds every job to the scheduler.
func ScheduleJobs(s *scheduler.Scheduler, jobs *JobInstances) error {
	for _, j := range jobs.All() {
		if err := s.AddJob(j.Schedule, j.Job); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", j.Job.Name(), err)
		}
	}
	return nil
}
