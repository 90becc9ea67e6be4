package clientdata

import (
	"time"

	"github.com/rs/zerolog"
)

// CleanupJob removes client data that expired longer ago than the grace period.
type CleanupJob struct {
	repo  *Repository
	grace time.Duration
	log   zerolog.Logger
}

// NewCleanupJob creates a new client data cleanup job.
func NewCleanupJob(repo *Repository, grace time.Duration, log zerolog.Logger) *CleanupJob {
	if grace <= 0 {
		grace = CleanupGrace
	}
	return &CleanupJob{
		repo:  repo,
		grace: grace,
		log:   log.With().Str("job", "client_data_cleanup").Logger(),
	}
}

// Run deletes expired rows from every table.
func (j *CleanupJob) Run() error {
	results, err := j.repo.DeleteAllExpired(j.grace)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to delete expired client data")
		return err
	}

	var total int64
	for table, count := range results {
		if count > 0 {
			j.log.Debug().Str("table", table).Int64("deleted", count).Msg("Cleaned up expired cache entries")
			total += count
		}
	}
	if total > 0 {
		j.log.Info().Int64("total_deleted", total).Msg("Client data cleanup completed")
	}
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *CleanupJob) Name() string {
	return "client_data_cleanup"
}
