package holdings

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// SnapshotJob records the daily asset snapshot after the close.
type SnapshotJob struct {
	service *Service
	log     zerolog.Logger
}

// NewSnapshotJob creates the job.
func NewSnapshotJob(service *Service, log zerolog.Logger) *SnapshotJob {
	return &SnapshotJob{service: service, log: log.With().Str("job", "asset_snapshot").Logger()}
}

// Run executes the job
func (j *SnapshotJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snap, err := j.service.TakeSnapshot(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("Asset snapshot failed")
		return err
	}
	j.log.Info().
		Str("date", snap.Date).
		Float64("market_value", snap.TotalMarketValue).
		Float64("day_profit", snap.DayProfit).
		Msg("Asset snapshot stored")
	return nil
}

// Name returns the job name
func (j *SnapshotJob) Name() string {
	return "asset_snapshot"
}
