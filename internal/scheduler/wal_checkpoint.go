package scheduler

import (
	"github.com/rs/zerolog"
)

// Checkpointer is a store whose write-ahead log can be folded back into
// the main file.
type Checkpointer interface {
	Name() string
	WALCheckpoint(mode string) error
}

// WALCheckpointJob truncates the WAL of every store. Long-running pollers
// otherwise let the -wal files grow between automatic checkpoints.
type WALCheckpointJob struct {
	stores []Checkpointer
	log    zerolog.Logger
}

// NewWALCheckpointJob creates the job
func NewWALCheckpointJob(stores []Checkpointer, log zerolog.Logger) *WALCheckpointJob {
	return &WALCheckpointJob{stores: stores, log: log.With().Str("job", "wal_checkpoint").Logger()}
}

// Run checkpoints each store. A failing store is logged and skipped so the
// others still get checkpointed; the first error is returned.
func (j *WALCheckpointJob) Run() error {
	var first error
	for _, s := range j.stores {
		if err := s.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Error().Err(err).Str("database", s.Name()).Msg("WAL checkpoint failed")
			if first == nil {
				first = err
			}
			continue
		}
		j.log.Debug().Str("database", s.Name()).Msg("WAL checkpoint completed")
	}
	return first
}

// Name returns the job name
func (j *WALCheckpointJob) Name() string {
	return "wal_checkpoint"
}
