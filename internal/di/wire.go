package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/fundpulse/internal/config"
	"github.com/aristath/fundpulse/internal/metrics"
)

// Wire opens the stores, builds every service and creates the background
// jobs. The caller owns the container and must Close it.
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, *JobInstances, error) {
	container, err := InitializeDatabases(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	container.Metrics = metrics.New()

	if err := InitializeRepositories(container, cfg, log); err != nil {
		container.Close()
		return nil, nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}
	if err := InitializeServices(container, cfg, log); err != nil {
		container.Close()
		return nil, nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	jobs := RegisterJobs(container, cfg, log)
	log.Info().Int("jobs", len(jobs.All())).Msg("Dependency wiring complete")
	return container, jobs, nil
}
