package di

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/aristath/fundpulse/internal/config"
	"github.com/aristath/fundpulse/internal/database"
)

// InitializeDatabases opens the three stores and applies their schemas:
//   - ticks.db: intraday tick store (3-day rolling window)
//   - portfolio.db: holdings, plans, snapshots, search history
//   - client_data.db: persistent upstream response cache
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	stores := []struct {
		name    string
		profile database.DatabaseProfile
		target  **database.DB
	}{
		{database.NameTicks, database.ProfileStandard, &container.TicksDB},
		{database.NamePortfolio, database.ProfileLedger, &container.PortfolioDB},
		{database.NameClientData, database.ProfileCache, &container.ClientDataDB},
	}

	for _, store := range stores {
		db, err := database.New(database.Config{
			Path:    filepath.Join(cfg.DataDir, store.name+".db"),
			Profile: store.profile,
			Name:    store.name,
		})
		if err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to initialize %s database: %w", store.name, err)
		}
		*store.target = db

		if err := db.Migrate(); err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to apply schema to %s: %w", store.name, err)
		}
	}

	log.Info().Str("data_dir", cfg.DataDir).Msg("All databases initialized and schemas applied")
	return container, nil
}
