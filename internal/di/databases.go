package di

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/config"
	"github.com/aristath/frontier/internal/database"
)

// InitializeDatabases opens the universe and history databases and applies their schemas
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// universe.db - Simulation universe (securities, sectors)
	universeDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "universe.db"),
		Profile: database.ProfileStandard,
		Name:    "universe",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize universe database: %w", err)
	}
	container.UniverseDB = universeDB

	// history.db - Daily closes, read in bulk once per run
	historyDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "history.db"),
		Profile: database.ProfileReadHeavy,
		Name:    "history",
	})
	if err != nil {
		universeDB.Close()
		return nil, fmt.Errorf("failed to initialize history database: %w", err)
	}
	container.HistoryDB = historyDB

	for _, db := range []*database.DB{universeDB, historyDB} {
		if err := db.Migrate(); err != nil {
			universeDB.Close()
			historyDB.Close()
			return nil, fmt.Errorf("failed to migrate %s database: %w", db.Name(), err)
		}
	}

	log.Info().
		Str("universe", universeDB.Path()).
		Str("history", historyDB.Path()).
		Msg("Databases initialized")

	return container, nil
}
