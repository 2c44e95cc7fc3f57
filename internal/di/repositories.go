package di

import (
	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/modules/historical"
	"github.com/aristath/frontier/internal/modules/universe"
)

// InitializeRepositories creates all repositories
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	container.SecurityRepo = universe.NewSecurityRepository(container.UniverseDB.Conn(), log)
	container.HistoryRepo = historical.NewHistoryRepository(container.HistoryDB.Conn(), log)

	log.Debug().Msg("Repositories initialized")
	return nil
}
