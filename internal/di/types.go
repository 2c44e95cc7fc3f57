/**
 * Package di provides dependency injection type definitions.
 *
 * This package defines the Container type which holds all application dependencies.
 * The Container is the single source of truth for all service instances and is
 * passed to the server and the CLI for access to services.
 */
package di

import (
	"github.com/aristath/frontier/internal/database"
	"github.com/aristath/frontier/internal/modules/historical"
	"github.com/aristath/frontier/internal/modules/montecarlo"
	"github.com/aristath/frontier/internal/modules/universe"
	"github.com/aristath/frontier/internal/scheduler"
)

/**
 * Container holds all dependencies for the application.
 *
 * Architecture:
 * - Databases: universe (securities) and history (daily closes)
 * - Repositories: Data access layer over both databases
 * - Services: Simulation service, run manager, input source, price validation
 * - Scheduler: Optional periodic re-simulation of the configured universe
 */
type Container struct {
	// Databases
	// Each database uses SQLite with WAL mode and profile-specific PRAGMAs
	UniverseDB *database.DB // Simulation universe (securities with sectors)
	HistoryDB  *database.DB // Daily close prices

	// Repositories - Data access layer
	SecurityRepo *universe.SecurityRepository  // Universe securities
	HistoryRepo  *historical.HistoryRepository // Daily close history

	// Services - Business logic layer
	PriceValidator     *historical.PriceValidator // Flags abnormal closes in loaded history
	InputSource        *InputSource               // Configured universe and aligned price window
	SimulationService  *montecarlo.Service        // Statistics, trials and selection for one run
	RunManager         *montecarlo.RunManager     // Asynchronous runs with bounded retention
	SimulationDefaults montecarlo.Options         // Options applied to runs that set none

	// Background jobs
	Scheduler     *scheduler.Scheduler     // nil when no schedule is configured
	SimulationJob *scheduler.SimulationJob // Periodic re-simulation
}
