package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/config"
	"github.com/aristath/frontier/internal/modules/historical"
	"github.com/aristath/frontier/internal/modules/montecarlo"
	"github.com/aristath/frontier/internal/scheduler"
)

// InitializeServices creates the simulation services and, when a schedule is
// configured, the scheduler with its re-simulation job
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	sim := cfg.Simulation

	opts, err := SimulationOptions(sim)
	if err != nil {
		return err
	}
	container.SimulationDefaults = opts

	container.PriceValidator = historical.NewPriceValidator(log)
	container.InputSource = NewInputSource(
		container.SecurityRepo,
		container.HistoryRepo,
		container.PriceValidator,
		sim.UniverseCSV,
		sim.HistoryYears,
		log,
	)
	container.SimulationService = montecarlo.NewService(log)
	container.RunManager = montecarlo.NewRunManager(container.SimulationService, sim.MaxRuns, log)

	if sim.Schedule != "" {
		container.Scheduler = scheduler.New(log)
		container.SimulationJob = scheduler.NewSimulationJob(container.InputSource, container.RunManager, opts, log)
		if err := container.Scheduler.AddJob(sim.Schedule, container.SimulationJob); err != nil {
			container.RunManager.Close()
			return fmt.Errorf("failed to schedule simulation job: %w", err)
		}
	}

	log.Debug().
		Int("trials", opts.Trials).
		Str("sampler", opts.Sampler.Name()).
		Str("schedule", sim.Schedule).
		Msg("Services initialized")

	return nil
}

// SimulationOptions resolves the configured defaults into run options.
func SimulationOptions(sim config.SimulationConfig) (montecarlo.Options, error) {
	sampler, err := montecarlo.SamplerByName(sim.Sampler)
	if err != nil {
		return montecarlo.Options{}, err
	}
	policy, err := montecarlo.ParseDegeneratePolicy(sim.DegeneratePolicy)
	if err != nil {
		return montecarlo.Options{}, err
	}
	return montecarlo.Options{
		Trials:           sim.Trials,
		MaxTrials:        sim.MaxTrials,
		Seed:             sim.Seed,
		Workers:          sim.Workers,
		Sampler:          sampler,
		DegeneratePolicy: policy,
	}, nil
}
