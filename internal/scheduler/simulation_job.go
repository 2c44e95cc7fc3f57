package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/modules/historical"
	"github.com/aristath/frontier/internal/modules/montecarlo"
	"github.com/aristath/frontier/internal/modules/universe"
)

// inputTimeout bounds how long the job waits for the universe and price history.
const inputTimeout = 2 * time.Minute

// InputSource supplies the configured universe and its aligned price history.
type InputSource interface {
	Universe(ctx context.Context) (*universe.Universe, error)
	Prices(ctx context.Context, symbols []string) (*historical.PriceSeries, error)
}

// RunSubmitter starts asynchronous simulation runs.
type RunSubmitter interface {
	Submit(req montecarlo.RunRequest) (montecarlo.Run, error)
}

// SimulationJob re-simulates the configured universe against the latest
// price history. It only submits the run; the run manager executes it.
type SimulationJob struct {
	source  InputSource
	runs    RunSubmitter
	options montecarlo.Options
	log     zerolog.Logger
}

// NewSimulationJob creates a job submitting runs with opts.
func NewSimulationJob(source InputSource, runs RunSubmitter, opts montecarlo.Options, log zerolog.Logger) *SimulationJob {
	return &SimulationJob{
		source:  source,
		runs:    runs,
		options: opts,
		log:     log.With().Str("job", "simulation").Logger(),
	}
}

// Name returns the job name
func (j *SimulationJob) Name() string {
	return "simulation"
}

// Run loads the inputs and submits a run tagged with source "scheduler".
func (j *SimulationJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), inputTimeout)
	defer cancel()

	u, err := j.source.Universe(ctx)
	if err != nil {
		return fmt.Errorf("failed to load universe: %w", err)
	}

	prices, err := j.source.Prices(ctx, u.Symbols())
	if err != nil {
		return fmt.Errorf("failed to load price history: %w", err)
	}

	run, err := j.runs.Submit(montecarlo.RunRequest{
		Universe: u,
		Prices:   prices,
		Options:  j.options,
		Source:   "scheduler",
	})
	if err != nil {
		return fmt.Errorf("failed to submit simulation: %w", err)
	}

	j.log.Info().
		Str("run_id", run.ID).
		Int("assets", u.Len()).
		Int("days", prices.Len()).
		Int("trials", run.Trials).
		Msg("Scheduled simulation submitted")

	return nil
}
