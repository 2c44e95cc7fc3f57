package montecarlo

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/modules/historical"
	"github.com/aristath/frontier/internal/modules/universe"
)

// Service runs the whole pipeline: statistics once, then trials, then selection.
type Service struct {
	simulator *Simulator
	log       zerolog.Logger
}

// NewService creates a new Monte Carlo service.
func NewService(log zerolog.Logger) *Service {
	return &Service{
		simulator: NewSimulator(log),
		log:       log.With().Str("service", "montecarlo").Logger(),
	}
}

// Run computes return statistics from prices and simulates the universe.
// Statistics failures abort before any trial executes.
func (s *Service) Run(ctx context.Context, u *universe.Universe, prices *historical.PriceSeries, opts Options) (*Outcome, error) {
	if u == nil || u.Len() == 0 {
		return nil, universe.ErrEmptyUniverse
	}
	if prices == nil {
		return nil, historical.ErrMissingSeries
	}
	if err := prices.Require(u.Symbols()); err != nil {
		return nil, err
	}

	stats, err := ComputeStatistics(u, prices)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to compute return statistics")
		return nil, fmt.Errorf("failed to compute return statistics: %w", err)
	}

	s.log.Debug().
		Int("assets", stats.Len()).
		Int("observations", stats.Observations).
		Msg("Computed return statistics")

	return s.RunWithStatistics(ctx, u, stats, opts)
}

// RunWithStatistics simulates against precomputed statistics.
func (s *Service) RunWithStatistics(ctx context.Context, u *universe.Universe, stats *ReturnStatistics, opts Options) (*Outcome, error) {
	startedAt := time.Now()

	result, err := s.simulator.Run(ctx, stats, u, opts)
	if err != nil {
		return nil, err
	}

	selection, err := SelectOptimal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to select portfolios: %w", err)
	}

	outcome := &Outcome{
		Universe:   u,
		Statistics: stats,
		Result:     result,
		Selection:  selection,
		StartedAt:  startedAt,
		Duration:   time.Since(startedAt),
	}

	s.log.Info().
		Int("trials", result.Len()).
		Float64("max_sharpe", selection.MaxSharpe.Metrics.Sharpe).
		Float64("max_return", selection.MaxReturn.Metrics.Return).
		Float64("min_risk", selection.MinRisk.Metrics.Risk).
		Dur("duration", outcome.Duration).
		Msg("Portfolio selection complete")

	return outcome, nil
}
