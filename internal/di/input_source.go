package di

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/modules/historical"
	"github.com/aristath/frontier/internal/modules/universe"
)

// InputSource resolves the configured universe and its trailing price window.
// It serves both the simulation API and the scheduled re-simulation job.
type InputSource struct {
	securities  *universe.SecurityRepository
	history     *historical.HistoryRepository
	validator   *historical.PriceValidator
	universeCSV string
	years       int
	now         func() time.Time
	log         zerolog.Logger
}

// NewInputSource creates an input source. A non-empty universeCSV takes
// precedence over the securities table.
func NewInputSource(
	securities *universe.SecurityRepository,
	history *historical.HistoryRepository,
	validator *historical.PriceValidator,
	universeCSV string,
	years int,
	log zerolog.Logger,
) *InputSource {
	return &InputSource{
		securities:  securities,
		history:     history,
		validator:   validator,
		universeCSV: universeCSV,
		years:       years,
		now:         time.Now,
		log:         log.With().Str("component", "input_source").Logger(),
	}
}

// Universe loads the configured universe.
func (s *InputSource) Universe(ctx context.Context) (*universe.Universe, error) {
	if s.universeCSV != "" {
		u, err := universe.LoadCSV(s.universeCSV)
		if err != nil {
			return nil, fmt.Errorf("failed to load universe from %s: %w", s.universeCSV, err)
		}
		return u, nil
	}
	return s.securities.Load(ctx)
}

// Prices loads the aligned trailing window for symbols. Abnormal closes are
// logged but not rejected; a zero or negative close still fails the run when
// return statistics are computed.
func (s *InputSource) Prices(ctx context.Context, symbols []string) (*historical.PriceSeries, error) {
	prices, err := s.history.LoadWindow(ctx, symbols, s.years, s.now())
	if err != nil {
		return nil, err
	}

	if s.validator != nil {
		for _, a := range s.validator.Validate(prices) {
			s.log.Debug().
				Str("symbol", a.Symbol).
				Time("date", a.Date).
				Float64("close", a.Close).
				Str("reason", a.Reason).
				Msg("Abnormal close")
		}
	}

	return prices, nil
}
