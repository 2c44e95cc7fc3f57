package montecarlo

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientHistory means an asset has too few prices to compute a return.
	// Fatal: the run aborts before any trial executes.
	ErrInsufficientHistory = errors.New("insufficient price history")
	// ErrInvalidStatistics means a non-finite value surfaced in returns, means or correlations.
	// Fatal: the run aborts before any trial executes.
	ErrInvalidStatistics = errors.New("invalid return statistics")
	// ErrDegenerateRisk means a trial's risk evaluated to zero (or a non-finite value).
	ErrDegenerateRisk = errors.New("degenerate portfolio risk")
	// ErrNoTrials is returned when selection is asked to scan an empty result.
	ErrNoTrials = errors.New("simulation produced no trials")
	// ErrTooManyTrials means a run asked for more trials than its limit allows.
	ErrTooManyTrials = errors.New("trial count exceeds limit")
)

// StatisticsError carries the asset context of a fatal preprocessing failure.
type StatisticsError struct {
	Kind   error  // ErrInsufficientHistory or ErrInvalidStatistics
	Symbol string // offending asset
	Index  int    // asset position in the universe
	Detail string
}

func (e *StatisticsError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%v: asset %s (index %d)", e.Kind, e.Symbol, e.Index)
	}
	return fmt.Sprintf("%v: asset %s (index %d): %s", e.Kind, e.Symbol, e.Index, e.Detail)
}

func (e *StatisticsError) Unwrap() error {
	return e.Kind
}

// TrialError carries the trial index of a per-trial failure.
type TrialError struct {
	Trial int
	Err   error
}

func (e *TrialError) Error() string {
	return fmt.Sprintf("trial %d: %v", e.Trial, e.Err)
}

func (e *TrialError) Unwrap() error {
	return e.Err
}
