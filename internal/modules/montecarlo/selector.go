package montecarlo

import (
	"fmt"

	"github.com/aristath/frontier/pkg/formulas"
)

// SelectOptimal scans the result once per criterion and returns the trials
// with the highest Sharpe, the highest return and the lowest risk.
//
// Ties resolve to the lowest trial index. Degenerate trials (NaN Sharpe) are
// skipped by the Max-Sharpe scan only. When every trial is degenerate there is
// no Max-Sharpe portfolio and ErrDegenerateRisk is returned.
func SelectOptimal(result *SimulationResult) (*Selection, error) {
	if result == nil || result.Len() == 0 {
		return nil, ErrNoTrials
	}

	n := result.Len()
	sharpes := make([]float64, n)
	returns := make([]float64, n)
	risks := make([]float64, n)
	for i, t := range result.Trials {
		sharpes[i] = t.Metrics.Sharpe
		returns[i] = t.Metrics.Return
		risks[i] = t.Metrics.Risk
	}

	maxSharpe, ok := formulas.ArgMax(sharpes)
	if !ok {
		return nil, fmt.Errorf("no trial has a defined Sharpe ratio: %w", ErrDegenerateRisk)
	}
	maxReturn, ok := formulas.ArgMax(returns)
	if !ok {
		return nil, fmt.Errorf("%w: no comparable return", ErrInvalidStatistics)
	}
	minRisk, ok := formulas.ArgMin(risks)
	if !ok {
		return nil, fmt.Errorf("%w: no comparable risk", ErrInvalidStatistics)
	}

	return &Selection{
		MaxSharpe: selected(result, LabelMaxSharpe, maxSharpe),
		MaxReturn: selected(result, LabelMaxReturn, maxReturn),
		MinRisk:   selected(result, LabelMinRisk, minRisk),
	}, nil
}

func selected(result *SimulationResult, label Label, trial int) SelectedPortfolio {
	t := result.Trials[trial]
	weights := make(WeightVector, len(t.Weights))
	copy(weights, t.Weights)

	var sectors SectorWeights
	if trial < len(result.SectorWeights) && result.SectorWeights[trial] != nil {
		sectors = make(SectorWeights, len(result.SectorWeights[trial]))
		for k, v := range result.SectorWeights[trial] {
			sectors[k] = v
		}
	}

	return SelectedPortfolio{
		Label:         label,
		Trial:         trial,
		Metrics:       t.Metrics,
		AssetWeights:  weights,
		SectorWeights: sectors,
	}
}
