package montecarlo

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/frontier/pkg/formulas"
)

// Evaluator scores weight vectors against one set of return statistics.
type Evaluator struct {
	stats *ReturnStatistics
}

// NewEvaluator creates a new evaluator bound to stats.
func NewEvaluator(stats *ReturnStatistics) *Evaluator {
	return &Evaluator{stats: stats}
}

// Evaluate computes
//
//	return = Σ w[i] * annualizedReturn[i]
//	risk   = sqrt(wᵀ C w), C the correlation matrix
//	sharpe = return / risk
//
// The risk term uses the correlation matrix, not a covariance matrix. It is a
// dimensionless dispersion score rather than an annualized volatility.
//
// A zero (or non-finite) risk marks the trial Degenerate with a NaN Sharpe.
// A slightly negative quadratic form from rounding is clamped to zero.
func (e *Evaluator) Evaluate(w WeightVector) PortfolioMetrics {
	ret := floats.Dot(w, e.stats.AnnualizedReturns)

	v := mat.NewVecDense(len(w), w)
	variance := mat.Inner(v, e.stats.Correlation, v)
	if variance < 0 {
		variance = 0
	}
	risk := math.Sqrt(variance)

	m := PortfolioMetrics{Return: ret, Risk: risk}
	if risk == 0 || !formulas.IsFinite(risk) {
		m.Sharpe = math.NaN()
		m.Degenerate = true
		return m
	}
	m.Sharpe = ret / risk
	return m
}
