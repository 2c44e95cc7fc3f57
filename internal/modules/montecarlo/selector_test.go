package montecarlo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resultFromWeights(t *testing.T, stats *ReturnStatistics, weights []WeightVector) *SimulationResult {
	t.Helper()
	e := NewEvaluator(stats)
	r := &SimulationResult{}
	for _, w := range weights {
		m := e.Evaluate(w)
		if m.Degenerate {
			r.Degenerate++
		}
		r.Trials = append(r.Trials, Trial{Weights: w, Metrics: m})
		r.SectorWeights = append(r.SectorWeights, SectorWeights{"All": 1})
	}
	return r
}

func TestSelectOptimal_Scenario(t *testing.T) {
	result := resultFromWeights(t, threeAssetStatistics(t), scenarioWeights)

	sel, err := SelectOptimal(result)
	require.NoError(t, err)

	assert.Equal(t, 2, sel.MaxReturn.Trial)
	assert.Equal(t, 4, sel.MinRisk.Trial)
	assert.Equal(t, 4, sel.MaxSharpe.Trial)

	assert.Equal(t, LabelMaxSharpe, sel.MaxSharpe.Label)
	assert.Equal(t, LabelMaxReturn, sel.MaxReturn.Label)
	assert.Equal(t, LabelMinRisk, sel.MinRisk.Label)
	assert.Equal(t, WeightVector{0, 0, 1}, sel.MaxReturn.AssetWeights)
	assert.Equal(t, 1.0, sel.MinRisk.SectorWeights["All"])

	labels := []Label{}
	for _, p := range sel.All() {
		labels = append(labels, p.Label)
	}
	assert.Equal(t, []Label{LabelMaxSharpe, LabelMaxReturn, LabelMinRisk}, labels)
}

func TestSelectOptimal_DominatesEveryTrial(t *testing.T) {
	stats := threeAssetStatistics(t)
	sim := NewSimulator(nopLogger())
	u := newTestUniverse(t, scenarioAssets()...)

	result, err := sim.Run(testContext(t), stats, u, Options{Trials: 500, Seed: 7, Workers: 3})
	require.NoError(t, err)

	sel, err := SelectOptimal(result)
	require.NoError(t, err)

	for i, trial := range result.Trials {
		assert.GreaterOrEqual(t, sel.MaxSharpe.Metrics.Sharpe, trial.Metrics.Sharpe, "trial %d", i)
		assert.GreaterOrEqual(t, sel.MaxReturn.Metrics.Return, trial.Metrics.Return, "trial %d", i)
		assert.LessOrEqual(t, sel.MinRisk.Metrics.Risk, trial.Metrics.Risk, "trial %d", i)
	}
}

func TestSelectOptimal_TiesPickEarliestTrial(t *testing.T) {
	result := &SimulationResult{
		Trials: []Trial{
			{Weights: WeightVector{1}, Metrics: PortfolioMetrics{Return: 0.1, Risk: 0.5, Sharpe: 0.2}},
			{Weights: WeightVector{1}, Metrics: PortfolioMetrics{Return: 0.2, Risk: 0.4, Sharpe: 0.5}},
			{Weights: WeightVector{1}, Metrics: PortfolioMetrics{Return: 0.2, Risk: 0.4, Sharpe: 0.5}},
		},
	}

	sel, err := SelectOptimal(result)
	require.NoError(t, err)

	assert.Equal(t, 1, sel.MaxSharpe.Trial)
	assert.Equal(t, 1, sel.MaxReturn.Trial)
	assert.Equal(t, 1, sel.MinRisk.Trial)
	assert.Nil(t, sel.MaxSharpe.SectorWeights)
}

func TestSelectOptimal_SkipsDegenerateForSharpeOnly(t *testing.T) {
	result := &SimulationResult{
		Trials: []Trial{
			{Weights: WeightVector{1}, Metrics: PortfolioMetrics{Return: 0.3, Risk: 0, Sharpe: math.NaN(), Degenerate: true}},
			{Weights: WeightVector{1}, Metrics: PortfolioMetrics{Return: 0.1, Risk: 0.5, Sharpe: 0.2}},
		},
		Degenerate: 1,
	}

	sel, err := SelectOptimal(result)
	require.NoError(t, err)

	assert.Equal(t, 1, sel.MaxSharpe.Trial)
	assert.Equal(t, 0, sel.MaxReturn.Trial)
	assert.Equal(t, 0, sel.MinRisk.Trial)
}

func TestSelectOptimal_Errors(t *testing.T) {
	_, err := SelectOptimal(&SimulationResult{})
	assert.ErrorIs(t, err, ErrNoTrials)

	_, err = SelectOptimal(nil)
	assert.ErrorIs(t, err, ErrNoTrials)

	allDegenerate := &SimulationResult{
		Trials: []Trial{
			{Weights: WeightVector{1}, Metrics: PortfolioMetrics{Return: 0.1, Sharpe: math.NaN(), Degenerate: true}},
		},
	}
	_, err = SelectOptimal(allDegenerate)
	assert.ErrorIs(t, err, ErrDegenerateRisk)
}
