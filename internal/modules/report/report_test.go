package report

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/frontier/internal/modules/montecarlo"
	"github.com/aristath/frontier/internal/modules/universe"
)

func newTestOutcome(t *testing.T) *montecarlo.Outcome {
	t.Helper()
	u, err := universe.New([]universe.Asset{
		{Symbol: "A", Sector: "Tech"},
		{Symbol: "B", Sector: "Tech"},
		{Symbol: "C", Sector: "Health"},
	})
	require.NoError(t, err)

	portfolio := func(label montecarlo.Label, trial int, sharpe float64) montecarlo.SelectedPortfolio {
		return montecarlo.SelectedPortfolio{
			Label:         label,
			Trial:         trial,
			Metrics:       montecarlo.PortfolioMetrics{Return: 0.1234, Risk: 0.0567, Sharpe: sharpe},
			AssetWeights:  montecarlo.WeightVector{0.2, 0.7, 0.1},
			SectorWeights: montecarlo.SectorWeights{"Tech": 0.9, "Health": 0.1},
		}
	}

	return &montecarlo.Outcome{
		Universe:   u,
		Statistics: &montecarlo.ReturnStatistics{Symbols: u.Symbols(), Observations: 2519},
		Result: &montecarlo.SimulationResult{
			Trials:     make([]montecarlo.Trial, 12000),
			Seed:       42,
			Sampler:    "uniform",
			Degenerate: 3,
		},
		Selection: &montecarlo.Selection{
			MaxSharpe: portfolio(montecarlo.LabelMaxSharpe, 11500, 2.1764),
			MaxReturn: portfolio(montecarlo.LabelMaxReturn, 7, 2.1764),
			MinRisk:   portfolio(montecarlo.LabelMinRisk, 0, 2.1764),
		},
		Duration: 1500 * time.Millisecond,
	}
}

func render(t *testing.T, outcome *montecarlo.Outcome, opts Options) string {
	t.Helper()
	out, err := Render(outcome, opts)
	require.NoError(t, err)
	return out
}

func TestWrite_Header(t *testing.T) {
	out := render(t, newTestOutcome(t), Options{})

	assert.Contains(t, out, "12,000")
	assert.Contains(t, out, "2,519 daily returns")
	assert.Contains(t, out, "uniform")
	assert.Contains(t, out, "42")
	assert.Contains(t, out, "Degenerate trials:")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "3 (2 sectors)")
}

func TestWrite_SelectionsInOrder(t *testing.T) {
	out := render(t, newTestOutcome(t), Options{})

	sharpe := strings.Index(out, "Max Sharpe Ratio (trial 11,500)")
	ret := strings.Index(out, "Max Return (trial 7)")
	risk := strings.Index(out, "Min Risk (trial 0)")
	require.True(t, sharpe >= 0 && ret >= 0 && risk >= 0, out)
	assert.Less(t, sharpe, ret)
	assert.Less(t, ret, risk)

	assert.Contains(t, out, "12.34%")
	assert.Contains(t, out, "5.67%")
	assert.Contains(t, out, "217.64%")
}

func TestWrite_WeightsSortedDescending(t *testing.T) {
	out := render(t, newTestOutcome(t), Options{})

	section := out[strings.Index(out, "Asset weights:"):]
	b := strings.Index(section, "B ")
	a := strings.Index(section, "A ")
	c := strings.Index(section, "C ")
	assert.Less(t, b, a)
	assert.Less(t, a, c)
	assert.Contains(t, section, "70.0%")
	assert.Contains(t, section, "10.0%")

	sectors := out[strings.Index(out, "Sector weights:"):]
	assert.Less(t, strings.Index(sectors, "Tech"), strings.Index(sectors, "Health"))
	assert.Contains(t, sectors, "90.0%")
}

func TestWrite_TopAssetsAndHideZero(t *testing.T) {
	outcome := newTestOutcome(t)
	outcome.Selection.MinRisk.AssetWeights = montecarlo.WeightVector{0.0001, 0.9999, 0}
	outcome.Selection.MinRisk.SectorWeights = montecarlo.SectorWeights{"Tech": 1, "Health": 0}

	out := render(t, outcome, Options{TopAssets: 2, HideZero: true})
	minRisk := out[strings.Index(out, "Min Risk"):]

	assert.Contains(t, minRisk, "100.0%")
	assert.NotContains(t, minRisk, "Health")
	assert.NotContains(t, minRisk, "  A ")

	maxSharpe := out[:strings.Index(out, "Max Return")]
	assets := maxSharpe[strings.Index(maxSharpe, "Asset weights:"):]
	assert.NotContains(t, assets, "  C ")
}

func TestWrite_UndefinedSharpe(t *testing.T) {
	outcome := newTestOutcome(t)
	outcome.Selection.MinRisk.Metrics.Sharpe = math.NaN()

	out := render(t, outcome, Options{})
	assert.Contains(t, out[strings.Index(out, "Min Risk"):], "n/a")
}

func TestWrite_NilOutcome(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Write(&buf, nil, Options{}))
	assert.Error(t, Write(&buf, &montecarlo.Outcome{}, Options{}))

	out, err := Render(nil, Options{})
	assert.Error(t, err)
	assert.Empty(t, out)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "12.35%", percent(0.12346, 2))
	assert.Equal(t, "-3.0%", percent(-0.03, 1))
	assert.Equal(t, "n/a", percent(math.Inf(1), 2))
}
