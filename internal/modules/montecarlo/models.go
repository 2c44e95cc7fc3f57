// Package montecarlo estimates the risk/return trade-off of randomly sampled
// portfolios over a fixed asset universe and selects the Max-Sharpe,
// Max-Return and Min-Risk portfolios among them.
//
// The engine samples; it does not optimize. Selected portfolios are the best
// of the trials drawn, never a claim of global optimality.
package montecarlo

import (
	"sort"
	"time"

	"github.com/aristath/frontier/internal/modules/universe"
)

// DefaultTrials is the trial count used when none is configured.
const DefaultTrials = 10000

// DefaultMaxTrials caps the trial count of one run when no limit is configured.
const DefaultMaxTrials = 5_000_000

// WeightVector is one allocation over the universe, aligned to universe order.
// Entries are non-negative and sum to 1.
type WeightVector []float64

// PortfolioMetrics scores one weight vector.
//
// Sharpe is Return/Risk. When Risk is zero the trial is Degenerate and Sharpe
// is NaN; degenerate trials never win the Max-Sharpe selection.
type PortfolioMetrics struct {
	Return     float64
	Risk       float64
	Sharpe     float64
	Degenerate bool
}

// SectorWeights maps every sector of the universe to its aggregated weight.
// Sectors receiving no weight in a trial are present with value 0.
type SectorWeights map[string]float64

// Total returns the sum of all sector weights.
func (s SectorWeights) Total() float64 {
	var total float64
	for _, w := range s {
		total += w
	}
	return total
}

// SectorWeight is one entry of a sorted SectorWeights view.
type SectorWeight struct {
	Sector string
	Weight float64
}

// Sorted returns the sectors by descending weight, ties broken by name.
func (s SectorWeights) Sorted() []SectorWeight {
	out := make([]SectorWeight, 0, len(s))
	for sector, w := range s {
		out = append(out, SectorWeight{Sector: sector, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Sector < out[j].Sector
	})
	return out
}

// Trial is one row of the result table.
type Trial struct {
	Weights WeightVector
	Metrics PortfolioMetrics
}

// SimulationResult is the ordered result table of a run. Trials and
// SectorWeights are index-aligned; the index is the trial number.
type SimulationResult struct {
	Trials        []Trial
	SectorWeights []SectorWeights
	Seed          uint64
	Sampler       string
	Degenerate    int
}

// Len returns the number of trials.
func (r *SimulationResult) Len() int {
	return len(r.Trials)
}

// Label names one of the three extremal selections.
type Label string

const (
	LabelMaxSharpe Label = "Max Sharpe Ratio"
	LabelMaxReturn Label = "Max Return"
	LabelMinRisk   Label = "Min Risk"
)

// SelectedPortfolio is one winning trial with its allocation at asset and sector level.
type SelectedPortfolio struct {
	Label         Label
	Trial         int
	Metrics       PortfolioMetrics
	AssetWeights  WeightVector
	SectorWeights SectorWeights
}

// Selection holds the three extremal portfolios of a run.
type Selection struct {
	MaxSharpe SelectedPortfolio
	MaxReturn SelectedPortfolio
	MinRisk   SelectedPortfolio
}

// All returns the selections in report order.
func (s *Selection) All() []SelectedPortfolio {
	return []SelectedPortfolio{s.MaxSharpe, s.MaxReturn, s.MinRisk}
}

// Outcome is everything a single run produces.
type Outcome struct {
	Universe   *universe.Universe
	Statistics *ReturnStatistics
	Result     *SimulationResult
	Selection  *Selection
	StartedAt  time.Time
	Duration   time.Duration
}
