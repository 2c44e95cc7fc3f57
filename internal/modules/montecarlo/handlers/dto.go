package handlers

import (
	"math"
	"sort"
	"time"

	"github.com/aristath/frontier/internal/modules/montecarlo"
	"github.com/aristath/frontier/internal/modules/universe"
)

// SimulationRequest is the body of POST /api/simulations.
// Universe and Prices are optional; omitted inputs come from the configured data source.
type SimulationRequest struct {
	Universe         []universe.Asset     `json:"universe,omitempty"`
	Prices           map[string][]float64 `json:"prices,omitempty"`
	Trials           int                  `json:"trials,omitempty"`
	Seed             uint64               `json:"seed,omitempty"`
	Workers          int                  `json:"workers,omitempty"`
	Sampler          string               `json:"sampler,omitempty"`
	DegeneratePolicy string               `json:"degenerate_policy,omitempty"`
}

// RunSummary describes one run without its trial table.
type RunSummary struct {
	ID          string     `json:"id"`
	Source      string     `json:"source"`
	Status      string     `json:"status"`
	Trials      int        `json:"trials"`
	Completed   int        `json:"completed"`
	Progress    float64    `json:"progress"`
	Error       string     `json:"error,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Seed        uint64     `json:"seed,omitempty"`
	Sampler     string     `json:"sampler,omitempty"`
	Degenerate  int        `json:"degenerate"`
	DurationMs  int64      `json:"duration_ms,omitempty"`
}

// RunDetail is a summary plus the selections and input statistics of a completed run.
type RunDetail struct {
	RunSummary
	Portfolios []PortfolioDTO `json:"portfolios,omitempty"`
	Statistics *StatisticsDTO `json:"statistics,omitempty"`
}

// StatisticsDTO is the per-run return statistics.
type StatisticsDTO struct {
	Symbols           []string    `json:"symbols"`
	AnnualizedReturns []float64   `json:"annualized_returns"`
	Correlation       [][]float64 `json:"correlation"`
	Observations      int         `json:"observations"`
}

// AssetWeightDTO is one asset of a selected portfolio.
type AssetWeightDTO struct {
	Symbol string  `json:"symbol"`
	Sector string  `json:"sector"`
	Weight float64 `json:"weight"`
}

// SectorWeightDTO is one sector of a selected portfolio.
type SectorWeightDTO struct {
	Sector string  `json:"sector"`
	Weight float64 `json:"weight"`
}

// PortfolioDTO is one selected portfolio. Sharpe is null for degenerate trials.
type PortfolioDTO struct {
	Label         string            `json:"label"`
	Trial         int               `json:"trial"`
	Return        float64           `json:"return"`
	Risk          float64           `json:"risk"`
	Sharpe        *float64          `json:"sharpe"`
	AssetWeights  []AssetWeightDTO  `json:"asset_weights"`
	SectorWeights []SectorWeightDTO `json:"sector_weights"`
}

// TrialDTO is one row of the trial table.
type TrialDTO struct {
	Trial         int                `json:"trial"`
	Weights       []float64          `json:"weights"`
	Return        float64            `json:"return"`
	Risk          float64            `json:"risk"`
	Sharpe        *float64           `json:"sharpe"`
	Degenerate    bool               `json:"degenerate,omitempty"`
	SectorWeights map[string]float64 `json:"sector_weights"`
}

// TrialsPage is a window of the trial table.
type TrialsPage struct {
	RunID   string     `json:"run_id"`
	Symbols []string   `json:"symbols"`
	Offset  int        `json:"offset"`
	Limit   int        `json:"limit"`
	Total   int        `json:"total"`
	Trials  []TrialDTO `json:"trials"`
}

// ProgressMessage is one frame of the progress websocket.
type ProgressMessage struct {
	ID        string  `json:"id"`
	Status    string  `json:"status"`
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Progress  float64 `json:"progress"`
	Error     string  `json:"error,omitempty"`
}

func optionalFloat(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func progressOf(run montecarlo.Run) float64 {
	if run.Status == montecarlo.RunCompleted {
		return 1
	}
	if run.Trials == 0 {
		return 0
	}
	return float64(run.Completed) / float64(run.Trials)
}

func toRunSummary(run montecarlo.Run) RunSummary {
	s := RunSummary{
		ID:          run.ID,
		Source:      run.Source,
		Status:      string(run.Status),
		Trials:      run.Trials,
		Completed:   run.Completed,
		Progress:    progressOf(run),
		Error:       run.Error,
		SubmittedAt: run.SubmittedAt,
		StartedAt:   optionalTime(run.StartedAt),
		FinishedAt:  optionalTime(run.FinishedAt),
	}
	if run.Outcome != nil {
		s.Seed = run.Outcome.Result.Seed
		s.Sampler = run.Outcome.Result.Sampler
		s.Degenerate = run.Outcome.Result.Degenerate
		s.DurationMs = run.Outcome.Duration.Milliseconds()
	}
	return s
}

func toRunDetail(run montecarlo.Run) RunDetail {
	d := RunDetail{RunSummary: toRunSummary(run)}
	if run.Outcome == nil {
		return d
	}
	d.Portfolios = toPortfolios(run.Outcome)

	stats := run.Outcome.Statistics
	d.Statistics = &StatisticsDTO{
		Symbols:           stats.Symbols,
		AnnualizedReturns: stats.AnnualizedReturns,
		Correlation:       stats.CorrelationRows(),
		Observations:      stats.Observations,
	}
	return d
}

func toPortfolios(outcome *montecarlo.Outcome) []PortfolioDTO {
	selected := outcome.Selection.All()
	out := make([]PortfolioDTO, 0, len(selected))
	for _, p := range selected {
		out = append(out, toPortfolio(outcome.Universe, p))
	}
	return out
}

// toPortfolio lists asset and sector weights by descending weight.
func toPortfolio(u *universe.Universe, p montecarlo.SelectedPortfolio) PortfolioDTO {
	assets := make([]AssetWeightDTO, len(p.AssetWeights))
	for i, w := range p.AssetWeights {
		a := u.Asset(i)
		assets[i] = AssetWeightDTO{Symbol: a.Symbol, Sector: a.Sector, Weight: w}
	}
	sort.SliceStable(assets, func(i, j int) bool {
		return assets[i].Weight > assets[j].Weight
	})

	sorted := p.SectorWeights.Sorted()
	sectors := make([]SectorWeightDTO, len(sorted))
	for i, s := range sorted {
		sectors[i] = SectorWeightDTO{Sector: s.Sector, Weight: s.Weight}
	}

	return PortfolioDTO{
		Label:         string(p.Label),
		Trial:         p.Trial,
		Return:        p.Metrics.Return,
		Risk:          p.Metrics.Risk,
		Sharpe:        optionalFloat(p.Metrics.Sharpe),
		AssetWeights:  assets,
		SectorWeights: sectors,
	}
}

func toTrial(i int, t montecarlo.Trial, sectors montecarlo.SectorWeights) TrialDTO {
	return TrialDTO{
		Trial:         i,
		Weights:       t.Weights,
		Return:        t.Metrics.Return,
		Risk:          t.Metrics.Risk,
		Sharpe:        optionalFloat(t.Metrics.Sharpe),
		Degenerate:    t.Metrics.Degenerate,
		SectorWeights: sectors,
	}
}
