package montecarlo

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/frontier/internal/modules/universe"
)

// DegeneratePolicy decides what a zero-risk trial does to the run.
type DegeneratePolicy string

const (
	// DegenerateExclude keeps the trial with a NaN Sharpe and excludes it from
	// Max-Sharpe selection. It stays eligible for Max-Return and Min-Risk.
	DegenerateExclude DegeneratePolicy = "exclude"
	// DegenerateFail aborts the run with a *TrialError wrapping ErrDegenerateRisk.
	DegenerateFail DegeneratePolicy = "fail"
)

// ParseDegeneratePolicy resolves a configured policy name.
func ParseDegeneratePolicy(name string) (DegeneratePolicy, error) {
	switch DegeneratePolicy(name) {
	case "", DegenerateExclude:
		return DegenerateExclude, nil
	case DegenerateFail:
		return DegenerateFail, nil
	default:
		return "", fmt.Errorf("unknown degenerate risk policy %q (want %s or %s)", name, DegenerateExclude, DegenerateFail)
	}
}

// trialsPerTask is the number of consecutive trials one worker task runs.
const trialsPerTask = 256

// ProgressFunc receives the number of completed trials. It is called from
// worker goroutines and must be safe for concurrent use.
type ProgressFunc func(completed, total int)

// Options configures one simulation run.
type Options struct {
	Trials           int
	MaxTrials        int    // <= 0 uses DefaultMaxTrials
	Seed             uint64 // 0 derives a seed from the clock; the seed used is reported in the result
	Workers          int    // <= 0 uses runtime.NumCPU()
	Sampler          Sampler
	DegeneratePolicy DegeneratePolicy
	Progress         ProgressFunc
}

// TrialLimit returns the largest trial count these options accept.
func (o Options) TrialLimit() int {
	if o.MaxTrials <= 0 {
		return DefaultMaxTrials
	}
	return o.MaxTrials
}

// CheckTrials validates the trial count against the limit.
func (o Options) CheckTrials() error {
	if o.Trials <= 0 {
		return fmt.Errorf("trial count must be positive, got %d", o.Trials)
	}
	if limit := o.TrialLimit(); o.Trials > limit {
		return fmt.Errorf("%w: %d requested, at most %d allowed", ErrTooManyTrials, o.Trials, limit)
	}
	return nil
}

// Simulator runs independent sampling trials against fixed statistics.
type Simulator struct {
	log zerolog.Logger
}

// NewSimulator creates a new simulator.
func NewSimulator(log zerolog.Logger) *Simulator {
	return &Simulator{
		log: log.With().Str("component", "simulator").Logger(),
	}
}

// Run executes opts.Trials trials. Each trial draws a weight vector, evaluates
// it and aggregates its sector weights into its own slot of the result.
//
// Trial i draws from rand.NewPCG(seed, i), so results depend only on the seed,
// never on the worker count or scheduling order.
func (s *Simulator) Run(ctx context.Context, stats *ReturnStatistics, u *universe.Universe, opts Options) (*SimulationResult, error) {
	if err := checkAligned(stats, u); err != nil {
		return nil, err
	}
	if err := opts.CheckTrials(); err != nil {
		return nil, err
	}
	if opts.Sampler == nil {
		opts.Sampler = UniformSampler{}
	}
	if opts.DegeneratePolicy == "" {
		opts.DegeneratePolicy = DegenerateExclude
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	n := u.Len()
	total := opts.Trials
	evaluator := NewEvaluator(stats)
	aggregator := NewSectorAggregator(u)

	result := &SimulationResult{
		Trials:        make([]Trial, total),
		SectorWeights: make([]SectorWeights, total),
		Seed:          seed,
		Sampler:       opts.Sampler.Name(),
	}

	s.log.Info().
		Int("trials", total).
		Int("assets", n).
		Int("workers", opts.Workers).
		Uint64("seed", seed).
		Str("sampler", opts.Sampler.Name()).
		Str("degenerate_policy", string(opts.DegeneratePolicy)).
		Msg("Starting simulation")
	started := time.Now()

	var completed, degenerate atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for start := 0; start < total; start += trialsPerTask {
		end := min(start+trialsPerTask, total)
		g.Go(func() (err error) {
			i := start
			defer func() {
				if r := recover(); r != nil {
					err = &TrialError{Trial: i, Err: fmt.Errorf("panic: %v", r)}
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			for ; i < end; i++ {
				w := opts.Sampler.Sample(n, rand.NewPCG(seed, uint64(i)))
				m := evaluator.Evaluate(w)
				if m.Degenerate {
					if opts.DegeneratePolicy == DegenerateFail {
						return &TrialError{Trial: i, Err: ErrDegenerateRisk}
					}
					degenerate.Add(1)
					s.log.Debug().Int("trial", i).Msg("Degenerate risk, trial excluded from Sharpe selection")
				}
				result.Trials[i] = Trial{Weights: w, Metrics: m}
				result.SectorWeights[i] = aggregator.Aggregate(w)
			}
			done := completed.Add(int64(end - start))
			if opts.Progress != nil {
				opts.Progress(int(done), total)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("simulation aborted: %w", err)
	}

	result.Degenerate = int(degenerate.Load())

	s.log.Info().
		Int("trials", total).
		Int("degenerate", result.Degenerate).
		Dur("duration", time.Since(started)).
		Msg("Simulation completed")

	return result, nil
}

func checkAligned(stats *ReturnStatistics, u *universe.Universe) error {
	if stats == nil || u == nil {
		return fmt.Errorf("statistics and universe are required")
	}
	if stats.Len() != u.Len() {
		return fmt.Errorf("statistics cover %d assets, universe has %d", stats.Len(), u.Len())
	}
	for i, symbol := range u.Symbols() {
		if stats.Symbols[i] != symbol {
			return fmt.Errorf("statistics asset %d is %s, universe has %s", i, stats.Symbols[i], symbol)
		}
	}
	return nil
}
