package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/frontier/internal/config"
	"github.com/aristath/frontier/internal/di"
	"github.com/aristath/frontier/internal/modules/historical"
	"github.com/aristath/frontier/internal/modules/montecarlo"
	"github.com/aristath/frontier/internal/modules/report"
	"github.com/aristath/frontier/internal/modules/universe"
)

// maxListedAnomalies caps the abnormal closes printed before the report.
const maxListedAnomalies = 10

type simulateOptions struct {
	universeCSV string
	pricesCSV   string
	trials      int
	seed        uint64
	workers     int
	sampler     string
	policy      string
	years       int
	top         int
	hideZero    bool
}

func newSimulateCmd(root *rootOptions) *cobra.Command {
	opts := &simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a simulation and print the selected portfolios",
		Long: `Runs one Monte Carlo simulation and prints the Max Sharpe Ratio,
Max Return and Min Risk portfolios.

The universe and prices come from CSV files when given. Otherwise they are
read from the universe and history databases under FRONTIER_DATA_DIR.

Universe CSV: header with "symbol" and "sector" columns.
Prices CSV:   "date,SYM1,SYM2,..." with one row per trading day, oldest first.

Example:
  frontier simulate --universe stocks_data.csv --prices closes.csv --trials 20000 --seed 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.universeCSV, "universe", "", "universe CSV (default: universe database)")
	f.StringVar(&opts.pricesCSV, "prices", "", "close-price CSV (default: history database)")
	f.IntVarP(&opts.trials, "trials", "n", montecarlo.DefaultTrials, "number of trials")
	f.Uint64Var(&opts.seed, "seed", 0, "base seed (0 derives one from the clock)")
	f.IntVar(&opts.workers, "workers", 0, "parallel workers (default: number of CPUs)")
	f.StringVar(&opts.sampler, "sampler", montecarlo.SamplerUniform, "weight sampler (uniform|dirichlet)")
	f.StringVar(&opts.policy, "degenerate", string(montecarlo.DegenerateExclude), "zero-risk trial policy (exclude|fail)")
	f.IntVar(&opts.years, "years", 0, "history window in years when reading the database (default: FRONTIER_HISTORY_YEARS)")
	f.IntVar(&opts.top, "top", 0, "list only the largest N asset weights per portfolio")
	f.BoolVar(&opts.hideZero, "hide-zero", false, "omit sectors and assets below 0.05%")

	return cmd
}

func runSimulate(cmd *cobra.Command, root *rootOptions, opts *simulateOptions) error {
	log := root.logger(cmd)
	ctx := cmd.Context()

	sampler, err := montecarlo.SamplerByName(opts.sampler)
	if err != nil {
		return err
	}
	policy, err := montecarlo.ParseDegeneratePolicy(opts.policy)
	if err != nil {
		return err
	}

	u, prices, err := loadSimulationInputs(ctx, opts, log)
	if err != nil {
		return err
	}

	if opts.pricesCSV != "" {
		anomalies := historical.NewPriceValidator(log).Validate(prices)
		printAnomalies(cmd.ErrOrStderr(), anomalies)
	}

	outcome, err := montecarlo.NewService(log).Run(ctx, u, prices, montecarlo.Options{
		Trials:           opts.trials,
		Seed:             opts.seed,
		Workers:          opts.workers,
		Sampler:          sampler,
		DegeneratePolicy: policy,
	})
	if err != nil {
		return err
	}

	return report.Write(cmd.OutOrStdout(), outcome, report.Options{
		TopAssets: opts.top,
		HideZero:  opts.hideZero,
	})
}

// loadSimulationInputs reads CSV inputs when given and falls back to the
// configured databases for whatever is missing.
func loadSimulationInputs(ctx context.Context, opts *simulateOptions, log zerolog.Logger) (*universe.Universe, *historical.PriceSeries, error) {
	var u *universe.Universe
	var prices *historical.PriceSeries
	var err error

	if opts.universeCSV != "" {
		if u, err = universe.LoadCSV(opts.universeCSV); err != nil {
			return nil, nil, err
		}
	}
	if opts.pricesCSV != "" {
		if prices, err = historical.LoadCSV(opts.pricesCSV); err != nil {
			return nil, nil, err
		}
	}
	if u != nil && prices != nil {
		return u, prices, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.years > 0 {
		cfg.Simulation.HistoryYears = opts.years
	}
	if opts.universeCSV != "" {
		cfg.Simulation.UniverseCSV = opts.universeCSV
	}

	container, err := di.Wire(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	defer container.Close()

	if u == nil {
		if u, err = container.InputSource.Universe(ctx); err != nil {
			return nil, nil, err
		}
	}
	if prices == nil {
		if prices, err = container.InputSource.Prices(ctx, u.Symbols()); err != nil {
			return nil, nil, err
		}
	}
	return u, prices, nil
}

func printAnomalies(w io.Writer, anomalies []historical.Anomaly) {
	if len(anomalies) == 0 {
		return
	}
	fmt.Fprintf(w, "warning: %s abnormal closes in price history\n", humanize.Comma(int64(len(anomalies))))
	for i, a := range anomalies {
		if i == maxListedAnomalies {
			fmt.Fprintf(w, "  ... and %s more\n", humanize.Comma(int64(len(anomalies)-i)))
			break
		}
		date := fmt.Sprintf("row %d", a.Index)
		if !a.Date.IsZero() {
			date = a.Date.Format("2006-01-02")
		}
		fmt.Fprintf(w, "  %s %s close=%g (%s)\n", a.Symbol, date, a.Close, a.Reason)
	}
	fmt.Fprintln(w)
}
