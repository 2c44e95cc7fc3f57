// Package report renders the selected portfolios of a simulation as text.
package report

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/aristath/frontier/internal/modules/montecarlo"
)

// Options controls what Write includes.
type Options struct {
	// TopAssets limits the asset list of each portfolio; 0 lists every asset.
	TopAssets int
	// HideZero drops sectors and assets whose weight rounds to 0.0%.
	HideZero bool
}

// Render returns the report for outcome as a string.
func Render(outcome *montecarlo.Outcome, opts Options) (string, error) {
	var buf bytes.Buffer
	if err := Write(&buf, outcome, opts); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Write prints a run header followed by the Max Sharpe Ratio, Max Return and
// Min Risk portfolios. Return, risk and Sharpe are percentages with two
// decimals; sector and asset weights are percentages with one decimal, sorted
// by descending weight.
func Write(w io.Writer, outcome *montecarlo.Outcome, opts Options) error {
	if outcome == nil || outcome.Selection == nil {
		return fmt.Errorf("no simulation outcome to report")
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	result := outcome.Result
	fmt.Fprintf(tw, "Trials:\t%s\n", humanize.Comma(int64(result.Len())))
	fmt.Fprintf(tw, "Assets:\t%d (%d sectors)\n", outcome.Universe.Len(), len(outcome.Universe.Sectors()))
	fmt.Fprintf(tw, "Observations:\t%s daily returns\n", humanize.Comma(int64(outcome.Statistics.Observations)))
	fmt.Fprintf(tw, "Sampler:\t%s\n", result.Sampler)
	fmt.Fprintf(tw, "Seed:\t%d\n", result.Seed)
	if result.Degenerate > 0 {
		fmt.Fprintf(tw, "Degenerate trials:\t%s\n", humanize.Comma(int64(result.Degenerate)))
	}
	if outcome.Duration > 0 {
		fmt.Fprintf(tw, "Duration:\t%s\n", outcome.Duration.Round(1e6))
	}

	for _, p := range outcome.Selection.All() {
		fmt.Fprintf(tw, "\n%s (trial %s)\n", p.Label, humanize.Comma(int64(p.Trial)))
		fmt.Fprintln(tw, strings.Repeat("-", len(p.Label)))
		fmt.Fprintf(tw, "Return:\t%s\n", percent(p.Metrics.Return, 2))
		fmt.Fprintf(tw, "Risk:\t%s\n", percent(p.Metrics.Risk, 2))
		fmt.Fprintf(tw, "Sharpe:\t%s\n", percent(p.Metrics.Sharpe, 2))

		fmt.Fprintln(tw, "\nSector weights:")
		for _, s := range p.SectorWeights.Sorted() {
			if opts.HideZero && roundsToZero(s.Weight) {
				continue
			}
			fmt.Fprintf(tw, "  %s\t%s\n", sectorName(s.Sector), percent(s.Weight, 1))
		}

		fmt.Fprintln(tw, "\nAsset weights:")
		for i, a := range assetWeights(outcome, p) {
			if opts.TopAssets > 0 && i >= opts.TopAssets {
				break
			}
			if opts.HideZero && roundsToZero(a.weight) {
				continue
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", a.symbol, sectorName(a.sector), percent(a.weight, 1))
		}
	}

	return tw.Flush()
}

type assetWeight struct {
	symbol string
	sector string
	weight float64
}

func assetWeights(outcome *montecarlo.Outcome, p montecarlo.SelectedPortfolio) []assetWeight {
	out := make([]assetWeight, len(p.AssetWeights))
	for i, w := range p.AssetWeights {
		a := outcome.Universe.Asset(i)
		out[i] = assetWeight{symbol: a.Symbol, sector: a.Sector, weight: w}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].weight > out[j].weight
	})
	return out
}

func percent(v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.*f%%", decimals, v*100)
}

func roundsToZero(v float64) bool {
	return math.Abs(v*100) < 0.05
}

func sectorName(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
