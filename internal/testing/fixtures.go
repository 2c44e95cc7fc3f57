package testing

import (
	"math"
	"time"

	"github.com/aristath/frontier/internal/modules/historical"
	"github.com/aristath/frontier/internal/modules/universe"
)

// NewAssetFixtures returns a small four-asset, three-sector universe table.
func NewAssetFixtures() []universe.Asset {
	return []universe.Asset{
		{Symbol: "AAPL", Sector: "Technology"},
		{Symbol: "MSFT", Sector: "Technology"},
		{Symbol: "JNJ", Sector: "Healthcare"},
		{Symbol: "XOM", Sector: "Energy"},
	}
}

// NewUniverseFixture builds a Universe from NewAssetFixtures.
func NewUniverseFixture() *universe.Universe {
	u, err := universe.New(NewAssetFixtures())
	if err != nil {
		panic(err)
	}
	return u
}

// NewPriceFixtures returns deterministic, aligned close-price series for the
// fixture universe over the given number of trading days. Each series follows
// a distinct drift and oscillation so that pairwise correlations are finite
// and not degenerate.
func NewPriceFixtures(days int) *historical.PriceSeries {
	start := time.Date(2015, 1, 2, 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, days)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}

	params := []struct {
		symbol string
		base   float64
		drift  float64
		amp    float64
		period float64
	}{
		{"AAPL", 100, 0.0006, 0.012, 7},
		{"MSFT", 80, 0.0005, 0.010, 11},
		{"JNJ", 150, 0.0002, 0.006, 5},
		{"XOM", 60, 0.0001, 0.015, 13},
	}

	closes := make(map[string][]float64, len(params))
	for _, p := range params {
		series := make([]float64, days)
		price := p.base
		for i := range series {
			if i > 0 {
				price *= 1 + p.drift + p.amp*math.Sin(float64(i)*2*math.Pi/p.period)
			}
			series[i] = price
		}
		closes[p.symbol] = series
	}

	ps, err := historical.NewPriceSeries(dates, closes)
	if err != nil {
		panic(err)
	}
	return ps
}
