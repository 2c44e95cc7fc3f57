package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDailyReturns(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		want   []float64
	}{
		{"empty", nil, []float64{}},
		{"single price", []float64{100}, []float64{}},
		{"two prices", []float64{100, 110}, []float64{0.10}},
		{"up then down", []float64{100, 110, 99}, []float64{0.10, -0.10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DailyReturns(tt.prices)
			assert.InDeltaSlice(t, tt.want, got, 1e-12)
		})
	}
}

func TestDailyReturns_ZeroPriceIsNotMasked(t *testing.T) {
	got := DailyReturns([]float64{0, 10, 20})
	assert.True(t, math.IsInf(got[0], 1))
	assert.Equal(t, 0, FirstNonFinite(got))
}

func TestAnnualizeReturn(t *testing.T) {
	assert.InDelta(t, 0.0, AnnualizeReturn(0, TradingDaysPerYear), 1e-12)
	assert.InDelta(t, math.Pow(1.001, 252)-1, AnnualizeReturn(0.001, TradingDaysPerYear), 1e-12)
	assert.Less(t, AnnualizeReturn(-0.001, TradingDaysPerYear), 0.0)
}

func TestFirstNonFinite(t *testing.T) {
	assert.Equal(t, -1, FirstNonFinite([]float64{1, 2, 3}))
	assert.Equal(t, 1, FirstNonFinite([]float64{1, math.NaN(), math.Inf(1)}))
	assert.Equal(t, 2, FirstNonFinite([]float64{1, 2, math.Inf(-1)}))
}
