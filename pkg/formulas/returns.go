package formulas

import "math"

// TradingDaysPerYear is the annualization convention for daily data.
const TradingDaysPerYear = 252

// DailyReturns converts a price series to simple returns.
// Returns[i] = (Price[i+1] - Price[i]) / Price[i]
//
// No guarding is applied: a zero or missing price yields a non-finite return,
// which callers are expected to detect with FirstNonFinite.
func DailyReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
	}
	return returns
}

// AnnualizeReturn compounds an average periodic return over the given number of periods.
// Formula: (1 + avg)^periods - 1
func AnnualizeReturn(avgPeriodicReturn float64, periods int) float64 {
	return math.Pow(1+avgPeriodicReturn, float64(periods)) - 1
}

// IsFinite reports whether v is neither NaN nor an infinity.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FirstNonFinite returns the index of the first NaN or infinite value, or -1.
func FirstNonFinite(values []float64) int {
	for i, v := range values {
		if !IsFinite(v) {
			return i
		}
	}
	return -1
}
