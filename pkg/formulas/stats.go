package formulas

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// ArgMax returns the index of the largest value, ignoring NaN entries.
// Ties resolve to the first index. ok is false when no comparable value exists.
func ArgMax(values []float64) (idx int, ok bool) {
	if !hasComparable(values) {
		return -1, false
	}
	return floats.MaxIdx(values), true
}

// ArgMin returns the index of the smallest value, ignoring NaN entries.
// Ties resolve to the first index. ok is false when no comparable value exists.
func ArgMin(values []float64) (idx int, ok bool) {
	if !hasComparable(values) {
		return -1, false
	}
	return floats.MinIdx(values), true
}

func hasComparable(values []float64) bool {
	for _, v := range values {
		if !math.IsNaN(v) {
			return true
		}
	}
	return false
}
