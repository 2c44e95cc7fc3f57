package historical

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPriceSeries(t *testing.T) {
	d0 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	d1 := d0.AddDate(0, 0, 1)

	t.Run("valid", func(t *testing.T) {
		ps, err := NewPriceSeries([]time.Time{d0, d1}, map[string][]float64{
			"aapl": {1, 2},
			"MSFT": {3, 4},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, ps.Len())
		assert.Equal(t, []string{"AAPL", "MSFT"}, ps.Symbols())

		closes, ok := ps.Closes("Aapl")
		require.True(t, ok)
		assert.Equal(t, []float64{1, 2}, closes)
	})

	t.Run("copies input", func(t *testing.T) {
		input := []float64{1, 2}
		ps, err := NewPriceSeries(nil, map[string][]float64{"A": input})
		require.NoError(t, err)
		input[0] = 99
		closes, _ := ps.Closes("A")
		assert.Equal(t, 1.0, closes[0])
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := NewPriceSeries([]time.Time{d0, d1}, map[string][]float64{"A": {1}})
		assert.ErrorIs(t, err, ErrMisaligned)
	})

	t.Run("length mismatch without dates", func(t *testing.T) {
		_, err := NewPriceSeries(nil, map[string][]float64{"A": {1, 2}, "B": {1}})
		assert.ErrorIs(t, err, ErrMisaligned)
	})

	t.Run("dates out of order", func(t *testing.T) {
		_, err := NewPriceSeries([]time.Time{d1, d0}, map[string][]float64{"A": {1, 2}})
		assert.ErrorIs(t, err, ErrMisaligned)
	})

	t.Run("duplicate after upper-casing", func(t *testing.T) {
		_, err := NewPriceSeries(nil, map[string][]float64{"abc": {1}, "ABC": {2}})
		assert.Error(t, err)
	})
}

func TestPriceSeries_Require(t *testing.T) {
	ps, err := NewPriceSeries(nil, map[string][]float64{"A": {1, 2}})
	require.NoError(t, err)

	assert.NoError(t, ps.Require([]string{"a"}))
	assert.ErrorIs(t, ps.Require([]string{"A", "B"}), ErrMissingSeries)
}
