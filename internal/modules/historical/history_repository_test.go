package historical_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/frontier/internal/modules/historical"
	testingpkg "github.com/aristath/frontier/internal/testing"
)

func newRepo(t *testing.T) *historical.HistoryRepository {
	t.Helper()
	db, cleanup := testingpkg.NewTestDB(t, "history")
	t.Cleanup(cleanup)
	return historical.NewHistoryRepository(db.Conn(), zerolog.Nop())
}

func dailyPrices(start time.Time, closes ...float64) []historical.DailyPrice {
	out := make([]historical.DailyPrice, len(closes))
	for i, c := range closes {
		out[i] = historical.DailyPrice{Date: start.AddDate(0, 0, i), Close: c}
	}
	return out
}

func TestHistoryRepository_InsertAndGet(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.InsertDailyPrices(ctx, "aapl", dailyPrices(start, 10, 11, 12)))
	// Replacing a date overwrites its close.
	require.NoError(t, repo.InsertDailyPrices(ctx, "AAPL", dailyPrices(start.AddDate(0, 0, 2), 13)))

	prices, err := repo.GetDailyPrices(ctx, "AAPL", start.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.Equal(t, start.AddDate(0, 0, 1), prices[0].Date)
	assert.Equal(t, 11.0, prices[0].Close)
	assert.Equal(t, 13.0, prices[1].Close)
}

func TestHistoryRepository_LoadWindow(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	start := now.AddDate(0, 0, -5)

	require.NoError(t, repo.InsertDailyPrices(ctx, "AAPL", dailyPrices(start, 1, 2, 3)))
	require.NoError(t, repo.InsertDailyPrices(ctx, "MSFT", dailyPrices(start, 4, 5, 6)))
	require.NoError(t, repo.InsertDailyPrices(ctx, "XOM", dailyPrices(start.AddDate(0, 0, 1), 7, 8, 9)))
	// Outside a one-year window.
	require.NoError(t, repo.InsertDailyPrices(ctx, "AAPL", dailyPrices(now.AddDate(-2, 0, 0), 0.5)))

	t.Run("aligned", func(t *testing.T) {
		ps, err := repo.LoadWindow(ctx, []string{"AAPL", "MSFT"}, 1, now)
		require.NoError(t, err)
		assert.Equal(t, 3, ps.Len())
		closes, ok := ps.Closes("AAPL")
		require.True(t, ok)
		assert.Equal(t, []float64{1, 2, 3}, closes)
		assert.Equal(t, start, ps.Dates()[0])
	})

	t.Run("misaligned", func(t *testing.T) {
		_, err := repo.LoadWindow(ctx, []string{"AAPL", "XOM"}, 1, now)
		assert.ErrorIs(t, err, historical.ErrMisaligned)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := repo.LoadWindow(ctx, []string{"AAPL", "JNJ"}, 1, now)
		assert.ErrorIs(t, err, historical.ErrMissingSeries)
	})

	t.Run("bad window", func(t *testing.T) {
		_, err := repo.LoadWindow(ctx, []string{"AAPL"}, 0, now)
		assert.Error(t, err)
	})
}
