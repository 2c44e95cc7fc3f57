package historical

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// HistoryRepository reads daily closes from history.db.
type HistoryRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// DailyPrice represents one daily close
type DailyPrice struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// NewHistoryRepository creates a new history database accessor
func NewHistoryRepository(db *sql.DB, log zerolog.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:  db,
		log: log.With().Str("repo", "history").Logger(),
	}
}

// GetDailyPrices fetches closes for symbol on or after since, oldest first.
func (r *HistoryRepository) GetDailyPrices(ctx context.Context, symbol string, since time.Time) ([]DailyPrice, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT date, close
		FROM daily_prices
		WHERE symbol = ? AND date >= ?
		ORDER BY date ASC
	`, strings.ToUpper(symbol), since.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	var prices []DailyPrice
	for rows.Next() {
		var dateUnix int64
		var p DailyPrice
		if err := rows.Scan(&dateUnix, &p.Close); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}
		p.Date = time.Unix(dateUnix, 0).UTC()
		prices = append(prices, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}

	return prices, nil
}

// LoadWindow loads the trailing window of closes for symbols ending at now and
// returns them as one aligned PriceSeries. Every symbol must carry exactly the
// same dates; the first divergence is reported as ErrMisaligned.
func (r *HistoryRepository) LoadWindow(ctx context.Context, symbols []string, years int, now time.Time) (*PriceSeries, error) {
	if years <= 0 {
		return nil, fmt.Errorf("window must be at least one year, got %d", years)
	}
	since := now.AddDate(-years, 0, 0)

	var dates []time.Time
	closes := make(map[string][]float64, len(symbols))

	for i, symbol := range symbols {
		prices, err := r.GetDailyPrices(ctx, symbol, since)
		if err != nil {
			return nil, fmt.Errorf("failed to load prices for %s: %w", symbol, err)
		}
		if len(prices) == 0 {
			return nil, fmt.Errorf("%w: %s has no prices since %s", ErrMissingSeries, symbol, since.Format(dateLayout))
		}

		series := make([]float64, len(prices))
		symbolDates := make([]time.Time, len(prices))
		for j, p := range prices {
			series[j] = p.Close
			symbolDates[j] = p.Date
		}

		if i == 0 {
			dates = symbolDates
		} else if err := sameDates(dates, symbolDates); err != nil {
			return nil, fmt.Errorf("%w: %s vs %s: %v", ErrMisaligned, symbols[0], symbol, err)
		}
		closes[symbol] = series
	}

	r.log.Debug().
		Int("symbols", len(symbols)).
		Int("observations", len(dates)).
		Time("since", since).
		Msg("Loaded price window")

	return NewPriceSeries(dates, closes)
}

// InsertDailyPrices writes closes for symbol, replacing existing rows for the same dates.
func (r *HistoryRepository) InsertDailyPrices(ctx context.Context, symbol string, prices []DailyPrice) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO daily_prices (symbol, date, close) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range prices {
		if _, err := stmt.ExecContext(ctx, strings.ToUpper(symbol), p.Date.Unix(), p.Close); err != nil {
			return fmt.Errorf("failed to insert price for %s on %s: %w", symbol, p.Date.Format(dateLayout), err)
		}
	}

	return tx.Commit()
}

func sameDates(a, b []time.Time) error {
	if len(a) != len(b) {
		return fmt.Errorf("%d vs %d observations", len(a), len(b))
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return fmt.Errorf("date %s vs %s at observation %d", a[i].Format(dateLayout), b[i].Format(dateLayout), i)
		}
	}
	return nil
}
