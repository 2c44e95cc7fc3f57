// Package handlers provides HTTP handlers for historical price data.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/modules/historical"
	"github.com/aristath/frontier/internal/modules/montecarlo"
	"github.com/aristath/frontier/internal/modules/universe"
	"github.com/aristath/frontier/pkg/formulas"
)

// defaultYears is the trailing window used when no years parameter is given.
const defaultYears = 10

// PriceReader is the read side of the history database.
type PriceReader interface {
	GetDailyPrices(ctx context.Context, symbol string, since time.Time) ([]historical.DailyPrice, error)
	LoadWindow(ctx context.Context, symbols []string, years int, now time.Time) (*historical.PriceSeries, error)
}

// Handler handles historical data HTTP requests
type Handler struct {
	prices PriceReader
	log    zerolog.Logger
}

// NewHandler creates a new historical data handler
func NewHandler(prices PriceReader, log zerolog.Logger) *Handler {
	return &Handler{
		prices: prices,
		log:    log.With().Str("handler", "historical").Logger(),
	}
}

// HandleGetDailyPrices handles GET /api/historical/prices/daily/{symbol}
func (h *Handler) HandleGetDailyPrices(w http.ResponseWriter, r *http.Request, symbol string) {
	since := time.Now().AddDate(-parseYears(r), 0, 0)

	prices, err := h.prices.GetDailyPrices(r.Context(), symbol, since)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get daily prices")
		http.Error(w, "Failed to get daily prices", http.StatusInternalServerError)
		return
	}
	if prices == nil {
		prices = []historical.DailyPrice{}
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"symbol": strings.ToUpper(symbol),
			"prices": prices,
			"count":  len(prices),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"since":     since.Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetDailyReturns handles GET /api/historical/returns/daily/{symbol}
func (h *Handler) HandleGetDailyReturns(w http.ResponseWriter, r *http.Request, symbol string) {
	since := time.Now().AddDate(-parseYears(r), 0, 0)

	prices, err := h.prices.GetDailyPrices(r.Context(), symbol, since)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get daily prices")
		http.Error(w, "Failed to get daily prices", http.StatusInternalServerError)
		return
	}

	returns := calculateReturns(prices)

	var annualized interface{}
	if len(returns) > 0 {
		daily := make([]float64, len(returns))
		for i, ret := range returns {
			daily[i] = ret.Return
		}
		value := formulas.AnnualizeReturn(formulas.Mean(daily), formulas.TradingDaysPerYear)
		if formulas.IsFinite(value) {
			annualized = value
		}
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"symbol":            strings.ToUpper(symbol),
			"returns":           returns,
			"count":             len(returns),
			"annualized_return": annualized,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetCorrelationMatrix handles GET /api/historical/returns/correlation-matrix?symbols=A,B
//
// The matrix is computed exactly as a simulation would see it.
func (h *Handler) HandleGetCorrelationMatrix(w http.ResponseWriter, r *http.Request) {
	symbolsStr := r.URL.Query().Get("symbols")
	if symbolsStr == "" {
		http.Error(w, "symbols parameter is required", http.StatusBadRequest)
		return
	}

	var assets []universe.Asset
	for _, s := range strings.Split(symbolsStr, ",") {
		if s = strings.TrimSpace(s); s != "" {
			assets = append(assets, universe.Asset{Symbol: s})
		}
	}
	u, err := universe.New(assets)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	series, err := h.prices.LoadWindow(r.Context(), u.Symbols(), parseYears(r), time.Now())
	if err != nil {
		h.writeStatisticsError(w, err)
		return
	}

	stats, err := montecarlo.ComputeStatistics(u, series)
	if err != nil {
		h.writeStatisticsError(w, err)
		return
	}

	returns := make(map[string]float64, stats.Len())
	for i, symbol := range stats.Symbols {
		returns[symbol] = stats.AnnualizedReturns[i]
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"symbols":            stats.Symbols,
			"correlation_matrix": stats.CorrelationRows(),
			"annualized_returns": returns,
			"observations":       stats.Observations,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

func (h *Handler) writeStatisticsError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, historical.ErrMissingSeries),
		errors.Is(err, historical.ErrMisaligned),
		errors.Is(err, montecarlo.ErrInsufficientHistory),
		errors.Is(err, montecarlo.ErrInvalidStatistics):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		h.log.Error().Err(err).Msg("Failed to compute correlation matrix")
		http.Error(w, "Failed to compute correlation matrix", http.StatusInternalServerError)
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// DailyReturn is one simple return between consecutive closes.
type DailyReturn struct {
	Date   time.Time `json:"date"`
	Return float64   `json:"return"`
}

// calculateReturns calculates simple returns from an oldest-first price series.
// Pairs with a non-positive previous close are skipped.
func calculateReturns(prices []historical.DailyPrice) []DailyReturn {
	returns := make([]DailyReturn, 0, len(prices))

	for i := 1; i < len(prices); i++ {
		previous := prices[i-1].Close
		if previous <= 0 {
			continue
		}
		returns = append(returns, DailyReturn{
			Date:   prices[i].Date,
			Return: (prices[i].Close - previous) / previous,
		})
	}

	return returns
}

func parseYears(r *http.Request) int {
	if yearsStr := r.URL.Query().Get("years"); yearsStr != "" {
		if years, err := strconv.Atoi(yearsStr); err == nil && years > 0 {
			return years
		}
	}
	return defaultYears
}
