// Package handlers provides HTTP handlers for universe management.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/modules/universe"
)

// SecurityStore is the universe table.
type SecurityStore interface {
	Load(ctx context.Context) (*universe.Universe, error)
	Upsert(ctx context.Context, asset universe.Asset) error
	Delete(ctx context.Context, symbol string) error
}

// UniverseHandlers contains HTTP handlers for universe API
type UniverseHandlers struct {
	store SecurityStore
	log   zerolog.Logger
}

// NewUniverseHandlers creates a new universe handlers instance
func NewUniverseHandlers(store SecurityStore, log zerolog.Logger) *UniverseHandlers {
	return &UniverseHandlers{
		store: store,
		log:   log.With().Str("module", "universe_handlers").Logger(),
	}
}

// RegisterRoutes registers universe routes
func (h *UniverseHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/universe", func(r chi.Router) {
		r.Get("/", h.HandleGetUniverse)
		r.Post("/import", h.HandleImportCSV)
		r.Put("/securities/{symbol}", h.HandleUpsertSecurity)
		r.Delete("/securities/{symbol}", h.HandleDeleteSecurity)
	})
}

// HandleGetUniverse returns every asset with its sector, in simulation order.
// GET /api/universe
func (h *UniverseHandlers) HandleGetUniverse(w http.ResponseWriter, r *http.Request) {
	u, err := h.store.Load(r.Context())
	if errors.Is(err, universe.ErrEmptyUniverse) {
		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"assets":  []universe.Asset{},
			"sectors": []string{},
			"count":   0,
		})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load universe")
		http.Error(w, "Failed to load universe", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"assets":  u.Assets(),
		"sectors": u.Sectors(),
		"count":   u.Len(),
	})
}

// HandleUpsertSecurity creates a security or changes its sector.
// PUT /api/universe/securities/{symbol}
func (h *UniverseHandlers) HandleUpsertSecurity(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "symbol")))
	if symbol == "" {
		http.Error(w, "Symbol is required", http.StatusBadRequest)
		return
	}

	var req struct {
		Sector string `json:"sector"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	asset := universe.Asset{Symbol: symbol, Sector: strings.TrimSpace(req.Sector)}
	if err := h.store.Upsert(r.Context(), asset); err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to upsert security")
		http.Error(w, "Failed to save security", http.StatusInternalServerError)
		return
	}

	h.log.Info().Str("symbol", symbol).Str("sector", asset.Sector).Msg("Security saved")
	h.writeJSON(w, http.StatusOK, asset)
}

// HandleDeleteSecurity removes a security from the universe.
// DELETE /api/universe/securities/{symbol}
func (h *UniverseHandlers) HandleDeleteSecurity(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "symbol")))

	if err := h.store.Delete(r.Context(), symbol); err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to delete security")
		http.Error(w, "Failed to delete security", http.StatusInternalServerError)
		return
	}

	h.log.Info().Str("symbol", symbol).Msg("Security deleted")
	w.WriteHeader(http.StatusNoContent)
}

// HandleImportCSV upserts every row of a symbol,sector CSV body.
// POST /api/universe/import
func (h *UniverseHandlers) HandleImportCSV(w http.ResponseWriter, r *http.Request) {
	u, err := universe.ParseCSV(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	for _, asset := range u.Assets() {
		if err := h.store.Upsert(r.Context(), asset); err != nil {
			h.log.Error().Err(err).Str("symbol", asset.Symbol).Msg("Failed to import security")
			http.Error(w, "Failed to import universe", http.StatusInternalServerError)
			return
		}
	}

	h.log.Info().Int("assets", u.Len()).Msg("Universe imported")
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"imported": u.Len(),
		"sectors":  u.Sectors(),
	})
}

func (h *UniverseHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
