// Package handlers provides HTTP handlers for Monte Carlo simulation runs.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/modules/historical"
	"github.com/aristath/frontier/internal/modules/montecarlo"
	"github.com/aristath/frontier/internal/modules/universe"
)

const (
	defaultTrialsPageSize = 500
	maxTrialsPageSize     = 10000
)

// DataSource supplies the universe and aligned price history when a request omits them.
type DataSource interface {
	Universe(ctx context.Context) (*universe.Universe, error)
	Prices(ctx context.Context, symbols []string) (*historical.PriceSeries, error)
}

// RunStore executes and tracks simulation runs.
type RunStore interface {
	Submit(req montecarlo.RunRequest) (montecarlo.Run, error)
	Get(id string) (montecarlo.Run, error)
	Done(id string) (<-chan struct{}, error)
	List() []montecarlo.Run
}

// Defaults fills request fields the client left empty.
type Defaults struct {
	Trials           int
	MaxTrials        int // <= 0 uses montecarlo.DefaultMaxTrials
	Seed             uint64
	Workers          int
	Sampler          string
	DegeneratePolicy string
}

// Handler handles simulation HTTP requests
type Handler struct {
	runs     RunStore
	source   DataSource
	defaults Defaults
	log      zerolog.Logger
}

// NewHandler creates a new simulation handler. source may be nil, in which
// case every request must carry its own universe and prices.
func NewHandler(runs RunStore, source DataSource, defaults Defaults, log zerolog.Logger) *Handler {
	return &Handler{
		runs:     runs,
		source:   source,
		defaults: defaults,
		log:      log.With().Str("handler", "simulations").Logger(),
	}
}

// HandleCreateSimulation handles POST /api/simulations
func (h *Handler) HandleCreateSimulation(w http.ResponseWriter, r *http.Request) {
	var req SimulationRequest
	// An empty body runs the configured universe with default options.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	opts, err := h.options(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	u, prices, err := h.inputs(r.Context(), req)
	if err != nil {
		h.writeInputError(w, err)
		return
	}

	run, err := h.runs.Submit(montecarlo.RunRequest{
		Universe: u,
		Prices:   prices,
		Options:  opts,
		Source:   "api",
	})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to submit simulation")
		http.Error(w, "Failed to submit simulation", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Location", "/api/simulations/"+run.ID)
	h.writeJSON(w, http.StatusAccepted, toRunSummary(run))
}

// HandleListSimulations handles GET /api/simulations
func (h *Handler) HandleListSimulations(w http.ResponseWriter, r *http.Request) {
	runs := h.runs.List()
	summaries := make([]RunSummary, len(runs))
	for i, run := range runs {
		summaries[i] = toRunSummary(run)
	}

	h.writeResponse(w, r, http.StatusOK, map[string]interface{}{
		"runs":  summaries,
		"count": len(summaries),
	})
}

// HandleGetSimulation handles GET /api/simulations/{id}
func (h *Handler) HandleGetSimulation(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.writeResponse(w, r, http.StatusOK, toRunDetail(run))
}

// HandleGetPortfolios handles GET /api/simulations/{id}/portfolios
func (h *Handler) HandleGetPortfolios(w http.ResponseWriter, r *http.Request) {
	run, ok := h.completed(w, r)
	if !ok {
		return
	}
	h.writeResponse(w, r, http.StatusOK, map[string]interface{}{
		"run_id":     run.ID,
		"portfolios": toPortfolios(run.Outcome),
	})
}

// HandleGetTrials handles GET /api/simulations/{id}/trials?offset=&limit=
func (h *Handler) HandleGetTrials(w http.ResponseWriter, r *http.Request) {
	run, ok := h.completed(w, r)
	if !ok {
		return
	}

	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		http.Error(w, "offset must be a non-negative integer", http.StatusBadRequest)
		return
	}
	limit, err := queryInt(r, "limit", defaultTrialsPageSize)
	if err != nil || limit <= 0 {
		http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
		return
	}
	limit = min(limit, maxTrialsPageSize)

	result := run.Outcome.Result
	total := result.Len()
	start := min(offset, total)
	end := min(start+limit, total)

	trials := make([]TrialDTO, 0, end-start)
	for i := start; i < end; i++ {
		trials = append(trials, toTrial(i, result.Trials[i], result.SectorWeights[i]))
	}

	h.writeResponse(w, r, http.StatusOK, TrialsPage{
		RunID:   run.ID,
		Symbols: run.Outcome.Universe.Symbols(),
		Offset:  offset,
		Limit:   limit,
		Total:   total,
		Trials:  trials,
	})
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (montecarlo.Run, bool) {
	id := chi.URLParam(r, "id")
	run, err := h.runs.Get(id)
	if errors.Is(err, montecarlo.ErrRunNotFound) {
		http.Error(w, "Simulation not found", http.StatusNotFound)
		return montecarlo.Run{}, false
	}
	if err != nil {
		h.log.Error().Err(err).Str("run_id", id).Msg("Failed to get simulation")
		http.Error(w, "Failed to get simulation", http.StatusInternalServerError)
		return montecarlo.Run{}, false
	}
	return run, true
}

// completed resolves the run and rejects it with 409 unless it finished successfully.
func (h *Handler) completed(w http.ResponseWriter, r *http.Request) (montecarlo.Run, bool) {
	run, ok := h.lookup(w, r)
	if !ok {
		return run, false
	}
	switch run.Status {
	case montecarlo.RunCompleted:
		return run, true
	case montecarlo.RunFailed:
		http.Error(w, "Simulation failed: "+run.Error, http.StatusConflict)
	default:
		http.Error(w, "Simulation is still "+string(run.Status), http.StatusConflict)
	}
	return run, false
}

func (h *Handler) options(req SimulationRequest) (montecarlo.Options, error) {
	opts := montecarlo.Options{
		Trials:    req.Trials,
		MaxTrials: h.defaults.MaxTrials,
		Seed:      req.Seed,
		Workers:   req.Workers,
	}
	if opts.Trials == 0 {
		opts.Trials = h.defaults.Trials
	}
	if opts.Trials == 0 {
		opts.Trials = montecarlo.DefaultTrials
	}
	if opts.Trials < 0 {
		return opts, errors.New("trials must be positive")
	}
	if err := opts.CheckTrials(); err != nil {
		return opts, err
	}
	if opts.Seed == 0 {
		opts.Seed = h.defaults.Seed
	}
	if opts.Workers == 0 {
		opts.Workers = h.defaults.Workers
	}

	samplerName := req.Sampler
	if samplerName == "" {
		samplerName = h.defaults.Sampler
	}
	sampler, err := montecarlo.SamplerByName(samplerName)
	if err != nil {
		return opts, err
	}
	opts.Sampler = sampler

	policyName := req.DegeneratePolicy
	if policyName == "" {
		policyName = h.defaults.DegeneratePolicy
	}
	policy, err := montecarlo.ParseDegeneratePolicy(policyName)
	if err != nil {
		return opts, err
	}
	opts.DegeneratePolicy = policy

	return opts, nil
}

// inputs resolves the universe and prices of a request, falling back to the data source.
func (h *Handler) inputs(ctx context.Context, req SimulationRequest) (*universe.Universe, *historical.PriceSeries, error) {
	var u *universe.Universe
	var err error

	if len(req.Universe) > 0 {
		u, err = universe.New(req.Universe)
	} else if h.source != nil {
		u, err = h.source.Universe(ctx)
	} else {
		err = universe.ErrEmptyUniverse
	}
	if err != nil {
		return nil, nil, err
	}

	var prices *historical.PriceSeries
	if len(req.Prices) > 0 {
		prices, err = historical.NewPriceSeries(nil, req.Prices)
	} else if h.source != nil {
		prices, err = h.source.Prices(ctx, u.Symbols())
	} else {
		err = historical.ErrMissingSeries
	}
	if err != nil {
		return nil, nil, err
	}

	if err := prices.Require(u.Symbols()); err != nil {
		return nil, nil, err
	}
	return u, prices, nil
}

func (h *Handler) writeInputError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, universe.ErrEmptyUniverse),
		errors.Is(err, universe.ErrDuplicateSymbol),
		errors.Is(err, universe.ErrEmptySymbol),
		errors.Is(err, historical.ErrMissingSeries),
		errors.Is(err, historical.ErrMisaligned):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		h.log.Error().Err(err).Msg("Failed to load simulation inputs")
		http.Error(w, "Failed to load simulation inputs", http.StatusInternalServerError)
	}
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
