package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/frontier/internal/modules/historical"
	"github.com/aristath/frontier/internal/modules/montecarlo"
	"github.com/aristath/frontier/internal/modules/universe"
	testingpkg "github.com/aristath/frontier/internal/testing"
)

type fixtureSource struct {
	err error
}

func (s fixtureSource) Universe(ctx context.Context) (*universe.Universe, error) {
	if s.err != nil {
		return nil, s.err
	}
	return testingpkg.NewUniverseFixture(), nil
}

func (s fixtureSource) Prices(ctx context.Context, symbols []string) (*historical.PriceSeries, error) {
	if s.err != nil {
		return nil, s.err
	}
	return testingpkg.NewPriceFixtures(120), nil
}

type testEnv struct {
	router *chi.Mux
	runs   *montecarlo.RunManager
}

func setupTestEnv(t *testing.T, source DataSource) *testEnv {
	t.Helper()
	logger := zerolog.New(nil).Level(zerolog.Disabled)

	runs := montecarlo.NewRunManager(montecarlo.NewService(logger), 10, logger)
	t.Cleanup(runs.Close)

	handler := NewHandler(runs, source, Defaults{Trials: 300, MaxTrials: 2000, Seed: 42, Workers: 2}, logger)
	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		handler.RegisterRoutes(r)
	})
	return &testEnv{router: router, runs: runs}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) submit(t *testing.T, body string) RunSummary {
	t.Helper()
	w := e.do(t, "POST", "/api/simulations", body)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var summary RunSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	require.NotEmpty(t, summary.ID)
	assert.Equal(t, "/api/simulations/"+summary.ID, w.Header().Get("Location"))
	return summary
}

func (e *testEnv) wait(t *testing.T, id string) montecarlo.Run {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	run, err := e.runs.Wait(ctx, id)
	require.NoError(t, err)
	return run
}

const scenarioBody = `{
	"universe": [
		{"symbol": "A", "sector": "Tech"},
		{"symbol": "B", "sector": "Tech"},
		{"symbol": "C", "sector": "Health"}
	],
	"prices": {
		"A": [100, 101, 99, 102, 104, 103],
		"B": [50, 49, 51, 52, 50, 53],
		"C": [20, 20.5, 20.2, 20.9, 21.3, 21.0]
	},
	"trials": 250,
	"seed": 9,
	"sampler": "dirichlet"
}`

func TestCreateSimulation_WithInlineInputs(t *testing.T) {
	env := setupTestEnv(t, nil)

	summary := env.submit(t, scenarioBody)
	assert.Equal(t, 250, summary.Trials)
	assert.Equal(t, "api", summary.Source)

	run := env.wait(t, summary.ID)
	require.Equal(t, montecarlo.RunCompleted, run.Status, run.Error)

	w := env.do(t, "GET", "/api/simulations/"+summary.ID, "")
	require.Equal(t, http.StatusOK, w.Code)

	var detail RunDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, "completed", detail.Status)
	assert.Equal(t, 1.0, detail.Progress)
	assert.Equal(t, uint64(9), detail.Seed)
	assert.Equal(t, montecarlo.SamplerDirichlet, detail.Sampler)
	require.Len(t, detail.Portfolios, 3)
	assert.Equal(t, string(montecarlo.LabelMaxSharpe), detail.Portfolios[0].Label)
	assert.Equal(t, string(montecarlo.LabelMaxReturn), detail.Portfolios[1].Label)
	assert.Equal(t, string(montecarlo.LabelMinRisk), detail.Portfolios[2].Label)
	require.NotNil(t, detail.Statistics)
	assert.Equal(t, []string{"A", "B", "C"}, detail.Statistics.Symbols)
	assert.Equal(t, 5, detail.Statistics.Observations)

	for _, p := range detail.Portfolios {
		require.NotNil(t, p.Sharpe)
		require.Len(t, p.AssetWeights, 3)
		for i := 1; i < len(p.AssetWeights); i++ {
			assert.GreaterOrEqual(t, p.AssetWeights[i-1].Weight, p.AssetWeights[i].Weight)
		}
		require.Len(t, p.SectorWeights, 2)
		assert.GreaterOrEqual(t, p.SectorWeights[0].Weight, p.SectorWeights[1].Weight)
	}
}

func TestCreateSimulation_FromDataSource(t *testing.T) {
	env := setupTestEnv(t, fixtureSource{})

	summary := env.submit(t, "")
	assert.Equal(t, 300, summary.Trials)

	run := env.wait(t, summary.ID)
	require.Equal(t, montecarlo.RunCompleted, run.Status, run.Error)
	assert.Equal(t, uint64(42), run.Outcome.Result.Seed)
	assert.Equal(t, 4, run.Outcome.Universe.Len())
}

func TestCreateSimulation_Errors(t *testing.T) {
	tests := []struct {
		name   string
		source DataSource
		body   string
		status int
	}{
		{"invalid json", nil, "{", http.StatusBadRequest},
		{"unknown sampler", nil, `{"sampler":"normal"}`, http.StatusBadRequest},
		{"unknown policy", nil, `{"degenerate_policy":"skip"}`, http.StatusBadRequest},
		{"negative trials", nil, `{"trials":-5}`, http.StatusBadRequest},
		{"trials above limit", nil, `{"trials":2001}`, http.StatusBadRequest},
		{"trials beyond slice range", fixtureSource{}, `{"trials":4611686018427387904}`, http.StatusBadRequest},
		{"no source and no inputs", nil, `{}`, http.StatusUnprocessableEntity},
		{"duplicate symbol", nil, `{"universe":[{"symbol":"A","sector":"X"},{"symbol":"a","sector":"Y"}],"prices":{"A":[1,2,3]}}`, http.StatusUnprocessableEntity},
		{"missing series", nil, `{"universe":[{"symbol":"A","sector":"X"},{"symbol":"B","sector":"Y"}],"prices":{"A":[1,2,3]}}`, http.StatusUnprocessableEntity},
		{"misaligned series", nil, `{"universe":[{"symbol":"A","sector":"X"},{"symbol":"B","sector":"Y"}],"prices":{"A":[1,2,3],"B":[1,2]}}`, http.StatusUnprocessableEntity},
		{"data source failure", fixtureSource{err: errors.New("disk on fire")}, `{}`, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t, tt.source)
			w := env.do(t, "POST", "/api/simulations", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestCreateSimulation_TrialLimit(t *testing.T) {
	env := setupTestEnv(t, fixtureSource{})

	w := env.do(t, "POST", "/api/simulations", `{"trials":4611686018427387904}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "trial count exceeds limit")
	assert.Empty(t, env.runs.List())

	summary := env.submit(t, `{"trials":2000,"workers":4}`)
	run := env.wait(t, summary.ID)
	assert.Equal(t, montecarlo.RunCompleted, run.Status, run.Error)
	assert.Equal(t, 2000, run.Outcome.Result.Len())
}

func TestFailedSimulation(t *testing.T) {
	env := setupTestEnv(t, nil)

	// A constant series leaves correlations undefined.
	summary := env.submit(t, `{
		"universe": [{"symbol":"A","sector":"X"},{"symbol":"B","sector":"Y"}],
		"prices": {"A":[1,2,3,4],"B":[5,5,5,5]}
	}`)

	run := env.wait(t, summary.ID)
	assert.Equal(t, montecarlo.RunFailed, run.Status)
	assert.Contains(t, run.Error, "invalid return statistics")

	w := env.do(t, "GET", "/api/simulations/"+summary.ID+"/portfolios", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, "GET", "/api/simulations/"+summary.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var detail RunDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, "failed", detail.Status)
	assert.NotEmpty(t, detail.Error)
	assert.Empty(t, detail.Portfolios)
}

func TestGetSimulation_NotFound(t *testing.T) {
	env := setupTestEnv(t, nil)

	for _, path := range []string{
		"/api/simulations/nope",
		"/api/simulations/nope/portfolios",
		"/api/simulations/nope/trials",
		"/api/simulations/nope/progress",
	} {
		w := env.do(t, "GET", path, "")
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

func TestListSimulations(t *testing.T) {
	env := setupTestEnv(t, fixtureSource{})

	first := env.submit(t, `{"trials":50}`)
	env.wait(t, first.ID)
	second := env.submit(t, `{"trials":60}`)
	env.wait(t, second.ID)

	w := env.do(t, "GET", "/api/simulations", "")
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Runs  []RunSummary `json:"runs"`
		Count int          `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 2, response.Count)
	ids := []string{response.Runs[0].ID, response.Runs[1].ID}
	assert.ElementsMatch(t, []string{first.ID, second.ID}, ids)
}

func TestGetPortfolios(t *testing.T) {
	env := setupTestEnv(t, nil)
	summary := env.submit(t, scenarioBody)
	run := env.wait(t, summary.ID)
	require.Equal(t, montecarlo.RunCompleted, run.Status)

	w := env.do(t, "GET", "/api/simulations/"+summary.ID+"/portfolios", "")
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		RunID      string         `json:"run_id"`
		Portfolios []PortfolioDTO `json:"portfolios"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Portfolios, 3)

	sel := run.Outcome.Selection
	assert.Equal(t, sel.MaxSharpe.Trial, response.Portfolios[0].Trial)
	assert.Equal(t, sel.MaxReturn.Trial, response.Portfolios[1].Trial)
	assert.Equal(t, sel.MinRisk.Trial, response.Portfolios[2].Trial)
	assert.InDelta(t, sel.MinRisk.Metrics.Risk, response.Portfolios[2].Risk, 1e-12)
}

func TestGetTrials_Pagination(t *testing.T) {
	env := setupTestEnv(t, nil)
	summary := env.submit(t, scenarioBody)
	run := env.wait(t, summary.ID)
	require.Equal(t, montecarlo.RunCompleted, run.Status)

	tests := []struct {
		query     string
		status    int
		wantCount int
		wantFirst int
	}{
		{"", http.StatusOK, 250, 0},
		{"?offset=100&limit=20", http.StatusOK, 20, 100},
		{"?offset=240&limit=20", http.StatusOK, 10, 240},
		{"?offset=1000", http.StatusOK, 0, 0},
		{"?offset=-1", http.StatusBadRequest, 0, 0},
		{"?limit=0", http.StatusBadRequest, 0, 0},
		{"?limit=abc", http.StatusBadRequest, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := env.do(t, "GET", "/api/simulations/"+summary.ID+"/trials"+tt.query, "")
			require.Equal(t, tt.status, w.Code)
			if tt.status != http.StatusOK {
				return
			}

			var page TrialsPage
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
			assert.Equal(t, 250, page.Total)
			assert.Equal(t, []string{"A", "B", "C"}, page.Symbols)
			require.Len(t, page.Trials, tt.wantCount)
			if tt.wantCount > 0 {
				first := page.Trials[0]
				assert.Equal(t, tt.wantFirst, first.Trial)
				expected := run.Outcome.Result.Trials[tt.wantFirst]
				assert.Equal(t, []float64(expected.Weights), first.Weights)
				assert.Len(t, first.SectorWeights, 2)
			}
		})
	}
}

func TestMsgpackNegotiation(t *testing.T) {
	env := setupTestEnv(t, nil)
	summary := env.submit(t, scenarioBody)
	env.wait(t, summary.ID)

	w := env.do(t, "GET", "/api/simulations/"+summary.ID+"/trials?limit=5", "", "Accept", "application/msgpack")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, contentTypeMsgpack, w.Header().Get("Content-Type"))

	dec := msgpack.NewDecoder(bytes.NewReader(w.Body.Bytes()))
	dec.SetCustomStructTag("json")
	var page TrialsPage
	require.NoError(t, dec.Decode(&page))
	assert.Equal(t, summary.ID, page.RunID)
	assert.Len(t, page.Trials, 5)

	w = env.do(t, "GET", "/api/simulations/"+summary.ID, "", "Accept", "application/json")
	assert.Equal(t, contentTypeJSON, w.Header().Get("Content-Type"))
}

func TestWantsMsgpack(t *testing.T) {
	tests := []struct {
		accept string
		want   bool
	}{
		{"", false},
		{"application/json", false},
		{"application/msgpack", true},
		{"text/html, application/x-msgpack;q=0.9", true},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Accept", tt.accept)
		assert.Equal(t, tt.want, wantsMsgpack(req), tt.accept)
	}
}

func TestProgressWebsocket(t *testing.T) {
	env := setupTestEnv(t, nil)
	server := httptest.NewServer(env.router)
	defer server.Close()

	summary := env.submit(t, scenarioBody)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/simulations/" + summary.ID + "/progress"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	var last ProgressMessage
	for {
		var msg ProgressMessage
		err := wsjson.Read(ctx, conn, &msg)
		if err != nil {
			require.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err), err.Error())
			break
		}
		assert.Equal(t, summary.ID, msg.ID)
		assert.Equal(t, 250, msg.Total)
		last = msg
	}

	assert.Equal(t, "completed", last.Status)
	assert.Equal(t, 1.0, last.Progress)
	assert.Equal(t, 250, last.Completed)
}

func TestOptionalFloat(t *testing.T) {
	v := optionalFloat(0.5)
	require.NotNil(t, v)
	assert.Equal(t, 0.5, *v)

	assert.Nil(t, optionalFloat(math.NaN()))
	assert.Nil(t, optionalFloat(math.Inf(1)))
}
