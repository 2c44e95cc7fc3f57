package montecarlo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/modules/historical"
	"github.com/aristath/frontier/internal/modules/universe"
)

// DefaultMaxRuns is the run retention used when none is configured.
const DefaultMaxRuns = 20

// ErrRunNotFound is returned for unknown or evicted run IDs.
var ErrRunNotFound = errors.New("simulation run not found")

// RunStatus is the lifecycle state of a submitted run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Finished reports whether the run reached a terminal state.
func (s RunStatus) Finished() bool {
	return s == RunCompleted || s == RunFailed
}

// RunRequest is the input of one asynchronous run.
type RunRequest struct {
	Universe *universe.Universe
	Prices   *historical.PriceSeries
	Options  Options
	Source   string // who asked: "api", "scheduler", ...
}

// Run is a point-in-time snapshot of a submitted run.
type Run struct {
	ID          string
	Source      string
	Status      RunStatus
	Trials      int
	Completed   int
	Error       string
	SubmittedAt time.Time
	StartedAt   time.Time
	FinishedAt  time.Time
	Outcome     *Outcome // nil until completed
}

type runEntry struct {
	id          string
	source      string
	trials      int
	submittedAt time.Time
	completed   atomic.Int64
	done        chan struct{}

	mu         sync.RWMutex
	status     RunStatus
	err        error
	startedAt  time.Time
	finishedAt time.Time
	outcome    *Outcome
}

func (e *runEntry) snapshot() Run {
	e.mu.RLock()
	defer e.mu.RUnlock()

	r := Run{
		ID:          e.id,
		Source:      e.source,
		Status:      e.status,
		Trials:      e.trials,
		Completed:   int(e.completed.Load()),
		SubmittedAt: e.submittedAt,
		StartedAt:   e.startedAt,
		FinishedAt:  e.finishedAt,
		Outcome:     e.outcome,
	}
	if e.err != nil {
		r.Error = e.err.Error()
	}
	return r
}

// RunManager executes runs in the background and keeps the most recent ones
// in memory. Nothing is persisted.
type RunManager struct {
	service *Service
	maxRuns int
	log     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.RWMutex
	runs  map[string]*runEntry
	order []string // submission order, oldest first
}

// NewRunManager creates a run manager retaining at most maxRuns runs.
func NewRunManager(service *Service, maxRuns int, log zerolog.Logger) *RunManager {
	if maxRuns <= 0 {
		maxRuns = DefaultMaxRuns
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RunManager{
		service: service,
		maxRuns: maxRuns,
		log:     log.With().Str("component", "run_manager").Logger(),
		ctx:     ctx,
		cancel:  cancel,
		runs:    make(map[string]*runEntry),
	}
}

// Submit queues req and returns its pending snapshot immediately.
func (m *RunManager) Submit(req RunRequest) (Run, error) {
	if req.Universe == nil || req.Prices == nil {
		return Run{}, fmt.Errorf("run request needs a universe and prices")
	}
	if req.Options.Trials <= 0 {
		req.Options.Trials = DefaultTrials
	}
	if err := req.Options.CheckTrials(); err != nil {
		return Run{}, err
	}

	entry := &runEntry{
		id:          uuid.New().String(),
		source:      req.Source,
		trials:      req.Options.Trials,
		submittedAt: time.Now(),
		done:        make(chan struct{}),
		status:      RunPending,
	}

	userProgress := req.Options.Progress
	req.Options.Progress = func(completed, total int) {
		// Chunks finish out of order; keep the counter monotonic.
		for {
			cur := entry.completed.Load()
			if int64(completed) <= cur || entry.completed.CompareAndSwap(cur, int64(completed)) {
				break
			}
		}
		if userProgress != nil {
			userProgress(completed, total)
		}
	}

	// Close cancels under mu, so a run registered here is always waited for.
	m.mu.Lock()
	if err := m.ctx.Err(); err != nil {
		m.mu.Unlock()
		return Run{}, fmt.Errorf("run manager is closed: %w", err)
	}
	m.runs[entry.id] = entry
	m.order = append(m.order, entry.id)
	m.evictLocked()
	m.wg.Add(1)
	m.mu.Unlock()

	m.log.Info().
		Str("run_id", entry.id).
		Str("source", req.Source).
		Int("trials", entry.trials).
		Msg("Simulation run submitted")

	go m.execute(entry, req)

	return entry.snapshot(), nil
}

func (m *RunManager) execute(entry *runEntry, req RunRequest) {
	defer m.wg.Done()
	defer close(entry.done)

	entry.mu.Lock()
	entry.status = RunRunning
	entry.startedAt = time.Now()
	entry.mu.Unlock()

	outcome, err := m.run(req)

	entry.mu.Lock()
	entry.finishedAt = time.Now()
	if err != nil {
		entry.status = RunFailed
		entry.err = err
	} else {
		entry.status = RunCompleted
		entry.outcome = outcome
	}
	entry.mu.Unlock()

	if err != nil {
		m.log.Error().Err(err).Str("run_id", entry.id).Msg("Simulation run failed")
		return
	}
	m.log.Info().
		Str("run_id", entry.id).
		Uint64("seed", outcome.Result.Seed).
		Dur("duration", outcome.Duration).
		Msg("Simulation run completed")
}

// run executes req and reports a panic as an error.
func (m *RunManager) run(req RunRequest) (outcome *Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Interface("panic", r).Msg("Simulation run panicked")
			outcome, err = nil, fmt.Errorf("simulation panicked: %v", r)
		}
	}()
	return m.service.Run(m.ctx, req.Universe, req.Prices, req.Options)
}

// evictLocked drops the oldest finished runs beyond maxRuns. Runs still in
// flight are never evicted.
func (m *RunManager) evictLocked() {
	excess := len(m.order) - m.maxRuns
	if excess <= 0 {
		return
	}

	kept := m.order[:0]
	for _, id := range m.order {
		entry := m.runs[id]
		if excess > 0 && entry.snapshot().Status.Finished() {
			delete(m.runs, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
}

// Get returns a snapshot of run id.
func (m *RunManager) Get(id string) (Run, error) {
	m.mu.RLock()
	entry, ok := m.runs[id]
	m.mu.RUnlock()
	if !ok {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return entry.snapshot(), nil
}

// Done returns a channel closed when run id finishes.
func (m *RunManager) Done(id string) (<-chan struct{}, error) {
	m.mu.RLock()
	entry, ok := m.runs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return entry.done, nil
}

// List returns snapshots of all retained runs, newest first.
func (m *RunManager) List() []Run {
	m.mu.RLock()
	out := make([]Run, 0, len(m.runs))
	for _, entry := range m.runs {
		out = append(out, entry.snapshot())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out
}

// Counts returns the number of retained runs per status.
func (m *RunManager) Counts() map[RunStatus]int {
	counts := map[RunStatus]int{
		RunPending:   0,
		RunRunning:   0,
		RunCompleted: 0,
		RunFailed:    0,
	}
	for _, r := range m.List() {
		counts[r.Status]++
	}
	return counts
}

// Wait blocks until run id finishes or ctx is done.
func (m *RunManager) Wait(ctx context.Context, id string) (Run, error) {
	done, err := m.Done(id)
	if err != nil {
		return Run{}, err
	}
	select {
	case <-done:
		return m.Get(id)
	case <-ctx.Done():
		return Run{}, ctx.Err()
	}
}

// Close cancels in-flight runs and waits for them to stop.
func (m *RunManager) Close() {
	m.mu.Lock()
	m.cancel()
	m.mu.Unlock()
	m.wg.Wait()
}
