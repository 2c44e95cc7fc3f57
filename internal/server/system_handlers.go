package server

import (
	"encoding/json"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/frontier/internal/database"
	"github.com/aristath/frontier/internal/modules/montecarlo"
)

// RunCounter reports how many retained runs are in each state.
type RunCounter interface {
	Counts() map[montecarlo.RunStatus]int
}

// SystemHandlers handles system-wide monitoring endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
	runs        RunCounter
	universeDB  *database.DB
	historyDB   *database.DB
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	runs RunCounter,
	universeDB, historyDB *database.DB,
) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		dataDir:     dataDir,
		startupTime: time.Now(),
		runs:        runs,
		universeDB:  universeDB,
		historyDB:   historyDB,
	}
}

// SystemStatusResponse is the body of GET /api/system/status
type SystemStatusResponse struct {
	Status        string         `json:"status"`
	StartedAt     string         `json:"started_at"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	CPUPercent    float64        `json:"cpu_percent"`
	RAMPercent    float64        `json:"ram_percent"`
	NumCPU        int            `json:"num_cpu"`
	Goroutines    int            `json:"goroutines"`
	GoVersion     string         `json:"go_version"`
	Runs          map[string]int `json:"runs"`
}

// DBInfo describes one database file
type DBInfo struct {
	Name    string  `json:"name"`
	Path    string  `json:"path"`
	SizeMB  float64 `json:"size_mb"`
	Healthy bool    `json:"healthy"`
}

// DatabaseStatsResponse is the body of GET /api/system/database/stats
type DatabaseStatsResponse struct {
	DataDir     string   `json:"data_dir"`
	Databases   []DBInfo `json:"databases"`
	TotalSizeMB float64  `json:"total_size_mb"`
	LastChecked string   `json:"last_checked"`
}

// HandleSystemStatus returns process, host and run status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPercent, ramPercent := h.getSystemStats()

	runs := make(map[string]int)
	if h.runs != nil {
		for status, n := range h.runs.Counts() {
			runs[string(status)] = n
		}
	}

	h.writeJSON(w, SystemStatusResponse{
		Status:        "healthy",
		StartedAt:     h.startupTime.Format(time.RFC3339),
		UptimeSeconds: time.Since(h.startupTime).Seconds(),
		CPUPercent:    cpuPercent,
		RAMPercent:    ramPercent,
		NumCPU:        runtime.NumCPU(),
		Goroutines:    runtime.NumGoroutine(),
		GoVersion:     runtime.Version(),
		Runs:          runs,
	})
}

// HandleDatabaseStats returns database file sizes
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting database stats")

	response := DatabaseStatsResponse{
		DataDir:     h.dataDir,
		Databases:   []DBInfo{},
		LastChecked: time.Now().Format(time.RFC3339),
	}

	for _, db := range []*database.DB{h.universeDB, h.historyDB} {
		if db == nil {
			continue
		}
		info := DBInfo{Name: db.Name(), Path: db.Path(), Healthy: true}
		if err := db.QuickCheck(r.Context()); err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Database health check failed")
			info.Healthy = false
		}
		// WAL and shared-memory files count towards the footprint
		for _, suffix := range []string{"", "-wal", "-shm"} {
			if stat, err := os.Stat(db.Path() + suffix); err == nil {
				info.SizeMB += float64(stat.Size()) / 1024 / 1024
			}
		}
		response.TotalSizeMB += info.SizeMB
		response.Databases = append(response.Databases, info)
	}

	h.writeJSON(w, response)
}

// getSystemStats calculates CPU and RAM usage percentages
// Uses a short interval (100ms) so the endpoint stays responsive
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
