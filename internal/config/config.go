// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/aristath/frontier/internal/modules/montecarlo"
)

// Config holds application configuration
type Config struct {
	DataDir    string // Base directory for the universe and history databases (always absolute)
	LogLevel   string
	Port       int
	DevMode    bool
	Simulation SimulationConfig
}

// SimulationConfig holds the defaults applied to every simulation run
type SimulationConfig struct {
	Trials           int
	MaxTrials        int    // Upper bound on the trial count of any run
	Seed             uint64 // 0 derives a seed from the clock at run time
	Workers          int
	Sampler          string
	DegeneratePolicy string
	UniverseCSV      string // Optional; the securities table is used when empty
	HistoryYears     int
	Schedule         string // Optional cron spec (with seconds) for periodic re-simulation
	MaxRuns          int
}

// scheduleParser accepts the same six-field specs as cron.WithSeconds.
var scheduleParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("FRONTIER_DATA_DIR", "./data")

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	seed, err := getEnvAsUint64("FRONTIER_SEED", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("FRONTIER_PORT", 8001),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Simulation: SimulationConfig{
			Trials:           getEnvAsInt("FRONTIER_TRIALS", montecarlo.DefaultTrials),
			MaxTrials:        getEnvAsInt("FRONTIER_MAX_TRIALS", montecarlo.DefaultMaxTrials),
			Seed:             seed,
			Workers:          getEnvAsInt("FRONTIER_WORKERS", runtime.NumCPU()),
			Sampler:          getEnv("FRONTIER_SAMPLER", "uniform"),
			DegeneratePolicy: getEnv("FRONTIER_DEGENERATE_POLICY", string(montecarlo.DegenerateExclude)),
			UniverseCSV:      getEnv("FRONTIER_UNIVERSE_CSV", ""),
			HistoryYears:     getEnvAsInt("FRONTIER_HISTORY_YEARS", 10),
			Schedule:         getEnv("FRONTIER_SCHEDULE", ""),
			MaxRuns:          getEnvAsInt("FRONTIER_MAX_RUNS", montecarlo.DefaultMaxRuns),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that every setting is usable
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}

	return c.Simulation.Validate()
}

// Validate checks the simulation defaults
func (s *SimulationConfig) Validate() error {
	if s.Trials <= 0 {
		return fmt.Errorf("FRONTIER_TRIALS must be positive, got %d", s.Trials)
	}
	if s.MaxTrials <= 0 {
		return fmt.Errorf("FRONTIER_MAX_TRIALS must be positive, got %d", s.MaxTrials)
	}
	if s.Trials > s.MaxTrials {
		return fmt.Errorf("FRONTIER_TRIALS (%d) exceeds FRONTIER_MAX_TRIALS (%d)", s.Trials, s.MaxTrials)
	}
	if s.Workers <= 0 {
		return fmt.Errorf("FRONTIER_WORKERS must be positive, got %d", s.Workers)
	}
	if s.HistoryYears <= 0 {
		return fmt.Errorf("FRONTIER_HISTORY_YEARS must be positive, got %d", s.HistoryYears)
	}
	if s.MaxRuns <= 0 {
		return fmt.Errorf("FRONTIER_MAX_RUNS must be positive, got %d", s.MaxRuns)
	}
	if _, err := montecarlo.SamplerByName(s.Sampler); err != nil {
		return fmt.Errorf("FRONTIER_SAMPLER: %w", err)
	}
	if _, err := montecarlo.ParseDegeneratePolicy(s.DegeneratePolicy); err != nil {
		return fmt.Errorf("FRONTIER_DEGENERATE_POLICY: %w", err)
	}
	if s.Schedule != "" {
		if _, err := scheduleParser.Parse(s.Schedule); err != nil {
			return fmt.Errorf("FRONTIER_SCHEDULE: %w", err)
		}
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsUint64 rejects malformed values instead of falling back.
func getEnvAsUint64(key string, defaultValue uint64) (uint64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}
