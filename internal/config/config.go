package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/aristath/foresight/internal/simulation"
)

// Config holds application configuration
type Config struct {
	DataDir           string // Base directory for the results database (defaults to "./data")
	LogLevel          string
	LogPretty         bool
	DefaultIterations int
	DefaultHorizon    int     // simulation horizon in days
	DefaultConfidence float64 // VaR/CVaR confidence level
	Workers           int     // 0 = one worker per CPU
	PresetFile        string  // optional YAML file merged over the builtin presets
	PersistResults    bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory with fallback logic
	dataDir := getEnv("DATA_DIR", "")
	if dataDir == "" {
		if _, err := os.Stat("./data"); err == nil {
			dataDir = "./data"
		} else {
			dataDir = "."
		}
	}

	cfg := &Config{
		DataDir:           dataDir,
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogPretty:         getEnvAsBool("LOG_PRETTY", false),
		DefaultIterations: getEnvAsInt("FORESIGHT_ITERATIONS", 10000),
		DefaultHorizon:    getEnvAsInt("FORESIGHT_HORIZON_DAYS", 365),
		DefaultConfidence: getEnvAsFloat("FORESIGHT_CONFIDENCE", simulation.DefaultConfidence),
		Workers:           getEnvAsInt("FORESIGHT_WORKERS", 0),
		PresetFile:        getEnv("FORESIGHT_PRESET_FILE", ""),
		PersistResults:    getEnvAsBool("FORESIGHT_PERSIST_RESULTS", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	if c.DefaultIterations < 1 {
		return &simulation.ValidationError{Field: "FORESIGHT_ITERATIONS", Reason: "must be >= 1"}
	}
	if c.DefaultHorizon < 1 {
		return &simulation.ValidationError{Field: "FORESIGHT_HORIZON_DAYS", Reason: "must be >= 1"}
	}
	if c.DefaultConfidence <= 0 || c.DefaultConfidence >= 1 {
		return &simulation.ValidationError{Field: "FORESIGHT_CONFIDENCE", Reason: "must be in (0, 1)"}
	}
	if c.Workers < 0 {
		return &simulation.ValidationError{Field: "FORESIGHT_WORKERS", Reason: "must be >= 0"}
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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
