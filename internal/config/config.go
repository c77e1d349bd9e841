// Package config provides configuration management for the extraction
// pipeline and graph store. Settings load from environment variables with
// the FOIAGRAPH_ prefix with sensible defaults for all options; pattern
// rules and custom entity types load from a YAML rules file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration settings for the graph engine.
type Config struct {
	Storage   StorageConfig
	Extractor ExtractorConfig
	Pipeline  PipelineConfig
	Rules     Rules
}

// StorageConfig contains database and storage configuration.
type StorageConfig struct {
	StorageEngine string // Storage engine type: sqlite, postgres (default: sqlite)
	DataPath      string // Path to data directory for sqlite (default: ./data)
	PostgresDSN   string // DSN for the postgres backend
}

// ExtractorConfig contains model provider configuration for the
// probabilistic extractor.
type ExtractorConfig struct {
	Enabled   bool          // Enable the model-backed extractor (default: true)
	Endpoint  string        // Model provider endpoint (default: http://localhost:11434)
	Model     string        // Model name (default: qwen2.5:7b)
	APIKey    string        // Credential for hosted providers
	Timeout   time.Duration // Per-document extraction timeout (default: 30s)
	RateLimit float64       // Max provider requests per second (default: 2)
}

// PipelineConfig contains tuning knobs for merging, resolution, and
// relationship building.
type PipelineConfig struct {
	Workers         int           // Extraction worker goroutines (default: 4)
	QueueSize       int           // Ingest queue buffer (default: 256)
	MaxRetries      int           // Commit retry attempts per document (default: 3)
	ShutdownTimeout time.Duration // Max wait for in-flight documents on shutdown (default: 30s)

	OverlapFraction   float64 // Span overlap fraction required to merge mentions (default: 0.5)
	FuzzyThreshold    float64 // Similarity threshold for entity resolution (default: 0.75)
	CooccurrenceWindow int    // Co-occurrence window in characters (default: 400)
	FlagThreshold     float64 // Edges below this confidence are flagged (default: 0.4)
}

// LoadConfig loads configuration from environment variables with sensible
// defaults. The rules file named by FOIAGRAPH_RULES_FILE is loaded when
// set; otherwise only built-in pattern rules apply.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Storage: StorageConfig{
			StorageEngine: getEnv("FOIAGRAPH_STORAGE_ENGINE", "sqlite"),
			DataPath:      getEnv("FOIAGRAPH_DATA_PATH", "./data"),
			PostgresDSN:   getEnv("FOIAGRAPH_POSTGRES_DSN", ""),
		},
		Extractor: ExtractorConfig{
			Enabled:   getEnvBool("FOIAGRAPH_MODEL_EXTRACTOR", true),
			Endpoint:  getEnv("FOIAGRAPH_MODEL_ENDPOINT", "http://localhost:11434"),
			Model:     getEnv("FOIAGRAPH_MODEL", "qwen2.5:7b"),
			APIKey:    getEnv("FOIAGRAPH_MODEL_API_KEY", ""),
			Timeout:   getEnvDuration("FOIAGRAPH_MODEL_TIMEOUT", 30*time.Second),
			RateLimit: getEnvFloat("FOIAGRAPH_MODEL_RATE_LIMIT", 2),
		},
		Pipeline: PipelineConfig{
			Workers:            getEnvInt("FOIAGRAPH_WORKERS", 4),
			QueueSize:          getEnvInt("FOIAGRAPH_QUEUE_SIZE", 256),
			MaxRetries:         getEnvInt("FOIAGRAPH_MAX_RETRIES", 3),
			ShutdownTimeout:    getEnvDuration("FOIAGRAPH_SHUTDOWN_TIMEOUT", 30*time.Second),
			OverlapFraction:    getEnvFloat("FOIAGRAPH_OVERLAP_FRACTION", 0.5),
			FuzzyThreshold:     getEnvFloat("FOIAGRAPH_FUZZY_THRESHOLD", 0.75),
			CooccurrenceWindow: getEnvInt("FOIAGRAPH_COOCCURRENCE_WINDOW", 400),
			FlagThreshold:      getEnvFloat("FOIAGRAPH_FLAG_THRESHOLD", 0.4),
		},
	}

	if rulesFile := getEnv("FOIAGRAPH_RULES_FILE", ""); rulesFile != "" {
		rules, err := LoadRules(rulesFile)
		if err != nil {
			return nil, fmt.Errorf("config: failed to load rules file: %w", err)
		}
		cfg.Rules = *rules
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("config: Workers must be >= 1, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.QueueSize < 1 {
		return fmt.Errorf("config: QueueSize must be >= 1, got %d", c.Pipeline.QueueSize)
	}
	if c.Pipeline.MaxRetries < 0 {
		return fmt.Errorf("config: MaxRetries must be >= 0, got %d", c.Pipeline.MaxRetries)
	}
	if c.Pipeline.OverlapFraction <= 0 || c.Pipeline.OverlapFraction > 1 {
		return fmt.Errorf("config: OverlapFraction must be in (0,1], got %v", c.Pipeline.OverlapFraction)
	}
	if c.Pipeline.FuzzyThreshold <= 0 || c.Pipeline.FuzzyThreshold > 1 {
		return fmt.Errorf("config: FuzzyThreshold must be in (0,1], got %v", c.Pipeline.FuzzyThreshold)
	}
	if c.Pipeline.CooccurrenceWindow < 1 {
		return fmt.Errorf("config: CooccurrenceWindow must be >= 1, got %d", c.Pipeline.CooccurrenceWindow)
	}
	if c.Pipeline.FlagThreshold < 0 || c.Pipeline.FlagThreshold > 1 {
		return fmt.Errorf("config: FlagThreshold must be in [0,1], got %v", c.Pipeline.FlagThreshold)
	}
	switch c.Storage.StorageEngine {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported storage engine: %q", c.Storage.StorageEngine)
	}
	if c.Storage.StorageEngine == "postgres" && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("config: FOIAGRAPH_POSTGRES_DSN is required for the postgres engine")
	}
	return nil
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value. Unparseable values fall back to the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default
// value. Unparseable values fall back to the default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch value {
		case "true", "1", "yes", "True", "TRUE", "Yes", "YES":
			return true
		case "false", "0", "no", "False", "FALSE", "No", "NO":
			return false
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns a
// default value. Unparseable values fall back to the default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
