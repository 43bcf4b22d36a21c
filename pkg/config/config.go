// Package config provides configuration structures and loading logic for
// the evaluation engine.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the global configuration for the engine.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Models   ModelsConfig   `yaml:"models"`
	Breach   BreachConfig   `yaml:"breach"`
	Training TrainingConfig `yaml:"training"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// LoggingConfig holds configuration for logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// ModelsConfig holds configuration for the model store and hot reload.
type ModelsConfig struct {
	// Path is the sqlite model store file. Empty selects an in-memory store.
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// BreachConfig holds configuration for the k-anonymity breach lookup.
type BreachConfig struct {
	Enabled     bool          `yaml:"enabled"`
	BaseURL     string        `yaml:"base_url"`
	UserAgent   string        `yaml:"user_agent"`
	MinInterval time.Duration `yaml:"min_interval"`
	Timeout     time.Duration `yaml:"timeout"`
}

// TrainingConfig holds configuration for the training pipeline.
type TrainingConfig struct {
	// SyntheticSamples is the dataset size generated when no dataset
	// file is supplied.
	SyntheticSamples int   `yaml:"synthetic_samples"`
	Seed             int64 `yaml:"seed"`
}

// ScoringConfig holds method weights and strength bucket thresholds.
type ScoringConfig struct {
	// MethodWeights maps method identifiers to aggregation weights.
	// Missing methods fall back to the built-in defaults.
	MethodWeights map[string]float64 `yaml:"method_weights"`
	Thresholds    ThresholdsConfig   `yaml:"thresholds"`
}

// ThresholdsConfig holds the score cutoffs between strength buckets.
type ThresholdsConfig struct {
	VeryWeak float64 `yaml:"very_weak"`
	Weak     float64 `yaml:"weak"`
	Moderate float64 `yaml:"moderate"`
	Strong   float64 `yaml:"strong"`
}

// MetricsConfig holds configuration for the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// Load reads configuration from a file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{
		// Defaults
		Logging: LoggingConfig{
			Level: "info",
		},
		Models: ModelsConfig{
			Path: "passguard-models.db",
		},
		Breach: BreachConfig{
			MinInterval: 1500 * time.Millisecond,
			Timeout:     10 * time.Second,
		},
		Training: TrainingConfig{
			SyntheticSamples: 3000,
			Seed:             42,
		},
		Scoring: ScoringConfig{
			Thresholds: ThresholdsConfig{
				VeryWeak: 20,
				Weak:     40,
				Moderate: 60,
				Strong:   80,
			},
		},
		Metrics: MetricsConfig{
			Address: ":19091",
		},
	}

	if path != "" {
		//nolint:gosec // Config file path is controlled by admin/operator
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("PASSGUARD_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("PASSGUARD_LOG_PRETTY"); val == "true" {
		cfg.Logging.Pretty = true
	}

	if val := os.Getenv("PASSGUARD_MODELS_PATH"); val != "" {
		cfg.Models.Path = val
	}
	if val := os.Getenv("PASSGUARD_MODELS_WATCH"); val == "true" {
		cfg.Models.Watch = true
	}

	if val := os.Getenv("PASSGUARD_BREACH_ENABLED"); val == "true" {
		cfg.Breach.Enabled = true
	}
	if val := os.Getenv("PASSGUARD_BREACH_BASE_URL"); val != "" {
		cfg.Breach.BaseURL = val
	}
	if val := os.Getenv("PASSGUARD_BREACH_USER_AGENT"); val != "" {
		cfg.Breach.UserAgent = val
	}

	if val := os.Getenv("PASSGUARD_TRAINING_SEED"); val != "" {
		if seed, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Training.Seed = seed
		}
	}
	if val := os.Getenv("PASSGUARD_TRAINING_SAMPLES"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Training.SyntheticSamples = n
		}
	}

	if val := os.Getenv("PASSGUARD_METRICS_ENABLED"); val == "true" {
		cfg.Metrics.Enabled = true
	}
	if val := os.Getenv("PASSGUARD_METRICS_ADDR"); val != "" {
		cfg.Metrics.Address = val
	}
}

// Validate performs validation of the entire configuration.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging configuration: %w", err)
	}
	if err := c.Breach.Validate(); err != nil {
		return fmt.Errorf("breach configuration: %w", err)
	}
	if err := c.Training.Validate(); err != nil {
		return fmt.Errorf("training configuration: %w", err)
	}
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("scoring configuration: %w", err)
	}
	return nil
}

// Validate performs validation of logging configuration.
func (c *LoggingConfig) Validate() error {
	if strings.TrimSpace(c.Level) == "" {
		c.Level = "info"
	}

	level := strings.TrimSpace(strings.ToLower(c.Level))
	switch level {
	case "debug", "info", "warn", "error":
		c.Level = level
		return nil
	default:
		return fmt.Errorf("invalid log level %q, supported levels: debug, info, warn, error", c.Level)
	}
}

// Validate performs validation of breach configuration.
func (c *BreachConfig) Validate() error {
	if c.MinInterval < 0 {
		return fmt.Errorf("min_interval must not be negative, got %s", c.MinInterval)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}

// Validate performs validation of training configuration.
func (c *TrainingConfig) Validate() error {
	if c.SyntheticSamples < 0 {
		return fmt.Errorf("synthetic_samples must not be negative, got %d", c.SyntheticSamples)
	}
	return nil
}

// Validate performs validation of scoring configuration.
func (c *ScoringConfig) Validate() error {
	for method, weight := range c.MethodWeights {
		if weight < 0 {
			return fmt.Errorf("method weight for %q must not be negative, got %f", method, weight)
		}
	}

	t := c.Thresholds
	if t.VeryWeak >= t.Weak || t.Weak >= t.Moderate || t.Moderate >= t.Strong {
		return fmt.Errorf("thresholds must be strictly increasing: %f, %f, %f, %f",
			t.VeryWeak, t.Weak, t.Moderate, t.Strong)
	}
	if t.VeryWeak < 0 || t.Strong > 100 {
		return fmt.Errorf("thresholds must stay within [0, 100]")
	}
	return nil
}
