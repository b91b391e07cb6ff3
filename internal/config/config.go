package config

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"

	"github.com/couchcryptid/amy-epw-gen/internal/domain"
)

// Config holds all service settings, populated from environment variables.
// Threshold values apply uniformly to every file in a run and are validated
// once before any file is processed.
type Config struct {
	// Quality gating and gap repair thresholds.
	MaxRecordsToInterpolate   int `envconfig:"MAX_RECORDS_TO_INTERPOLATE" default:"6" validate:"min=0"`
	MaxRecordsToImpute        int `envconfig:"MAX_RECORDS_TO_IMPUTE" default:"48" validate:"min=0"`
	MaxMissingRows            int `envconfig:"MAX_MISSING_ROWS" default:"700" validate:"min=0"`
	MaxConsecutiveMissingRows int `envconfig:"MAX_CONSECUTIVE_MISSING_ROWS" default:"48" validate:"min=0"`

	// ExpectedHours overrides the per-year hour grid when non-zero. Leave
	// zero to derive 8760 or 8784 from the calendar year of each file.
	ExpectedHours int `envconfig:"EXPECTED_HOURS" default:"0" validate:"min=0"`

	// Workers bounds concurrent file processing; 0 means one per CPU.
	Workers int `envconfig:"WORKERS" default:"0" validate:"min=0"`

	// BaselineCacheSize bounds how many parsed baseline files stay in memory.
	BaselineCacheSize int `envconfig:"BASELINE_CACHE_SIZE" default:"8" validate:"min=1"`

	// HTTPAddr enables the health/metrics server when non-empty. Long batch
	// runs expose /healthz, /readyz, and /metrics there.
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:""`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json text"`

	// Kafka outcome publishing (optional, flagged via KAFKA_ENABLED).
	KafkaEnabled      bool     `envconfig:"KAFKA_ENABLED" default:"false"`
	KafkaBrokers      []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaOutcomeTopic string   `envconfig:"KAFKA_OUTCOME_TOPIC" default:"amy-epw-outcomes"`
}

// Load reads configuration from environment variables, applying defaults
// where unset, and validates it. An invalid configuration fails the entire
// run up front.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if err := cfg.Thresholds().Validate(); err != nil {
		return nil, err
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}

	return &cfg, nil
}

// Thresholds returns the run's quality limits as the engine's value type.
func (c *Config) Thresholds() domain.Thresholds {
	return domain.Thresholds{
		MaxRecordsToInterpolate:   c.MaxRecordsToInterpolate,
		MaxRecordsToImpute:        c.MaxRecordsToImpute,
		MaxMissingRows:            c.MaxMissingRows,
		MaxConsecutiveMissingRows: c.MaxConsecutiveMissingRows,
	}
}

// WorkerCount resolves the configured worker limit, defaulting to one worker
// per CPU.
func (c *Config) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// ExpectedHoursFor returns the hour grid length for a calendar year,
// honoring the EXPECTED_HOURS override.
func (c *Config) ExpectedHoursFor(year int) int {
	if c.ExpectedHours > 0 {
		return c.ExpectedHours
	}
	return domain.HoursInYear(year)
}
