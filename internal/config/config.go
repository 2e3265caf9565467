// Package config loads and validates the crucible configuration file,
// including the confidence calibration and strategy tunables, and
// watches it for changes.
package config

import (
	"fmt"
	"time"

	"github.com/probelab/crucible/internal/models"
	"github.com/probelab/crucible/internal/strategy"
)

// SupportedVersion is the config schema version this build understands.
const SupportedVersion = "1"

// Config holds all configuration for the application.
type Config struct {
	// Version is the config schema version; must be "1"
	Version string `yaml:"version"`

	// LogLevel is the logging level (debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	DataSource  DataSourceConfig   `yaml:"datasource"`
	Engine      EngineConfig       `yaml:"engine"`
	Calibration models.Calibration `yaml:"calibration"`
	Strategies  StrategiesConfig   `yaml:"strategies"`
	Tracing     TracingConfig      `yaml:"tracing"`
	Metrics     MetricsConfig      `yaml:"metrics"`
}

// DataSourceConfig configures the Prometheus-compatible telemetry
// backend.
type DataSourceConfig struct {
	// PrometheusURL is the base URL of the query API
	PrometheusURL string `yaml:"prometheus_url"`

	// Token is an optional bearer token
	Token string `yaml:"token"`

	// QueryTimeoutSeconds bounds each query; 0 uses the default
	QueryTimeoutSeconds int `yaml:"query_timeout_seconds"`

	// StepSeconds is the range query resolution; 0 uses the default
	StepSeconds int `yaml:"step_seconds"`

	// CacheTTLSeconds is how long query results stay fresh; 0 disables
	// the cache
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`

	// CacheSize is the maximum number of cached query results
	CacheSize int `yaml:"cache_size"`

	// EntityLabel is the metric label identifying a service
	EntityLabel string `yaml:"entity_label"`

	// EntitySelector is the series selector used to enumerate active
	// services
	EntitySelector string `yaml:"entity_selector"`
}

// EngineConfig configures the validation engine.
type EngineConfig struct {
	// Budget is the query-unit ceiling per validation run
	Budget int `yaml:"budget"`

	// Parallelism bounds concurrent validations in a batch
	Parallelism int `yaml:"parallelism"`

	// Strategies is the execution order; empty uses the default order
	Strategies []string `yaml:"strategies"`
}

// StrategiesConfig holds the per-strategy tunables.
type StrategiesConfig struct {
	Temporal  TemporalConfig  `yaml:"temporal"`
	Scope     ScopeConfig     `yaml:"scope"`
	Threshold ThresholdConfig `yaml:"threshold"`
}

// TemporalConfig tunes the temporal contradiction strategy. Zero
// values fall back to the strategy defaults.
type TemporalConfig struct {
	BufferSeconds     int `yaml:"buffer_seconds"`
	WindowSeconds     int `yaml:"window_seconds"`
	MinSustainSeconds int `yaml:"min_sustain_seconds"`
	MaxGapSeconds     int `yaml:"max_gap_seconds"`
}

// ScopeConfig tunes the scope verification strategy.
type ScopeConfig struct {
	WindowSeconds     int      `yaml:"window_seconds"`
	CoverageTolerance float64  `yaml:"coverage_tolerance"`
	ServiceCatalog    []string `yaml:"service_catalog"`
}

// ThresholdConfig tunes the metric threshold strategy.
type ThresholdConfig struct {
	Tolerance float64 `yaml:"tolerance"`
}

// TracingConfig configures OTLP trace export.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	TLSCAPath   string `yaml:"tls_ca_path"`
	TLSInsecure bool   `yaml:"tls_insecure"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Default returns a config with all defaults applied and no data
// source.
func Default() *Config {
	return &Config{
		Version:  SupportedVersion,
		LogLevel: "info",
		DataSource: DataSourceConfig{
			QueryTimeoutSeconds: 30,
			StepSeconds:         30,
			CacheTTLSeconds:     60,
			CacheSize:           512,
			EntityLabel:         "service",
			EntitySelector:      "up",
		},
		Engine: EngineConfig{
			Budget:      50,
			Parallelism: 4,
			Strategies:  strategy.DefaultOrder(),
		},
		Calibration: models.DefaultCalibration(),
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9464,
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Version != SupportedVersion {
		return NewConfigError(fmt.Sprintf("unsupported config version %q (supported: %q)", c.Version, SupportedVersion))
	}
	if c.DataSource.PrometheusURL == "" {
		return NewConfigError("datasource.prometheus_url is required")
	}
	if c.DataSource.QueryTimeoutSeconds < 0 {
		return NewConfigError("datasource.query_timeout_seconds cannot be negative")
	}
	if c.DataSource.CacheTTLSeconds < 0 {
		return NewConfigError("datasource.cache_ttl_seconds cannot be negative")
	}
	if c.Engine.Parallelism < 0 {
		return NewConfigError("engine.parallelism cannot be negative")
	}
	for _, name := range c.Engine.Strategies {
		switch name {
		case strategy.TemporalName, strategy.ScopeName, strategy.ThresholdName:
		default:
			return NewConfigError(fmt.Sprintf("engine.strategies contains unknown strategy %q", name))
		}
	}
	if tol := c.Strategies.Scope.CoverageTolerance; tol < 0 || tol > 1 {
		return NewConfigError("strategies.scope.coverage_tolerance must be within [0, 1]")
	}
	if tol := c.Strategies.Threshold.Tolerance; tol < 0 || tol >= 1 {
		return NewConfigError("strategies.threshold.tolerance must be within [0, 1)")
	}
	if err := c.Calibration.Validate(); err != nil {
		return NewConfigError(fmt.Sprintf("calibration: %v", err))
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return NewConfigError("tracing.endpoint is required when tracing is enabled")
	}
	return nil
}

// TemporalStrategyConfig converts the file schema to strategy
// tunables.
func (c *Config) TemporalStrategyConfig() strategy.TemporalConfig {
	cfg := strategy.DefaultTemporalConfig()
	t := c.Strategies.Temporal
	if t.BufferSeconds > 0 {
		cfg.Buffer = time.Duration(t.BufferSeconds) * time.Second
	}
	if t.WindowSeconds > 0 {
		cfg.Window = time.Duration(t.WindowSeconds) * time.Second
	}
	if t.MinSustainSeconds > 0 {
		cfg.MinSustain = time.Duration(t.MinSustainSeconds) * time.Second
	}
	if t.MaxGapSeconds > 0 {
		cfg.MaxGap = time.Duration(t.MaxGapSeconds) * time.Second
	}
	return cfg
}

// ScopeStrategyConfig converts the file schema to strategy tunables.
func (c *Config) ScopeStrategyConfig() strategy.ScopeConfig {
	cfg := strategy.DefaultScopeConfig()
	s := c.Strategies.Scope
	if s.WindowSeconds > 0 {
		cfg.Window = time.Duration(s.WindowSeconds) * time.Second
	}
	if s.CoverageTolerance > 0 {
		cfg.CoverageTolerance = s.CoverageTolerance
	}
	cfg.ServiceCatalog = append([]string(nil), s.ServiceCatalog...)
	return cfg
}

// ThresholdStrategyConfig converts the file schema to strategy
// tunables.
func (c *Config) ThresholdStrategyConfig() strategy.ThresholdConfig {
	cfg := strategy.DefaultThresholdConfig()
	if c.Strategies.Threshold.Tolerance > 0 {
		cfg.Tolerance = c.Strategies.Threshold.Tolerance
	}
	return cfg
}

// StrategyOrder returns the configured execution order, falling back
// to the default.
func (c *Config) StrategyOrder() []string {
	if len(c.Engine.Strategies) == 0 {
		return strategy.DefaultOrder()
	}
	return c.Engine.Strategies
}

// ConfigError represents a configuration error
type ConfigError struct {
	message string
}

// NewConfigError creates a new configuration error
func NewConfigError(message string) *ConfigError {
	return &ConfigError{message: message}
}

// Error returns the error message
func (e *ConfigError) Error() string {
	return e.message
}
