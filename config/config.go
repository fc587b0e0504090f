package config

import (
	"fmt"

	"github.com/kbukum/mediaflow/logger"
	"github.com/kbukum/mediaflow/resilience"
	"github.com/kbukum/mediaflow/validation"
)

// Config is the pipeline-level configuration.
type Config struct {
	Name        string        `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string        `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
	Stream      StreamConfig  `yaml:"stream" mapstructure:"stream"`
	Tracing     TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics     MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// StreamConfig holds the defaults applied to every stage's stream options.
type StreamConfig struct {
	// HighWaterMark bounds the units buffered after each stage; 0 disables buffering.
	HighWaterMark int `yaml:"high_water_mark" mapstructure:"high_water_mark" validate:"gte=0"`
	// OpenRetry retries creating source and sink engines, e.g. while a
	// network input is not up yet. Zero attempts disables it.
	OpenRetry resilience.RetryConfig `yaml:"open_retry" mapstructure:"open_retry"`
}

// TracingConfig configures OTLP trace export.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint" validate:"required_if=Enabled true"`
	Insecure   bool    `yaml:"insecure" mapstructure:"insecure"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

// MetricsConfig configures OTLP metric export.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint" validate:"required_if=Enabled true"`
	Insecure bool   `yaml:"insecure" mapstructure:"insecure"`
}

// ApplyDefaults applies default values.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Tracing.Enabled && c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = 1.0
	}
	c.Logging.ApplyDefaults()
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}

// Load loads, defaults and validates the configuration for a service.
func Load(serviceName string, opts ...LoaderOption) (*Config, error) {
	var cfg Config
	if err := LoadConfig(serviceName, &cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = serviceName
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
