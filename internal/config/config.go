// Package config loads and validates the whisperd service configuration
// from YAML files and environment variables.
package config

import (
	"fmt"

	"github.com/skillsenselab/whisperd/internal/logger"
	"github.com/skillsenselab/whisperd/internal/observability"
	"github.com/skillsenselab/whisperd/internal/server"
	"github.com/skillsenselab/whisperd/internal/transcribe"
	"github.com/skillsenselab/whisperd/internal/validation"
	"github.com/skillsenselab/whisperd/internal/whisper"
)

// PoolConfig sizes the inference worker pool.
type PoolConfig struct {
	// Workers is the number of concurrent inference slots. The model
	// saturates the compute device, so the default is a single slot; raise
	// it only when the device can genuinely run inferences side by side.
	Workers int `yaml:"workers" mapstructure:"workers" validate:"min=0,max=256"`
}

// ApplyDefaults sets sensible default values for unset fields.
func (c *PoolConfig) ApplyDefaults() {
	if c.Workers == 0 {
		c.Workers = 1
	}
}

// Config is the root configuration for the whisperd service.
type Config struct {
	Base          BaseConfig           `yaml:"base" mapstructure:"base"`
	Logger        logger.Config        `yaml:"logger" mapstructure:"logger"`
	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Model         whisper.LoaderConfig `yaml:"model" mapstructure:"model"`
	Pool          PoolConfig           `yaml:"pool" mapstructure:"pool"`
	Transcribe    transcribe.Config    `yaml:"transcribe" mapstructure:"transcribe"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults applies defaults to every section.
func (c *Config) ApplyDefaults() {
	c.Base.ApplyDefaults()
	c.Logger.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Model.ApplyDefaults()
	c.Pool.ApplyDefaults()
	c.Transcribe.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate checks every section for invalid values.
func (c *Config) Validate() error {
	if err := c.Base.Validate(); err != nil {
		return err
	}
	if err := c.Logger.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(c.Pool); err != nil {
		return fmt.Errorf("pool: %w", err)
	}
	return nil
}

// Load reads the service configuration, applies defaults, and validates it.
func Load(opts ...LoaderOption) (*Config, error) {
	var cfg Config
	if err := LoadConfig("whisperd", &cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
