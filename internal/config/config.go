// Package config provides configuration management for neurosim.
//
// Config file locations (priority order):
//  1. $NEUROSIM_CONFIG
//  2. ./neurosim.yaml
//  3. $XDG_CONFIG_HOME/neurosim/config.yaml
//  4. ~/.config/neurosim/config.yaml
//  5. /etc/neurosim/config.yaml
//
// Keys missing from the file keep their defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"neurosim/internal/domain"

	"gopkg.in/yaml.v3"
)

// EnvJWTSecret overrides auth.secret
const EnvJWTSecret = "NEUROSIM_JWT_SECRET"

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		// No config found - return defaults
		cfg := DefaultConfig()
		cfg.applyEnv()
		return cfg, "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, path, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	params := domain.DefaultParams()
	return &Config{
		Version: 1,
		Server: ServerConfig{
			Addr:               ":3000",
			ReadTimeout:        Duration(15 * time.Second),
			ShutdownTimeout:    Duration(10 * time.Second),
			SessionIdleTimeout: Duration(30 * time.Minute),
		},
		Database: DatabaseConfig{Path: "./neurosim.db"},
		Logging:  LoggingConfig{Level: "info", Format: "json"},
		Auth: AuthConfig{
			Issuer:   "neurosim",
			TokenTTL: Duration(24 * time.Hour),
		},
		Simulation: SimulationConfig{
			RefractoryPeriod: Duration(params.RefractoryPeriod),
			ThresholdMin:     params.MinThreshold,
			ThresholdMax:     params.MaxThreshold,
			StimulusMin:      params.MinStimulus,
			StimulusMax:      params.MaxStimulus,
			MaxCascadeDepth:  params.MaxCascadeDepth,
			AutoConnect:      domain.DefaultAutoConnectParams(),
		},
	}
}

// applyDefaults fills in values a file explicitly blanked
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Version == 0 {
		c.Version = d.Version
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Database.Path == "" {
		c.Database.Path = d.Database.Path
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = d.Auth.Issuer
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = d.Auth.TokenTTL
	}
	if c.Simulation.RefractoryPeriod <= 0 {
		c.Simulation.RefractoryPeriod = d.Simulation.RefractoryPeriod
	}
}

func (c *Config) applyEnv() {
	if secret := os.Getenv(EnvJWTSecret); secret != "" {
		c.Auth.Secret = secret
	}
}

// Validate checks value ranges
func (c *Config) Validate() error {
	var errs []error

	s := c.Simulation
	if s.ThresholdMin <= 0 || s.ThresholdMax < s.ThresholdMin {
		errs = append(errs, fmt.Errorf("simulation: threshold range [%v, %v] is invalid", s.ThresholdMin, s.ThresholdMax))
	}
	if s.StimulusMin <= 0 || s.StimulusMax < s.StimulusMin {
		errs = append(errs, fmt.Errorf("simulation: stimulus range [%v, %v] is invalid", s.StimulusMin, s.StimulusMax))
	}
	if s.MaxCascadeDepth < 0 {
		errs = append(errs, fmt.Errorf("simulation: max_cascade_depth must not be negative"))
	}
	if c.Server.SessionIdleTimeout < 0 {
		errs = append(errs, fmt.Errorf("server: session_idle_timeout must not be negative"))
	}
	if err := s.AutoConnect.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("simulation.auto_connect: %w", err))
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging: unknown format %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	s := c.Simulation
	return fmt.Sprintf("listen %s, db %s, refractory %s, threshold [%.2f, %.2f), stimulus [%.2f, %.2f), max depth %d",
		c.Server.Addr, c.Database.Path, s.RefractoryPeriod.Duration(),
		s.ThresholdMin, s.ThresholdMax, s.StimulusMin, s.StimulusMax, s.MaxCascadeDepth)
}
