package config

import (
	"time"

	"neurosim/internal/domain"
)

// Config is the root configuration structure
type Config struct {
	Version    int              `yaml:"version"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
	Auth       AuthConfig       `yaml:"auth"`
	Simulation SimulationConfig `yaml:"simulation"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"` // 0 keeps SSE streams open
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string `yaml:"allowed_origins,omitempty"`

	// SessionIdleTimeout evicts an owner's in-memory network after this long
	// without requests; 0 keeps networks resident
	SessionIdleTimeout Duration `yaml:"session_idle_timeout"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig selects the zap logger flavour
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// AuthConfig holds token signing settings. The secret may also come from
// $NEUROSIM_JWT_SECRET, which wins over the file.
type AuthConfig struct {
	Secret   string   `yaml:"secret,omitempty"`
	Issuer   string   `yaml:"issuer"`
	TokenTTL Duration `yaml:"token_ttl"`
}

// SimulationConfig tunes neuron dynamics. It is the only section applied
// without a restart when the config file changes.
type SimulationConfig struct {
	RefractoryPeriod Duration                 `yaml:"refractory_period"`
	ThresholdMin     float64                  `yaml:"threshold_min"`
	ThresholdMax     float64                  `yaml:"threshold_max"`
	StimulusMin      float64                  `yaml:"stimulus_min"`
	StimulusMax      float64                  `yaml:"stimulus_max"`
	MaxCascadeDepth  int                      `yaml:"max_cascade_depth"` // 0 = unlimited
	AutoConnect      domain.AutoConnectParams `yaml:"auto_connect"`
}

// Params converts the section to domain parameters
func (s SimulationConfig) Params() domain.Params {
	return domain.Params{
		RefractoryPeriod: s.RefractoryPeriod.Duration(),
		MinThreshold:     s.ThresholdMin,
		MaxThreshold:     s.ThresholdMax,
		MinStimulus:      s.StimulusMin,
		MaxStimulus:      s.StimulusMax,
		MaxCascadeDepth:  s.MaxCascadeDepth,
	}
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
