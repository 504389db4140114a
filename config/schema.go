package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/victoralfred/mortem/guard"
	"github.com/victoralfred/mortem/observability"
)

// fileConfig is the YAML representation of Config. Durations are
// written as strings ("50ms", "5s") and booleans are pointers so that
// an absent key keeps its default instead of being forced to false.
type fileConfig struct {
	Guard     fileGuard     `yaml:"guard"`
	Backoff   fileBackoff   `yaml:"backoff"`
	Throttle  fileThrottle  `yaml:"throttle"`
	Telemetry fileTelemetry `yaml:"telemetry"`
	Audit     fileAudit     `yaml:"audit"`
}

type fileGuard struct {
	Policy string `yaml:"policy"`
	Strict *bool  `yaml:"strict"`
	Path   string `yaml:"path"`
}

type fileBackoff struct {
	InitialInterval Duration `yaml:"initial_interval"`
	MaxInterval     Duration `yaml:"max_interval"`
	Multiplier      float64  `yaml:"multiplier"`
	MaxRetries      int      `yaml:"max_retries"`
	Jitter          *bool    `yaml:"jitter"`
	JitterFactor    float64  `yaml:"jitter_factor"`
}

type fileThrottle struct {
	AttemptsPerSecond float64 `yaml:"attempts_per_second"`
	Burst             int     `yaml:"burst"`
}

type fileTelemetry struct {
	ServiceName   string `yaml:"service_name"`
	EnableTracing *bool  `yaml:"enable_tracing"`
	EnableMetrics *bool  `yaml:"enable_metrics"`
	MetricsPrefix string `yaml:"metrics_prefix"`
}

type fileAudit struct {
	Enabled  *bool  `yaml:"enabled"`
	BasePath string `yaml:"base_path"`
	FilePath string `yaml:"file_path"`
	LogLevel string `yaml:"log_level"`
}

// parse decodes YAML data and applies it over the defaults, so that
// files only need to mention the fields they change.
func parse(data []byte) (Config, error) {
	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Config{}, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	cfg := DefaultConfig()
	file.apply(&cfg)
	return cfg, nil
}

func (f *fileConfig) apply(cfg *Config) {
	if f.Guard.Policy != "" {
		cfg.Guard.Policy = guard.Policy(f.Guard.Policy)
	}
	if f.Guard.Strict != nil {
		cfg.Guard.Strict = *f.Guard.Strict
	}
	if f.Guard.Path != "" {
		cfg.Guard.Path = f.Guard.Path
	}

	if f.Backoff.InitialInterval.Duration > 0 {
		cfg.Backoff.InitialInterval = f.Backoff.InitialInterval.Duration
	}
	if f.Backoff.MaxInterval.Duration > 0 {
		cfg.Backoff.MaxInterval = f.Backoff.MaxInterval.Duration
	}
	if f.Backoff.Multiplier > 0 {
		cfg.Backoff.Multiplier = f.Backoff.Multiplier
	}
	if f.Backoff.MaxRetries > 0 {
		cfg.Backoff.MaxRetries = f.Backoff.MaxRetries
	}
	if f.Backoff.Jitter != nil {
		cfg.Backoff.Jitter = *f.Backoff.Jitter
	}
	if f.Backoff.JitterFactor > 0 {
		cfg.Backoff.JitterFactor = f.Backoff.JitterFactor
	}

	if f.Throttle.AttemptsPerSecond > 0 {
		cfg.Throttle.AttemptsPerSecond = f.Throttle.AttemptsPerSecond
	}
	if f.Throttle.Burst > 0 {
		cfg.Throttle.Burst = f.Throttle.Burst
	}

	if f.Telemetry.ServiceName != "" {
		cfg.Telemetry.ServiceName = f.Telemetry.ServiceName
	}
	if f.Telemetry.EnableTracing != nil {
		cfg.Telemetry.EnableTracing = *f.Telemetry.EnableTracing
	}
	if f.Telemetry.EnableMetrics != nil {
		cfg.Telemetry.EnableMetrics = *f.Telemetry.EnableMetrics
	}
	if f.Telemetry.MetricsPrefix != "" {
		cfg.Telemetry.MetricsPrefix = f.Telemetry.MetricsPrefix
	}

	if f.Audit.Enabled != nil {
		cfg.Audit.Enabled = *f.Audit.Enabled
	}
	if f.Audit.BasePath != "" {
		cfg.Audit.BasePath = f.Audit.BasePath
	}
	if f.Audit.FilePath != "" {
		cfg.Audit.FilePath = f.Audit.FilePath
	}
	if f.Audit.LogLevel != "" {
		cfg.Audit.LogLevel = observability.AuditLogLevel(f.Audit.LogLevel)
	}
}

// Duration is a time.Duration that can be unmarshaled from YAML.
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	duration, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = duration
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}
