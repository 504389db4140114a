// Package config provides configuration management for mortem.
package config

import (
	"fmt"
	"time"

	"github.com/victoralfred/mortem/guard"
	"github.com/victoralfred/mortem/observability"
	"github.com/victoralfred/mortem/resilience"
)

// Config is the main configuration for mortem.
type Config struct {
	Guard     GuardConfig
	Backoff   resilience.BackoffConfig
	Throttle  resilience.ThrottleConfig
	Telemetry observability.TelemetryConfig
	Audit     observability.AuditConfig
}

// GuardConfig configures the guard itself.
type GuardConfig struct {
	// Policy is "soft" or "hard".
	Policy guard.Policy

	// Strict makes a soft guard exit with a non-zero status when its
	// single deletion attempt fails.
	Strict bool

	// Path overrides the guarded path. Empty means the running
	// executable.
	Path string
}

// DefaultConfig returns the default configuration: a non-strict soft
// guard with instrumentation off.
func DefaultConfig() Config {
	return Config{
		Guard: GuardConfig{
			Policy: guard.PolicySoft,
		},
		Backoff:   resilience.DefaultBackoffConfig(),
		Throttle:  resilience.DefaultThrottleConfig(),
		Telemetry: observability.TelemetryConfig{ServiceName: "mortem", MetricsPrefix: "mortem_"},
		Audit:     observability.DefaultAuditConfig(),
	}
}

// StrictConfig returns a soft guard that exits on IO errors.
func StrictConfig() Config {
	cfg := DefaultConfig()
	cfg.Guard.Strict = true
	return cfg
}

// HardenedConfig returns a hard guard with full instrumentation: the
// binary must be gone before control returns, and every attempt is
// traced and audited.
func HardenedConfig() Config {
	cfg := DefaultConfig()
	cfg.Guard.Policy = guard.PolicyHard
	cfg.Telemetry = observability.DefaultTelemetryConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.LogLevel = observability.AuditLogAll
	return cfg
}

// Validate checks the configuration and repairs zero values.
func (c *Config) Validate() error {
	if c.Guard.Policy == "" {
		c.Guard.Policy = guard.PolicySoft
	}
	if !c.Guard.Policy.Valid() {
		return fmt.Errorf("invalid guard policy %q", c.Guard.Policy)
	}

	if c.Backoff.InitialInterval <= 0 {
		c.Backoff.InitialInterval = 50 * time.Millisecond
	}

	if c.Backoff.MaxInterval < c.Backoff.InitialInterval {
		c.Backoff.MaxInterval = c.Backoff.InitialInterval
	}

	if c.Backoff.Multiplier < 1.0 {
		c.Backoff.Multiplier = 1.0
	}

	if c.Throttle.AttemptsPerSecond <= 0 {
		c.Throttle.AttemptsPerSecond = resilience.DefaultThrottleConfig().AttemptsPerSecond
	}

	if c.Throttle.Burst <= 0 {
		c.Throttle.Burst = 1
	}

	return nil
}
