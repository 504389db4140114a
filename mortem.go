// Package mortem provides scope-bound self-deletion of the running executable.
//
// Mortem is a small library for programs that must not outlive their own
// invocation: installers, bootstrap stubs, one-shot migration tools, and
// authorized red-team implants. A Guard armed at the top of main deletes
// the program's binary from disk when the guarded scope exits, under one
// of two policies:
//
//   - Soft: one deletion attempt, failure tolerated (optionally fatal
//     in strict mode)
//   - Hard: retry with exponential backoff until the binary is gone
//
// # Quick Start
//
// The simplest way to use mortem:
//
//	func main() {
//	    g, err := mortem.Soft()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer g.Release()
//
//	    // ... the program's actual work ...
//	}
//
// When main returns, the deferred Release makes a single attempt to
// delete the executable. Call g.Defuse() at any point to disarm the
// guard and keep the binary.
//
// # With Configuration
//
// For production use, configure the guard from a YAML file:
//
//	loader, err := mortem.LoadConfig("/etc/mortem", "mortem.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cfg, err := loader.Load(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	g, err := mortem.FromConfig(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer g.Release()
//
// # Failure Model
//
// Every deletion attempt produces an Outcome with a classified Reason:
//
//   - ReasonNotFound: the binary is already gone
//   - ReasonPermission: the process lacks rights to unlink it
//   - ReasonInUse: the file is locked or busy (common on Windows)
//   - ReasonOther: any other I/O failure
//
// A hard guard treats ReasonNotFound as success; everything else is
// retried. A soft guard reports the outcome to its observer and stops.
//
// # Thread Safety
//
// All types in this package are safe for concurrent use by multiple
// goroutines. Release and Defuse race safely; exactly one of them wins.
//
// # File I/O
//
// Audit and configuration file operations in this library use
// github.com/victoralfred/gowritter/safepath for secure path handling.
// The deletion itself is confined to the internal/remove package.
package mortem

import (
	"path/filepath"

	"github.com/victoralfred/mortem/config"
	"github.com/victoralfred/mortem/guard"
	"github.com/victoralfred/mortem/observability"
	"github.com/victoralfred/mortem/resilience"
	"github.com/victoralfred/mortem/selfpath"

	"github.com/google/uuid"
)

// =============================================================================
// Core Types
// =============================================================================

// Guard arms self-deletion of a file and carries it out exactly once,
// when Release is called or deferred. Use Soft, Hard, or NewBuilder to
// create guards.
type Guard = guard.Guard

// Builder creates configured Guard instances.
type Builder = guard.Builder

// Policy selects how hard a guard tries to delete its file.
type Policy = guard.Policy

// Outcome describes a single deletion attempt.
type Outcome = guard.Outcome

// Reason classifies why a deletion attempt failed.
type Reason = guard.Reason

// Observer receives guard lifecycle notifications.
type Observer = guard.Observer

// GuardError is the structured error type returned by guard construction.
type GuardError = guard.GuardError

// ErrorCode identifies a class of guard error.
type ErrorCode = guard.ErrorCode

// Policy constants.
const (
	// PolicySoft makes a single deletion attempt on release.
	PolicySoft = guard.PolicySoft

	// PolicyHard retries deletion with backoff until the file is gone.
	PolicyHard = guard.PolicyHard
)

// Failure reason constants.
const (
	ReasonNone       = guard.ReasonNone
	ReasonNotFound   = guard.ReasonNotFound
	ReasonPermission = guard.ReasonPermission
	ReasonInUse      = guard.ReasonInUse
	ReasonOther      = guard.ReasonOther
)

// =============================================================================
// Configuration Types
// =============================================================================

// Config is a complete guard configuration.
type Config = config.Config

// ConfigLoader loads and watches configuration from YAML files.
type ConfigLoader = config.Loader

// =============================================================================
// Error Variables
// =============================================================================

// Common errors returned by the library.
var (
	// ErrResolution indicates the executable path could not be resolved.
	ErrResolution = guard.ErrResolution

	// ErrInvalidPolicy indicates an unknown guard policy.
	ErrInvalidPolicy = guard.ErrInvalidPolicy

	// ErrPathNotFound indicates an explicitly guarded path does not exist.
	ErrPathNotFound = guard.ErrPathNotFound
)

// =============================================================================
// Factory Functions
// =============================================================================

// Soft creates a guard over the running executable that makes a single
// deletion attempt on release. Resolution happens now; a guard is never
// returned with an unresolved path.
//
// Example:
//
//	g, err := mortem.Soft()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer g.Release()
func Soft() (*Guard, error) {
	return guard.NewBuilder().WithPolicy(guard.PolicySoft).Build()
}

// Hard creates a guard over the running executable that retries deletion
// with exponential backoff until the file is gone. Release does not
// return while the file still exists, so a binary held open indefinitely
// blocks process exit.
//
// Example:
//
//	g, err := mortem.Hard()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer g.Release()
func Hard() (*Guard, error) {
	return guard.NewBuilder().WithPolicy(guard.PolicyHard).Build()
}

// NewBuilder creates a guard builder for full configuration.
//
// Example:
//
//	g, err := mortem.NewBuilder().
//	    WithPolicy(mortem.PolicyHard).
//	    WithObserver(hooks.NewRegistry()).
//	    Build()
func NewBuilder() *Builder {
	return guard.NewBuilder()
}

// FromConfig creates a guard from a complete configuration, wiring
// telemetry and audit logging when the configuration enables them.
func FromConfig(cfg *Config) (*Guard, error) {
	if cfg == nil {
		c := config.DefaultConfig()
		cfg = &c
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	id := uuid.NewString()

	b := guard.NewBuilder().
		WithID(id).
		WithPolicy(cfg.Guard.Policy).
		WithStrict(cfg.Guard.Strict).
		WithBackoff(resilience.NewExponentialBackoff(cfg.Backoff))
	if cfg.Guard.Path != "" {
		b = b.WithPath(cfg.Guard.Path)
	}
	if cfg.Guard.Policy == guard.PolicyHard {
		b = b.WithThrottle(resilience.NewThrottle(cfg.Throttle))
	}

	if cfg.Telemetry.EnableTracing || cfg.Telemetry.EnableMetrics {
		tel, err := observability.NewTelemetry(cfg.Telemetry)
		if err != nil {
			return nil, err
		}
		b = b.WithTelemetry(tel)
	}

	if cfg.Audit.Enabled {
		logger, err := observability.NewFileAuditLogger(cfg.Audit)
		if err != nil {
			return nil, err
		}
		b = b.WithObserver(observability.NewAuditObserver(logger, id, string(cfg.Guard.Policy)))
	}

	return b.Build()
}

// =============================================================================
// Path Resolution
// =============================================================================

// ExecutablePath resolves the absolute, symlink-free path of the running
// executable. The result is cached for the life of the process.
func ExecutablePath() (string, error) {
	return selfpath.Resolve()
}

// =============================================================================
// Configuration Loading
// =============================================================================

// LoadConfig creates a configuration loader. The basePath is the
// directory containing the configuration file; configFile is the name
// of the file relative to basePath.
//
// Example mortem.yaml:
//
//	guard:
//	  policy: hard
//	backoff:
//	  initial_interval: 50ms
//	  max_interval: 5s
//	audit:
//	  enabled: true
//	  base_path: /var/log
//
// Example:
//
//	loader, err := mortem.LoadConfig("/etc/mortem", "mortem.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cfg, err := loader.Load(ctx)
func LoadConfig(basePath, configFile string) (*ConfigLoader, error) {
	return config.NewLoader(basePath, configFile)
}

// LoadConfigWithValidation creates a configuration loader with custom
// validators.
//
// Example:
//
//	loader, err := mortem.LoadConfigWithValidation(
//	    "/etc/mortem", "mortem.yaml",
//	    config.WithValidator(myValidator),
//	)
func LoadConfigWithValidation(basePath, configFile string, opts ...config.LoaderOption) (*ConfigLoader, error) {
	return config.NewLoader(basePath, configFile, opts...)
}

// LoadConfigFromPath creates a configuration loader from a full file
// path. This is a convenience function that splits the path into
// directory and filename.
//
// Example:
//
//	loader, err := mortem.LoadConfigFromPath("/etc/mortem/mortem.yaml")
func LoadConfigFromPath(path string) (*ConfigLoader, error) {
	dir := filepath.Dir(path)
	file := filepath.Base(path)
	return config.NewLoader(dir, file)
}

// DefaultConfig returns the default configuration: a non-strict soft
// guard with instrumentation off.
func DefaultConfig() Config {
	return config.DefaultConfig()
}

// StrictConfig returns a configuration for a strict soft guard: one
// deletion attempt, non-zero process exit on failure.
func StrictConfig() Config {
	return config.StrictConfig()
}

// HardenedConfig returns a configuration for a hard guard with audit
// logging and telemetry enabled.
func HardenedConfig() Config {
	return config.HardenedConfig()
}
