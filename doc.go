// Package mortem provides scope-bound self-deletion of the running executable.
//
// Mortem arms a guard at the top of main that deletes the program's own
// binary from disk when the guarded scope exits. It is built for
// programs that must not outlive their invocation: installers,
// bootstrap stubs, one-shot migration tools, and authorized red-team
// tooling.
//
// # Key Features
//
//   - Scope-bound arming with defer; deletion fires exactly once
//   - Soft policy (single attempt) and hard policy (retry until gone)
//   - Strict mode for soft guards: non-zero exit when deletion fails
//   - Defuse to disarm a guard and keep the binary
//   - Classified failure reasons (not found, permission, in use, other)
//   - Exponential backoff with jitter and rate-limited retries
//   - OpenTelemetry metrics and tracing, off by default
//   - JSONL audit logging of the guard lifecycle
//   - YAML configuration with change watching
//
// # Basic Usage
//
//	g, err := mortem.Soft()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer g.Release()
//
//	if keepBinary {
//	    g.Defuse()
//	}
//
// # With Configuration
//
//	loader, _ := mortem.LoadConfig("/etc/mortem", "mortem.yaml")
//	cfg, _ := loader.Load(ctx)
//
//	g, _ := mortem.FromConfig(cfg)
//	defer g.Release()
//
// # Platform Behavior
//
// On Unix-like systems an executable can normally unlink itself while
// running; the process keeps executing from the unlinked inode. On
// Windows the running image is usually locked, so a soft guard tends to
// report ReasonInUse and a hard guard keeps retrying until the lock is
// dropped. Reason classification is handled per platform inside
// internal/remove.
//
// # File I/O
//
// Audit and configuration file operations use
// github.com/victoralfred/gowritter/safepath for secure path handling.
// File deletion is confined to the internal/remove package; no other
// package in this library removes files.
//
// # Package Structure
//
//   - mortem: Main entry point and convenience functions
//   - guard: Core Guard type, policies, and builder
//   - selfpath: Executable path resolution
//   - config: YAML configuration loading and validation
//   - resilience: Backoff and retry throttling
//   - observability: OpenTelemetry metrics and audit logging
//   - hooks: Extension points for custom behavior
//   - internal/remove: Platform-specific deletion and classification
package mortem
