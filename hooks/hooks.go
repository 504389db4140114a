// Package hooks provides extension points for the guard lifecycle.
package hooks

import (
	"context"
	"sort"
	"sync"

	"github.com/victoralfred/mortem/guard"
)

// Hook defines extension points for the guard lifecycle.
type Hook interface {
	// Name returns a unique identifier for the hook.
	Name() string

	// Priority determines execution order (lower = earlier).
	Priority() int
}

// ArmedHook is called when a guard is constructed.
type ArmedHook interface {
	Hook
	Armed(ctx context.Context, path string)
}

// AttemptHook is called after every deletion attempt. Implementations
// must not block: under the hard policy this runs once per retry.
type AttemptHook interface {
	Hook
	Attempt(ctx context.Context, path string, out guard.Outcome)
}

// DefusedHook is called when a guard is defused.
type DefusedHook interface {
	Hook
	Defused(ctx context.Context, path string)
}

// ErrorHook is called for every failed deletion attempt, after the
// AttemptHooks.
type ErrorHook interface {
	Hook
	OnError(ctx context.Context, path string, err error)
}

// Registry manages hook registration and dispatch. It satisfies
// guard.Observer, so a populated registry plugs straight into the guard
// builder.
type Registry struct {
	armed   []ArmedHook
	attempt []AttemptHook
	defused []DefusedHook
	errors  []ErrorHook
	mu      sync.RWMutex
}

// NewRegistry creates a new hook registry.
func NewRegistry() *Registry {
	return &Registry{
		armed:   make([]ArmedHook, 0),
		attempt: make([]AttemptHook, 0),
		defused: make([]DefusedHook, 0),
		errors:  make([]ErrorHook, 0),
	}
}

// Register adds a hook to the registry. A hook may implement several
// lifecycle interfaces and is registered for each.
func (r *Registry) Register(hook Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := hook.(ArmedHook); ok {
		r.armed = append(r.armed, h)
		sort.Slice(r.armed, func(i, j int) bool {
			return r.armed[i].Priority() < r.armed[j].Priority()
		})
	}

	if h, ok := hook.(AttemptHook); ok {
		r.attempt = append(r.attempt, h)
		sort.Slice(r.attempt, func(i, j int) bool {
			return r.attempt[i].Priority() < r.attempt[j].Priority()
		})
	}

	if h, ok := hook.(DefusedHook); ok {
		r.defused = append(r.defused, h)
		sort.Slice(r.defused, func(i, j int) bool {
			return r.defused[i].Priority() < r.defused[j].Priority()
		})
	}

	if h, ok := hook.(ErrorHook); ok {
		r.errors = append(r.errors, h)
		sort.Slice(r.errors, func(i, j int) bool {
			return r.errors[i].Priority() < r.errors[j].Priority()
		})
	}
}

// Unregister removes a hook by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.armed = removeArmed(r.armed, name)
	r.attempt = removeAttempt(r.attempt, name)
	r.defused = removeDefused(r.defused, name)
	r.errors = removeError(r.errors, name)
}

// Armed implements guard.Observer.
func (r *Registry) Armed(ctx context.Context, path string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, hook := range r.armed {
		hook.Armed(ctx, path)
	}
}

// Attempt implements guard.Observer.
func (r *Registry) Attempt(ctx context.Context, path string, out guard.Outcome) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, hook := range r.attempt {
		hook.Attempt(ctx, path, out)
	}

	if out.Failed() && out.Err != nil {
		for _, hook := range r.errors {
			hook.OnError(ctx, path, out.Err)
		}
	}
}

// Defused implements guard.Observer.
func (r *Registry) Defused(ctx context.Context, path string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, hook := range r.defused {
		hook.Defused(ctx, path)
	}
}

// Helper functions for removing hooks by name
func removeArmed(hooks []ArmedHook, name string) []ArmedHook {
	result := make([]ArmedHook, 0, len(hooks))
	for _, h := range hooks {
		if h.Name() != name {
			result = append(result, h)
		}
	}
	return result
}

func removeAttempt(hooks []AttemptHook, name string) []AttemptHook {
	result := make([]AttemptHook, 0, len(hooks))
	for _, h := range hooks {
		if h.Name() != name {
			result = append(result, h)
		}
	}
	return result
}

func removeDefused(hooks []DefusedHook, name string) []DefusedHook {
	result := make([]DefusedHook, 0, len(hooks))
	for _, h := range hooks {
		if h.Name() != name {
			result = append(result, h)
		}
	}
	return result
}

func removeError(hooks []ErrorHook, name string) []ErrorHook {
	result := make([]ErrorHook, 0, len(hooks))
	for _, h := range hooks {
		if h.Name() != name {
			result = append(result, h)
		}
	}
	return result
}

// LoggingHook is a built-in hook that logs the guard lifecycle through a
// printf-style function.
type LoggingHook struct {
	logger func(format string, args ...interface{})
}

// NewLoggingHook creates a new logging hook.
func NewLoggingHook(logger func(format string, args ...interface{})) *LoggingHook {
	return &LoggingHook{logger: logger}
}

func (h *LoggingHook) Name() string  { return "logging" }
func (h *LoggingHook) Priority() int { return 1000 }

// Armed implements ArmedHook.
func (h *LoggingHook) Armed(ctx context.Context, path string) {
	h.logger("Guard armed: %s", path)
}

// Attempt implements AttemptHook.
func (h *LoggingHook) Attempt(ctx context.Context, path string, out guard.Outcome) {
	if out.Removed {
		h.logger("Executable removed: %s (attempt %d, %v)", path, out.Attempt, out.Duration)
	} else {
		h.logger("Deletion attempt failed: %s - reason=%s attempt=%d err=%v", path, out.Reason, out.Attempt, out.Err)
	}
}

// Defused implements DefusedHook.
func (h *LoggingHook) Defused(ctx context.Context, path string) {
	h.logger("Guard defused: %s", path)
}
