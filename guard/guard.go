// Package guard implements the scoped self-deletion guard. A Guard is
// created near program start, carried for the life of the process, and
// released exactly once when its owning scope ends:
//
//	g, err := guard.NewBuilder().WithPolicy(guard.PolicyHard).Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer g.Release()
//
// Release is the deferred teardown trigger; it runs the deletion
// strategy according to the guard's policy. A guard that has been
// defused releases as a no-op.
package guard

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"github.com/victoralfred/mortem/resilience"
)

// Guard states. The only transitions are armed -> disarmed (Defuse) and
// armed -> released (Release); both are CAS-guarded so teardown runs at
// most once per guard even if Release is deferred twice.
const (
	stateArmed int32 = iota
	stateDisarmed
	stateReleased
)

// Remover performs one deletion attempt. The production implementation
// lives in internal/remove; tests substitute scripted fakes.
type Remover interface {
	Attempt(path string) Outcome
}

// Observer receives guard lifecycle notifications. Implementations must
// not block: under the hard policy Attempt is invoked once per retry.
type Observer interface {
	// Armed is called when the guard is constructed.
	Armed(ctx context.Context, path string)

	// Attempt is called after every deletion attempt.
	Attempt(ctx context.Context, path string, out Outcome)

	// Defused is called the first time the guard is defused.
	Defused(ctx context.Context, path string)
}

// Telemetry provides observability for guard teardown.
type Telemetry interface {
	// StartSpan starts a trace span; the returned func ends it.
	StartSpan(ctx context.Context, name string) (context.Context, func())

	// RecordCounter increments a counter.
	RecordCounter(name string, labels map[string]string)

	// RecordDuration records a duration in seconds.
	RecordDuration(name string, seconds float64, labels map[string]string)

	// SetGauge adjusts a gauge by value.
	SetGauge(name string, value float64, labels map[string]string)
}

// Guard arranges deletion of path when Release runs. A Guard is owned by
// the scope that created it and must not be shared across goroutines:
// Defuse and Release are safe against each other, but the guard carries
// no further synchronization.
type Guard struct {
	id     string
	path   string
	policy Policy
	strict bool

	remover   Remover
	backoff   resilience.Backoff
	throttle  resilience.Throttle
	observer  Observer
	telemetry Telemetry
	exit      func(int)

	state int32
}

// ID returns the guard's unique identifier, used to correlate audit and
// telemetry events.
func (g *Guard) ID() string {
	return g.id
}

// Path returns the path the guard will delete.
func (g *Guard) Path() string {
	return g.path
}

// Policy returns the guard's policy.
func (g *Guard) Policy() Policy {
	return g.policy
}

// Armed reports whether teardown will still attempt deletion.
func (g *Guard) Armed() bool {
	return atomic.LoadInt32(&g.state) == stateArmed
}

// Defuse permanently disarms the guard: a later Release performs no
// deletion attempt. Defuse is idempotent and a no-op after Release.
func (g *Guard) Defuse() {
	if !atomic.CompareAndSwapInt32(&g.state, stateArmed, stateDisarmed) {
		return
	}

	ctx := context.Background()
	g.observer.Defused(ctx, g.path)
	g.telemetry.RecordCounter("mortem_guards_defused_total", g.labels())
	g.telemetry.SetGauge("mortem_armed_guards", -1, g.labels())
}

// Release runs the guard's teardown. Call it exactly once via defer at
// the point where the guarded scope ends; extra calls are no-ops. Under
// PolicySoft this makes a single attempt and returns. Under PolicyHard
// it blocks until the file is gone, which on locked-file platforms can
// mean blocking forever (see PolicyHard).
func (g *Guard) Release() {
	if !atomic.CompareAndSwapInt32(&g.state, stateArmed, stateReleased) {
		return
	}

	ctx, end := g.telemetry.StartSpan(context.Background(), "mortem.release")
	defer end()
	g.telemetry.SetGauge("mortem_armed_guards", -1, g.labels())

	if g.policy == PolicyHard {
		g.releaseHard(ctx)
	} else {
		g.releaseSoft(ctx)
	}
}

// releaseSoft makes exactly one attempt. A failure is already reported
// by attempt; the only extra branch is the strict exit.
func (g *Guard) releaseSoft(ctx context.Context) {
	out := g.attempt(ctx, 1)
	if out.Failed() && g.strict {
		// Strict soft guards terminate rather than return control
		// with the binary still on disk. This bypasses any further
		// deferred calls in the caller.
		g.exit(1)
	}
}

// releaseHard retries until the file is gone. A not_found outcome counts
// as success: the goal state is "no file at path", however it was
// reached.
func (g *Guard) releaseHard(ctx context.Context) {
	for n := 1; ; n++ {
		if err := g.throttle.Wait(ctx); err != nil {
			return
		}

		out := g.attempt(ctx, n)
		if out.Removed || out.Reason == ReasonNotFound {
			return
		}

		wait := g.backoff.Next()
		if wait == 0 {
			// Only reachable with a bounded backoff; the default
			// configuration never exhausts.
			return
		}
		time.Sleep(wait)
	}
}

// attempt runs one deletion attempt and reports it.
func (g *Guard) attempt(ctx context.Context, n int) Outcome {
	out := g.remover.Attempt(g.path)
	out.Attempt = n

	g.observer.Attempt(ctx, g.path, out)

	labels := g.labels()
	if out.Removed {
		g.telemetry.RecordCounter("mortem_removals_total", labels)
	} else {
		labels["reason"] = string(out.Reason)
		g.telemetry.RecordCounter("mortem_attempt_failures_total", labels)
	}
	g.telemetry.RecordDuration("mortem_attempt_duration_seconds", out.Duration.Seconds(), labels)

	return out
}

func (g *Guard) labels() map[string]string {
	return map[string]string{
		"guard_id": g.id,
		"policy":   string(g.policy),
	}
}

// nopObserver is the default observer.
type nopObserver struct{}

func (nopObserver) Armed(ctx context.Context, path string)                {}
func (nopObserver) Attempt(ctx context.Context, path string, out Outcome) {}
func (nopObserver) Defused(ctx context.Context, path string)              {}

// nopTelemetry is the default telemetry; instrumentation is opt-in and
// costs nothing when disabled.
type nopTelemetry struct{}

func (nopTelemetry) StartSpan(ctx context.Context, name string) (context.Context, func()) {
	return ctx, func() {}
}
func (nopTelemetry) RecordCounter(name string, labels map[string]string)                   {}
func (nopTelemetry) RecordDuration(name string, seconds float64, labels map[string]string) {}
func (nopTelemetry) SetGauge(name string, value float64, labels map[string]string)         {}

// defaultExit is overridden in tests of the strict soft path.
var defaultExit = os.Exit
