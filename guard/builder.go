package guard

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/google/uuid"
	"github.com/victoralfred/mortem/internal/remove"
	"github.com/victoralfred/mortem/resilience"
	"github.com/victoralfred/mortem/selfpath"
)

// Builder creates configured Guard instances. The zero value is not
// usable; start from NewBuilder.
type Builder struct {
	policy    Policy
	id        string
	path      string
	strict    bool
	remover   Remover
	backoff   resilience.Backoff
	throttle  resilience.Throttle
	observer  Observer
	telemetry Telemetry
	exit      func(int)
}

// NewBuilder creates a new guard builder with the soft policy.
func NewBuilder() *Builder {
	return &Builder{
		policy: PolicySoft,
	}
}

// WithPolicy sets the teardown policy.
func (b *Builder) WithPolicy(policy Policy) *Builder {
	b.policy = policy
	return b
}

// WithID sets the guard's identifier. When unset, Build generates a
// random UUID. Supplying the ID up front lets callers stamp it on
// observers created before the guard exists.
func (b *Builder) WithID(id string) *Builder {
	b.id = id
	return b
}

// WithPath guards an explicit path instead of the running executable.
// The path must exist when Build runs.
func (b *Builder) WithPath(path string) *Builder {
	b.path = path
	return b
}

// WithStrict makes a soft guard exit the process with a non-zero status
// when its single attempt fails. Ignored under the hard policy.
func (b *Builder) WithStrict(strict bool) *Builder {
	b.strict = strict
	return b
}

// WithRemover sets the deletion strategy. Intended for tests.
func (b *Builder) WithRemover(remover Remover) *Builder {
	b.remover = remover
	return b
}

// WithBackoff sets the retry backoff for the hard policy.
func (b *Builder) WithBackoff(backoff resilience.Backoff) *Builder {
	b.backoff = backoff
	return b
}

// WithThrottle sets the attempt throttle for the hard policy.
func (b *Builder) WithThrottle(throttle resilience.Throttle) *Builder {
	b.throttle = throttle
	return b
}

// WithObserver sets the lifecycle observer.
func (b *Builder) WithObserver(observer Observer) *Builder {
	b.observer = observer
	return b
}

// WithTelemetry sets the telemetry provider.
func (b *Builder) WithTelemetry(telemetry Telemetry) *Builder {
	b.telemetry = telemetry
	return b
}

// WithExitFunc overrides the strict-soft termination call. Intended for
// tests.
func (b *Builder) WithExitFunc(exit func(int)) *Builder {
	b.exit = exit
	return b
}

// Build resolves the guarded path and returns an armed guard. Path
// resolution is eager so that failures surface here, where the caller
// can still handle an error, rather than inside deferred teardown.
func (b *Builder) Build() (*Guard, error) {
	if !b.policy.Valid() {
		return nil, NewPolicyError(b.policy)
	}

	path := b.path
	if path == "" {
		resolved, err := selfpath.Resolve()
		if err != nil {
			return nil, NewResolutionError("", err)
		}
		path = resolved
	} else if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %w", ErrPathNotFound, err)
		}
		return nil, NewResolutionError(path, err)
	}

	id := b.id
	if id == "" {
		id = uuid.NewString()
	}

	g := &Guard{
		id:        id,
		path:      path,
		policy:    b.policy,
		strict:    b.strict,
		remover:   b.remover,
		backoff:   b.backoff,
		throttle:  b.throttle,
		observer:  b.observer,
		telemetry: b.telemetry,
		exit:      b.exit,
		state:     stateArmed,
	}

	if g.remover == nil {
		g.remover = osRemover{remove.New()}
	}
	if g.backoff == nil {
		g.backoff = resilience.NewExponentialBackoff(resilience.DefaultBackoffConfig())
	}
	if g.throttle == nil {
		if g.policy == PolicyHard {
			g.throttle = resilience.NewThrottle(resilience.DefaultThrottleConfig())
		} else {
			g.throttle = resilience.Unlimited()
		}
	}
	if g.observer == nil {
		g.observer = nopObserver{}
	}
	if g.telemetry == nil {
		g.telemetry = nopTelemetry{}
	}
	if g.exit == nil {
		g.exit = defaultExit
	}

	g.observer.Armed(context.Background(), g.path)
	g.telemetry.RecordCounter("mortem_guards_armed_total", g.labels())
	g.telemetry.SetGauge("mortem_armed_guards", 1, g.labels())

	return g, nil
}

// osRemover adapts internal/remove to the Remover interface.
type osRemover struct {
	r *remove.Remover
}

// Attempt implements Remover.
func (o osRemover) Attempt(path string) Outcome {
	return fromRemoveResult(o.r.Attempt(path), 0)
}
