package hooks

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/victoralfred/mortem/guard"
)

// orderedHook records the order hooks fire in.
type orderedHook struct {
	name     string
	priority int
	log      *[]string
}

func (h *orderedHook) Name() string  { return h.name }
func (h *orderedHook) Priority() int { return h.priority }

func (h *orderedHook) Armed(ctx context.Context, path string) {
	*h.log = append(*h.log, h.name+":armed")
}

func (h *orderedHook) Attempt(ctx context.Context, path string, out guard.Outcome) {
	*h.log = append(*h.log, h.name+":attempt")
}

func (h *orderedHook) Defused(ctx context.Context, path string) {
	*h.log = append(*h.log, h.name+":defused")
}

// errorHook records errors.
type errorHook struct {
	name string
	errs []error
}

func (h *errorHook) Name() string  { return h.name }
func (h *errorHook) Priority() int { return 0 }
func (h *errorHook) OnError(ctx context.Context, path string, err error) {
	h.errs = append(h.errs, err)
}

func TestRegistryDispatchOrder(t *testing.T) {
	var log []string
	r := NewRegistry()
	r.Register(&orderedHook{name: "late", priority: 10, log: &log})
	r.Register(&orderedHook{name: "early", priority: 1, log: &log})

	ctx := context.Background()
	r.Armed(ctx, "/x")

	want := []string{"early:armed", "late:armed"}
	if len(log) != len(want) {
		t.Fatalf("Expected %d calls, got %d", len(want), len(log))
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("Call %d: expected %q, got %q", i, want[i], log[i])
		}
	}
}

func TestRegistryAttemptAndErrorDispatch(t *testing.T) {
	var log []string
	errHook := &errorHook{name: "collector"}

	r := NewRegistry()
	r.Register(&orderedHook{name: "a", priority: 1, log: &log})
	r.Register(errHook)

	ctx := context.Background()
	cause := errors.New("text file busy")
	r.Attempt(ctx, "/x", guard.Outcome{Reason: guard.ReasonInUse, Err: cause, Attempt: 1})
	r.Attempt(ctx, "/x", guard.Outcome{Removed: true, Attempt: 2})

	if len(log) != 2 {
		t.Errorf("Expected 2 attempt notifications, got %d", len(log))
	}
	if len(errHook.errs) != 1 {
		t.Fatalf("Expected 1 error notification, got %d", len(errHook.errs))
	}
	if !errors.Is(errHook.errs[0], cause) {
		t.Errorf("Expected cause to reach error hook, got %v", errHook.errs[0])
	}
}

func TestRegistryUnregister(t *testing.T) {
	var log []string
	r := NewRegistry()
	r.Register(&orderedHook{name: "gone", priority: 1, log: &log})
	r.Unregister("gone")

	r.Armed(context.Background(), "/x")
	r.Defused(context.Background(), "/x")

	if len(log) != 0 {
		t.Errorf("Unregistered hook still fired: %v", log)
	}
}

func TestRegistryIsObserver(t *testing.T) {
	var _ guard.Observer = NewRegistry()
}

func TestLoggingHook(t *testing.T) {
	var lines []string
	h := NewLoggingHook(func(format string, args ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, args...))
	})

	r := NewRegistry()
	r.Register(h)

	ctx := context.Background()
	r.Armed(ctx, "/bin/victim")
	r.Attempt(ctx, "/bin/victim", guard.Outcome{Reason: guard.ReasonOther, Err: errors.New("boom"), Attempt: 1})
	r.Attempt(ctx, "/bin/victim", guard.Outcome{Removed: true, Attempt: 2})
	r.Defused(ctx, "/bin/victim")

	if len(lines) != 4 {
		t.Fatalf("Expected 4 log lines, got %d: %v", len(lines), lines)
	}
}
