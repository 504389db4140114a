package observability

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/victoralfred/mortem/guard"
)

// memoryLogger captures events for assertions.
type memoryLogger struct {
	events []*AuditEvent
	err    error
}

func (m *memoryLogger) Log(ctx context.Context, event *AuditEvent) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *memoryLogger) Close() error { return nil }

func TestFileAuditLoggerWritesJSONLines(t *testing.T) {
	base := t.TempDir()
	logger, err := NewFileAuditLogger(AuditConfig{
		Enabled:  true,
		LogLevel: AuditLogAll,
		BasePath: base,
		FilePath: "audit.log",
	})
	if err != nil {
		t.Fatalf("NewFileAuditLogger failed: %v", err)
	}
	defer logger.Close()

	ctx := context.Background()
	events := []*AuditEvent{
		{ID: "1", Type: AuditEventArmed, Path: "/bin/victim"},
		{ID: "2", Type: AuditEventAttemptFailed, Path: "/bin/victim", Reason: "in_use", Attempt: 1},
		{ID: "3", Type: AuditEventRemoved, Path: "/bin/victim", Attempt: 2},
	}

	for _, e := range events {
		if err := logger.Log(ctx, e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	data, err := os.ReadFile(filepath.Join(base, "audit.log"))
	if err != nil {
		t.Fatalf("Reading audit log failed: %v", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	var decoded []*AuditEvent
	for scanner.Scan() {
		var e AuditEvent
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("Invalid JSON line %q: %v", scanner.Text(), err)
		}
		decoded = append(decoded, &e)
	}

	if len(decoded) != len(events) {
		t.Fatalf("Expected %d events, got %d", len(events), len(decoded))
	}
	if decoded[1].Reason != "in_use" {
		t.Errorf("Expected reason in_use, got %q", decoded[1].Reason)
	}
}

func TestFileAuditLoggerDisabled(t *testing.T) {
	base := t.TempDir()
	logger, err := NewFileAuditLogger(AuditConfig{
		Enabled:  false,
		BasePath: base,
		FilePath: "audit.log",
	})
	if err != nil {
		t.Fatalf("NewFileAuditLogger failed: %v", err)
	}

	if err := logger.Log(context.Background(), &AuditEvent{Type: AuditEventArmed}); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(base, "audit.log")); !os.IsNotExist(err) {
		t.Error("Disabled logger created an audit file")
	}
}

func TestFileAuditLoggerFailuresOnly(t *testing.T) {
	base := t.TempDir()
	logger, err := NewFileAuditLogger(AuditConfig{
		Enabled:  true,
		LogLevel: AuditLogFailures,
		BasePath: base,
		FilePath: "audit.log",
	})
	if err != nil {
		t.Fatalf("NewFileAuditLogger failed: %v", err)
	}

	ctx := context.Background()
	logger.Log(ctx, &AuditEvent{Type: AuditEventArmed, Path: "/x"})
	logger.Log(ctx, &AuditEvent{Type: AuditEventAttemptFailed, Path: "/x", Reason: "other"})
	logger.Log(ctx, &AuditEvent{Type: AuditEventRemoved, Path: "/x"})

	data, err := os.ReadFile(filepath.Join(base, "audit.log"))
	if err != nil {
		t.Fatalf("Reading audit log failed: %v", err)
	}

	lines := bytes.Count(data, []byte{'\n'})
	if lines != 1 {
		t.Errorf("Expected 1 logged event at failures level, got %d", lines)
	}
}

func TestAuditObserverLifecycle(t *testing.T) {
	mem := &memoryLogger{}
	obs := NewAuditObserver(mem, "guard-1", "hard")
	ctx := context.Background()

	obs.Armed(ctx, "/bin/victim")
	obs.Attempt(ctx, "/bin/victim", guard.Outcome{
		Reason:   guard.ReasonInUse,
		Err:      errors.New("text file busy"),
		Attempt:  1,
		Duration: time.Millisecond,
	})
	obs.Attempt(ctx, "/bin/victim", guard.Outcome{Removed: true, Attempt: 2})
	obs.Defused(ctx, "/bin/victim")

	if len(mem.events) != 4 {
		t.Fatalf("Expected 4 events, got %d", len(mem.events))
	}

	wantTypes := []AuditEventType{
		AuditEventArmed,
		AuditEventAttemptFailed,
		AuditEventRemoved,
		AuditEventDefused,
	}
	for i, want := range wantTypes {
		if mem.events[i].Type != want {
			t.Errorf("Event %d: expected type %q, got %q", i, want, mem.events[i].Type)
		}
		if mem.events[i].ID == "" {
			t.Errorf("Event %d missing ID", i)
		}
		if mem.events[i].GuardID != "guard-1" {
			t.Errorf("Event %d missing guard ID", i)
		}
		if mem.events[i].Timestamp.IsZero() {
			t.Errorf("Event %d missing timestamp", i)
		}
	}

	failed := mem.events[1]
	if failed.Reason != string(guard.ReasonInUse) {
		t.Errorf("Expected reason %q, got %q", guard.ReasonInUse, failed.Reason)
	}
	if failed.Error == "" {
		t.Error("Failed attempt event missing error text")
	}
}

func TestAuditObserverSwallowsLoggerErrors(t *testing.T) {
	obs := NewAuditObserver(&memoryLogger{err: errors.New("disk full")}, "g", "soft")

	// Must not panic or propagate.
	obs.Armed(context.Background(), "/x")
	obs.Attempt(context.Background(), "/x", guard.Outcome{Removed: true, Attempt: 1})
}
