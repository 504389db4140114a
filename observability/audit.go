package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/victoralfred/gowritter/safepath"

	"github.com/victoralfred/mortem/guard"
)

// AuditLogger records guard lifecycle events to durable storage.
type AuditLogger interface {
	// Log logs an audit event.
	Log(ctx context.Context, event *AuditEvent) error

	// Close closes the audit logger.
	Close() error
}

// AuditEvent represents one guard lifecycle event.
type AuditEvent struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Type      AuditEventType `json:"type"`
	GuardID   string         `json:"guard_id,omitempty"`
	Path      string         `json:"path"`
	Policy    string         `json:"policy,omitempty"`
	Attempt   int            `json:"attempt,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	Error     string         `json:"error,omitempty"`
	Duration  time.Duration  `json:"duration,omitempty"`
}

// AuditEventType represents the type of audit event.
type AuditEventType string

const (
	// AuditEventArmed is emitted when a guard is constructed.
	AuditEventArmed AuditEventType = "guard_armed"

	// AuditEventRemoved is emitted when an attempt deletes the file.
	AuditEventRemoved AuditEventType = "removed"

	// AuditEventAttemptFailed is emitted when an attempt fails.
	AuditEventAttemptFailed AuditEventType = "attempt_failed"

	// AuditEventDefused is emitted when a guard is defused.
	AuditEventDefused AuditEventType = "guard_defused"
)

// AuditConfig configures the audit logger.
type AuditConfig struct {
	LogLevel AuditLogLevel
	BasePath string
	FilePath string
	Enabled  bool
}

// AuditLogLevel determines what events to log.
type AuditLogLevel string

const (
	// AuditLogAll logs all events.
	AuditLogAll AuditLogLevel = "all"

	// AuditLogFailures logs only failed attempts.
	AuditLogFailures AuditLogLevel = "failures"
)

// DefaultAuditConfig returns default audit configuration. Audit is off
// by default; a library that deletes its own binary should not leave a
// trail unless asked to.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		Enabled:  false,
		LogLevel: AuditLogAll,
		BasePath: "/var/log",
		FilePath: "mortem/audit.log",
	}
}

// fileAuditLogger implements AuditLogger using gowritter.
type fileAuditLogger struct {
	safePath *safepath.SafePath
	config   AuditConfig
	mu       sync.Mutex
}

// NewFileAuditLogger creates a new file-based audit logger writing JSON
// lines under the configured base path.
func NewFileAuditLogger(config AuditConfig) (AuditLogger, error) {
	sp, err := safepath.New(config.BasePath)
	if err != nil {
		return nil, fmt.Errorf("creating safe path: %w", err)
	}

	return &fileAuditLogger{
		config:   config,
		safePath: sp,
	}, nil
}

// Log implements AuditLogger.Log.
func (l *fileAuditLogger) Log(ctx context.Context, event *AuditEvent) error {
	if !l.config.Enabled {
		return nil
	}

	if !l.shouldLog(event) {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling audit event: %w", err)
	}

	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.safePath.AppendFile(l.config.FilePath, data, 0o644); err != nil {
		return fmt.Errorf("writing audit log: %w", err)
	}

	return nil
}

// Close implements AuditLogger.Close.
func (l *fileAuditLogger) Close() error {
	return nil
}

func (l *fileAuditLogger) shouldLog(event *AuditEvent) bool {
	switch l.config.LogLevel {
	case AuditLogFailures:
		return event.Type == AuditEventAttemptFailed
	default:
		return true
	}
}

// AuditObserver bridges guard lifecycle notifications into the audit
// log. It satisfies guard.Observer. Logging failures are swallowed:
// teardown must not depend on the audit trail being writable.
type AuditObserver struct {
	logger  AuditLogger
	guardID string
	policy  string
}

// NewAuditObserver creates an observer that writes to logger. guardID
// and policy are stamped on every event for correlation.
func NewAuditObserver(logger AuditLogger, guardID string, policy string) *AuditObserver {
	return &AuditObserver{
		logger:  logger,
		guardID: guardID,
		policy:  policy,
	}
}

// Armed implements guard.Observer.
func (o *AuditObserver) Armed(ctx context.Context, path string) {
	o.log(ctx, &AuditEvent{
		Type: AuditEventArmed,
		Path: path,
	})
}

// Attempt implements guard.Observer.
func (o *AuditObserver) Attempt(ctx context.Context, path string, out guard.Outcome) {
	event := &AuditEvent{
		Type:     AuditEventRemoved,
		Path:     path,
		Attempt:  out.Attempt,
		Duration: out.Duration,
	}

	if out.Failed() {
		event.Type = AuditEventAttemptFailed
		event.Reason = string(out.Reason)
		if out.Err != nil {
			event.Error = out.Err.Error()
		}
	}

	o.log(ctx, event)
}

// Defused implements guard.Observer.
func (o *AuditObserver) Defused(ctx context.Context, path string) {
	o.log(ctx, &AuditEvent{
		Type: AuditEventDefused,
		Path: path,
	})
}

func (o *AuditObserver) log(ctx context.Context, event *AuditEvent) {
	event.ID = uuid.NewString()
	event.Timestamp = time.Now()
	event.GuardID = o.guardID
	event.Policy = o.policy

	//nolint:errcheck // Teardown must not fail on audit IO errors
	_ = o.logger.Log(ctx, event)
}
