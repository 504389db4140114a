// Package observability provides OpenTelemetry integration and an audit
// trail for guard lifecycle events. Both are disabled by default: a guard
// built without telemetry carries no-op instrumentation and pays nothing
// for it.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry provides observability features. It satisfies guard.Telemetry
// and can be passed directly to the guard builder.
type Telemetry interface {
	// StartSpan starts a new trace span; the returned func ends it.
	StartSpan(ctx context.Context, name string) (context.Context, func())

	// RecordCounter increments the counter identified by name.
	RecordCounter(name string, labels map[string]string)

	// RecordDuration records a duration in seconds.
	RecordDuration(name string, seconds float64, labels map[string]string)

	// SetGauge adjusts the armed-guards gauge.
	SetGauge(name string, value float64, labels map[string]string)
}

// TelemetryConfig configures telemetry.
type TelemetryConfig struct {
	// ServiceName is the instrumentation scope name.
	ServiceName string

	// EnableTracing enables trace spans around teardown.
	EnableTracing bool

	// EnableMetrics enables metrics collection.
	EnableMetrics bool

	// MetricsPrefix is the prefix for all metric names.
	MetricsPrefix string
}

// DefaultTelemetryConfig returns default configuration.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		ServiceName:   "mortem",
		EnableTracing: true,
		EnableMetrics: true,
		MetricsPrefix: "mortem_",
	}
}

// Metric names recorded by the guard, without prefix.
const (
	MetricGuardsArmed     = "guards_armed_total"
	MetricGuardsDefused   = "guards_defused_total"
	MetricRemovals        = "removals_total"
	MetricAttemptFailures = "attempt_failures_total"
	MetricAttemptDuration = "attempt_duration_seconds"
)

// telemetry implements Telemetry on the global otel providers.
type telemetry struct {
	config TelemetryConfig
	tracer trace.Tracer
	meter  metric.Meter

	counters        map[string]metric.Int64Counter
	eventCounter    metric.Int64Counter
	attemptDuration metric.Float64Histogram
	armedGuards     metric.Int64UpDownCounter
}

// NewTelemetry creates a new telemetry instance.
func NewTelemetry(config TelemetryConfig) (Telemetry, error) {
	t := &telemetry{
		config:   config,
		tracer:   otel.Tracer(config.ServiceName),
		meter:    otel.Meter(config.ServiceName),
		counters: make(map[string]metric.Int64Counter),
	}

	descriptions := map[string]string{
		MetricGuardsArmed:     "Total number of guards armed",
		MetricGuardsDefused:   "Total number of guards defused",
		MetricRemovals:        "Total number of successful executable removals",
		MetricAttemptFailures: "Total number of failed deletion attempts",
	}

	for name, desc := range descriptions {
		counter, err := t.meter.Int64Counter(
			config.MetricsPrefix+name,
			metric.WithDescription(desc),
		)
		if err != nil {
			return nil, err
		}
		t.counters[config.MetricsPrefix+name] = counter
	}

	var err error

	t.eventCounter, err = t.meter.Int64Counter(
		config.MetricsPrefix+"events_total",
		metric.WithDescription("Guard lifecycle events not covered by a dedicated counter"),
	)
	if err != nil {
		return nil, err
	}

	t.attemptDuration, err = t.meter.Float64Histogram(
		config.MetricsPrefix+MetricAttemptDuration,
		metric.WithDescription("Duration of deletion attempts"),
	)
	if err != nil {
		return nil, err
	}

	t.armedGuards, err = t.meter.Int64UpDownCounter(
		config.MetricsPrefix+"armed_guards",
		metric.WithDescription("Number of currently armed guards"),
	)
	if err != nil {
		return nil, err
	}

	return t, nil
}

// StartSpan implements Telemetry.StartSpan.
func (t *telemetry) StartSpan(ctx context.Context, name string) (context.Context, func()) {
	if !t.config.EnableTracing {
		return ctx, func() {}
	}

	ctx, span := t.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
	)

	return ctx, func() {
		span.End()
	}
}

// RecordCounter implements Telemetry.RecordCounter.
func (t *telemetry) RecordCounter(name string, labels map[string]string) {
	if !t.config.EnableMetrics {
		return
	}

	attrs := labelsToAttributes(labels)
	if counter, ok := t.counters[name]; ok {
		counter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
		return
	}
	t.eventCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordDuration implements Telemetry.RecordDuration.
func (t *telemetry) RecordDuration(name string, seconds float64, labels map[string]string) {
	if !t.config.EnableMetrics {
		return
	}

	attrs := labelsToAttributes(labels)
	t.attemptDuration.Record(context.Background(), seconds, metric.WithAttributes(attrs...))
}

// SetGauge implements Telemetry.SetGauge.
func (t *telemetry) SetGauge(name string, value float64, labels map[string]string) {
	if !t.config.EnableMetrics {
		return
	}

	attrs := labelsToAttributes(labels)
	t.armedGuards.Add(context.Background(), int64(value), metric.WithAttributes(attrs...))
}

// labelsToAttributes converts labels to OTEL attributes.
func labelsToAttributes(labels map[string]string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		attrs = append(attrs, attribute.String(k, v))
	}
	return attrs
}

// NoopTelemetry returns a no-op telemetry implementation.
func NoopTelemetry() Telemetry {
	return &noopTelemetry{}
}

type noopTelemetry struct{}

func (t *noopTelemetry) StartSpan(ctx context.Context, name string) (context.Context, func()) {
	return ctx, func() {}
}

func (t *noopTelemetry) RecordCounter(name string, labels map[string]string)                   {}
func (t *noopTelemetry) RecordDuration(name string, seconds float64, labels map[string]string) {}
func (t *noopTelemetry) SetGauge(name string, value float64, labels map[string]string)         {}
