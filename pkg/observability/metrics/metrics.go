// Package metrics records per-operation counters and latencies for module services.
package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OperationMetrics is implemented by every module's metrics recorder.
type OperationMetrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)
}

type otelMetrics struct {
	attempts  metric.Int64Counter
	successes metric.Int64Counter
	failures  metric.Int64Counter
	duration  metric.Float64Histogram
}

// New builds an OperationMetrics backed by meter. Instrument names are
// prefixed with module, e.g. "pick_operation_attempts_total".
func New(meter metric.Meter, module string) (OperationMetrics, error) {
	attempts, err := meter.Int64Counter(module+"_operation_attempts_total",
		metric.WithDescription("Operations attempted"))
	if err != nil {
		return nil, fmt.Errorf("attempts counter: %w", err)
	}
	successes, err := meter.Int64Counter(module+"_operation_success_total",
		metric.WithDescription("Operations completed successfully"))
	if err != nil {
		return nil, fmt.Errorf("success counter: %w", err)
	}
	failures, err := meter.Int64Counter(module+"_operation_failure_total",
		metric.WithDescription("Operations failed with an infrastructure error"))
	if err != nil {
		return nil, fmt.Errorf("failure counter: %w", err)
	}
	duration, err := meter.Float64Histogram(module+"_operation_duration_seconds",
		metric.WithDescription("Operation latency"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("duration histogram: %w", err)
	}

	return &otelMetrics{
		attempts:  attempts,
		successes: successes,
		failures:  failures,
		duration:  duration,
	}, nil
}

func labels(operation, service string) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("service", service),
	)
}

func (m *otelMetrics) RecordOperationAttempt(ctx context.Context, operation, service string) {
	m.attempts.Add(ctx, 1, labels(operation, service))
}

func (m *otelMetrics) RecordOperationSuccess(ctx context.Context, operation, service string) {
	m.successes.Add(ctx, 1, labels(operation, service))
}

func (m *otelMetrics) RecordOperationFailure(ctx context.Context, operation, service string) {
	m.failures.Add(ctx, 1, labels(operation, service))
}

func (m *otelMetrics) RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration) {
	m.duration.Record(ctx, duration.Seconds(), labels(operation, service))
}

type noopMetrics struct{}

// NewNoop returns an OperationMetrics that discards everything.
func NewNoop() OperationMetrics { return noopMetrics{} }

func (noopMetrics) RecordOperationAttempt(context.Context, string, string)                 {}
func (noopMetrics) RecordOperationSuccess(context.Context, string, string)                 {}
func (noopMetrics) RecordOperationFailure(context.Context, string, string)                 {}
func (noopMetrics) RecordOperationDuration(context.Context, string, string, time.Duration) {}
