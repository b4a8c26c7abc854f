package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Removal reasons reported by RecordSecretsRemoved.
const (
	RemovalReasonDeleted = "deleted"
	RemovalReasonExpired = "expired"
)

// BusinessMetrics records secret lifecycle operations.
type BusinessMetrics interface {
	// RecordOperation counts an operation such as "secret_create" or "secret_redeem"
	// with status "success" or "error".
	RecordOperation(ctx context.Context, domain, operation, status string)

	// RecordDuration records the duration of an operation in seconds.
	RecordDuration(ctx context.Context, domain, operation string, duration time.Duration, status string)

	// RecordSecretsRemoved counts secrets removed outside a redemption, labelled by reason.
	RecordSecretsRemoved(ctx context.Context, reason string, count int64)
}

type businessMetrics struct {
	operationCounter metric.Int64Counter
	durationHisto    metric.Float64Histogram
	removedCounter   metric.Int64Counter
}

// NewBusinessMetrics creates a BusinessMetrics implementation using the provided meter provider.
// Metric names are prefixed with namespace.
func NewBusinessMetrics(meterProvider metric.MeterProvider, namespace string) (BusinessMetrics, error) {
	meter := meterProvider.Meter(namespace)

	operationCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_operations_total", namespace),
		metric.WithDescription("Total number of secret lifecycle operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_operation_duration_seconds", namespace),
		metric.WithDescription("Duration of secret lifecycle operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	removedCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_secrets_removed_total", namespace),
		metric.WithDescription("Secrets removed by explicit delete or expiry cleanup"),
		metric.WithUnit("{secret}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create removed counter: %w", err)
	}

	return &businessMetrics{
		operationCounter: operationCounter,
		durationHisto:    durationHisto,
		removedCounter:   removedCounter,
	}, nil
}

func (b *businessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	b.operationCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("domain", domain),
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

func (b *businessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	b.durationHisto.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("domain", domain),
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

func (b *businessMetrics) RecordSecretsRemoved(ctx context.Context, reason string, count int64) {
	if count <= 0 {
		return
	}
	b.removedCounter.Add(ctx, count, metric.WithAttributes(attribute.String("reason", reason)))
}

// NoOpBusinessMetrics is used when metrics are disabled.
type NoOpBusinessMetrics struct{}

// NewNoOpBusinessMetrics creates a no-op BusinessMetrics implementation.
func NewNoOpBusinessMetrics() BusinessMetrics {
	return &NoOpBusinessMetrics{}
}

// RecordOperation does nothing.
func (n *NoOpBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {}

// RecordDuration does nothing.
func (n *NoOpBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
}

// RecordSecretsRemoved does nothing.
func (n *NoOpBusinessMetrics) RecordSecretsRemoved(ctx context.Context, reason string, count int64) {}
