package licensing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"gridseal/internal/canonical"
	"gridseal/internal/infrastructure"
	"gridseal/internal/license"
)

const (
	TracerName = "licensing-manager"
	MeterName  = "licensing-manager"
)

// Metrics holds the manager's OpenTelemetry instruments.
type Metrics struct {
	SignAttempts metric.Int64Counter
	SignSuccess  metric.Int64Counter
	SignFailures metric.Int64Counter
	SignDuration metric.Float64Histogram

	VerifyAttempts metric.Int64Counter
	VerifySuccess  metric.Int64Counter
	VerifyFailures metric.Int64Counter
	VerifyDuration metric.Float64Histogram

	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter
}

// NewMetrics creates the license instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	metrics := &Metrics{}

	var err error

	metrics.SignAttempts, err = meter.Int64Counter(
		"license_sign_attempts_total",
		metric.WithDescription("Total number of license signing attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sign attempts counter: %w", err)
	}

	metrics.SignSuccess, err = meter.Int64Counter(
		"license_sign_success_total",
		metric.WithDescription("Total number of successfully signed licenses"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sign success counter: %w", err)
	}

	metrics.SignFailures, err = meter.Int64Counter(
		"license_sign_failures_total",
		metric.WithDescription("Total number of failed license signing attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sign failures counter: %w", err)
	}

	metrics.SignDuration, err = meter.Float64Histogram(
		"license_sign_duration_seconds",
		metric.WithDescription("License signing duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sign duration histogram: %w", err)
	}

	metrics.VerifyAttempts, err = meter.Int64Counter(
		"license_verify_attempts_total",
		metric.WithDescription("Total number of license verification attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create verify attempts counter: %w", err)
	}

	metrics.VerifySuccess, err = meter.Int64Counter(
		"license_verify_success_total",
		metric.WithDescription("Total number of successful license verifications"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create verify success counter: %w", err)
	}

	metrics.VerifyFailures, err = meter.Int64Counter(
		"license_verify_failures_total",
		metric.WithDescription("Total number of rejected license verifications"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create verify failures counter: %w", err)
	}

	metrics.VerifyDuration, err = meter.Float64Histogram(
		"license_verify_duration_seconds",
		metric.WithDescription("License verification duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create verify duration histogram: %w", err)
	}

	metrics.CacheHits, err = meter.Int64Counter(
		"license_verify_cache_hits_total",
		metric.WithDescription("Total number of verification cache hits"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache hits counter: %w", err)
	}

	metrics.CacheMisses, err = meter.Int64Counter(
		"license_verify_cache_misses_total",
		metric.WithDescription("Total number of verification cache misses"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache misses counter: %w", err)
	}

	return metrics, nil
}

// TraceSign wraps license signing with OpenTelemetry tracing.
func (m *Manager) TraceSign(ctx context.Context, licenseID string, fn func() error) error {
	tracer := otel.Tracer(TracerName)

	ctx, span := tracer.Start(ctx, "license.sign",
		trace.WithAttributes(
			attribute.String("license.operation", "sign"),
			attribute.String("license.id_masked", maskIdentifier(licenseID)),
			attribute.String("component", "licensing_manager"),
		),
	)
	defer span.End()

	start := time.Now()
	err := fn()
	duration := time.Since(start)

	m.recordSignMetrics(ctx, duration, err == nil)

	span.SetAttributes(
		attribute.Float64("license.duration_ms", float64(duration.Milliseconds())),
		attribute.Bool("license.success", err == nil),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("license.error_type", classifySignError(err)))
	} else {
		span.SetStatus(codes.Ok, "License signed")

		infrastructure.AddSpanEvent(ctx, "license.sign.success", map[string]interface{}{
			"license_id_hash": hashIdentifier(licenseID),
			"audit_category":  "license_security",
		})
	}

	return err
}

// TraceVerify wraps license verification with OpenTelemetry tracing.
func (m *Manager) TraceVerify(ctx context.Context, fn func() bool) bool {
	tracer := otel.Tracer(TracerName)

	ctx, span := tracer.Start(ctx, "license.verify",
		trace.WithAttributes(
			attribute.String("license.operation", "verify"),
			attribute.String("component", "licensing_manager"),
		),
	)
	defer span.End()

	start := time.Now()
	valid := fn()
	duration := time.Since(start)

	m.recordVerifyMetrics(ctx, duration, valid)

	span.SetAttributes(
		attribute.Float64("license.duration_ms", float64(duration.Milliseconds())),
		attribute.Bool("license.valid", valid),
	)

	if valid {
		span.SetStatus(codes.Ok, "License verification successful")
	} else {
		span.SetStatus(codes.Error, "License verification failed")
		span.SetAttributes(attribute.String("license.error_type", "invalid_license"))
	}

	return valid
}

func (m *Manager) recordSignMetrics(ctx context.Context, duration time.Duration, success bool) {
	if m.metrics == nil {
		return
	}

	labels := metric.WithAttributes(
		attribute.String("operation", "sign"),
		attribute.String("component", "licensing_manager"),
	)

	m.metrics.SignAttempts.Add(ctx, 1, labels)
	m.metrics.SignDuration.Record(ctx, duration.Seconds(), labels)

	if success {
		m.metrics.SignSuccess.Add(ctx, 1, labels)
	} else {
		m.metrics.SignFailures.Add(ctx, 1, labels)
	}
}

func (m *Manager) recordVerifyMetrics(ctx context.Context, duration time.Duration, valid bool) {
	if m.metrics == nil {
		return
	}

	labels := metric.WithAttributes(
		attribute.String("operation", "verify"),
		attribute.String("component", "licensing_manager"),
	)

	m.metrics.VerifyAttempts.Add(ctx, 1, labels)
	m.metrics.VerifyDuration.Record(ctx, duration.Seconds(), labels)

	if valid {
		m.metrics.VerifySuccess.Add(ctx, 1, labels)
	} else {
		m.metrics.VerifyFailures.Add(ctx, 1, labels)
	}
}

func (m *Manager) recordCacheMetrics(ctx context.Context, hit bool) {
	if m.metrics == nil {
		return
	}

	labels := metric.WithAttributes(
		attribute.String("component", "licensing_manager"),
	)

	if hit {
		m.metrics.CacheHits.Add(ctx, 1, labels)
	} else {
		m.metrics.CacheMisses.Add(ctx, 1, labels)
	}
}

// classifySignError categorizes issue-path failures for observability.
func classifySignError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrNoPrivateKey) {
		return "no_private_key"
	}
	if _, ok := license.AsValidationError(err); ok {
		return "validation_failed"
	}
	if _, ok := license.AsFieldError(err); ok {
		return "invalid_field"
	}
	if _, ok := canonical.AsError(err); ok {
		return "canonicalization_failed"
	}
	return "crypto_failure"
}
