package licensing

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"time"

	"gridseal/internal/infrastructure"
	"gridseal/pkg/contracts/domain"
)

// log resolves the manager's logger, preferring the injected one.
func (m *Manager) log(ctx context.Context) *slog.Logger {
	if m.logger != nil {
		return m.logger
	}
	return infrastructure.LoggerWithContext(ctx)
}

// logOperation logs operation completion with duration and trace correlation.
func (m *Manager) logOperation(ctx context.Context, operation string, start time.Time, err error) {
	logger := m.log(ctx)
	duration := time.Since(start)

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.Duration("duration", duration),
		slog.String("trace_id", infrastructure.TraceIDFromContext(ctx)),
		slog.String("component", "licensing_manager"),
	}

	if err != nil {
		attrs = append(attrs,
			slog.String("error", err.Error()),
			slog.String("error_type", classifySignError(err)),
		)
		logger.LogAttrs(ctx, slog.LevelError, "License operation failed", attrs...)
	} else {
		logger.LogAttrs(ctx, slog.LevelInfo, "License operation completed", attrs...)
	}
}

// logVerification logs one verification outcome with masked identifiers.
func (m *Manager) logVerification(ctx context.Context, start time.Time, report domain.VerificationReport) {
	logger := m.log(ctx)
	duration := time.Since(start)

	attrs := []slog.Attr{
		slog.String("operation", "verify"),
		slog.Duration("duration", duration),
		slog.String("trace_id", infrastructure.TraceIDFromContext(ctx)),
		slog.String("component", "licensing_manager"),
		slog.String("license_id_masked", maskIdentifier(report.LicenseID)),
		slog.String("license_id_hash", hashIdentifier(report.LicenseID)),
		slog.Bool("valid", report.Valid),
		slog.Bool("expired", report.Expired),
		slog.Bool("from_cache", report.FromCache),
	}
	if report.Code != "" {
		attrs = append(attrs, slog.String("code", report.Code))
	}

	if report.Valid {
		logger.LogAttrs(ctx, slog.LevelInfo, "License verification completed", attrs...)
	} else {
		logger.LogAttrs(ctx, slog.LevelWarn, "License verification rejected", attrs...)
	}
}

// maskIdentifier masks a license identifier for logs and span attributes.
func maskIdentifier(id string) string {
	if len(id) <= 8 {
		return "****"
	}
	return id[:4] + "****" + id[len(id)-4:]
}

// hashIdentifier hashes an identifier for audit correlation.
func hashIdentifier(id string) string {
	if id == "" {
		return ""
	}
	h := sha256.Sum256([]byte(id))
	return fmt.Sprintf("%x", h)[:16]
}
