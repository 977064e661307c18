package logging

import (
	"context"
	"log/slog"

	"imdbratings/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldContentID is the standardized key for the raw content identifier being resolved.
	FieldContentID = "content_id"
	// FieldPlatform is the standardized key for the catalog platform (imdb, kitsu, tmdb).
	FieldPlatform = "platform"
	// FieldIMDbID is the standardized key for IMDb title identifiers.
	FieldIMDbID = "imdb_id"
	// FieldStrategy is the standardized key for the resolution strategy that produced a value.
	FieldStrategy = "strategy"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies a log line for filtering (e.g. "search_failed").
	FieldEventType = "event_type"
	// FieldErrorHint carries a short operator-facing next step.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldDecisionType names the decision being logged.
	FieldDecisionType = "decision_type"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.ContentIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldContentID, id))
	}
	if platform, ok := services.PlatformFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldPlatform, platform))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
