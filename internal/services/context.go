package services

import "context"

type contextKey string

const (
	contentIDKey contextKey = "content_id"
	platformKey  contextKey = "platform"
	requestIDKey contextKey = "request_id"
)

// WithContentID annotates context with the raw content identifier being resolved.
func WithContentID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, contentIDKey, id)
}

// ContentIDFromContext returns the content identifier if present.
func ContentIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(contentIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithPlatform annotates context with the catalog platform (imdb, kitsu, tmdb).
func WithPlatform(ctx context.Context, platform string) context.Context {
	if platform == "" {
		return ctx
	}
	return context.WithValue(ctx, platformKey, platform)
}

// PlatformFromContext returns the platform name if present.
func PlatformFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(platformKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
