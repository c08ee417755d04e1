package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey int

const (
	loggerKey contextKey = iota
	passIDKey
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if logger == nil {
		logger = Default()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the logger from context, or returns the default logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return Default()
	}
	if logger, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok && logger != nil {
		return logger
	}
	return Default()
}

// Ctx is a shorter alias for FromContext.
func Ctx(ctx context.Context) *zerolog.Logger {
	return FromContext(ctx)
}

// WithPassID tags the context and its logger with an aggregation pass id.
func WithPassID(ctx context.Context, passID string) context.Context {
	ctx = context.WithValue(ctx, passIDKey, passID)
	return WithField(ctx, "pass_id", passID)
}

// PassID extracts the aggregation pass id from context.
func PassID(ctx context.Context) string {
	if id, ok := ctx.Value(passIDKey).(string); ok {
		return id
	}
	return ""
}

// WithField adds a single string field to the logger in the context.
func WithField(ctx context.Context, key, value string) context.Context {
	logger := FromContext(ctx).With().Str(key, value).Logger()
	return WithLogger(ctx, &logger)
}

// WithTier adds fallback tier context to the logger.
func WithTier(ctx context.Context, tier string) context.Context {
	return WithField(ctx, "tier", tier)
}

// WithAdapter adds source adapter context to the logger.
func WithAdapter(ctx context.Context, adapter string) context.Context {
	return WithField(ctx, "adapter", adapter)
}
