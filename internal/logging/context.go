package logging

import (
	"context"
	"log/slog"

	"tunefetch/internal/services"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var attrs []slog.Attr
	if id, ok := services.JobIDFromContext(ctx); ok {
		attrs = append(attrs, String(FieldJobID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		attrs = append(attrs, String(FieldStage, stage))
	}
	if chatID, ok := services.ChatIDFromContext(ctx); ok {
		attrs = append(attrs, Int64(FieldChatID, chatID))
	}
	return attrs
}

// WithContext returns a logger annotated with any job metadata found in ctx.
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

// WithJobID annotates ctx for downstream log enrichment.
func WithJobID(ctx context.Context, id string) context.Context {
	return services.WithJobID(ctx, id)
}

// WithStage annotates ctx with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	return services.WithStage(ctx, stage)
}
