package services

import "context"

type contextKey string

const (
	jobIDKey  contextKey = "job_id"
	stageKey  contextKey = "stage"
	chatIDKey contextKey = "chat_id"
)

// WithJobID annotates context with the job identifier.
func WithJobID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, jobIDKey, id)
}

// JobIDFromContext extracts the job identifier if present.
func JobIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(jobIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stageKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithChatID annotates context with the chat conversation identifier.
func WithChatID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, chatIDKey, id)
}

// ChatIDFromContext extracts the chat conversation identifier if present.
func ChatIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(chatIDKey)
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}
