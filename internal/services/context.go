package services

import "context"

type contextKey string

const (
	runIDKey      contextKey = "run_id"
	stageKey      contextKey = "stage"
	chunkIndexKey contextKey = "chunk_index"
	chunkCountKey contextKey = "chunk_count"
)

// WithRunID annotates context with the orchestration run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the pipeline stage name (direct, split, merge).
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithChunk annotates context with a 1-based chunk number and the total chunk count.
func WithChunk(ctx context.Context, number, count int) context.Context {
	if number <= 0 {
		return ctx
	}
	ctx = context.WithValue(ctx, chunkIndexKey, number)
	return context.WithValue(ctx, chunkCountKey, count)
}

// ChunkFromContext returns the chunk number and count if present.
func ChunkFromContext(ctx context.Context) (int, int, bool) {
	number, ok := ctx.Value(chunkIndexKey).(int)
	if !ok || number <= 0 {
		return 0, 0, false
	}
	count, _ := ctx.Value(chunkCountKey).(int)
	return number, count, true
}
