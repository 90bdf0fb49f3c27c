package services_test

import (
	"context"
	"testing"

	"splitmerge/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithStage(ctx, "split")
	ctx = services.WithChunk(ctx, 2, 5)

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "split" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	number, count, ok := services.ChunkFromContext(ctx)
	if !ok || number != 2 || count != 5 {
		t.Fatalf("unexpected chunk: %d/%d %v", number, count, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
}

func TestChunkZeroIgnored(t *testing.T) {
	ctx := services.WithChunk(context.Background(), 0, 3)
	if _, _, ok := services.ChunkFromContext(ctx); ok {
		t.Fatal("expected no chunk value")
	}
}
