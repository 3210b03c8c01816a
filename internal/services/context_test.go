package services_test

import (
	"context"
	"testing"

	"tonearm/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobID(ctx, 42)
	ctx = services.WithStage(ctx, "resolve")
	ctx = services.WithRunID(ctx, "run-123")

	if id, ok := services.JobIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected job id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "resolve" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RunIDFromContext(ctx); !ok || rid != "run-123" {
		t.Fatalf("unexpected run id: %v %v", rid, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
}

func TestJobIDIgnoresNonPositive(t *testing.T) {
	ctx := services.WithJobID(context.Background(), 0)
	if _, ok := services.JobIDFromContext(ctx); ok {
		t.Fatal("expected no job id for zero")
	}
}
