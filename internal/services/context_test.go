package services_test

import (
	"context"
	"testing"

	"auctionload/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithFile(ctx, "export.csv")
	ctx = services.WithStage(ctx, "transform")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if name, ok := services.FileFromContext(ctx); !ok || name != "export.csv" {
		t.Fatalf("unexpected file: %v %v", name, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "transform" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	ctx = services.WithFile(ctx, "")
	if _, ok := services.FileFromContext(ctx); ok {
		t.Fatal("expected no file value")
	}
}
