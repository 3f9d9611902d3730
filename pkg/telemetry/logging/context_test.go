package logging

import (
	"context"
	"testing"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()
	ctx = WithRunID(ctx, "run-1")
	ctx = WithEnvironment(ctx, "production")
	ctx = WithCookbook(ctx, "nginx")
	ctx = WithTraceID(ctx, "trace-1")

	if got := GetRunID(ctx); got != "run-1" {
		t.Errorf("GetRunID() = %q", got)
	}
	if got := GetEnvironment(ctx); got != "production" {
		t.Errorf("GetEnvironment() = %q", got)
	}
	if got := GetCookbook(ctx); got != "nginx" {
		t.Errorf("GetCookbook() = %q", got)
	}
	if got := GetTraceID(ctx); got != "trace-1" {
		t.Errorf("GetTraceID() = %q", got)
	}
}

func TestContextKeys_Empty(t *testing.T) {
	ctx := context.Background()

	if GetRunID(ctx) != "" || GetEnvironment(ctx) != "" || GetCookbook(ctx) != "" || GetTraceID(ctx) != "" {
		t.Error("expected empty values from bare context")
	}
}

func TestExtractContextFields(t *testing.T) {
	ctx := WithCookbook(WithRunID(context.Background(), "run-2"), "apache2")

	attrs := extractContextFields(ctx)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "run_id" || attrs[0].Value.String() != "run-2" {
		t.Errorf("unexpected first attribute %v", attrs[0])
	}
	if attrs[1].Key != "cookbook" || attrs[1].Value.String() != "apache2" {
		t.Errorf("unexpected second attribute %v", attrs[1])
	}
}

func TestContextOverwrite(t *testing.T) {
	ctx := WithCookbook(context.Background(), "nginx")
	ctx = WithCookbook(ctx, "apache2")

	if got := GetCookbook(ctx); got != "apache2" {
		t.Errorf("GetCookbook() = %q, want %q", got, "apache2")
	}
}
