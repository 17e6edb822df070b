package context

import (
	"context"
	"testing"
)

func TestResourceRoundTrip(t *testing.T) {
	ctx := WithResource(context.Background(), "PAYMENT", "pay_1")
	ctx = WithCorrelationID(ctx, "01HZX")

	resourceType, externalID := ResourceFromContext(ctx)
	if resourceType != "PAYMENT" || externalID != "pay_1" {
		t.Fatalf("unexpected resource %q/%q", resourceType, externalID)
	}
	if got := CorrelationIDFromContext(ctx); got != "01HZX" {
		t.Fatalf("expected correlation id, got %q", got)
	}
	if got := RequestIDFromContext(ctx); got != "" {
		t.Fatalf("expected empty request id, got %q", got)
	}
}

func TestEnsureCorrelationID(t *testing.T) {
	ctx, first := EnsureCorrelationID(context.Background())
	if first == "" {
		t.Fatalf("expected generated correlation id")
	}
	_, second := EnsureCorrelationID(ctx)
	if second != first {
		t.Fatalf("expected existing id %q to be kept, got %q", first, second)
	}
}
