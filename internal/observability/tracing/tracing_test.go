package tracing

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestClampRatio(t *testing.T) {
	cases := map[float64]float64{-1: 0.1, 0: 0.1, 0.5: 0.5, 3: 1}
	for in, want := range cases {
		if got := clampRatio(in); got != want {
			t.Fatalf("clampRatio(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestDisabledProviderIsNil(t *testing.T) {
	provider, err := NewProvider(nil, Config{Enabled: false}, zap.NewNop())
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if provider != nil {
		t.Fatalf("expected nil provider when disabled")
	}

	_, span := Start(context.Background(), "test")
	End(span, errors.New("boom"))
}

func TestUnsupportedProtocol(t *testing.T) {
	if _, err := newExporter("carrier-pigeon", ""); err == nil {
		t.Fatalf("expected error")
	}
}
