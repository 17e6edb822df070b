package observability

import (
	"testing"

	"github.com/smallbiznis/ledger/internal/config"
)

func TestLoadConfigDefaultsServiceName(t *testing.T) {
	cfg := LoadConfig(config.Config{
		Environment:  " production ",
		OTLPEndpoint: " collector:4317 ",
		Observability: config.ObservabilityConfig{
			LogLevel:      "info",
			OtelEnabled:   true,
			OtelProtocol:  "grpc",
			SamplingRatio: 0.5,
		},
	})

	if cfg.ServiceName != "ledger" {
		t.Fatalf("expected default service name, got %q", cfg.ServiceName)
	}
	if cfg.Environment != "production" || cfg.OtelExporterEndpoint != "collector:4317" {
		t.Fatalf("expected trimmed values, got %+v", cfg)
	}
	if cfg.Debug() {
		t.Fatal("production info logging must not be debug")
	}
	if tc := cfg.TracingConfig(); !tc.Enabled || tc.SamplingRatio != 0.5 {
		t.Fatalf("unexpected tracing config %+v", tc)
	}
}

func TestConfigDebug(t *testing.T) {
	tests := []struct {
		cfg  Config
		want bool
	}{
		{cfg: Config{LogLevel: "debug", Environment: "production"}, want: true},
		{cfg: Config{LogLevel: "info", Environment: "Local"}, want: true},
		{cfg: Config{LogLevel: "info", Environment: "staging"}, want: false},
	}
	for _, tt := range tests {
		if got := tt.cfg.Debug(); got != tt.want {
			t.Fatalf("Debug() for %+v = %v, want %v", tt.cfg, got, tt.want)
		}
		if got := tt.cfg.LoggerConfig().IncludeStackOnError; got != tt.want {
			t.Fatalf("IncludeStackOnError for %+v = %v, want %v", tt.cfg, got, tt.want)
		}
	}
}
