package metricspush

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
	"github.com/smallbiznis/ledger/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()
	reg := prometheus.NewRegistry()

	messages := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ledger_consumer_messages_total"}, []string{"outcome"})
	pending := prometheus.NewGauge(prometheus.GaugeOpts{Name: "ledger_consumer_pending_messages"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "ledger_consumer_handle_duration_seconds"})
	reg.MustRegister(messages, pending, duration)

	messages.WithLabelValues("processed").Add(3)
	pending.Set(2)
	duration.Observe(0.1)
	return reg
}

func TestNewPusher(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.MetricsPushConfig
		want any
	}{
		{name: "disabled", cfg: config.MetricsPushConfig{Exporter: ExporterRemoteWrite, Endpoint: "http://x"}},
		{name: "missing endpoint", cfg: config.MetricsPushConfig{Enabled: true, Exporter: ExporterRemoteWrite}},
		{name: "unknown exporter", cfg: config.MetricsPushConfig{Enabled: true, Exporter: "statsd", Endpoint: "http://x"}},
		{name: "invalid url", cfg: config.MetricsPushConfig{Enabled: true, Exporter: ExporterRemoteWrite, Endpoint: "not a url"}},
		{name: "remote write", cfg: config.MetricsPushConfig{Enabled: true, Exporter: ExporterRemoteWrite, Endpoint: "http://x/api/v1/write"}, want: &RemoteWritePusher{}},
		{name: "pushgateway", cfg: config.MetricsPushConfig{Enabled: true, Exporter: "Prometheus_Pushgateway", Endpoint: "http://x"}, want: &PushgatewayPusher{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewPusher(config.Config{AppName: "ledger", MetricsPush: tt.cfg}, zap.NewNop())
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			assert.IsType(t, tt.want, got)
		})
	}
}

func TestBuildRemoteWriteSeriesSkipsHistograms(t *testing.T) {
	families, err := testRegistry(t).Gather()
	require.NoError(t, err)

	series := buildRemoteWriteSeries(families, 1000)
	require.Len(t, series, 2)

	names := map[string]float64{}
	for _, s := range series {
		require.Len(t, s.Samples, 1)
		assert.Equal(t, int64(1000), s.Samples[0].Timestamp)
		assert.Equal(t, "__name__", s.Labels[0].Name)
		names[s.Labels[0].Value] = s.Samples[0].Value
	}
	assert.Equal(t, map[string]float64{
		"ledger_consumer_messages_total":   3,
		"ledger_consumer_pending_messages": 2,
	}, names)
}

func TestRemoteWritePusherPush(t *testing.T) {
	var (
		got        prompb.WriteRequest
		authHeader string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		assert.Equal(t, "snappy", r.Header.Get("Content-Encoding"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		decoded, err := snappy.Decode(nil, body)
		require.NoError(t, err)
		require.NoError(t, got.Unmarshal(decoded))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	pusher := NewRemoteWritePusher(srv.URL, " token ")
	pusher.now = func() time.Time { return time.UnixMilli(5000) }

	require.NoError(t, pusher.Push(context.Background(), testRegistry(t)))
	assert.Equal(t, "Bearer token", authHeader)
	require.Len(t, got.Timeseries, 2)
	assert.Equal(t, int64(5000), got.Timeseries[0].Samples[0].Timestamp)
}

func TestRemoteWritePusherRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewRemoteWritePusher(srv.URL, "").Push(context.Background(), testRegistry(t))
	assert.ErrorContains(t, err, "400")
}

func TestPushgatewayPusherPush(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.Equal(t, http.MethodPut, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	pusher := NewPushgatewayPusher(srv.URL, "ledger", map[string]string{"environment": "test", "empty": ""})
	require.NoError(t, pusher.Push(context.Background(), testRegistry(t)))
	assert.Equal(t, "/metrics/job/ledger/environment/test", path)
}
