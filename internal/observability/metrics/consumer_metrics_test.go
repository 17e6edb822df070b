package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var (
	errNoSalient   = errors.New("no_salient_event")
	errUnknownType = errors.New("unknown_resource_type")
)

func newTestConsumerMetrics(t *testing.T) *ConsumerMetrics {
	t.Helper()
	return NewConsumerMetrics(prometheus.NewRegistry(), Config{ServiceName: "ledger", Environment: "test"}, ConsumerMetricsOptions{
		BusinessErrors:   []error{errNoSalient},
		UnknownTypeError: errUnknownType,
	})
}

func TestConsumerMetricsErrorReason(t *testing.T) {
	m := newTestConsumerMetrics(t)

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "unknown type", err: fmt.Errorf("dispatch: %w", errUnknownType), want: ErrorReasonUnknownType},
		{name: "business", err: fmt.Errorf("agreement: %w", errNoSalient), want: ErrorReasonBusinessRule},
		{name: "lock timeout", err: &pgconn.PgError{Code: "55P03"}, want: "db_lock_timeout"},
		{name: "serialization", err: &pgconn.PgError{Code: "40001"}, want: "serialization_failure"},
		{name: "other", err: errors.New("boom"), want: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.ErrorReason(tt.err); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestConsumerMetricsCounters(t *testing.T) {
	m := newTestConsumerMetrics(t)

	m.IncMessage("PAYMENT", MessageOutcomeProcessed)
	m.IncMessage("payment", MessageOutcomeProcessed)
	m.IncMessage("", MessageOutcomeDropped)
	m.IncError(errUnknownType)
	m.IncChildReprojection()
	m.SetPending(7)
	m.ObserveHandleDuration("payment", 20*time.Millisecond)

	if got := testutil.ToFloat64(m.messages.WithLabelValues("payment", MessageOutcomeProcessed)); got != 2 {
		t.Fatalf("expected 2 processed payment messages, got %v", got)
	}
	if got := testutil.ToFloat64(m.messages.WithLabelValues("unknown", MessageOutcomeDropped)); got != 1 {
		t.Fatalf("expected 1 dropped message, got %v", got)
	}
	if got := testutil.ToFloat64(m.handleErrors.WithLabelValues(ErrorReasonUnknownType)); got != 1 {
		t.Fatalf("expected 1 unknown type error, got %v", got)
	}
	if got := testutil.ToFloat64(m.childReprojection); got != 1 {
		t.Fatalf("expected 1 child reprojection, got %v", got)
	}
	if got := testutil.ToFloat64(m.pending); got != 7 {
		t.Fatalf("expected pending 7, got %v", got)
	}
}

func TestNilConsumerMetricsIsSafe(t *testing.T) {
	var m *ConsumerMetrics
	m.IncMessage("payment", MessageOutcomeFailed)
	m.IncError(errors.New("boom"))
	m.IncChildReprojection()
	m.SetPending(1)
	m.ObserveHandleDuration("payment", time.Second)
}
