package metrics

import (
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/ledger/pkg/db"
)

const (
	MessageOutcomeProcessed  = "processed"
	MessageOutcomeDuplicate  = "duplicate"
	MessageOutcomeDropped    = "dropped"
	MessageOutcomeFailed     = "failed"
	MessageOutcomeDeadLetter = "dead_letter"
)

const (
	ErrorReasonBusinessRule = "business_rule"
	ErrorReasonUnknownType  = "unknown_resource_type"
)

// ConsumerMetrics captures queue consumer health for alerting on projection lag.
type ConsumerMetrics struct {
	messages          *prometheus.CounterVec
	handleDuration    *prometheus.HistogramVec
	handleErrors      *prometheus.CounterVec
	childReprojection prometheus.Counter
	pending           prometheus.Gauge
	businessErrors    []error
	unknownTypeError  error
}

// ConsumerMetricsOptions lets callers teach the error classifier about domain
// sentinels without this package importing domain code.
type ConsumerMetricsOptions struct {
	BusinessErrors   []error
	UnknownTypeError error
}

func NewConsumerMetrics(registerer prometheus.Registerer, cfg Config, opts ConsumerMetricsOptions) *ConsumerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "ledger"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &ConsumerMetrics{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "ledger_consumer_messages_total",
			Help:        "Queue messages handled by outcome.",
			ConstLabels: constLabels,
		}, []string{"resource_type", "outcome"}),
		handleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "ledger_consumer_handle_duration_seconds",
			Help:        "Time from dequeue to acknowledgement for one message.",
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			ConstLabels: constLabels,
		}, []string{"resource_type"}),
		handleErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "ledger_consumer_errors_total",
			Help:        "Message handling errors by low-cardinality reason.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		childReprojection: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "ledger_child_reprojections_total",
			Help:        "Child transactions re-projected after a parent payment changed.",
			ConstLabels: constLabels,
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "ledger_consumer_pending_messages",
			Help:        "Messages delivered to the consumer group but not yet acknowledged.",
			ConstLabels: constLabels,
		}),
		businessErrors:   opts.BusinessErrors,
		unknownTypeError: opts.UnknownTypeError,
	}

	registerer.MustRegister(m.messages, m.handleDuration, m.handleErrors, m.childReprojection, m.pending)
	return m
}

func (m *ConsumerMetrics) IncMessage(resourceType, outcome string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(normalizeLabel(resourceType), outcome).Inc()
}

func (m *ConsumerMetrics) ObserveHandleDuration(resourceType string, duration time.Duration) {
	if m == nil {
		return
	}
	m.handleDuration.WithLabelValues(normalizeLabel(resourceType)).Observe(duration.Seconds())
}

func (m *ConsumerMetrics) IncError(err error) {
	if m == nil || err == nil {
		return
	}
	m.handleErrors.WithLabelValues(m.ErrorReason(err)).Inc()
}

func (m *ConsumerMetrics) IncChildReprojection() {
	if m == nil {
		return
	}
	m.childReprojection.Inc()
}

func (m *ConsumerMetrics) SetPending(count int64) {
	if m == nil {
		return
	}
	m.pending.Set(float64(count))
}

// ErrorReason classifies err into a metric label.
func (m *ConsumerMetrics) ErrorReason(err error) string {
	if err == nil {
		return ""
	}
	if m != nil {
		if m.unknownTypeError != nil && errors.Is(err, m.unknownTypeError) {
			return ErrorReasonUnknownType
		}
		for _, target := range m.businessErrors {
			if errors.Is(err, target) {
				return ErrorReasonBusinessRule
			}
		}
	}
	return db.ErrorReason(err)
}

func normalizeLabel(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "unknown"
	}
	return value
}
