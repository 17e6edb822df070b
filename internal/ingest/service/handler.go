package service

import (
	"context"
	"errors"
	"time"

	eventdomain "github.com/smallbiznis/ledger/internal/event/domain"
	eventservice "github.com/smallbiznis/ledger/internal/event/service"
	"github.com/smallbiznis/ledger/internal/ingest/domain"
	obscontext "github.com/smallbiznis/ledger/internal/observability/context"
	"github.com/smallbiznis/ledger/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/ledger/internal/observability/metrics"
	"github.com/smallbiznis/ledger/internal/observability/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type EventStore interface {
	InsertIfNotExists(ctx context.Context, event *eventdomain.Event) (bool, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, current eventdomain.Event, projectSummary bool) error
}

// Result describes how a message was handled. Outcome is one of the
// obsmetrics.MessageOutcome values.
type Result struct {
	ResourceType string
	Outcome      string
}

type Params struct {
	fx.In

	Log        *zap.Logger
	Events     EventStore
	Dispatcher Dispatcher
	Metrics    *obsmetrics.ConsumerMetrics `optional:"true"`
}

// Handler turns one queue message into a stored event and, when the event is
// new, a projection.
type Handler struct {
	log        *zap.Logger
	events     EventStore
	dispatcher Dispatcher
	metrics    *obsmetrics.ConsumerMetrics
}

func NewHandler(p Params) *Handler {
	return &Handler{
		log:        p.Log.Named("ingest.handler"),
		events:     p.Events,
		dispatcher: p.Dispatcher,
		metrics:    p.Metrics,
	}
}

// Handle returns an error only when the message should be redelivered.
func (h *Handler) Handle(ctx context.Context, deliveryID string, body []byte) (result Result, err error) {
	start := time.Now()
	ctx, _ = obscontext.EnsureCorrelationID(ctx)
	ctx, span := tracing.Start(ctx, "ingest.handle", attribute.String("delivery_id", deliveryID))
	defer func() {
		tracing.End(span, err)
		h.metrics.ObserveHandleDuration(result.ResourceType, time.Since(start))
		if err != nil {
			result.Outcome = obsmetrics.MessageOutcomeFailed
			h.metrics.IncError(err)
		}
		h.metrics.IncMessage(result.ResourceType, result.Outcome)
	}()

	msg, event, err := domain.ParseMessage(body)
	if errors.Is(err, domain.ErrInvalidMessage) {
		logger.WithContext(ctx, h.log).Warn("dropping undecodable message",
			zap.String("delivery_id", deliveryID),
			zap.Error(err),
		)
		result.Outcome = obsmetrics.MessageOutcomeDropped
		return result, nil
	}
	if err != nil {
		return result, err
	}

	result.ResourceType = event.ResourceType.String()
	ctx = obscontext.WithResource(ctx, result.ResourceType, event.ResourceExternalID)
	log := logger.WithContext(ctx, h.log)
	event.DeliveryID = deliveryID

	inserted, err := h.events.InsertIfNotExists(ctx, &event)
	if errors.Is(err, eventservice.ErrInvalidEvent) || errors.Is(err, eventdomain.ErrInvalidEventData) {
		log.Warn("dropping invalid event", zap.Error(err))
		result.Outcome = obsmetrics.MessageOutcomeDropped
		return result, nil
	}
	if err != nil {
		return result, err
	}

	if !inserted && !msg.ReprojectDomainObject {
		result.Outcome = obsmetrics.MessageOutcomeDuplicate
		return result, nil
	}

	// A redelivered event asking for reprojection was counted when first stored.
	err = h.dispatcher.Dispatch(ctx, event, inserted)
	if errors.Is(err, eventdomain.ErrNoSalientEvent) {
		// The event is stored; the next lifecycle event projects it.
		log.Warn("resource has no lifecycle event yet", zap.String("event_type", event.EventType))
		h.metrics.IncError(err)
		result.Outcome = obsmetrics.MessageOutcomeProcessed
		return result, nil
	}
	if err != nil {
		return result, err
	}

	log.Debug("event projected",
		zap.String("event_type", event.EventType),
		zap.Bool("inserted", inserted),
	)
	result.Outcome = obsmetrics.MessageOutcomeProcessed
	return result, nil
}
