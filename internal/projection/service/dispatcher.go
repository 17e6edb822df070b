package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	agreementdomain "github.com/smallbiznis/ledger/internal/agreement/domain"
	"github.com/smallbiznis/ledger/internal/clock"
	eventdomain "github.com/smallbiznis/ledger/internal/event/domain"
	obscontext "github.com/smallbiznis/ledger/internal/observability/context"
	obsmetrics "github.com/smallbiznis/ledger/internal/observability/metrics"
	"github.com/smallbiznis/ledger/internal/observability/tracing"
	instrumentdomain "github.com/smallbiznis/ledger/internal/paymentinstrument/domain"
	payoutdomain "github.com/smallbiznis/ledger/internal/payout/domain"
	txdomain "github.com/smallbiznis/ledger/internal/transaction/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EventSource reads the stored history of a resource.
type EventSource interface {
	GetEventsForResource(ctx context.Context, externalID string) ([]eventdomain.Event, error)
}

// SummaryProjector applies summary deltas for a projected payment.
type SummaryProjector interface {
	ProjectTransaction(ctx context.Context, tx *txdomain.Transaction, current eventdomain.Event, history []eventdomain.Event) error
}

// Processor projects the resource an event belongs to. projectSummary is
// false when the event was already applied to the summary once.
type Processor interface {
	Process(ctx context.Context, current eventdomain.Event, projectSummary bool) error
}

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Events          EventSource
	Summary         SummaryProjector
	TransactionRepo txdomain.Repository
	AgreementRepo   agreementdomain.Repository
	InstrumentRepo  instrumentdomain.Repository
	PayoutRepo      payoutdomain.Repository
	Clock           clock.Clock                 `optional:"true"`
	ObsMetrics      *obsmetrics.Metrics         `optional:"true"`
	ConsumerMetrics *obsmetrics.ConsumerMetrics `optional:"true"`
}

// Dispatcher routes events to the processor registered for their resource type.
type Dispatcher struct {
	log        *zap.Logger
	events     EventSource
	processors map[eventdomain.ResourceType]Processor
}

// deps is shared by every processor.
type deps struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	events          EventSource
	clock           clock.Clock
	obsMetrics      *obsmetrics.Metrics
	consumerMetrics *obsmetrics.ConsumerMetrics
}

func NewDispatcher(p Params) *Dispatcher {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	d := deps{
		db:              p.DB,
		log:             p.Log.Named("projection"),
		genID:           p.GenID,
		events:          p.Events,
		clock:           c,
		obsMetrics:      p.ObsMetrics,
		consumerMetrics: p.ConsumerMetrics,
	}

	child := &ChildProcessor{deps: d, repo: p.TransactionRepo}
	return &Dispatcher{
		log:    d.log,
		events: p.Events,
		processors: map[eventdomain.ResourceType]Processor{
			eventdomain.ResourceTypePayment: &PaymentProcessor{
				deps:    d,
				repo:    p.TransactionRepo,
				summary: p.Summary,
				child:   child,
			},
			eventdomain.ResourceTypeRefund:            child,
			eventdomain.ResourceTypeDispute:           child,
			eventdomain.ResourceTypeAgreement:         &AgreementProcessor{deps: d, repo: p.AgreementRepo},
			eventdomain.ResourceTypePaymentInstrument: &PaymentInstrumentProcessor{deps: d, repo: p.InstrumentRepo},
			eventdomain.ResourceTypePayout:            &PayoutProcessor{deps: d, repo: p.PayoutRepo},
		},
	}
}

// Dispatch projects the resource current belongs to. Summary deltas are only
// applied when projectSummary is set, which callers do for newly stored events.
func (d *Dispatcher) Dispatch(ctx context.Context, current eventdomain.Event, projectSummary bool) (err error) {
	processor, ok := d.processors[current.ResourceType]
	if !ok {
		return fmt.Errorf("%w: %q", eventdomain.ErrUnknownResourceType, current.ResourceType)
	}

	ctx = obscontext.WithResource(ctx, current.ResourceType.String(), current.ResourceExternalID)
	ctx, span := tracing.Start(ctx, "projection.dispatch",
		attribute.String("resource_type", current.ResourceType.String()),
		attribute.String("event_type", current.EventType),
		attribute.Bool("project_summary", projectSummary),
	)
	defer func() { tracing.End(span, err) }()

	return processor.Process(ctx, current, projectSummary)
}

// Reproject rebuilds a resource from stored history, using its most recent
// event as the current event. Every stored event has already reached the
// summary, so it is left untouched.
func (d *Dispatcher) Reproject(ctx context.Context, resourceType eventdomain.ResourceType, externalID string) error {
	if _, ok := d.processors[resourceType]; !ok {
		return fmt.Errorf("%w: %q", eventdomain.ErrUnknownResourceType, resourceType)
	}
	events, err := d.events.GetEventsForResource(ctx, externalID)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return eventdomain.ErrEmptyEventHistory
	}
	sorted := eventdomain.SortEvents(events)
	latest := sorted[len(sorted)-1]
	if latest.ResourceType != resourceType {
		d.log.Warn("reprojecting with stored resource type",
			zap.String("requested", resourceType.String()),
			zap.String("stored", latest.ResourceType.String()),
		)
	}
	latest.ResourceType = resourceType
	return d.Dispatch(ctx, latest, false)
}

func (d deps) digest(ctx context.Context, externalID string) ([]eventdomain.Event, eventdomain.EventDigest, error) {
	events, err := d.events.GetEventsForResource(ctx, externalID)
	if err != nil {
		return nil, eventdomain.EventDigest{}, err
	}
	digest, err := eventdomain.BuildDigest(events)
	if err != nil {
		return nil, eventdomain.EventDigest{}, err
	}
	return events, digest, nil
}

// stamp assigns the fields a projection row needs on insert.
func (d deps) stamp() (snowflake.ID, time.Time) {
	return d.genID.Generate(), d.clock.Now()
}

func (d deps) recordUpsert(ctx context.Context, resourceType eventdomain.ResourceType, externalID string, written bool) {
	outcome := obsmetrics.ProjectionOutcomeApplied
	if !written {
		outcome = obsmetrics.ProjectionOutcomeStale
		d.log.Debug("projection not written, stored event count is higher",
			zap.String("resource_type", resourceType.String()),
			zap.String("resource_external_id", externalID),
		)
	}
	d.obsMetrics.RecordProjection(ctx, resourceType.String(), outcome)
}
