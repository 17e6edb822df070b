package service

import (
	"context"
	"fmt"

	eventdomain "github.com/smallbiznis/ledger/internal/event/domain"
	"github.com/smallbiznis/ledger/internal/observability/logger"
	"github.com/smallbiznis/ledger/internal/observability/tracing"
	txdomain "github.com/smallbiznis/ledger/internal/transaction/domain"
	"go.uber.org/zap"
)

// Events after which a payment's children must pick up its final card and
// account details.
var cascadeEventTypes = map[string]struct{}{
	string(eventdomain.UserApprovedForCapture):    {},
	string(eventdomain.ServiceApprovedForCapture): {},
	string(eventdomain.CaptureConfirmed):          {},
}

type PaymentProcessor struct {
	deps
	repo    txdomain.Repository
	summary SummaryProjector
	child   *ChildProcessor
}

func (p *PaymentProcessor) Process(ctx context.Context, current eventdomain.Event, projectSummary bool) (err error) {
	ctx, span := tracing.Start(ctx, "projection.payment")
	defer func() { tracing.End(span, err) }()

	events, digest, err := p.digest(ctx, current.ResourceExternalID)
	if err != nil {
		return err
	}
	tx, err := txdomain.FromDigest(digest)
	if err != nil {
		return err
	}
	tx.ID, tx.UpdatedAt = p.stamp()

	written, err := p.repo.Upsert(ctx, p.db, &tx)
	if err != nil {
		return fmt.Errorf("upsert payment %s: %w", tx.ExternalID, err)
	}
	p.recordUpsert(ctx, eventdomain.ResourceTypePayment, tx.ExternalID, written)

	if len(tx.ExternalMetadata) > 0 {
		if err := p.repo.UpsertMetadata(ctx, p.db, p.genID, tx.ExternalID, tx.ExternalMetadata); err != nil {
			return fmt.Errorf("upsert metadata %s: %w", tx.ExternalID, err)
		}
	}

	if projectSummary && p.summary != nil {
		if err := p.summary.ProjectTransaction(ctx, &tx, current, events); err != nil {
			return fmt.Errorf("summary %s: %w", tx.ExternalID, err)
		}
	}

	cascade, err := shouldCascade(current, events)
	if err != nil {
		return err
	}
	if !cascade {
		return nil
	}
	return p.reprojectChildren(ctx, digest)
}

func (p *PaymentProcessor) reprojectChildren(ctx context.Context, parent eventdomain.EventDigest) error {
	children, err := p.repo.ListByParentExternalID(ctx, p.db, parent.ResourceExternalID)
	if err != nil {
		return err
	}
	log := logger.WithContext(ctx, p.log)
	for _, child := range children {
		if err := p.child.project(ctx, child.ExternalID, &parent); err != nil {
			return fmt.Errorf("reproject child %s: %w", child.ExternalID, err)
		}
		p.consumerMetrics.IncChildReprojection()
		log.Debug("child transaction reprojected", zap.String("child_external_id", child.ExternalID))
	}
	return nil
}

// shouldCascade reports whether the payment's history holds an
// approval or capture event and current carries data.
func shouldCascade(current eventdomain.Event, history []eventdomain.Event) (bool, error) {
	payload, err := eventdomain.DecodeEventData(current.EventData)
	if err != nil {
		return false, err
	}
	if len(payload) == 0 {
		return false, nil
	}
	for _, e := range history {
		if _, ok := cascadeEventTypes[e.EventType]; ok {
			return true, nil
		}
	}
	return false, nil
}
