package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	eventdomain "github.com/smallbiznis/ledger/internal/event/domain"
	"github.com/smallbiznis/ledger/internal/observability/logger"
	"github.com/smallbiznis/ledger/internal/observability/tracing"
	txdomain "github.com/smallbiznis/ledger/internal/transaction/domain"
	"go.uber.org/zap"
)

// ChildProcessor projects refunds and disputes, copying shared fields from
// the parent payment when its events are known.
type ChildProcessor struct {
	deps
	repo txdomain.Repository
}

func (c *ChildProcessor) Process(ctx context.Context, current eventdomain.Event, _ bool) error {
	return c.project(ctx, current.ResourceExternalID, nil)
}

// project rebuilds one child. A nil parent is looked up from the child's own
// parent reference.
func (c *ChildProcessor) project(ctx context.Context, externalID string, parent *eventdomain.EventDigest) (err error) {
	ctx, span := tracing.Start(ctx, "projection.child")
	defer func() { tracing.End(span, err) }()

	_, digest, err := c.digest(ctx, externalID)
	if err != nil {
		return err
	}

	if parent == nil {
		parent, err = c.parentDigest(ctx, digest)
		if err != nil {
			return err
		}
	}

	if parent != nil {
		digest.Aggregate = txdomain.CopyParentPaymentDetails(digest.Aggregate, parent.Aggregate)
	}

	tx, err := txdomain.FromDigest(digest)
	if err != nil {
		return err
	}

	if parent != nil {
		parentTx, perr := txdomain.FromDigest(*parent)
		switch {
		case errors.Is(perr, eventdomain.ErrNoSalientEvent):
			logger.WithContext(ctx, c.log).Warn("parent payment has no lifecycle event, skipping parent fields",
				zap.String("parent_external_id", parent.ResourceExternalID),
			)
		case perr != nil:
			return perr
		default:
			tx.ApplyParent(parentTx)
		}
	}

	tx.ID, tx.UpdatedAt = c.stamp()
	written, err := c.repo.Upsert(ctx, c.db, &tx)
	if err != nil {
		return fmt.Errorf("upsert %s %s: %w", digest.ResourceType, tx.ExternalID, err)
	}
	c.recordUpsert(ctx, digest.ResourceType, tx.ExternalID, written)
	return nil
}

// parentDigest returns nil when the child names no parent or none of the
// parent's events have arrived yet.
func (c *ChildProcessor) parentDigest(ctx context.Context, child eventdomain.EventDigest) (*eventdomain.EventDigest, error) {
	if child.ParentResourceExternalID == nil || strings.TrimSpace(*child.ParentResourceExternalID) == "" {
		return nil, nil
	}
	_, parent, err := c.digest(ctx, *child.ParentResourceExternalID)
	if errors.Is(err, eventdomain.ErrEmptyEventHistory) {
		logger.WithContext(ctx, c.log).Info("parent payment not yet known, projecting child alone",
			zap.String("child_external_id", child.ResourceExternalID),
			zap.String("parent_external_id", *child.ParentResourceExternalID),
		)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &parent, nil
}
