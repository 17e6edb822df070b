package service

import (
	"context"
	"fmt"

	agreementdomain "github.com/smallbiznis/ledger/internal/agreement/domain"
	eventdomain "github.com/smallbiznis/ledger/internal/event/domain"
	"github.com/smallbiznis/ledger/internal/observability/tracing"
	instrumentdomain "github.com/smallbiznis/ledger/internal/paymentinstrument/domain"
	payoutdomain "github.com/smallbiznis/ledger/internal/payout/domain"
)

type AgreementProcessor struct {
	deps
	repo agreementdomain.Repository
}

func (a *AgreementProcessor) Process(ctx context.Context, current eventdomain.Event, _ bool) (err error) {
	ctx, span := tracing.Start(ctx, "projection.agreement")
	defer func() { tracing.End(span, err) }()

	_, digest, err := a.digest(ctx, current.ResourceExternalID)
	if err != nil {
		return err
	}
	agreement, err := agreementdomain.FromDigest(digest)
	if err != nil {
		return err
	}
	agreement.ID, agreement.UpdatedAt = a.stamp()

	written, err := a.repo.Upsert(ctx, a.db, &agreement)
	if err != nil {
		return fmt.Errorf("upsert agreement %s: %w", agreement.ExternalID, err)
	}
	a.recordUpsert(ctx, eventdomain.ResourceTypeAgreement, agreement.ExternalID, written)
	return nil
}

type PaymentInstrumentProcessor struct {
	deps
	repo instrumentdomain.Repository
}

func (p *PaymentInstrumentProcessor) Process(ctx context.Context, current eventdomain.Event, _ bool) (err error) {
	ctx, span := tracing.Start(ctx, "projection.payment_instrument")
	defer func() { tracing.End(span, err) }()

	_, digest, err := p.digest(ctx, current.ResourceExternalID)
	if err != nil {
		return err
	}
	instrument := instrumentdomain.FromDigest(digest)
	instrument.ID, instrument.UpdatedAt = p.stamp()

	written, err := p.repo.Upsert(ctx, p.db, &instrument)
	if err != nil {
		return fmt.Errorf("upsert payment instrument %s: %w", instrument.ExternalID, err)
	}
	p.recordUpsert(ctx, eventdomain.ResourceTypePaymentInstrument, instrument.ExternalID, written)
	return nil
}

type PayoutProcessor struct {
	deps
	repo payoutdomain.Repository
}

func (p *PayoutProcessor) Process(ctx context.Context, current eventdomain.Event, _ bool) (err error) {
	ctx, span := tracing.Start(ctx, "projection.payout")
	defer func() { tracing.End(span, err) }()

	_, digest, err := p.digest(ctx, current.ResourceExternalID)
	if err != nil {
		return err
	}
	payout, err := payoutdomain.FromDigest(digest)
	if err != nil {
		return err
	}
	payout.ID, payout.UpdatedAt = p.stamp()

	written, err := p.repo.Upsert(ctx, p.db, &payout)
	if err != nil {
		return fmt.Errorf("upsert payout %s: %w", payout.ExternalID, err)
	}
	p.recordUpsert(ctx, eventdomain.ResourceTypePayout, payout.ExternalID, written)
	return nil
}
