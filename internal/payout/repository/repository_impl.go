package repository

import (
	"context"

	"github.com/smallbiznis/ledger/internal/payout/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, p *domain.Payout) (bool, error) {
	details := p.PayoutDetails
	if len(details) == 0 {
		details = []byte(`{}`)
	}
	res := db.WithContext(ctx).Exec(
		`INSERT INTO payouts (
			id, external_id, service_id, gateway_account_id, amount, paid_out_date,
			statement_descriptor, status, live, created_date, event_count,
			payout_details, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_id) DO UPDATE SET
			service_id = EXCLUDED.service_id,
			gateway_account_id = EXCLUDED.gateway_account_id,
			amount = EXCLUDED.amount,
			paid_out_date = EXCLUDED.paid_out_date,
			statement_descriptor = EXCLUDED.statement_descriptor,
			status = EXCLUDED.status,
			live = EXCLUDED.live,
			created_date = EXCLUDED.created_date,
			event_count = EXCLUDED.event_count,
			payout_details = EXCLUDED.payout_details,
			updated_at = EXCLUDED.updated_at
		WHERE EXCLUDED.event_count >= payouts.event_count`,
		p.ID,
		p.ExternalID,
		p.ServiceID,
		p.GatewayAccountID,
		p.Amount,
		p.PaidOutDate,
		p.StatementDescriptor,
		p.Status,
		p.Live,
		p.CreatedDate,
		p.EventCount,
		details,
		p.UpdatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*domain.Payout, error) {
	var item domain.Payout
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM payouts WHERE external_id = ? LIMIT 1`,
		externalID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}
