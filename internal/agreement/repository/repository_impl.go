package repository

import (
	"context"

	"github.com/smallbiznis/ledger/internal/agreement/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, a *domain.Agreement) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO agreements (
			id, external_id, service_id, gateway_account_id, reference, description,
			user_identifier, payment_instrument_external_id, status, live,
			created_date, event_count, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_id) DO UPDATE SET
			service_id = EXCLUDED.service_id,
			gateway_account_id = EXCLUDED.gateway_account_id,
			reference = EXCLUDED.reference,
			description = EXCLUDED.description,
			user_identifier = EXCLUDED.user_identifier,
			payment_instrument_external_id = EXCLUDED.payment_instrument_external_id,
			status = EXCLUDED.status,
			live = EXCLUDED.live,
			created_date = EXCLUDED.created_date,
			event_count = EXCLUDED.event_count,
			updated_at = EXCLUDED.updated_at
		WHERE EXCLUDED.event_count >= agreements.event_count`,
		a.ID,
		a.ExternalID,
		a.ServiceID,
		a.GatewayAccountID,
		a.Reference,
		a.Description,
		a.UserIdentifier,
		a.PaymentInstrumentExternalID,
		a.Status,
		a.Live,
		a.CreatedDate,
		a.EventCount,
		a.UpdatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*domain.Agreement, error) {
	var item domain.Agreement
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM agreements WHERE external_id = ? LIMIT 1`,
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
