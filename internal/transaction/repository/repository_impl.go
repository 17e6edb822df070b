package repository

import (
	"context"
	"sort"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledger/internal/transaction/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, t *domain.Transaction) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO transactions (
			id, external_id, parent_external_id, service_id, gateway_account_id,
			transaction_type, state, amount, total_amount, net_amount, fee,
			corporate_surcharge, reference, description, email, cardholder_name,
			card_brand, first_digits_card_number, last_digits_card_number,
			gateway_transaction_id, gateway_payout_id, agreement_id, source,
			moto, live, created_date, event_count, transaction_details, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_id) DO UPDATE SET
			parent_external_id = EXCLUDED.parent_external_id,
			service_id = EXCLUDED.service_id,
			gateway_account_id = EXCLUDED.gateway_account_id,
			transaction_type = EXCLUDED.transaction_type,
			state = EXCLUDED.state,
			amount = EXCLUDED.amount,
			total_amount = EXCLUDED.total_amount,
			net_amount = EXCLUDED.net_amount,
			fee = EXCLUDED.fee,
			corporate_surcharge = EXCLUDED.corporate_surcharge,
			reference = EXCLUDED.reference,
			description = EXCLUDED.description,
			email = EXCLUDED.email,
			cardholder_name = EXCLUDED.cardholder_name,
			card_brand = EXCLUDED.card_brand,
			first_digits_card_number = EXCLUDED.first_digits_card_number,
			last_digits_card_number = EXCLUDED.last_digits_card_number,
			gateway_transaction_id = EXCLUDED.gateway_transaction_id,
			gateway_payout_id = EXCLUDED.gateway_payout_id,
			agreement_id = EXCLUDED.agreement_id,
			source = EXCLUDED.source,
			moto = EXCLUDED.moto,
			live = EXCLUDED.live,
			created_date = EXCLUDED.created_date,
			event_count = EXCLUDED.event_count,
			transaction_details = EXCLUDED.transaction_details,
			updated_at = EXCLUDED.updated_at
		WHERE EXCLUDED.event_count >= transactions.event_count`,
		t.ID,
		t.ExternalID,
		t.ParentExternalID,
		t.ServiceID,
		t.GatewayAccountID,
		t.TransactionType,
		t.State,
		t.Amount,
		t.TotalAmount,
		t.NetAmount,
		t.Fee,
		t.CorporateSurcharge,
		t.Reference,
		t.Description,
		t.Email,
		t.CardholderName,
		t.CardBrand,
		t.FirstDigitsCardNumber,
		t.LastDigitsCardNumber,
		t.GatewayTransactionID,
		t.GatewayPayoutID,
		t.AgreementID,
		t.Source,
		t.Moto,
		t.Live,
		t.CreatedDate,
		t.EventCount,
		t.TransactionDetails,
		t.UpdatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*domain.Transaction, error) {
	var item domain.Transaction
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM transactions WHERE external_id = ? LIMIT 1`,
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

func (r *repo) ListByParentExternalID(ctx context.Context, db *gorm.DB, parentExternalID string) ([]domain.Transaction, error) {
	var items []domain.Transaction
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM transactions
		 WHERE parent_external_id = ?
		 ORDER BY created_date ASC, external_id ASC`,
		parentExternalID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// UpsertMetadata records each key once in metadata_keys and keeps the latest
// value per transaction.
func (r *repo) UpsertMetadata(ctx context.Context, db *gorm.DB, genID *snowflake.Node, externalID string, metadata map[string]string) error {
	if len(metadata) == 0 {
		return nil
	}

	keys := make([]string, 0, len(metadata))
	for key := range metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, key := range keys {
			if err := tx.Exec(
				`INSERT INTO metadata_keys (id, key) VALUES (?, ?) ON CONFLICT (key) DO NOTHING`,
				genID.Generate(),
				key,
			).Error; err != nil {
				return err
			}

			var keyID int64
			if err := tx.Raw(`SELECT id FROM metadata_keys WHERE key = ?`, key).Scan(&keyID).Error; err != nil {
				return err
			}

			if err := tx.Exec(
				`INSERT INTO transaction_metadata (transaction_external_id, metadata_key_id, value)
				 VALUES (?, ?, ?)
				 ON CONFLICT (transaction_external_id, metadata_key_id) DO UPDATE SET value = EXCLUDED.value`,
				externalID,
				keyID,
				metadata[key],
			).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
