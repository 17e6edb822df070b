package repository

import (
	"context"

	"github.com/smallbiznis/ledger/internal/summary/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) AddToSummary(ctx context.Context, db *gorm.DB, key domain.BucketKey, amount, fee int64) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO transaction_summary (
			gateway_account_id, transaction_type, transaction_date, state, live, moto,
			total_amount_in_pence, no_of_transactions, total_fee_in_pence
		) VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT (gateway_account_id, transaction_type, transaction_date, state, live, moto) DO UPDATE SET
			total_amount_in_pence = transaction_summary.total_amount_in_pence + EXCLUDED.total_amount_in_pence,
			no_of_transactions = transaction_summary.no_of_transactions + 1,
			total_fee_in_pence = transaction_summary.total_fee_in_pence + EXCLUDED.total_fee_in_pence`,
		key.GatewayAccountID,
		key.TransactionType,
		key.TransactionDate,
		key.State,
		key.Live,
		key.Moto,
		amount,
		fee,
	).Error
}

// DeductFromSummary reverses one transaction previously added to the bucket.
// A missing bucket is left alone.
func (r *repo) DeductFromSummary(ctx context.Context, db *gorm.DB, key domain.BucketKey, amount, fee int64) error {
	return db.WithContext(ctx).Exec(
		`UPDATE transaction_summary SET
			total_amount_in_pence = total_amount_in_pence - ?,
			no_of_transactions = no_of_transactions - 1,
			total_fee_in_pence = total_fee_in_pence - ?
		WHERE gateway_account_id = ?
			AND transaction_type = ?
			AND transaction_date = ?
			AND state = ?
			AND live = ?
			AND moto = ?`,
		amount,
		fee,
		key.GatewayAccountID,
		key.TransactionType,
		key.TransactionDate,
		key.State,
		key.Live,
		key.Moto,
	).Error
}

func (r *repo) UpdateFee(ctx context.Context, db *gorm.DB, key domain.BucketKey, fee int64) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO transaction_summary (
			gateway_account_id, transaction_type, transaction_date, state, live, moto,
			total_amount_in_pence, no_of_transactions, total_fee_in_pence
		) VALUES (?, ?, ?, ?, ?, ?, 0, 0, ?)
		ON CONFLICT (gateway_account_id, transaction_type, transaction_date, state, live, moto) DO UPDATE SET
			total_fee_in_pence = transaction_summary.total_fee_in_pence + EXCLUDED.total_fee_in_pence`,
		key.GatewayAccountID,
		key.TransactionType,
		key.TransactionDate,
		key.State,
		key.Live,
		key.Moto,
		fee,
	).Error
}

func (r *repo) Get(ctx context.Context, db *gorm.DB, key domain.BucketKey) (*domain.Summary, error) {
	var rows []domain.Summary
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM transaction_summary
		WHERE gateway_account_id = ?
			AND transaction_type = ?
			AND transaction_date = ?
			AND state = ?
			AND live = ?
			AND moto = ?`,
		key.GatewayAccountID,
		key.TransactionType,
		key.TransactionDate,
		key.State,
		key.Live,
		key.Moto,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	row := rows[0]
	row.Normalize()
	return &row, nil
}
