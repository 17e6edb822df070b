package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TransactionType string

const (
	TransactionTypePayment TransactionType = "PAYMENT"
	TransactionTypeRefund  TransactionType = "REFUND"
	TransactionTypeDispute TransactionType = "DISPUTE"
)

// Transaction is the projection of a payment, refund or dispute.
type Transaction struct {
	ID                    snowflake.ID    `json:"id" gorm:"primaryKey"`
	ExternalID            string          `json:"external_id" gorm:"type:text;not null;uniqueIndex"`
	ParentExternalID      *string         `json:"parent_external_id" gorm:"type:text"`
	ServiceID             *string         `json:"service_id" gorm:"type:text"`
	GatewayAccountID      *string         `json:"gateway_account_id" gorm:"type:text"`
	TransactionType       TransactionType `json:"transaction_type" gorm:"type:text;not null"`
	State                 State           `json:"state" gorm:"type:text;not null"`
	Amount                *int64          `json:"amount"`
	TotalAmount           *int64          `json:"total_amount"`
	NetAmount             *int64          `json:"net_amount"`
	Fee                   *int64          `json:"fee"`
	CorporateSurcharge    *int64          `json:"corporate_surcharge"`
	Reference             *string         `json:"reference" gorm:"type:text"`
	Description           *string         `json:"description" gorm:"type:text"`
	Email                 *string         `json:"email" gorm:"type:text"`
	CardholderName        *string         `json:"cardholder_name" gorm:"type:text"`
	CardBrand             *string         `json:"card_brand" gorm:"type:text"`
	FirstDigitsCardNumber *string         `json:"first_digits_card_number" gorm:"type:text"`
	LastDigitsCardNumber  *string         `json:"last_digits_card_number" gorm:"type:text"`
	GatewayTransactionID  *string         `json:"gateway_transaction_id" gorm:"type:text"`
	GatewayPayoutID       *string         `json:"gateway_payout_id" gorm:"type:text"`
	AgreementID           *string         `json:"agreement_id" gorm:"type:text"`
	Source                *string         `json:"source" gorm:"type:text"`
	Moto                  bool            `json:"moto" gorm:"not null"`
	Live                  *bool           `json:"live"`
	CreatedDate           time.Time       `json:"created_date" gorm:"not null"`
	EventCount            int             `json:"event_count" gorm:"not null"`
	TransactionDetails    datatypes.JSON  `json:"transaction_details" gorm:"type:jsonb;not null"`
	UpdatedAt             time.Time       `json:"updated_at" gorm:"not null"`

	// Parent is a snapshot of the originating payment for refunds and
	// disputes. It is not stored.
	Parent *Transaction `json:"parent,omitempty" gorm:"-"`
	// ExternalMetadata is copied out of the aggregate for the metadata side tables.
	ExternalMetadata map[string]string `json:"-" gorm:"-"`
}

func (Transaction) TableName() string { return "transactions" }

// TotalOrAmount is the amount counted in summaries.
func (t Transaction) TotalOrAmount() int64 {
	if t.TotalAmount != nil {
		return *t.TotalAmount
	}
	if t.Amount != nil {
		return *t.Amount
	}
	return 0
}

type Repository interface {
	// Upsert writes t unless the stored row has a higher event count. It
	// reports whether a row was written.
	Upsert(ctx context.Context, db *gorm.DB, t *Transaction) (bool, error)
	FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*Transaction, error)
	ListByParentExternalID(ctx context.Context, db *gorm.DB, parentExternalID string) ([]Transaction, error)
	UpsertMetadata(ctx context.Context, db *gorm.DB, genID *snowflake.Node, externalID string, metadata map[string]string) error
}
