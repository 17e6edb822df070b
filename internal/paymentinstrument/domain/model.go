package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	eventdomain "github.com/smallbiznis/ledger/internal/event/domain"
	"gorm.io/gorm"
)

// PaymentInstrument is a stored card used for recurring agreement payments.
// It carries no lifecycle status; every event only contributes fields.
type PaymentInstrument struct {
	ID                    snowflake.ID `json:"id" gorm:"primaryKey"`
	ExternalID            string       `json:"external_id" gorm:"type:text;not null;uniqueIndex"`
	AgreementExternalID   *string      `json:"agreement_external_id" gorm:"type:text"`
	ServiceID             *string      `json:"service_id" gorm:"type:text"`
	Email                 *string      `json:"email" gorm:"type:text"`
	CardholderName        *string      `json:"cardholder_name" gorm:"type:text"`
	AddressLine1          *string      `json:"address_line1" gorm:"column:address_line1;type:text"`
	AddressLine2          *string      `json:"address_line2" gorm:"column:address_line2;type:text"`
	AddressPostcode       *string      `json:"address_postcode" gorm:"type:text"`
	AddressCity           *string      `json:"address_city" gorm:"type:text"`
	AddressCounty         *string      `json:"address_county" gorm:"type:text"`
	AddressCountry        *string      `json:"address_country" gorm:"type:text"`
	FirstDigitsCardNumber *string      `json:"first_digits_card_number" gorm:"type:text"`
	LastDigitsCardNumber  *string      `json:"last_digits_card_number" gorm:"type:text"`
	ExpiryDate            *string      `json:"expiry_date" gorm:"type:text"`
	CardBrand             *string      `json:"card_brand" gorm:"type:text"`
	CardType              *string      `json:"card_type" gorm:"type:text"`
	Live                  *bool        `json:"live"`
	CreatedDate           time.Time    `json:"created_date" gorm:"not null"`
	EventCount            int          `json:"event_count" gorm:"not null"`
	UpdatedAt             time.Time    `json:"updated_at" gorm:"not null"`
}

func (PaymentInstrument) TableName() string { return "payment_instruments" }

func FromDigest(digest eventdomain.EventDigest) PaymentInstrument {
	agg := digest.Aggregate
	return PaymentInstrument{
		ExternalID:            digest.ResourceExternalID,
		ServiceID:             digest.ServiceID,
		Live:                  digest.Live,
		CreatedDate:           digest.CreatedDate,
		EventCount:            digest.EventCount,
		AgreementExternalID:   firstString(agg, "agreement_external_id", "agreement_id"),
		Email:                 agg.String("email"),
		CardholderName:        agg.String("cardholder_name"),
		AddressLine1:          agg.String("address_line1"),
		AddressLine2:          agg.String("address_line2"),
		AddressPostcode:       agg.String("address_postcode"),
		AddressCity:           agg.String("address_city"),
		AddressCounty:         agg.String("address_county"),
		AddressCountry:        agg.String("address_country"),
		FirstDigitsCardNumber: agg.String("first_digits_card_number"),
		LastDigitsCardNumber:  agg.String("last_digits_card_number"),
		ExpiryDate:            agg.String("expiry_date"),
		CardBrand:             agg.String("card_brand"),
		CardType:              agg.String("card_type"),
	}
}

func firstString(agg eventdomain.Aggregate, keys ...string) *string {
	for _, key := range keys {
		if v := agg.String(key); v != nil {
			return v
		}
	}
	return nil
}

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, p *PaymentInstrument) (bool, error)
	FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*PaymentInstrument, error)
}
