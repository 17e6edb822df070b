package repository

import (
	"context"

	"github.com/smallbiznis/ledger/internal/paymentinstrument/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, p *domain.PaymentInstrument) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO payment_instruments (
			id, external_id, agreement_external_id, service_id, email, cardholder_name,
			address_line1, address_line2, address_postcode, address_city, address_county,
			address_country, first_digits_card_number, last_digits_card_number,
			expiry_date, card_brand, card_type, live, created_date, event_count, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_id) DO UPDATE SET
			agreement_external_id = EXCLUDED.agreement_external_id,
			service_id = EXCLUDED.service_id,
			email = EXCLUDED.email,
			cardholder_name = EXCLUDED.cardholder_name,
			address_line1 = EXCLUDED.address_line1,
			address_line2 = EXCLUDED.address_line2,
			address_postcode = EXCLUDED.address_postcode,
			address_city = EXCLUDED.address_city,
			address_county = EXCLUDED.address_county,
			address_country = EXCLUDED.address_country,
			first_digits_card_number = EXCLUDED.first_digits_card_number,
			last_digits_card_number = EXCLUDED.last_digits_card_number,
			expiry_date = EXCLUDED.expiry_date,
			card_brand = EXCLUDED.card_brand,
			card_type = EXCLUDED.card_type,
			live = EXCLUDED.live,
			created_date = EXCLUDED.created_date,
			event_count = EXCLUDED.event_count,
			updated_at = EXCLUDED.updated_at
		WHERE EXCLUDED.event_count >= payment_instruments.event_count`,
		p.ID,
		p.ExternalID,
		p.AgreementExternalID,
		p.ServiceID,
		p.Email,
		p.CardholderName,
		p.AddressLine1,
		p.AddressLine2,
		p.AddressPostcode,
		p.AddressCity,
		p.AddressCounty,
		p.AddressCountry,
		p.FirstDigitsCardNumber,
		p.LastDigitsCardNumber,
		p.ExpiryDate,
		p.CardBrand,
		p.CardType,
		p.Live,
		p.CreatedDate,
		p.EventCount,
		p.UpdatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*domain.PaymentInstrument, error) {
	var item domain.PaymentInstrument
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM payment_instruments WHERE external_id = ? LIMIT 1`,
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
