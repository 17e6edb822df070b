package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	eventdomain "github.com/smallbiznis/ledger/internal/event/domain"
	"gorm.io/gorm"
)

type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusActive    Status = "ACTIVE"
	StatusCancelled Status = "CANCELLED"
	StatusInactive  Status = "INACTIVE"
)

var statusByEvent = map[eventdomain.SalientEventType]Status{
	eventdomain.AgreementCreated:            StatusCreated,
	eventdomain.AgreementSetUp:              StatusActive,
	eventdomain.AgreementCancelledByService: StatusCancelled,
	eventdomain.AgreementCancelledByUser:    StatusCancelled,
	eventdomain.AgreementInactivated:        StatusInactive,
}

type Agreement struct {
	ID                          snowflake.ID `json:"id" gorm:"primaryKey"`
	ExternalID                  string       `json:"external_id" gorm:"type:text;not null;uniqueIndex"`
	ServiceID                   *string      `json:"service_id" gorm:"type:text"`
	GatewayAccountID            *string      `json:"gateway_account_id" gorm:"type:text"`
	Reference                   *string      `json:"reference" gorm:"type:text"`
	Description                 *string      `json:"description" gorm:"type:text"`
	UserIdentifier              *string      `json:"user_identifier" gorm:"type:text"`
	PaymentInstrumentExternalID *string      `json:"payment_instrument_external_id" gorm:"type:text"`
	Status                      Status       `json:"status" gorm:"type:text;not null"`
	Live                        *bool        `json:"live"`
	CreatedDate                 time.Time    `json:"created_date" gorm:"not null"`
	EventCount                  int          `json:"event_count" gorm:"not null"`
	UpdatedAt                   time.Time    `json:"updated_at" gorm:"not null"`
}

func (Agreement) TableName() string { return "agreements" }

// FromDigest fails with eventdomain.ErrNoSalientEvent when no agreement
// lifecycle event has been seen.
func FromDigest(digest eventdomain.EventDigest) (Agreement, error) {
	if digest.MostRecentSalientEventType == nil {
		return Agreement{}, fmt.Errorf("agreement %s: %w", digest.ResourceExternalID, eventdomain.ErrNoSalientEvent)
	}
	status, ok := statusByEvent[*digest.MostRecentSalientEventType]
	if !ok {
		return Agreement{}, fmt.Errorf("agreement %s: %s has no status: %w",
			digest.ResourceExternalID, *digest.MostRecentSalientEventType, eventdomain.ErrNoSalientEvent)
	}

	agg := digest.Aggregate
	return Agreement{
		ExternalID:                  digest.ResourceExternalID,
		ServiceID:                   digest.ServiceID,
		Live:                        digest.Live,
		CreatedDate:                 digest.CreatedDate,
		EventCount:                  digest.EventCount,
		Status:                      status,
		GatewayAccountID:            agg.String("gateway_account_id"),
		Reference:                   agg.String("reference"),
		Description:                 agg.String("description"),
		UserIdentifier:              agg.String("user_identifier"),
		PaymentInstrumentExternalID: agg.String("payment_instrument_external_id"),
	}, nil
}

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, a *Agreement) (bool, error)
	FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*Agreement, error)
}
