package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	eventdomain "github.com/smallbiznis/ledger/internal/event/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Status string

const (
	StatusInTransit Status = "IN_TRANSIT"
	StatusPaid      Status = "PAID"
	StatusFailed    Status = "FAILED"
)

var statusByEvent = map[eventdomain.SalientEventType]Status{
	eventdomain.PayoutCreated: StatusInTransit,
	eventdomain.PayoutPaid:    StatusPaid,
	eventdomain.PayoutFailed:  StatusFailed,
}

type Payout struct {
	ID                  snowflake.ID   `json:"id" gorm:"primaryKey"`
	ExternalID          string         `json:"external_id" gorm:"type:text;not null;uniqueIndex"`
	ServiceID           *string        `json:"service_id" gorm:"type:text"`
	GatewayAccountID    *string        `json:"gateway_account_id" gorm:"type:text"`
	Amount              *int64         `json:"amount"`
	PaidOutDate         *time.Time     `json:"paid_out_date"`
	StatementDescriptor *string        `json:"statement_descriptor" gorm:"type:text"`
	Status              Status         `json:"status" gorm:"type:text;not null"`
	Live                *bool          `json:"live"`
	CreatedDate         time.Time      `json:"created_date" gorm:"not null"`
	EventCount          int            `json:"event_count" gorm:"not null"`
	PayoutDetails       datatypes.JSON `json:"payout_details" gorm:"type:jsonb;not null"`
	UpdatedAt           time.Time      `json:"updated_at" gorm:"not null"`
}

func (Payout) TableName() string { return "payouts" }

// FromDigest maps a payout digest. Fields without a dedicated column are kept
// in PayoutDetails.
func FromDigest(digest eventdomain.EventDigest) (Payout, error) {
	if digest.MostRecentSalientEventType == nil {
		return Payout{}, fmt.Errorf("payout %s: %w", digest.ResourceExternalID, eventdomain.ErrNoSalientEvent)
	}
	status, ok := statusByEvent[*digest.MostRecentSalientEventType]
	if !ok {
		return Payout{}, fmt.Errorf("payout %s: %s has no status: %w",
			digest.ResourceExternalID, *digest.MostRecentSalientEventType, eventdomain.ErrNoSalientEvent)
	}

	details, err := json.Marshal(digest.Aggregate)
	if err != nil {
		return Payout{}, fmt.Errorf("payout %s: encode details: %w", digest.ResourceExternalID, err)
	}

	agg := digest.Aggregate
	return Payout{
		ExternalID:          digest.ResourceExternalID,
		ServiceID:           digest.ServiceID,
		Live:                digest.Live,
		CreatedDate:         digest.CreatedDate,
		EventCount:          digest.EventCount,
		Status:              status,
		GatewayAccountID:    agg.String("gateway_account_id"),
		Amount:              agg.Int64("amount"),
		PaidOutDate:         agg.Time("paid_out_date"),
		StatementDescriptor: agg.String("statement_descriptor"),
		PayoutDetails:       datatypes.JSON(details),
	}, nil
}

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, p *Payout) (bool, error)
	FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*Payout, error)
}
