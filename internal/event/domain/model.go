package domain

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ResourceType string

const (
	ResourceTypePayment           ResourceType = "PAYMENT"
	ResourceTypeRefund            ResourceType = "REFUND"
	ResourceTypeDispute           ResourceType = "DISPUTE"
	ResourceTypePayout            ResourceType = "PAYOUT"
	ResourceTypeAgreement         ResourceType = "AGREEMENT"
	ResourceTypePaymentInstrument ResourceType = "PAYMENT_INSTRUMENT"
)

var resourceTypes = map[ResourceType]struct{}{
	ResourceTypePayment:           {},
	ResourceTypeRefund:            {},
	ResourceTypeDispute:           {},
	ResourceTypePayout:            {},
	ResourceTypeAgreement:         {},
	ResourceTypePaymentInstrument: {},
}

// ParseResourceType accepts any casing and either "_" or " " as separator.
func ParseResourceType(raw string) (ResourceType, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	t := ResourceType(normalized)
	if _, ok := resourceTypes[t]; !ok {
		return "", ErrUnknownResourceType
	}
	return t, nil
}

func (t ResourceType) String() string { return string(t) }

// IsChildTransaction reports whether the resource hangs off a parent payment.
func (t ResourceType) IsChildTransaction() bool {
	return t == ResourceTypeRefund || t == ResourceTypeDispute
}

// Event is one immutable fact about a resource as received from the queue.
type Event struct {
	ID                       snowflake.ID   `json:"id" gorm:"primaryKey"`
	DeliveryID               string         `json:"delivery_id" gorm:"type:text"`
	ServiceID                *string        `json:"service_id" gorm:"type:text"`
	Live                     *bool          `json:"live"`
	ResourceType             ResourceType   `json:"resource_type" gorm:"type:text;not null"`
	ResourceExternalID       string         `json:"resource_external_id" gorm:"type:text;not null;index"`
	ParentResourceExternalID *string        `json:"parent_resource_external_id" gorm:"type:text"`
	EventDate                time.Time      `json:"event_date" gorm:"not null"`
	EventType                string         `json:"event_type" gorm:"type:text;not null"`
	EventData                datatypes.JSON `json:"event_data" gorm:"type:jsonb;not null"`
	EventDataHash            string         `json:"-" gorm:"type:text;not null"`
	CreatedAt                time.Time      `json:"created_at" gorm:"not null"`
}

func (Event) TableName() string { return "events" }

type Repository interface {
	// InsertIfNotExists returns false when an identical event is already stored.
	InsertIfNotExists(ctx context.Context, db *gorm.DB, event *Event) (bool, error)
	// ListByResourceExternalID returns events ordered by event date ascending.
	ListByResourceExternalID(ctx context.Context, db *gorm.DB, externalID string) ([]Event, error)
}
