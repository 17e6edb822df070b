package repository

import (
	"context"

	"github.com/smallbiznis/ledger/internal/event/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// InsertIfNotExists relies on the unique index over resource, type, date and
// payload hash. The delivery id is deliberately outside that index so a
// redelivered message is a no-op.
func (r *repo) InsertIfNotExists(ctx context.Context, db *gorm.DB, event *domain.Event) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO events (
			id, delivery_id, service_id, live, resource_type, resource_external_id,
			parent_resource_external_id, event_date, event_type, event_data, event_data_hash, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (resource_external_id, resource_type, event_type, event_date, event_data_hash) DO NOTHING`,
		event.ID,
		event.DeliveryID,
		event.ServiceID,
		event.Live,
		event.ResourceType,
		event.ResourceExternalID,
		event.ParentResourceExternalID,
		event.EventDate,
		event.EventType,
		event.EventData,
		event.EventDataHash,
		event.CreatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ListByResourceExternalID(ctx context.Context, db *gorm.DB, externalID string) ([]domain.Event, error) {
	var items []domain.Event
	err := db.WithContext(ctx).Raw(
		`SELECT id, delivery_id, service_id, live, resource_type, resource_external_id,
			parent_resource_external_id, event_date, event_type, event_data, event_data_hash, created_at
		 FROM events
		 WHERE resource_external_id = ?
		 ORDER BY event_date ASC, id ASC`,
		externalID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
