package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledger/internal/clock"
	"github.com/smallbiznis/ledger/internal/event/domain"
	obsmetrics "github.com/smallbiznis/ledger/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrInvalidEvent = errors.New("invalid_event")

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	Clock      clock.Clock         `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	clock      clock.Clock
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) *Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("event.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		clock:      c,
		obsMetrics: p.ObsMetrics,
	}
}

// InsertIfNotExists stores event unless an identical one is already present.
// On success event carries its assigned id and canonical payload.
func (s *Service) InsertIfNotExists(ctx context.Context, event *domain.Event) (bool, error) {
	if event == nil || strings.TrimSpace(event.ResourceExternalID) == "" ||
		strings.TrimSpace(event.EventType) == "" || event.EventDate.IsZero() {
		return false, ErrInvalidEvent
	}

	canonical, hash, err := domain.CanonicalEventData(event.EventData)
	if err != nil {
		return false, err
	}

	event.ID = s.genID.Generate()
	event.EventData = datatypes.JSON(canonical)
	event.EventDataHash = hash
	event.EventDate = event.EventDate.UTC().Truncate(time.Microsecond)
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.clock.Now()
	}

	inserted, err := s.repo.InsertIfNotExists(ctx, s.db, event)
	if err != nil {
		return false, err
	}
	s.obsMetrics.RecordEventIngested(ctx, event.ResourceType.String(), event.EventType, inserted)
	if !inserted {
		s.log.Debug("duplicate event ignored",
			zap.String("resource_external_id", event.ResourceExternalID),
			zap.String("event_type", event.EventType),
		)
	}
	return inserted, nil
}

// GetEventsForResource returns every stored event of a resource in event date order.
func (s *Service) GetEventsForResource(ctx context.Context, externalID string) ([]domain.Event, error) {
	return s.repo.ListByResourceExternalID(ctx, s.db, externalID)
}

// GetEventDigest folds the resource's stored events. It returns
// domain.ErrEmptyEventHistory when nothing is stored yet.
func (s *Service) GetEventDigest(ctx context.Context, externalID string) (domain.EventDigest, error) {
	events, err := s.GetEventsForResource(ctx, externalID)
	if err != nil {
		return domain.EventDigest{}, err
	}
	return domain.BuildDigest(events)
}

// GetLatestEvent returns the most recent stored event of a resource.
func (s *Service) GetLatestEvent(ctx context.Context, externalID string) (domain.Event, error) {
	events, err := s.GetEventsForResource(ctx, externalID)
	if err != nil {
		return domain.Event{}, err
	}
	if len(events) == 0 {
		return domain.Event{}, domain.ErrEmptyEventHistory
	}
	sorted := domain.SortEvents(events)
	return sorted[len(sorted)-1], nil
}
