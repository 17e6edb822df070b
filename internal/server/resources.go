package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	eventdomain "github.com/smallbiznis/ledger/internal/event/domain"
	obslogger "github.com/smallbiznis/ledger/internal/observability/logger"
	"go.uber.org/zap"
)

type eventResponse struct {
	ID                       string  `json:"id"`
	ResourceType             string  `json:"resource_type"`
	ResourceExternalID       string  `json:"resource_external_id"`
	ParentResourceExternalID *string `json:"parent_resource_external_id,omitempty"`
	ServiceID                *string `json:"service_id,omitempty"`
	Live                     *bool   `json:"live,omitempty"`
	EventType                string  `json:"event_type"`
	EventDate                string  `json:"event_date"`
	EventData                any     `json:"event_data"`
}

func (s *Server) ReprojectResource(c *gin.Context) {
	externalID := strings.TrimSpace(c.Param("external_id"))
	if externalID == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	resourceType, err := eventdomain.ParseResourceType(c.Param("resource_type"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.reprojector.Reproject(c.Request.Context(), resourceType, externalID); err != nil {
		AbortWithError(c, err)
		return
	}

	obslogger.WithContext(c.Request.Context(), s.log).Info("resource reprojected",
		zap.String("resource_type", resourceType.String()),
		zap.String("resource_external_id", externalID),
	)
	c.JSON(http.StatusAccepted, gin.H{
		"resource_type":        resourceType,
		"resource_external_id": externalID,
		"status":               "reprojected",
	})
}

func (s *Server) ListEvents(c *gin.Context) {
	externalID := strings.TrimSpace(c.Param("external_id"))
	events, err := s.events.GetEventsForResource(c.Request.Context(), externalID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if len(events) == 0 {
		AbortWithError(c, eventdomain.ErrEmptyEventHistory)
		return
	}

	out := make([]eventResponse, 0, len(events))
	for _, e := range eventdomain.SortEvents(events) {
		data, err := eventdomain.DecodeEventData(e.EventData)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		out = append(out, eventResponse{
			ID:                       e.ID.String(),
			ResourceType:             e.ResourceType.String(),
			ResourceExternalID:       e.ResourceExternalID,
			ParentResourceExternalID: e.ParentResourceExternalID,
			ServiceID:                e.ServiceID,
			Live:                     e.Live,
			EventType:                e.EventType,
			EventDate:                e.EventDate.UTC().Format(time.RFC3339Nano),
			EventData:                data,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// GetTransaction returns a projected transaction. Refunds and disputes embed
// their parent payment when it has been projected.
func (s *Server) GetTransaction(c *gin.Context) {
	ctx := c.Request.Context()
	tx, err := s.transactions.FindByExternalID(ctx, s.db, strings.TrimSpace(c.Param("external_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if tx == nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	if tx.ParentExternalID != nil {
		parent, err := s.transactions.FindByExternalID(ctx, s.db, *tx.ParentExternalID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		tx.Parent = parent
	}
	c.JSON(http.StatusOK, tx)
}
