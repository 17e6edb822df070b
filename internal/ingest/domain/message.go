package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	eventdomain "github.com/smallbiznis/ledger/internal/event/domain"
)

var ErrInvalidMessage = errors.New("invalid_message")

// Message is the queue envelope carrying one event.
type Message struct {
	ResourceExternalID       string          `json:"resource_external_id"`
	ResourceType             string          `json:"resource_type"`
	ParentResourceExternalID *string         `json:"parent_resource_external_id"`
	ServiceID                *string         `json:"service_id"`
	Live                     *bool           `json:"live"`
	EventType                string          `json:"event_type"`
	Timestamp                string          `json:"timestamp"`
	EventDetails             json.RawMessage `json:"event_details"`
	ReprojectDomainObject    bool            `json:"reproject_domain_object"`
}

// ParseMessage decodes a queue body. Structural problems are reported as
// ErrInvalidMessage; a well-formed message naming an unsupported resource
// type yields eventdomain.ErrUnknownResourceType.
func ParseMessage(body []byte) (Message, eventdomain.Event, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return Message{}, eventdomain.Event{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	msg.ResourceExternalID = strings.TrimSpace(msg.ResourceExternalID)
	msg.EventType = strings.TrimSpace(msg.EventType)
	switch {
	case msg.ResourceExternalID == "":
		return msg, eventdomain.Event{}, fmt.Errorf("%w: resource_external_id is required", ErrInvalidMessage)
	case strings.TrimSpace(msg.ResourceType) == "":
		return msg, eventdomain.Event{}, fmt.Errorf("%w: resource_type is required", ErrInvalidMessage)
	case msg.EventType == "":
		return msg, eventdomain.Event{}, fmt.Errorf("%w: event_type is required", ErrInvalidMessage)
	}

	eventDate, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(msg.Timestamp))
	if err != nil {
		return msg, eventdomain.Event{}, fmt.Errorf("%w: timestamp: %v", ErrInvalidMessage, err)
	}

	details := bytes.TrimSpace(msg.EventDetails)
	if len(details) == 0 || bytes.Equal(details, []byte("null")) {
		details = []byte(`{}`)
	}
	if details[0] != '{' {
		return msg, eventdomain.Event{}, fmt.Errorf("%w: event_details must be an object", ErrInvalidMessage)
	}

	resourceType, err := eventdomain.ParseResourceType(msg.ResourceType)
	if err != nil {
		return msg, eventdomain.Event{}, err
	}

	return msg, eventdomain.Event{
		ServiceID:                blankToNil(msg.ServiceID),
		Live:                     msg.Live,
		ResourceType:             resourceType,
		ResourceExternalID:       msg.ResourceExternalID,
		ParentResourceExternalID: blankToNil(msg.ParentResourceExternalID),
		EventDate:                eventDate.UTC(),
		EventType:                msg.EventType,
		EventData:                details,
	}, nil
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
