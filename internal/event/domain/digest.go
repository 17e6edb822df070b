package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// EventDigest is the fold of every event known for one resource. It is
// rebuilt on demand and never stored.
type EventDigest struct {
	ResourceExternalID         string
	ResourceType               ResourceType
	ParentResourceExternalID   *string
	ServiceID                  *string
	Live                       *bool
	CreatedDate                time.Time
	MostRecentEventTimestamp   time.Time
	MostRecentSalientEventType *SalientEventType
	EventCount                 int
	Aggregate                  Aggregate
}

// BuildDigest folds events in ascending event date order. Later payloads
// overwrite earlier ones key by key. The result does not depend on the order
// of the input slice.
func BuildDigest(events []Event) (EventDigest, error) {
	if len(events) == 0 {
		return EventDigest{}, ErrEmptyEventHistory
	}

	sorted := SortEvents(events)
	first := sorted[0]
	digest := EventDigest{
		ResourceExternalID: first.ResourceExternalID,
		ResourceType:       first.ResourceType,
		CreatedDate:        first.EventDate.UTC(),
		EventCount:         len(sorted),
		Aggregate:          Aggregate{},
	}

	for _, event := range sorted {
		data, err := DecodeEventData(event.EventData)
		if err != nil {
			return EventDigest{}, fmt.Errorf("event %s %s: %w", event.ResourceExternalID, event.EventType, err)
		}
		for k, v := range data {
			digest.Aggregate[k] = v
		}

		if salient, ok := ParseSalientEventType(event.EventType); ok {
			digest.MostRecentSalientEventType = &salient
		}
		if digest.ServiceID == nil && event.ServiceID != nil {
			digest.ServiceID = event.ServiceID
		}
		if digest.ParentResourceExternalID == nil && event.ParentResourceExternalID != nil {
			digest.ParentResourceExternalID = event.ParentResourceExternalID
		}
		digest.Live = reduceLive(digest.Live, event.Live)
	}
	digest.MostRecentEventTimestamp = sorted[len(sorted)-1].EventDate.UTC()

	return digest, nil
}

// reduceLive: true beats false, false beats unknown.
func reduceLive(acc, next *bool) *bool {
	switch {
	case next == nil:
		return acc
	case acc == nil:
		v := *next
		return &v
	case *next:
		v := true
		return &v
	default:
		return acc
	}
}

// SortEvents returns a copy ordered by event date. Ties are broken by id,
// event type and payload so the order is total.
func SortEvents(events []Event) []Event {
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return eventLess(sorted[i], sorted[j])
	})
	return sorted
}

func eventLess(a, b Event) bool {
	if !a.EventDate.Equal(b.EventDate) {
		return a.EventDate.Before(b.EventDate)
	}
	if a.ID != b.ID {
		return a.ID < b.ID
	}
	if a.EventType != b.EventType {
		return a.EventType < b.EventType
	}
	return bytes.Compare(a.EventData, b.EventData) < 0
}

// DecodeEventData parses a payload into an Aggregate. Empty and null payloads
// decode to an empty map.
func DecodeEventData(raw []byte) (Aggregate, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Aggregate{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEventData, err)
	}
	if data == nil {
		return Aggregate{}, nil
	}
	return Aggregate(data), nil
}
