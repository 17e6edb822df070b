package domain

import "errors"

var (
	ErrEmptyEventHistory   = errors.New("empty_event_history")
	ErrNoSalientEvent      = errors.New("no_salient_event")
	ErrUnknownResourceType = errors.New("unknown_resource_type")
	ErrInvalidEventData    = errors.New("invalid_event_data")
)
