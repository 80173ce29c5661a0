package trip

import (
	"errors"
	"strings"
)

// EventType corresponds to the values in the `trip_event_type` table.
type EventType string

const (
	EventTripRequested EventType = "TRIP_REQUESTED"
	EventTripAccepted  EventType = "TRIP_ACCEPTED"
	EventDriverArrived EventType = "DRIVER_ARRIVED"
	EventTripStarted   EventType = "TRIP_STARTED"
	EventTripCompleted EventType = "TRIP_COMPLETED"
	EventTripCancelled EventType = "TRIP_CANCELLED"
)

var ErrInvalidEventType = errors.New("invalid trip event type")

// ParseEventType normalizes (uppercases+trims) and validates an event type string.
func ParseEventType(input string) (EventType, error) {
	eventType := EventType(strings.ToUpper(strings.TrimSpace(input)))
	if eventType.Valid() {
		return eventType, nil
	}
	return "", ErrInvalidEventType
}

// Valid reports whether eventType is one of the allowed event type constants.
func (eventType EventType) Valid() bool {
	switch eventType {
	case EventTripRequested,
		EventTripAccepted,
		EventDriverArrived,
		EventTripStarted,
		EventTripCompleted,
		EventTripCancelled:
		return true
	default:
		return false
	}
}

// String returns the string representation of the EventType.
func (eventType EventType) String() string {
	return string(eventType)
}

// EventTypeForStatus maps a reached status to its audit event type.
func EventTypeForStatus(status Status) EventType {
	switch status {
	case StatusRequested:
		return EventTripRequested
	case StatusAccepted:
		return EventTripAccepted
	case StatusArrived:
		return EventDriverArrived
	case StatusInProgress:
		return EventTripStarted
	case StatusCompleted:
		return EventTripCompleted
	case StatusCancelled:
		return EventTripCancelled
	default:
		return ""
	}
}
