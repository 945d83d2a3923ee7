package enums

import "slices"

// EventStatus maps to the event_status enum in Postgres.
type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPlanning  EventStatus = "planning"
	EventStatusConfirmed EventStatus = "confirmed"
	EventStatusCompleted EventStatus = "completed"
	EventStatusCancelled EventStatus = "cancelled"
)

// EventStatuses lists every status in lifecycle order.
var EventStatuses = []EventStatus{
	EventStatusDraft,
	EventStatusPlanning,
	EventStatusConfirmed,
	EventStatusCompleted,
	EventStatusCancelled,
}

func (s EventStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known EventStatus.
func (s EventStatus) IsValid() bool {
	return slices.Contains(EventStatuses, s)
}

// ParseEventStatus converts raw input into an EventStatus.
func ParseEventStatus(value string) (EventStatus, error) {
	return parse("event status", value, EventStatuses)
}
