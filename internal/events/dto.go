package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eventprosnz/eventpros-backend/pkg/db/models"
	"github.com/eventprosnz/eventpros-backend/pkg/enums"
)

const upcomingLimit = 5

// CreateInput is the body of a new event. Budget accepts a decimal string or number.
type CreateInput struct {
	Title         string          `json:"title" validate:"required,notblank,max=200"`
	Description   *string         `json:"description,omitempty" validate:"omitempty,max=5000"`
	EventType     string          `json:"event_type" validate:"required,max=50"`
	EventDate     time.Time       `json:"event_date" validate:"required"`
	Location      *string         `json:"location,omitempty" validate:"omitempty,max=200"`
	AttendeeCount int             `json:"attendee_count" validate:"gte=0"`
	Budget        decimal.Decimal `json:"budget"`
}

// ListInput filters and pages the manager's events.
type ListInput struct {
	Status *enums.EventStatus
	Limit  int
	Cursor string
}

// Event is the transport shape of an event.
type Event struct {
	ID            uuid.UUID         `json:"id"`
	ManagerID     uuid.UUID         `json:"manager_id"`
	Title         string            `json:"title"`
	Description   *string           `json:"description,omitempty"`
	EventType     string            `json:"event_type"`
	Status        enums.EventStatus `json:"status"`
	EventDate     time.Time         `json:"event_date"`
	Location      *string           `json:"location,omitempty"`
	AttendeeCount int               `json:"attendee_count"`
	Budget        decimal.Decimal   `json:"budget"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// ListResult is one cursor page of events.
type ListResult struct {
	Items  []Event `json:"items"`
	Cursor string  `json:"cursor,omitempty"`
}

// Dashboard aggregates a manager's events.
type Dashboard struct {
	CountsByStatus    map[enums.EventStatus]int64 `json:"counts_by_status"`
	TotalEvents       int64                       `json:"total_events"`
	Upcoming          []Event                     `json:"upcoming"`
	TotalBudget       decimal.Decimal             `json:"total_budget"`
	InquiriesReceived int64                       `json:"inquiries_received"`
	GeneratedAt       time.Time                   `json:"generated_at"`
}

func fromModel(m models.Event) Event {
	return Event{
		ID:            m.ID,
		ManagerID:     m.ManagerID,
		Title:         m.Title,
		Description:   m.Description,
		EventType:     m.EventType,
		Status:        m.Status,
		EventDate:     m.EventDate,
		Location:      m.Location,
		AttendeeCount: m.AttendeeCount,
		Budget:        m.Budget,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
