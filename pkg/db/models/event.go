package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eventprosnz/eventpros-backend/pkg/enums"
)

// Event is planned by an event manager.
type Event struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ManagerID     uuid.UUID         `gorm:"column:manager_id;type:uuid;not null"`
	Title         string            `gorm:"column:title;not null"`
	Description   *string           `gorm:"column:description"`
	EventType     string            `gorm:"column:event_type;not null"`
	Status        enums.EventStatus `gorm:"column:status;type:event_status;not null;default:'draft'"`
	EventDate     time.Time         `gorm:"column:event_date;not null"`
	Location      *string           `gorm:"column:location"`
	AttendeeCount int               `gorm:"column:attendee_count;not null;default:0"`
	Budget        decimal.Decimal   `gorm:"column:budget;type:numeric(12,2);not null;default:0"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
