package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/eventprosnz/eventpros-backend/pkg/enums"
)

// Inquiry is a message from an event manager to a contractor.
type Inquiry struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID      *uuid.UUID          `gorm:"column:event_id;type:uuid"`
	SenderID     uuid.UUID           `gorm:"column:sender_id;type:uuid;not null"`
	ContractorID uuid.UUID           `gorm:"column:contractor_id;type:uuid;not null"`
	Subject      string              `gorm:"column:subject;not null"`
	Message      string              `gorm:"column:message;not null"`
	Status       enums.InquiryStatus `gorm:"column:status;type:inquiry_status;not null;default:'sent'"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// InquiryTemplate is a reusable inquiry body.
type InquiryTemplate struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID   uuid.UUID `gorm:"column:owner_id;type:uuid;not null"`
	Name      string    `gorm:"column:name;not null"`
	Subject   string    `gorm:"column:subject;not null"`
	Body      string    `gorm:"column:body;not null"`
	IsPublic  bool      `gorm:"column:is_public;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
