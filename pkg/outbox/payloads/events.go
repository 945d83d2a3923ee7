package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/eventprosnz/eventpros-backend/pkg/enums"
)

// VerificationDecidedEvent is emitted when an admin approves or rejects a user.
type VerificationDecidedEvent struct {
	UserID    uuid.UUID                `json:"user_id"`
	AdminID   uuid.UUID                `json:"admin_id"`
	Action    enums.VerificationAction `json:"action"`
	Status    enums.VerificationStatus `json:"status"`
	Reason    *string                  `json:"reason,omitempty"`
	DecidedAt time.Time                `json:"decided_at"`
}

// OnboardingSubmittedEvent is emitted when a contractor submits onboarding for review.
type OnboardingSubmittedEvent struct {
	UserID      uuid.UUID `json:"user_id"`
	ProfileID   uuid.UUID `json:"business_profile_id"`
	CompanyName string    `json:"company_name"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// InquiryCreatedEvent tells the contractor side about a new inquiry.
type InquiryCreatedEvent struct {
	InquiryID    uuid.UUID  `json:"inquiry_id"`
	SenderID     uuid.UUID  `json:"sender_id"`
	ContractorID uuid.UUID  `json:"contractor_id"`
	EventID      *uuid.UUID `json:"event_id,omitempty"`
	Subject      string     `json:"subject"`
}

// EventCreatedEvent is emitted when an event manager creates an event.
type EventCreatedEvent struct {
	EventID   uuid.UUID         `json:"event_id"`
	ManagerID uuid.UUID         `json:"manager_id"`
	Title     string            `json:"title"`
	EventType string            `json:"event_type"`
	EventDate time.Time         `json:"event_date"`
	Status    enums.EventStatus `json:"status"`
}

// PrivacyPolicyPublishedEvent is emitted when a policy version becomes active.
type PrivacyPolicyPublishedEvent struct {
	PolicyID      uuid.UUID `json:"policy_id"`
	Version       int       `json:"version"`
	EffectiveDate time.Time `json:"effective_date"`
}
