package inquiries

import (
	"time"

	"github.com/google/uuid"

	"github.com/eventprosnz/eventpros-backend/internal/users"
	"github.com/eventprosnz/eventpros-backend/pkg/db/models"
	"github.com/eventprosnz/eventpros-backend/pkg/enums"
)

// Box selects which side of the conversation the caller is listing.
type Box string

const (
	BoxSent     Box = "sent"
	BoxReceived Box = "received"
)

const unknownSenderName = "Unknown sender"

// CreateInput is the body of a new inquiry.
type CreateInput struct {
	ContractorID uuid.UUID  `json:"contractor_id" validate:"required"`
	EventID      *uuid.UUID `json:"event_id,omitempty"`
	Subject      string     `json:"subject" validate:"required,notblank,max=200"`
	Message      string     `json:"message" validate:"required,notblank,max=5000"`
}

// ListInput filters the caller's inquiries.
type ListInput struct {
	Box    Box
	Status *enums.InquiryStatus
	Limit  int
	Offset int
}

// Inquiry is the transport shape, carrying the sender's public summary.
type Inquiry struct {
	ID           uuid.UUID           `json:"id"`
	EventID      *uuid.UUID          `json:"event_id,omitempty"`
	SenderID     uuid.UUID           `json:"sender_id"`
	ContractorID uuid.UUID           `json:"contractor_id"`
	Subject      string              `json:"subject"`
	Message      string              `json:"message"`
	Status       enums.InquiryStatus `json:"status"`
	Sender       users.PublicSummary `json:"sender"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// ListResult is one offset page of inquiries.
type ListResult struct {
	Items  []Inquiry `json:"items"`
	Total  int64     `json:"total"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
}

// TemplateInput is the body of a new inquiry template.
type TemplateInput struct {
	Name     string `json:"name" validate:"required,notblank,max=100"`
	Subject  string `json:"subject" validate:"required,max=200"`
	Body     string `json:"body" validate:"required,max=5000"`
	IsPublic bool   `json:"is_public"`
}

// Template is the transport shape of a stored template.
type Template struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	IsPublic  bool      `json:"is_public"`
	CreatedAt time.Time `json:"created_at"`
}

func fromModel(m models.Inquiry) Inquiry {
	return Inquiry{
		ID:           m.ID,
		EventID:      m.EventID,
		SenderID:     m.SenderID,
		ContractorID: m.ContractorID,
		Subject:      m.Subject,
		Message:      m.Message,
		Status:       m.Status,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func templateFromModel(m models.InquiryTemplate) Template {
	return Template{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		Name:      m.Name,
		Subject:   m.Subject,
		Body:      m.Body,
		IsPublic:  m.IsPublic,
		CreatedAt: m.CreatedAt,
	}
}

func unknownSender(id uuid.UUID) users.PublicSummary {
	return users.PublicSummary{ID: id, Name: unknownSenderName}
}
