package notifications

import (
	"time"

	"github.com/google/uuid"

	"github.com/eventprosnz/eventpros-backend/pkg/db/models"
	"github.com/eventprosnz/eventpros-backend/pkg/enums"
)

// Notification is the API view of an admin notification.
type Notification struct {
	ID            uuid.UUID              `json:"id"`
	Type          enums.NotificationType `json:"type"`
	Title         string                 `json:"title"`
	Message       string                 `json:"message"`
	SubjectUserID *uuid.UUID             `json:"subject_user_id,omitempty"`
	Broadcast     bool                   `json:"broadcast"`
	IsRead        bool                   `json:"is_read"`
	ReadAt        *time.Time             `json:"read_at,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

func fromModel(m models.AdminNotification) Notification {
	return Notification{
		ID:            m.ID,
		Type:          m.Type,
		Title:         m.Title,
		Message:       m.Message,
		SubjectUserID: m.SubjectUserID,
		Broadcast:     m.RecipientID == nil,
		IsRead:        m.ReadAt != nil,
		ReadAt:        m.ReadAt,
		CreatedAt:     m.CreatedAt,
	}
}

// NewNotification is what producers hand to Notify.
type NewNotification struct {
	// RecipientID nil broadcasts to every admin.
	RecipientID   *uuid.UUID
	Type          enums.NotificationType
	Title         string
	Message       string
	SubjectUserID *uuid.UUID
}
