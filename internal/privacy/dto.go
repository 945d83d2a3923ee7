package privacy

import (
	"time"

	"github.com/google/uuid"

	"github.com/eventprosnz/eventpros-backend/pkg/db/models"
)

// CreateInput publishes a new policy version.
type CreateInput struct {
	Title         string    `json:"title" validate:"required,notblank,max=200"`
	Content       string    `json:"content" validate:"required,notblank"`
	EffectiveDate time.Time `json:"effective_date" validate:"required"`
	Activate      bool      `json:"is_active"`
}

// UpdateInput patches an existing version. Nil fields are left unchanged.
type UpdateInput struct {
	ID            uuid.UUID  `json:"id" validate:"required"`
	Title         *string    `json:"title,omitempty" validate:"omitempty,max=200"`
	Content       *string    `json:"content,omitempty"`
	EffectiveDate *time.Time `json:"effective_date,omitempty"`
	IsActive      *bool      `json:"is_active,omitempty"`
}

// Policy is the transport shape of a policy version.
type Policy struct {
	ID            uuid.UUID  `json:"id"`
	Version       int        `json:"version"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	EffectiveDate time.Time  `json:"effective_date"`
	IsActive      bool       `json:"is_active"`
	CreatedBy     *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func fromModel(m *models.PrivacyPolicy) *Policy {
	return &Policy{
		ID:            m.ID,
		Version:       m.Version,
		Title:         m.Title,
		Content:       m.Content,
		EffectiveDate: m.EffectiveDate,
		IsActive:      m.IsActive,
		CreatedBy:     m.CreatedBy,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
