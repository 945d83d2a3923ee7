package onboarding

import (
	"time"

	"github.com/google/uuid"

	"github.com/eventprosnz/eventpros-backend/pkg/db/models"
	"github.com/eventprosnz/eventpros-backend/pkg/enums"
)

// MaxStep is the last step of contractor onboarding before submission.
const MaxStep = 4

// ProfileInput is the owner-editable subset of a business profile.
type ProfileInput struct {
	CompanyName       string   `json:"company_name" validate:"required,notblank,max=200"`
	Description       *string  `json:"description,omitempty" validate:"omitempty,max=5000"`
	Website           *string  `json:"website,omitempty" validate:"omitempty,url,max=500"`
	Location          *string  `json:"location,omitempty" validate:"omitempty,max=200"`
	ServiceCategories []string `json:"service_categories,omitempty" validate:"omitempty,max=20,dive,min=1,max=60"`
}

// Profile is the API view of a business profile.
type Profile struct {
	ID                uuid.UUID `json:"id"`
	UserID            uuid.UUID `json:"user_id"`
	CompanyName       string    `json:"company_name"`
	Description       *string   `json:"description,omitempty"`
	Website           *string   `json:"website,omitempty"`
	Location          *string   `json:"location,omitempty"`
	ServiceCategories []string  `json:"service_categories"`
	IsVerified        bool      `json:"is_verified"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func profileFromModel(m models.BusinessProfile) Profile {
	categories := []string(m.ServiceCategories)
	if categories == nil {
		categories = []string{}
	}
	return Profile{
		ID:                m.ID,
		UserID:            m.UserID,
		CompanyName:       m.CompanyName,
		Description:       m.Description,
		Website:           m.Website,
		Location:          m.Location,
		ServiceCategories: categories,
		IsVerified:        m.IsVerified,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// Status is a contractor's onboarding progress plus the derived verification status.
type Status struct {
	State              enums.OnboardingState    `json:"state"`
	Step               int                      `json:"step"`
	IsSubmitted        bool                     `json:"is_submitted"`
	SubmittedAt        *time.Time               `json:"submitted_at,omitempty"`
	VerificationStatus enums.VerificationStatus `json:"verification_status"`
}
