package models

import (
	"time"

	"github.com/google/uuid"
)

// ContractorOnboardingStatus tracks the contractor profile-completion flow.
// A missing row means onboarding never started.
type ContractorOnboardingStatus struct {
	UserID      uuid.UUID  `gorm:"column:user_id;type:uuid;primaryKey"`
	Step        int        `gorm:"column:step;not null;default:0"`
	IsSubmitted bool       `gorm:"column:is_submitted;not null;default:false"`
	SubmittedAt *time.Time `gorm:"column:submitted_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (ContractorOnboardingStatus) TableName() string {
	return "contractor_onboarding_status"
}
