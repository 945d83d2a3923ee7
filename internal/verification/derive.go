package verification

import (
	"time"

	"github.com/eventprosnz/eventpros-backend/pkg/db/models"
	"github.com/eventprosnz/eventpros-backend/pkg/enums"
)

// Signals is the normalized input to Derive.
type Signals struct {
	Role         enums.UserRole
	IsVerified   bool
	HasRejection bool
	Onboarding   enums.OnboardingState
}

// Derive maps signals to a status. Precedence: approved, rejected,
// onboarding, pending.
func Derive(s Signals) enums.VerificationStatus {
	switch {
	case s.IsVerified:
		return enums.VerificationStatusApproved
	case s.HasRejection:
		return enums.VerificationStatusRejected
	case s.Role.HasBusinessProfile() && s.Onboarding != enums.OnboardingSubmitted:
		return enums.VerificationStatusOnboarding
	default:
		return enums.VerificationStatusPending
	}
}

// snapshot is everything loaded for one user inside a read transaction.
type snapshot struct {
	user       models.User
	profile    *models.BusinessProfile
	onboarding *models.ContractorOnboardingStatus
	logs       []models.VerificationLog
}

// OnboardingState resolves the tri-state signal for a role. Contractors are
// tracked by their onboarding row, event managers by profile presence.
func OnboardingState(role enums.UserRole, profile *models.BusinessProfile, onboarding *models.ContractorOnboardingStatus) enums.OnboardingState {
	switch role {
	case enums.UserRoleContractor:
		switch {
		case onboarding == nil:
			return enums.OnboardingAbsent
		case onboarding.IsSubmitted:
			return enums.OnboardingSubmitted
		default:
			return enums.OnboardingIncomplete
		}
	case enums.UserRoleEventManager:
		if profile == nil {
			return enums.OnboardingAbsent
		}
		return enums.OnboardingSubmitted
	default:
		return enums.OnboardingSubmitted
	}
}

func (s snapshot) signals() Signals {
	rejected := false
	for _, entry := range s.logs {
		if entry.IsRejection() {
			rejected = true
			break
		}
	}
	return Signals{
		Role:         s.user.Role,
		IsVerified:   s.user.IsVerified,
		HasRejection: rejected,
		Onboarding:   OnboardingState(s.user.Role, s.profile, s.onboarding),
	}
}

func (s snapshot) status() enums.VerificationStatus {
	return Derive(s.signals())
}

// waitingSince is the timestamp priority is measured from.
func (s snapshot) waitingSince() time.Time {
	if s.onboarding != nil && s.onboarding.SubmittedAt != nil {
		return *s.onboarding.SubmittedAt
	}
	return s.user.CreatedAt
}

// latestLog assumes logs are ordered newest first.
func (s snapshot) latestLog() *models.VerificationLog {
	if len(s.logs) == 0 {
		return nil
	}
	entry := s.logs[0]
	return &entry
}

// Thresholds configure queue priority bands.
type Thresholds struct {
	High   time.Duration
	Medium time.Duration
}

// DefaultThresholds are 7 and 3 days.
var DefaultThresholds = Thresholds{High: 7 * 24 * time.Hour, Medium: 3 * 24 * time.Hour}

// Priority buckets the wait between since and now.
func (t Thresholds) Priority(since, now time.Time) enums.VerificationPriority {
	waited := now.Sub(since)
	switch {
	case waited >= t.High:
		return enums.VerificationPriorityHigh
	case waited >= t.Medium:
		return enums.VerificationPriorityMedium
	default:
		return enums.VerificationPriorityLow
	}
}
