package verification

import (
	"time"

	"github.com/google/uuid"

	"github.com/eventprosnz/eventpros-backend/pkg/db/models"
	"github.com/eventprosnz/eventpros-backend/pkg/enums"
)

// LogEntry is the API view of a verification log row.
type LogEntry struct {
	ID        uuid.UUID                `json:"id"`
	AdminID   uuid.UUID                `json:"admin_id"`
	Action    enums.VerificationAction `json:"action"`
	Status    enums.VerificationStatus `json:"status"`
	Reason    *string                  `json:"reason,omitempty"`
	CreatedAt time.Time                `json:"created_at"`
}

func logEntryFromModel(m models.VerificationLog) LogEntry {
	return LogEntry{
		ID:        m.ID,
		AdminID:   m.AdminID,
		Action:    m.Action,
		Status:    m.Status,
		Reason:    m.Reason,
		CreatedAt: m.CreatedAt,
	}
}

// QueueItem is one row of the admin verification queue.
type QueueItem struct {
	UserID       uuid.UUID                  `json:"user_id"`
	Email        string                     `json:"email"`
	Name         string                     `json:"name"`
	Role         enums.UserRole             `json:"role"`
	CompanyName  *string                    `json:"company_name,omitempty"`
	Status       enums.VerificationStatus   `json:"status"`
	Priority     enums.VerificationPriority `json:"priority"`
	Onboarding   enums.OnboardingState      `json:"onboarding"`
	SubmittedAt  *time.Time                 `json:"submitted_at,omitempty"`
	CreatedAt    time.Time                  `json:"created_at"`
	WaitingSince time.Time                  `json:"waiting_since"`
	LatestLog    *LogEntry                  `json:"latest_log,omitempty"`
}

func (s snapshot) item(thresholds Thresholds, now time.Time) QueueItem {
	signals := s.signals()
	item := QueueItem{
		UserID:       s.user.ID,
		Email:        s.user.Email,
		Name:         s.user.FullName(),
		Role:         s.user.Role,
		Status:       Derive(signals),
		Priority:     thresholds.Priority(s.waitingSince(), now),
		Onboarding:   signals.Onboarding,
		CreatedAt:    s.user.CreatedAt,
		WaitingSince: s.waitingSince(),
	}
	if s.profile != nil {
		name := s.profile.CompanyName
		item.CompanyName = &name
	}
	if s.onboarding != nil {
		item.SubmittedAt = s.onboarding.SubmittedAt
	}
	if latest := s.latestLog(); latest != nil {
		entry := logEntryFromModel(*latest)
		item.LatestLog = &entry
	}
	return item
}

// QueueResult is a page of the queue.
type QueueResult struct {
	Items  []QueueItem `json:"items"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// Detail is a single user's derived status with full history.
type Detail struct {
	QueueItem
	Logs []LogEntry `json:"logs"`
}

// DecisionResult is returned after approve or reject.
type DecisionResult struct {
	UserID uuid.UUID                `json:"user_id"`
	Action enums.VerificationAction `json:"action"`
	Status enums.VerificationStatus `json:"status"`
	Log    LogEntry                 `json:"log"`
}
