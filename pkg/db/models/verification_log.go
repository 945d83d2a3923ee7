package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/eventprosnz/eventpros-backend/pkg/enums"
)

// VerificationLog is an append-only record of an admin decision.
type VerificationLog struct {
	ID        uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	AdminID   uuid.UUID                `gorm:"column:admin_id;type:uuid;not null"`
	Action    enums.VerificationAction `gorm:"column:action;type:verification_action;not null"`
	Status    enums.VerificationStatus `gorm:"column:status;type:text;not null"`
	Reason    *string                  `gorm:"column:reason"`
	CreatedAt time.Time                `gorm:"column:created_at;autoCreateTime"`
}

// IsRejection reports whether the row counts as a rejection signal.
func (l VerificationLog) IsRejection() bool {
	return l.Action == enums.VerificationActionReject || l.Status == enums.VerificationStatusRejected
}
