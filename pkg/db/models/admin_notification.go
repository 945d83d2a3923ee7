package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/eventprosnz/eventpros-backend/pkg/enums"
)

// AdminNotification is an in-app message for admins. A nil RecipientID
// broadcasts to every admin.
type AdminNotification struct {
	ID            uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	RecipientID   *uuid.UUID             `gorm:"column:recipient_id;type:uuid"`
	Type          enums.NotificationType `gorm:"type:admin_notification_type;not null"`
	Title         string                 `gorm:"type:text;not null"`
	Message       string                 `gorm:"type:text;not null"`
	SubjectUserID *uuid.UUID             `gorm:"column:subject_user_id;type:uuid"`
	ReadAt        *time.Time             `gorm:"type:timestamptz"`
	CreatedAt     time.Time              `gorm:"type:timestamptz;default:now()"`
}
