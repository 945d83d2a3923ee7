package models

import (
	"time"

	"github.com/google/uuid"
)

// PrivacyPolicy is one version of the published privacy document.
type PrivacyPolicy struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Version       int        `gorm:"column:version;not null;uniqueIndex"`
	Title         string     `gorm:"column:title;not null"`
	Content       string     `gorm:"column:content;not null"`
	EffectiveDate time.Time  `gorm:"column:effective_date;not null"`
	IsActive      bool       `gorm:"column:is_active;not null;default:false"`
	CreatedBy     *uuid.UUID `gorm:"column:created_by;type:uuid"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
