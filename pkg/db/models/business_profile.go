package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// BusinessProfile is the company-level record owned by a contractor or event manager.
type BusinessProfile struct {
	ID                uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID            uuid.UUID      `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	CompanyName       string         `gorm:"column:company_name;not null"`
	Description       *string        `gorm:"column:description"`
	Website           *string        `gorm:"column:website"`
	Location          *string        `gorm:"column:location"`
	ServiceCategories pq.StringArray `gorm:"column:service_categories;type:text[];not null;default:'{}'"`
	IsVerified        bool           `gorm:"column:is_verified;not null;default:false"`
	CreatedAt         time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
