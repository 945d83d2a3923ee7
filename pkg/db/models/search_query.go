package models

import (
	"time"

	"github.com/google/uuid"
)

// SearchQuery records a single contractor search.
type SearchQuery struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      *uuid.UUID `gorm:"column:user_id;type:uuid"`
	Query       string     `gorm:"column:query;not null"`
	ResultCount int        `gorm:"column:result_count;not null;default:0"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
}
