package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/eventprosnz/eventpros-backend/pkg/db/models"
	"github.com/eventprosnz/eventpros-backend/pkg/enums"
	"github.com/eventprosnz/eventpros-backend/pkg/pagination"
)

// Repository exposes persistence helpers for events and the dashboard aggregates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.Event) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	List(ctx context.Context, params listParams) ([]models.Event, error)
	CountByStatus(ctx context.Context, managerID uuid.UUID) (map[enums.EventStatus]int64, error)
	Upcoming(ctx context.Context, managerID uuid.UUID, from time.Time, limit int) ([]models.Event, error)
	TotalBudget(ctx context.Context, managerID uuid.UUID) (decimal.Decimal, error)
	CountInquiriesReceived(ctx context.Context, managerID uuid.UUID) (int64, error)
}

type listParams struct {
	ManagerID uuid.UUID
	Status    *enums.EventStatus
	Limit     int
	Cursor    *pagination.Cursor
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an events repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// List returns the manager's events newest first. Callers pass a buffered
// limit to detect the next page.
func (r *repositoryImpl) List(ctx context.Context, params listParams) ([]models.Event, error) {
	query := r.db.WithContext(ctx).Model(&models.Event{}).Where("manager_id = ?", params.ManagerID)
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))",
			params.Cursor.At, params.Cursor.At, params.Cursor.ID)
	}
	var rows []models.Event
	if err := query.Order("created_at DESC, id DESC").Limit(params.Limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

type statusCount struct {
	Status enums.EventStatus
	Count  int64
}

func (r *repositoryImpl) CountByStatus(ctx context.Context, managerID uuid.UUID) (map[enums.EventStatus]int64, error) {
	var rows []statusCount
	err := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Select("status, COUNT(*) AS count").
		Where("manager_id = ?", managerID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[enums.EventStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

// Upcoming returns live events on or after from, soonest first.
func (r *repositoryImpl) Upcoming(ctx context.Context, managerID uuid.UUID, from time.Time, limit int) ([]models.Event, error) {
	var rows []models.Event
	err := r.db.WithContext(ctx).
		Where("manager_id = ? AND event_date >= ?", managerID, from).
		Where("status NOT IN ?", []enums.EventStatus{enums.EventStatusCancelled, enums.EventStatusCompleted}).
		Order("event_date ASC, id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// TotalBudget sums the budgets of the manager's non-cancelled events.
func (r *repositoryImpl) TotalBudget(ctx context.Context, managerID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Select("COALESCE(SUM(budget), 0)").
		Where("manager_id = ? AND status <> ?", managerID, enums.EventStatusCancelled).
		Row().
		Scan(&total)
	return total, err
}

func (r *repositoryImpl) CountInquiriesReceived(ctx context.Context, managerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Inquiry{}).
		Where("event_id IN (?)", r.db.Model(&models.Event{}).Select("id").Where("manager_id = ?", managerID)).
		Count(&count).Error
	return count, err
}
