package analytics

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/eventprosnz/eventpros-backend/pkg/db/models"
)

// Repository persists search queries and answers the admin rollups.
type Repository interface {
	Record(ctx context.Context, query *models.SearchQuery) error
	TopQueries(ctx context.Context, since time.Time, limit int) ([]QueryCount, error)
	ZeroResultQueries(ctx context.Context, since time.Time, limit int) ([]QueryCount, error)
	CountSince(ctx context.Context, since time.Time) (total int64, zeroResult int64, err error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a search analytics repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) Record(ctx context.Context, query *models.SearchQuery) error {
	return r.db.WithContext(ctx).Create(query).Error
}

// TopQueries groups by the normalized query text, most frequent first.
func (r *repositoryImpl) TopQueries(ctx context.Context, since time.Time, limit int) ([]QueryCount, error) {
	return r.grouped(ctx, since, limit, false)
}

func (r *repositoryImpl) ZeroResultQueries(ctx context.Context, since time.Time, limit int) ([]QueryCount, error) {
	return r.grouped(ctx, since, limit, true)
}

func (r *repositoryImpl) grouped(ctx context.Context, since time.Time, limit int, zeroOnly bool) ([]QueryCount, error) {
	q := r.db.WithContext(ctx).
		Model(&models.SearchQuery{}).
		Select("lower(query) AS query, COUNT(*) AS count, AVG(result_count) AS avg_results").
		Where("created_at >= ?", since)
	if zeroOnly {
		q = q.Where("result_count = 0")
	}
	var rows []QueryCount
	err := q.Group("lower(query)").
		Order("count DESC").
		Order("query ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *repositoryImpl) CountSince(ctx context.Context, since time.Time) (int64, int64, error) {
	var out struct {
		Total      int64
		ZeroResult int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.SearchQuery{}).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN result_count = 0 THEN 1 ELSE 0 END), 0) AS zero_result").
		Where("created_at >= ?", since).
		Scan(&out).Error
	return out.Total, out.ZeroResult, err
}
