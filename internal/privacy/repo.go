package privacy

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eventprosnz/eventpros-backend/pkg/db/models"
)

// Repository exposes persistence helpers for privacy policy versions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActive(ctx context.Context) (*models.PrivacyPolicy, error)
	FindByVersion(ctx context.Context, version int) (*models.PrivacyPolicy, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.PrivacyPolicy, error)
	MaxVersion(ctx context.Context) (int, error)
	Create(ctx context.Context, policy *models.PrivacyPolicy) error
	Save(ctx context.Context, policy *models.PrivacyPolicy) error
	DeactivateOthers(ctx context.Context, keepID uuid.UUID) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a privacy policy repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// FindActive returns the newest active version.
func (r *repositoryImpl) FindActive(ctx context.Context) (*models.PrivacyPolicy, error) {
	var policy models.PrivacyPolicy
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("version DESC").
		First(&policy).Error
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

func (r *repositoryImpl) FindByVersion(ctx context.Context, version int) (*models.PrivacyPolicy, error) {
	var policy models.PrivacyPolicy
	if err := r.db.WithContext(ctx).Where("version = ?", version).First(&policy).Error; err != nil {
		return nil, err
	}
	return &policy, nil
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.PrivacyPolicy, error) {
	var policy models.PrivacyPolicy
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&policy).Error; err != nil {
		return nil, err
	}
	return &policy, nil
}

func (r *repositoryImpl) MaxVersion(ctx context.Context) (int, error) {
	var max int
	err := r.db.WithContext(ctx).
		Model(&models.PrivacyPolicy{}).
		Select("COALESCE(MAX(version), 0)").
		Scan(&max).Error
	return max, err
}

func (r *repositoryImpl) Create(ctx context.Context, policy *models.PrivacyPolicy) error {
	return r.db.WithContext(ctx).Create(policy).Error
}

// Save writes every column, including is_active=false.
func (r *repositoryImpl) Save(ctx context.Context, policy *models.PrivacyPolicy) error {
	return r.db.WithContext(ctx).Save(policy).Error
}

func (r *repositoryImpl) DeactivateOthers(ctx context.Context, keepID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.PrivacyPolicy{}).
		Where("id <> ? AND is_active = ?", keepID, true).
		UpdateColumn("is_active", false).Error
}
