package onboarding

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/eventprosnz/eventpros-backend/pkg/db/models"
)

// Repository persists business profiles and contractor onboarding rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProfile(ctx context.Context, userID uuid.UUID) (*models.BusinessProfile, error)
	CreateProfile(ctx context.Context, profile *models.BusinessProfile) error
	UpdateProfile(ctx context.Context, profile *models.BusinessProfile) error
	FindOnboarding(ctx context.Context, userID uuid.UUID) (*models.ContractorOnboardingStatus, error)
	UpsertOnboarding(ctx context.Context, row *models.ContractorOnboardingStatus) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to a GORM connection.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindProfile returns nil, nil when the user has no profile.
func (r *repository) FindProfile(ctx context.Context, userID uuid.UUID) (*models.BusinessProfile, error) {
	var profile models.BusinessProfile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) CreateProfile(ctx context.Context, profile *models.BusinessProfile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

// UpdateProfile writes the owner-editable columns only. is_verified is left alone.
func (r *repository) UpdateProfile(ctx context.Context, profile *models.BusinessProfile) error {
	return r.db.WithContext(ctx).
		Model(&models.BusinessProfile{}).
		Where("id = ?", profile.ID).
		Updates(map[string]any{
			"company_name":       profile.CompanyName,
			"description":        profile.Description,
			"website":            profile.Website,
			"location":           profile.Location,
			"service_categories": profile.ServiceCategories,
			"updated_at":         profile.UpdatedAt,
		}).Error
}

// FindOnboarding returns nil, nil when onboarding never started.
func (r *repository) FindOnboarding(ctx context.Context, userID uuid.UUID) (*models.ContractorOnboardingStatus, error) {
	var row models.ContractorOnboardingStatus
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) UpsertOnboarding(ctx context.Context, row *models.ContractorOnboardingStatus) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"step", "is_submitted", "submitted_at", "updated_at"}),
		}).
		Create(row).Error
}
