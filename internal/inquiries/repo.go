package inquiries

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eventprosnz/eventpros-backend/pkg/db/models"
	"github.com/eventprosnz/eventpros-backend/pkg/enums"
)

// Repository exposes persistence helpers for inquiries and their templates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, inquiry *models.Inquiry) error
	List(ctx context.Context, params listParams) ([]models.Inquiry, int64, error)
	CreateTemplate(ctx context.Context, template *models.InquiryTemplate) error
	ListTemplates(ctx context.Context, ownerID uuid.UUID, includePublic bool) ([]models.InquiryTemplate, error)
}

type listParams struct {
	UserID uuid.UUID
	Box    Box
	Status *enums.InquiryStatus
	Limit  int
	Offset int
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an inquiries repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, inquiry *models.Inquiry) error {
	return r.db.WithContext(ctx).Create(inquiry).Error
}

// List returns one page of the caller's sent or received inquiries, newest
// first, together with the unpaged total.
func (r *repositoryImpl) List(ctx context.Context, params listParams) ([]models.Inquiry, int64, error) {
	column := "sender_id"
	if params.Box == BoxReceived {
		column = "contractor_id"
	}
	query := r.db.WithContext(ctx).
		Model(&models.Inquiry{}).
		Where(column+" = ?", params.UserID)
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Inquiry
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(params.Limit).
		Offset(params.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repositoryImpl) CreateTemplate(ctx context.Context, template *models.InquiryTemplate) error {
	return r.db.WithContext(ctx).Create(template).Error
}

func (r *repositoryImpl) ListTemplates(ctx context.Context, ownerID uuid.UUID, includePublic bool) ([]models.InquiryTemplate, error) {
	query := r.db.WithContext(ctx).Model(&models.InquiryTemplate{})
	if includePublic {
		query = query.Where("owner_id = ? OR is_public = ?", ownerID, true)
	} else {
		query = query.Where("owner_id = ?", ownerID)
	}
	var rows []models.InquiryTemplate
	if err := query.Order("name ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
