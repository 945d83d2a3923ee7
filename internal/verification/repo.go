package verification

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/eventprosnz/eventpros-backend/pkg/db/models"
	"github.com/eventprosnz/eventpros-backend/pkg/enums"
)

// Repository loads verification signals and persists decisions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindUserForUpdate(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListCandidates(ctx context.Context) ([]models.User, error)
	ProfilesByUser(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]models.BusinessProfile, error)
	OnboardingByUser(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]models.ContractorOnboardingStatus, error)
	LogsByUser(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID][]models.VerificationLog, error)
	SetUserVerified(ctx context.Context, userID uuid.UUID, verified bool, now time.Time) error
	SetProfileVerified(ctx context.Context, userID uuid.UUID, verified bool, now time.Time) (int64, error)
	InsertLog(ctx context.Context, entry *models.VerificationLog) error
}

// signalChunkSize bounds the ids bound into one IN list; Postgres rejects
// statements with more than 65535 parameters.
const signalChunkSize = 1000

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

func (r *repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindUserForUpdate locks the user row until the surrounding transaction
// ends, serialising decisions on the same user.
func (r *repository) FindUserForUpdate(ctx context.Context, id uuid.UUID) (*models.User, error) {
	q := r.db.WithContext(ctx).Where("id = ?", id)
	if r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var user models.User
	if err := q.First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ListCandidates returns every active user that passes through verification.
func (r *repository) ListCandidates(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("role IN ?", []enums.UserRole{enums.UserRoleContractor, enums.UserRoleEventManager}).
		Where("is_active = ?", true).
		Order("created_at ASC, id ASC").
		Find(&users).Error
	return users, err
}

// findByUserIDs runs query once per chunk of userIDs and concatenates the
// rows. Row order holds within a chunk only.
func findByUserIDs[T any](userIDs []uuid.UUID, query func(ids []uuid.UUID, dest *[]T) error) ([]T, error) {
	var all []T
	for chunk := range slices.Chunk(userIDs, signalChunkSize) {
		var rows []T
		if err := query(chunk, &rows); err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}
	return all, nil
}

func (r *repository) ProfilesByUser(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]models.BusinessProfile, error) {
	out := make(map[uuid.UUID]models.BusinessProfile, len(userIDs))
	rows, err := findByUserIDs(userIDs, func(ids []uuid.UUID, dest *[]models.BusinessProfile) error {
		return r.db.WithContext(ctx).Where("user_id IN ?", ids).Find(dest).Error
	})
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.UserID] = row
	}
	return out, nil
}

func (r *repository) OnboardingByUser(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]models.ContractorOnboardingStatus, error) {
	out := make(map[uuid.UUID]models.ContractorOnboardingStatus, len(userIDs))
	rows, err := findByUserIDs(userIDs, func(ids []uuid.UUID, dest *[]models.ContractorOnboardingStatus) error {
		return r.db.WithContext(ctx).Where("user_id IN ?", ids).Find(dest).Error
	})
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.UserID] = row
	}
	return out, nil
}

// LogsByUser groups log rows per user, newest first.
func (r *repository) LogsByUser(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID][]models.VerificationLog, error) {
	out := make(map[uuid.UUID][]models.VerificationLog, len(userIDs))
	// a user's logs all land in the same chunk, so per-user order survives
	rows, err := findByUserIDs(userIDs, func(ids []uuid.UUID, dest *[]models.VerificationLog) error {
		return r.db.WithContext(ctx).
			Where("user_id IN ?", ids).
			Order("created_at DESC, id DESC").
			Find(dest).Error
	})
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.UserID] = append(out[row.UserID], row)
	}
	return out, nil
}

func (r *repository) SetUserVerified(ctx context.Context, userID uuid.UUID, verified bool, now time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"is_verified": verified, "updated_at": now})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetProfileVerified reports how many profiles changed; zero is fine when the
// user never created one.
func (r *repository) SetProfileVerified(ctx context.Context, userID uuid.UUID, verified bool, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.BusinessProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{"is_verified": verified, "updated_at": now})
	return result.RowsAffected, result.Error
}

func (r *repository) InsertLog(ctx context.Context, entry *models.VerificationLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}
