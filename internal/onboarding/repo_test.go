package onboarding

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/eventprosnz/eventpros-backend/pkg/db/models"
)

func setupOnboardingTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:onboarding_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`
CREATE TABLE business_profiles (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  company_name TEXT NOT NULL,
  description TEXT,
  website TEXT,
  location TEXT,
  service_categories TEXT NOT NULL DEFAULT '{}',
  is_verified INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`).Error)
	require.NoError(t, db.Exec(`
CREATE TABLE contractor_onboarding_status (
  user_id TEXT PRIMARY KEY,
  step INTEGER NOT NULL DEFAULT 0,
  is_submitted INTEGER NOT NULL DEFAULT 0,
  submitted_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`).Error)
	return db
}

func TestRepository_ProfileRoundTrip(t *testing.T) {
	db := setupOnboardingTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	missing, err := repo.FindProfile(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, missing)

	profile := &models.BusinessProfile{
		ID:                uuid.New(),
		UserID:            userID,
		CompanyName:       "Tui Audio",
		ServiceCategories: pq.StringArray{"sound", "lighting"},
	}
	require.NoError(t, repo.CreateProfile(ctx, profile))
	require.NoError(t, db.Model(&models.BusinessProfile{}).Where("id = ?", profile.ID).Update("is_verified", true).Error)

	profile.CompanyName = "Tui Audio Ltd"
	profile.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.UpdateProfile(ctx, profile))

	found, err := repo.FindProfile(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Tui Audio Ltd", found.CompanyName)
	assert.Equal(t, []string{"sound", "lighting"}, []string(found.ServiceCategories))
	assert.True(t, found.IsVerified, "update keeps the admin flag")
}

func TestRepository_UpsertOnboarding(t *testing.T) {
	db := setupOnboardingTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()
	now := time.Now().UTC()

	require.NoError(t, repo.UpsertOnboarding(ctx, &models.ContractorOnboardingStatus{UserID: userID, Step: 1, CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, repo.UpsertOnboarding(ctx, &models.ContractorOnboardingStatus{UserID: userID, Step: 4, IsSubmitted: true, SubmittedAt: &now, CreatedAt: now, UpdatedAt: now}))

	row, err := repo.FindOnboarding(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, 4, row.Step)
	assert.True(t, row.IsSubmitted)
	require.NotNil(t, row.SubmittedAt)

	var count int64
	require.NoError(t, db.Model(&models.ContractorOnboardingStatus{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
