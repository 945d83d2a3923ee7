package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/eventprosnz/eventpros-backend/pkg/db/models"
	"github.com/eventprosnz/eventpros-backend/pkg/enums"
)

func setupOutboxDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:outbox_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`
CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload BLOB NOT NULL,
  created_at DATETIME NOT NULL,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`).Error)
	require.NoError(t, db.Exec(`
CREATE TABLE outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json BLOB NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME NOT NULL,
  created_at DATETIME NOT NULL
);`).Error)
	return db
}

func pendingRow(createdAt time.Time) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventInquiryCreated,
		AggregateType: enums.AggregateInquiry,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1}`),
		CreatedAt:     createdAt,
	}
}

func TestRepositoryClaimAndSettle(t *testing.T) {
	db := setupOutboxDB(t)
	repo := NewRepository(db)
	base := time.Now().UTC().Add(-time.Hour)

	first, second, spent := pendingRow(base), pendingRow(base.Add(time.Minute)), pendingRow(base.Add(-time.Minute))
	spent.AttemptCount = 3
	for _, row := range []models.OutboxEvent{second, first, spent} {
		require.NoError(t, repo.Append(db, row))
	}

	claimed, err := repo.ClaimPending(db, 10, 3)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, first.ID, claimed[0].ID)
	assert.Equal(t, second.ID, claimed[1].ID)

	require.NoError(t, repo.MarkPublished(db, first.ID))
	require.NoError(t, repo.RecordAttempt(db, second.ID, errors.New(strings.Repeat("e", 2000))))

	var stored models.OutboxEvent
	require.NoError(t, db.First(&stored, "id = ?", second.ID).Error)
	assert.Equal(t, 1, stored.AttemptCount)
	require.NotNil(t, stored.LastError)
	assert.Len(t, *stored.LastError, maxLastErrorLen)

	require.NoError(t, repo.Exhaust(db, second.ID, errors.New("gave up"), 3))
	claimed, err = repo.ClaimPending(db, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestRepositoryPurgeBefore(t *testing.T) {
	db := setupOutboxDB(t)
	repo := NewRepository(db)
	now := time.Now().UTC()
	old := now.Add(-40 * 24 * time.Hour)

	published := pendingRow(old)
	exhausted := pendingRow(old)
	exhausted.AttemptCount = 10
	retrying := pendingRow(old)
	retrying.AttemptCount = 2
	for _, row := range []models.OutboxEvent{published, exhausted, retrying} {
		require.NoError(t, repo.Append(db, row))
	}
	require.NoError(t, db.Model(&models.OutboxEvent{}).Where("id = ?", published.ID).Update("published_at", old).Error)

	deleted, err := repo.PurgeBefore(context.Background(), db, now.Add(-30*24*time.Hour), 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	var left []models.OutboxEvent
	require.NoError(t, db.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, retrying.ID, left[0].ID)
}

func TestDLQRepositoryInsertAndPurge(t *testing.T) {
	db := setupOutboxDB(t)
	dlq := NewDLQRepository()
	now := time.Now().UTC()
	long := strings.Repeat("x", 3000)

	for _, failedAt := range []time.Time{now.Add(-100 * 24 * time.Hour), now} {
		require.NoError(t, dlq.Insert(db, models.OutboxDLQ{
			EventID:       uuid.New(),
			EventType:     enums.EventEventCreated,
			AggregateType: enums.AggregateEvent,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
			ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
			ErrorMessage:  &long,
			FailedAt:      failedAt,
		}))
	}

	var entries []models.OutboxDLQ
	require.NoError(t, db.Find(&entries).Error)
	require.Len(t, entries, 2)
	assert.Len(t, *entries[0].ErrorMessage, maxLastErrorLen)

	deleted, err := dlq.PurgeBefore(context.Background(), db, now.Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
}

func TestRepositoryRequiresTx(t *testing.T) {
	repo := NewRepository(nil)
	assert.ErrorIs(t, repo.Append(nil, models.OutboxEvent{}), errNoTx)
	_, err := repo.ClaimPending(nil, 1, 1)
	assert.ErrorIs(t, err, errNoTx)
	assert.ErrorIs(t, NewDLQRepository().Insert(nil, models.OutboxDLQ{}), errNoTx)
}
