package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/eventprosnz/eventpros-backend/pkg/db/models"
	pkgerrors "github.com/eventprosnz/eventpros-backend/pkg/errors"
)

var fixedNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func setupAnalyticsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:analytics_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(`
CREATE TABLE search_queries (
  id TEXT PRIMARY KEY,
  user_id TEXT,
  query TEXT NOT NULL,
  result_count INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME
);`).Error)
	return conn
}

func newTestService(t *testing.T) (*service, *gorm.DB) {
	t.Helper()
	conn := setupAnalyticsTestDB(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	s := svc.(*service)
	s.now = func() time.Time { return fixedNow }
	return s, conn
}

func seedQuery(t *testing.T, conn *gorm.DB, query string, results int, at time.Time) {
	t.Helper()
	require.NoError(t, conn.Create(&models.SearchQuery{ID: uuid.New(), Query: query, ResultCount: results, CreatedAt: at}).Error)
}

func TestRecordNormalizesWhitespace(t *testing.T) {
	svc, conn := newTestService(t)
	user := uuid.New()

	require.NoError(t, svc.Record(context.Background(), &user, RecordInput{Query: "  wedding   photographer ", ResultCount: 4}))

	var stored models.SearchQuery
	require.NoError(t, conn.First(&stored).Error)
	assert.Equal(t, "wedding photographer", stored.Query)
	assert.Equal(t, 4, stored.ResultCount)
	require.NotNil(t, stored.UserID)
	assert.Equal(t, user, *stored.UserID)
}

func TestRecordValidation(t *testing.T) {
	svc, _ := newTestService(t)
	long := make([]byte, 201)
	for i := range long {
		long[i] = 'a'
	}
	for _, input := range []RecordInput{{Query: "   "}, {Query: string(long)}, {Query: "dj", ResultCount: -1}} {
		err := svc.Record(context.Background(), nil, input)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "%+v: %v", input, err)
	}
}

func TestReportWindowAndRollups(t *testing.T) {
	svc, conn := newTestService(t)
	recent := fixedNow.Add(-24 * time.Hour)
	seedQuery(t, conn, "DJ", 12, recent)
	seedQuery(t, conn, "dj", 8, recent)
	seedQuery(t, conn, "dj", 10, recent)
	seedQuery(t, conn, "marquee hire", 0, recent)
	seedQuery(t, conn, "marquee hire", 0, recent)
	seedQuery(t, conn, "caterer", 3, recent)
	seedQuery(t, conn, "dj", 5, fixedNow.Add(-10*24*time.Hour))

	report, err := svc.Report(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultDays, report.Days)
	assert.EqualValues(t, 6, report.TotalSearches)
	assert.EqualValues(t, 2, report.ZeroResultCount)
	require.Len(t, report.TopQueries, 3)
	assert.Equal(t, "dj", report.TopQueries[0].Query)
	assert.EqualValues(t, 3, report.TopQueries[0].Count)
	assert.InDelta(t, 10.0, report.TopQueries[0].AvgResults, 0.001)
	assert.Equal(t, "marquee hire", report.TopQueries[1].Query)
	require.Len(t, report.ZeroResultQueries, 1)
	assert.EqualValues(t, 2, report.ZeroResultQueries[0].Count)

	wide, err := svc.Report(context.Background(), 30, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 7, wide.TotalSearches)
	require.Len(t, wide.TopQueries, 1)
	assert.EqualValues(t, 4, wide.TopQueries[0].Count)
}

func TestReportValidation(t *testing.T) {
	svc, _ := newTestService(t)
	for _, tc := range []struct{ days, limit int }{{91, 0}, {-1, 0}, {7, 51}, {7, -2}} {
		_, err := svc.Report(context.Background(), tc.days, tc.limit)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "%+v", tc)
	}

	empty, err := svc.Report(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.Empty(t, empty.TopQueries)
	assert.NotNil(t, empty.TopQueries)
}
