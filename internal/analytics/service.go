package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/eventprosnz/eventpros-backend/pkg/db/models"
	pkgerrors "github.com/eventprosnz/eventpros-backend/pkg/errors"
)

// Service records searches and reports on them.
type Service interface {
	Record(ctx context.Context, userID *uuid.UUID, input RecordInput) error
	Report(ctx context.Context, days, limit int) (*Report, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("analytics repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) Record(ctx context.Context, userID *uuid.UUID, input RecordInput) error {
	query := strings.Join(strings.Fields(input.Query), " ")
	if query == "" || utf8.RuneCountInString(query) > maxQueryLen {
		return pkgerrors.FieldError("query", fmt.Sprintf("must be between 1 and %d characters", maxQueryLen))
	}
	if input.ResultCount < 0 {
		return pkgerrors.FieldError("result_count", "must be zero or greater")
	}
	row := &models.SearchQuery{
		ID:          uuid.New(),
		UserID:      userID,
		Query:       query,
		ResultCount: input.ResultCount,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Record(ctx, row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record search query")
	}
	return nil
}

// Report covers the trailing days window ending now. days 0 means the default.
func (s *service) Report(ctx context.Context, days, limit int) (*Report, error) {
	if days == 0 {
		days = DefaultDays
	}
	if days < 1 || days > MaxDays {
		return nil, pkgerrors.FieldError("days", fmt.Sprintf("must be between 1 and %d", MaxDays))
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 1 || limit > MaxLimit {
		return nil, pkgerrors.FieldError("limit", fmt.Sprintf("must be between 1 and %d", MaxLimit))
	}

	since := s.now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	total, zero, err := s.repo.CountSince(ctx, since)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count searches")
	}
	top, err := s.repo.TopQueries(ctx, since, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "top queries")
	}
	zeroQueries, err := s.repo.ZeroResultQueries(ctx, since, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "zero result queries")
	}

	return &Report{
		Days:              days,
		Since:             since,
		TotalSearches:     total,
		ZeroResultCount:   zero,
		TopQueries:        nonNil(top),
		ZeroResultQueries: nonNil(zeroQueries),
	}, nil
}

func nonNil(rows []QueryCount) []QueryCount {
	if rows == nil {
		return []QueryCount{}
	}
	return rows
}
