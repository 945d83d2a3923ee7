package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/eventprosnz/eventpros-backend/pkg/db/models"
	"github.com/eventprosnz/eventpros-backend/pkg/enums"
	pkgerrors "github.com/eventprosnz/eventpros-backend/pkg/errors"
	"github.com/eventprosnz/eventpros-backend/pkg/logger"
	"github.com/eventprosnz/eventpros-backend/pkg/metrics"
	"github.com/eventprosnz/eventpros-backend/pkg/outbox"
	"github.com/eventprosnz/eventpros-backend/pkg/outbox/payloads"
	"github.com/eventprosnz/eventpros-backend/pkg/pagination"
)

const (
	dashboardCacheName  = "dashboard"
	DefaultDashboardTTL = 5 * time.Minute
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type dashboardCache interface {
	Key(parts ...string) string
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, val any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Service exposes event creation, listing and the manager dashboard.
type Service interface {
	Create(ctx context.Context, managerID uuid.UUID, input CreateInput) (*Event, error)
	List(ctx context.Context, managerID uuid.UUID, input ListInput) (*ListResult, error)
	Dashboard(ctx context.Context, managerID uuid.UUID) (*Dashboard, error)
}

// ServiceParams wires the events service. Cache is optional.
type ServiceParams struct {
	Repo         Repository
	Tx           txRunner
	Outbox       outboxEmitter
	Cache        dashboardCache
	DashboardTTL time.Duration
	Logger       *logger.Logger
	Metrics      *metrics.DomainMetrics
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxEmitter
	cache   dashboardCache
	ttl     time.Duration
	logg    *logger.Logger
	metrics *metrics.DomainMetrics
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("events repository required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	ttl := params.DashboardTTL
	if ttl <= 0 {
		ttl = DefaultDashboardTTL
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		outbox:  params.Outbox,
		cache:   params.Cache,
		ttl:     ttl,
		logg:    params.Logger,
		metrics: params.Metrics,
		now:     time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, managerID uuid.UUID, input CreateInput) (*Event, error) {
	now := s.now().UTC()
	title := strings.TrimSpace(input.Title)
	eventType := strings.TrimSpace(input.EventType)
	switch {
	case title == "":
		return nil, pkgerrors.FieldError("title", "is required")
	case eventType == "":
		return nil, pkgerrors.FieldError("event_type", "is required")
	case !input.EventDate.After(now):
		return nil, pkgerrors.FieldError("event_date", "must be in the future")
	case input.AttendeeCount < 0:
		return nil, pkgerrors.FieldError("attendee_count", "must be zero or greater")
	case input.Budget.IsNegative():
		return nil, pkgerrors.FieldError("budget", "must be zero or greater")
	}

	row := &models.Event{
		ID:            uuid.New(),
		ManagerID:     managerID,
		Title:         title,
		Description:   trimmed(input.Description),
		EventType:     eventType,
		Status:        enums.EventStatusDraft,
		EventDate:     input.EventDate.UTC(),
		Location:      trimmed(input.Location),
		AttendeeCount: input.AttendeeCount,
		Budget:        input.Budget.Round(2),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create event")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventEventCreated,
			AggregateType: enums.AggregateEvent,
			AggregateID:   row.ID,
			Actor:         &outbox.ActorRef{UserID: managerID, Role: string(enums.UserRoleEventManager)},
			Data: payloads.EventCreatedEvent{
				EventID:   row.ID,
				ManagerID: managerID,
				Title:     row.Title,
				EventType: row.EventType,
				EventDate: row.EventDate,
				Status:    row.Status,
			},
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidateDashboard(ctx, managerID)
	dto := fromModel(*row)
	return &dto, nil
}

func (s *service) List(ctx context.Context, managerID uuid.UUID, input ListInput) (*ListResult, error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.FieldError("status", "must be one of draft, planning, confirmed, completed, cancelled")
	}
	if input.Limit < 0 || input.Limit > pagination.MaxLimit {
		return nil, pkgerrors.FieldError("limit", fmt.Sprintf("must be between 1 and %d", pagination.MaxLimit))
	}
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor").
			WithDetails(map[string]string{"cursor": "invalid cursor"})
	}

	rows, err := s.repo.List(ctx, listParams{
		ManagerID: managerID,
		Status:    input.Status,
		Limit:     pagination.LimitWithBuffer(input.Limit),
		Cursor:    cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list events")
	}

	page, next := pagination.Page(rows, input.Limit, func(e models.Event) pagination.Cursor {
		return pagination.Cursor{At: e.CreatedAt, ID: e.ID}
	})
	items := make([]Event, 0, len(page))
	for _, row := range page {
		items = append(items, fromModel(row))
	}
	return &ListResult{Items: items, Cursor: next}, nil
}

// Dashboard serves the cached aggregate when present. Cache errors are
// logged and bypassed.
func (s *service) Dashboard(ctx context.Context, managerID uuid.UUID) (*Dashboard, error) {
	key := s.dashboardKey(managerID)
	if s.cache != nil {
		var cached Dashboard
		found, err := s.cache.Get(ctx, key, &cached)
		switch {
		case err != nil:
			s.metrics.ObserveCache(dashboardCacheName, "error")
			s.logg.Error(s.logg.WithField(ctx, "cache_key", key), "dashboard cache read failed", err)
		case found:
			s.metrics.ObserveCache(dashboardCacheName, "hit")
			return &cached, nil
		default:
			s.metrics.ObserveCache(dashboardCacheName, "miss")
		}
	}

	dashboard, err := s.aggregate(ctx, managerID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, dashboard, s.ttl); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "cache_key", key), "dashboard cache write failed", err)
		}
	}
	return dashboard, nil
}

func (s *service) aggregate(ctx context.Context, managerID uuid.UUID) (*Dashboard, error) {
	now := s.now().UTC()
	var (
		counts    map[enums.EventStatus]int64
		upcoming  []models.Event
		budget    decimal.Decimal
		inquiries int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = s.repo.CountByStatus(gctx, managerID)
		return wrapAggregate(err, "count events by status")
	})
	g.Go(func() error {
		var err error
		upcoming, err = s.repo.Upcoming(gctx, managerID, now, upcomingLimit)
		return wrapAggregate(err, "load upcoming events")
	})
	g.Go(func() error {
		var err error
		budget, err = s.repo.TotalBudget(gctx, managerID)
		return wrapAggregate(err, "sum budgets")
	})
	g.Go(func() error {
		var err error
		inquiries, err = s.repo.CountInquiriesReceived(gctx, managerID)
		return wrapAggregate(err, "count inquiries")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dashboard := &Dashboard{
		CountsByStatus:    make(map[enums.EventStatus]int64, len(enums.EventStatuses)),
		Upcoming:          make([]Event, 0, len(upcoming)),
		TotalBudget:       budget,
		InquiriesReceived: inquiries,
		GeneratedAt:       now,
	}
	for _, status := range enums.EventStatuses {
		dashboard.CountsByStatus[status] = counts[status]
		dashboard.TotalEvents += counts[status]
	}
	for _, row := range upcoming {
		dashboard.Upcoming = append(dashboard.Upcoming, fromModel(row))
	}
	return dashboard, nil
}

func (s *service) invalidateDashboard(ctx context.Context, managerID uuid.UUID) {
	if s.cache == nil {
		return
	}
	key := s.dashboardKey(managerID)
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "cache_key", key), "dashboard cache invalidation failed", err)
	}
}

func (s *service) dashboardKey(managerID uuid.UUID) string {
	if s.cache == nil {
		return ""
	}
	return s.cache.Key(dashboardCacheName, managerID.String())
}

func wrapAggregate(err error, msg string) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	out := strings.TrimSpace(*v)
	if out == "" {
		return nil
	}
	return &out
}
