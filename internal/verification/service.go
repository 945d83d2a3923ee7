package verification

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eventprosnz/eventpros-backend/internal/notifications"
	"github.com/eventprosnz/eventpros-backend/pkg/db/models"
	"github.com/eventprosnz/eventpros-backend/pkg/enums"
	pkgerrors "github.com/eventprosnz/eventpros-backend/pkg/errors"
	"github.com/eventprosnz/eventpros-backend/pkg/logger"
	"github.com/eventprosnz/eventpros-backend/pkg/metrics"
	"github.com/eventprosnz/eventpros-backend/pkg/outbox"
	"github.com/eventprosnz/eventpros-backend/pkg/outbox/payloads"
	"github.com/eventprosnz/eventpros-backend/pkg/pagination"
)

const maxReasonLength = 1000

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithReadTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes the admin verification queue and decisions.
type Service interface {
	Queue(ctx context.Context, params QueueParams) (*QueueResult, error)
	Detail(ctx context.Context, userID uuid.UUID) (*Detail, error)
	Status(ctx context.Context, userID uuid.UUID) (enums.VerificationStatus, error)
	Decide(ctx context.Context, input DecisionInput) (*DecisionResult, error)
}

// QueueParams filter and page the queue. An empty Status hides approved users;
// "all" shows everyone.
type QueueParams struct {
	Status   string
	Priority string
	Limit    int
	Offset   int
}

// DecisionInput is an approve or reject issued by an admin.
type DecisionInput struct {
	AdminID uuid.UUID
	UserID  uuid.UUID
	Action  enums.VerificationAction
	Reason  string
}

// ServiceParams wires the verification service.
type ServiceParams struct {
	Repo       Repository
	Tx         txRunner
	Outbox     outboxEmitter
	Notifier   notifications.Notifier
	Logger     *logger.Logger
	Metrics    *metrics.DomainMetrics
	Thresholds Thresholds
}

type service struct {
	repo       Repository
	tx         txRunner
	outbox     outboxEmitter
	notifier   notifications.Notifier
	logg       *logger.Logger
	metrics    *metrics.DomainMetrics
	thresholds Thresholds
	now        func() time.Time
}

// NewService validates dependencies and builds the service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("verification repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	thresholds := params.Thresholds
	if thresholds.High <= 0 || thresholds.Medium <= 0 {
		thresholds = DefaultThresholds
	}
	return &service{
		repo:       params.Repo,
		tx:         params.Tx,
		outbox:     params.Outbox,
		notifier:   params.Notifier,
		logg:       params.Logger,
		metrics:    params.Metrics,
		thresholds: thresholds,
		now:        time.Now,
	}, nil
}

type queueFilter struct {
	status   enums.VerificationStatus
	all      bool
	priority enums.VerificationPriority
}

func parseQueueParams(params QueueParams) (queueFilter, pagination.Offset, error) {
	var filter queueFilter
	switch raw := strings.TrimSpace(strings.ToLower(params.Status)); raw {
	case "":
	case "all":
		filter.all = true
	default:
		status, err := enums.ParseVerificationStatus(raw)
		if err != nil {
			return filter, pagination.Offset{}, pkgerrors.FieldError("status", "must be one of pending, approved, rejected, onboarding, all")
		}
		filter.status = status
	}
	if raw := strings.TrimSpace(strings.ToLower(params.Priority)); raw != "" {
		priority, err := enums.ParseVerificationPriority(raw)
		if err != nil {
			return filter, pagination.Offset{}, pkgerrors.FieldError("priority", "must be one of high, medium, low")
		}
		filter.priority = priority
	}

	page := pagination.Offset{Limit: params.Limit, Offset: params.Offset}
	if page.Limit == 0 {
		page.Limit = pagination.DefaultLimit
	}
	if field, err := page.Validate(); err != nil {
		return filter, page, pkgerrors.FieldError(field, err.Error())
	}
	return filter, page, nil
}

func (f queueFilter) keep(item QueueItem) bool {
	switch {
	case f.status != "" && item.Status != f.status:
		return false
	case f.status == "" && !f.all && item.Status == enums.VerificationStatusApproved:
		return false
	case f.priority != "" && item.Priority != f.priority:
		return false
	}
	return true
}

func (s *service) Queue(ctx context.Context, params QueueParams) (*QueueResult, error) {
	filter, page, err := parseQueueParams(params)
	if err != nil {
		return nil, err
	}

	var snapshots []snapshot
	err = s.tx.WithReadTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		users, err := repo.ListCandidates(ctx)
		if err != nil {
			return err
		}
		snapshots, err = loadSnapshots(ctx, repo, users)
		return err
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load verification queue")
	}

	now := s.now().UTC()
	items := make([]QueueItem, 0, len(snapshots))
	for _, snap := range snapshots {
		item := snap.item(s.thresholds, now)
		if filter.keep(item) {
			items = append(items, item)
		}
	}
	sortQueue(items)

	total := len(items)
	start := min(page.Offset, total)
	end := min(start+page.Limit, total)

	return &QueueResult{
		Items:  items[start:end],
		Total:  total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}, nil
}

// sortQueue orders by priority, then longest wait, then id.
func sortQueue(items []QueueItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
			return ra < rb
		}
		if !a.WaitingSince.Equal(b.WaitingSince) {
			return a.WaitingSince.Before(b.WaitingSince)
		}
		return a.UserID.String() < b.UserID.String()
	})
}

// loadSnapshots issues one query per signal table for the whole batch.
func loadSnapshots(ctx context.Context, repo Repository, users []models.User) ([]snapshot, error) {
	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	profiles, err := repo.ProfilesByUser(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load business profiles: %w", err)
	}
	onboarding, err := repo.OnboardingByUser(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load onboarding status: %w", err)
	}
	logs, err := repo.LogsByUser(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load verification logs: %w", err)
	}

	out := make([]snapshot, 0, len(users))
	for _, u := range users {
		snap := snapshot{user: u, logs: logs[u.ID]}
		if p, ok := profiles[u.ID]; ok {
			snap.profile = &p
		}
		if o, ok := onboarding[u.ID]; ok {
			snap.onboarding = &o
		}
		out = append(out, snap)
	}
	return out, nil
}

func (s *service) loadOne(ctx context.Context, repo Repository, userID uuid.UUID) (*snapshot, error) {
	user, err := repo.FindUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	snaps, err := loadSnapshots(ctx, repo, []models.User{*user})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load verification signals")
	}
	return &snaps[0], nil
}

func (s *service) readOne(ctx context.Context, userID uuid.UUID) (*snapshot, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.FieldError("userId", "invalid user id")
	}
	var snap *snapshot
	err := s.tx.WithReadTx(ctx, func(tx *gorm.DB) error {
		var err error
		snap, err = s.loadOne(ctx, s.repo.WithTx(tx), userID)
		return err
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read verification signals")
	}
	return snap, nil
}

func (s *service) Detail(ctx context.Context, userID uuid.UUID) (*Detail, error) {
	snap, err := s.readOne(ctx, userID)
	if err != nil {
		return nil, err
	}
	logs := make([]LogEntry, 0, len(snap.logs))
	for _, entry := range snap.logs {
		logs = append(logs, logEntryFromModel(entry))
	}
	return &Detail{QueueItem: snap.item(s.thresholds, s.now().UTC()), Logs: logs}, nil
}

func (s *service) Status(ctx context.Context, userID uuid.UUID) (enums.VerificationStatus, error) {
	snap, err := s.readOne(ctx, userID)
	if err != nil {
		return "", err
	}
	return snap.status(), nil
}

func validateDecision(input DecisionInput) (*string, error) {
	if input.AdminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.FieldError("userId", "invalid user id")
	}
	if !input.Action.IsValid() {
		return nil, pkgerrors.FieldError("action", "must be approve or reject")
	}
	reason := strings.TrimSpace(input.Reason)
	if utf8.RuneCountInString(reason) > maxReasonLength {
		return nil, pkgerrors.FieldError("reason", fmt.Sprintf("must be at most %d characters", maxReasonLength))
	}
	if reason == "" {
		if input.Action == enums.VerificationActionReject {
			return nil, pkgerrors.FieldError("reason", "is required when rejecting")
		}
		return nil, nil
	}
	return &reason, nil
}

func (s *service) Decide(ctx context.Context, input DecisionInput) (*DecisionResult, error) {
	reason, err := validateDecision(input)
	if err != nil {
		return nil, err
	}

	verified := input.Action == enums.VerificationActionApprove
	now := s.now().UTC()
	var result *DecisionResult

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		user, err := repo.FindUserForUpdate(ctx, input.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
		}
		if !user.Role.HasBusinessProfile() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "user does not require verification").
				WithDetails(map[string]string{"role": string(user.Role)})
		}
		if verified && user.IsVerified {
			return pkgerrors.New(pkgerrors.CodeConflict, "user already verified")
		}

		if err := repo.SetUserVerified(ctx, user.ID, verified, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user verification")
		}
		if _, err := repo.SetProfileVerified(ctx, user.ID, verified, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update business profile verification")
		}

		entry := &models.VerificationLog{
			ID:        uuid.New(),
			UserID:    user.ID,
			AdminID:   input.AdminID,
			Action:    input.Action,
			Status:    input.Action.ResultingStatus(),
			Reason:    reason,
			CreatedAt: now,
		}
		if err := repo.InsertLog(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert verification log")
		}

		subject := user.ID
		if err := s.notifier.Notify(ctx, tx, notifications.NewNotification{
			Type:          enums.NotificationTypeVerificationDecided,
			Title:         decisionTitle(input.Action),
			Message:       fmt.Sprintf("%s (%s) was %s", user.FullName(), user.Email, entry.Status),
			SubjectUserID: &subject,
		}); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventVerificationDecided,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID,
			Actor:         &outbox.ActorRef{UserID: input.AdminID, Role: string(enums.UserRoleAdmin)},
			Data: payloads.VerificationDecidedEvent{
				UserID:    user.ID,
				AdminID:   input.AdminID,
				Action:    input.Action,
				Status:    entry.Status,
				Reason:    reason,
				DecidedAt: now,
			},
			OccurredAt: now,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit verification event")
		}

		snap, err := s.loadOne(ctx, repo, user.ID)
		if err != nil {
			return err
		}
		result = &DecisionResult{
			UserID: user.ID,
			Action: input.Action,
			Status: snap.status(),
			Log:    logEntryFromModel(*entry),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncDecision(string(input.Action))
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"subject_user_id": input.UserID.String(),
		"action":          string(input.Action),
		"status":          string(result.Status),
	})
	s.logg.Info(logCtx, "verification decision recorded")
	return result, nil
}

func decisionTitle(action enums.VerificationAction) string {
	if action == enums.VerificationActionApprove {
		return "Verification approved"
	}
	return "Verification rejected"
}
