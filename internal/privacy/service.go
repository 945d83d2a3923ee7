package privacy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eventprosnz/eventpros-backend/pkg/db"
	"github.com/eventprosnz/eventpros-backend/pkg/db/models"
	"github.com/eventprosnz/eventpros-backend/pkg/enums"
	pkgerrors "github.com/eventprosnz/eventpros-backend/pkg/errors"
	"github.com/eventprosnz/eventpros-backend/pkg/logger"
	"github.com/eventprosnz/eventpros-backend/pkg/outbox"
	"github.com/eventprosnz/eventpros-backend/pkg/outbox/payloads"
)

const versionUniqueConstraint = "privacy_policies_version_key"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service manages privacy policy versions.
type Service interface {
	Current(ctx context.Context) (*Policy, error)
	Version(ctx context.Context, version int) (*Policy, error)
	Create(ctx context.Context, adminID uuid.UUID, input CreateInput) (*Policy, error)
	Update(ctx context.Context, adminID uuid.UUID, input UpdateInput) (*Policy, error)
}

// ServiceParams wires the privacy service.
type ServiceParams struct {
	Repo   Repository
	Tx     txRunner
	Outbox outboxEmitter
	Logger *logger.Logger
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxEmitter
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("privacy repository required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:   params.Repo,
		tx:     params.Tx,
		outbox: params.Outbox,
		logg:   params.Logger,
		now:    time.Now,
	}, nil
}

func (s *service) Current(ctx context.Context) (*Policy, error) {
	policy, err := s.repo.FindActive(ctx)
	if err != nil {
		return nil, notFoundOr(err, "no active privacy policy", "load active policy")
	}
	return fromModel(policy), nil
}

func (s *service) Version(ctx context.Context, version int) (*Policy, error) {
	if version < 1 {
		return nil, pkgerrors.FieldError("version", "must be a positive integer")
	}
	policy, err := s.repo.FindByVersion(ctx, version)
	if err != nil {
		return nil, notFoundOr(err, "privacy policy version not found", "load policy version")
	}
	return fromModel(policy), nil
}

// Create assigns version max+1. Two concurrent creates race on the unique
// version; the loser gets a conflict and may retry.
func (s *service) Create(ctx context.Context, adminID uuid.UUID, input CreateInput) (*Policy, error) {
	title := strings.TrimSpace(input.Title)
	content := strings.TrimSpace(input.Content)
	switch {
	case title == "":
		return nil, pkgerrors.FieldError("title", "is required")
	case content == "":
		return nil, pkgerrors.FieldError("content", "is required")
	case input.EffectiveDate.IsZero():
		return nil, pkgerrors.FieldError("effective_date", "is required")
	}

	now := s.now().UTC()
	row := &models.PrivacyPolicy{
		ID:            uuid.New(),
		Title:         title,
		Content:       content,
		EffectiveDate: input.EffectiveDate.UTC(),
		IsActive:      input.Activate,
		CreatedBy:     &adminID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		max, err := repo.MaxVersion(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load latest version")
		}
		row.Version = max + 1
		if err := repo.Create(ctx, row); err != nil {
			if db.IsUniqueViolation(err, versionUniqueConstraint) {
				return pkgerrors.New(pkgerrors.CodeConflict, "policy version was taken concurrently")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create policy")
		}
		if row.IsActive {
			return s.activate(ctx, tx, repo, row, adminID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{"policy_id": row.ID.String(), "version": row.Version, "active": row.IsActive})
	s.logg.Info(logCtx, "privacy policy created")
	return fromModel(row), nil
}

func (s *service) Update(ctx context.Context, adminID uuid.UUID, input UpdateInput) (*Policy, error) {
	if input.ID == uuid.Nil {
		return nil, pkgerrors.FieldError("id", "is required")
	}
	if input.Title == nil && input.Content == nil && input.EffectiveDate == nil && input.IsActive == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	var updated *models.PrivacyPolicy
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		policy, err := repo.FindByID(ctx, input.ID)
		if err != nil {
			return notFoundOr(err, "privacy policy not found", "load policy")
		}
		wasActive := policy.IsActive
		if err := applyUpdate(policy, input); err != nil {
			return err
		}
		policy.UpdatedAt = s.now().UTC()
		if err := repo.Save(ctx, policy); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update policy")
		}
		if policy.IsActive && !wasActive {
			if err := s.activate(ctx, tx, repo, policy, adminID); err != nil {
				return err
			}
		}
		updated = policy
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fromModel(updated), nil
}

func applyUpdate(policy *models.PrivacyPolicy, input UpdateInput) error {
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return pkgerrors.FieldError("title", "must not be empty")
		}
		policy.Title = title
	}
	if input.Content != nil {
		content := strings.TrimSpace(*input.Content)
		if content == "" {
			return pkgerrors.FieldError("content", "must not be empty")
		}
		policy.Content = content
	}
	if input.EffectiveDate != nil {
		if input.EffectiveDate.IsZero() {
			return pkgerrors.FieldError("effective_date", "must be a valid date")
		}
		policy.EffectiveDate = input.EffectiveDate.UTC()
	}
	if input.IsActive != nil {
		policy.IsActive = *input.IsActive
	}
	return nil
}

// activate leaves policy as the only active version and announces it.
func (s *service) activate(ctx context.Context, tx *gorm.DB, repo Repository, policy *models.PrivacyPolicy, adminID uuid.UUID) error {
	if err := repo.DeactivateOthers(ctx, policy.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate previous policies")
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPrivacyPolicyPublished,
		AggregateType: enums.AggregatePrivacyPolicy,
		AggregateID:   policy.ID,
		Actor:         &outbox.ActorRef{UserID: adminID, Role: string(enums.UserRoleAdmin)},
		Data: payloads.PrivacyPolicyPublishedEvent{
			PolicyID:      policy.ID,
			Version:       policy.Version,
			EffectiveDate: policy.EffectiveDate,
		},
	})
}

func notFoundOr(err error, notFound, internal string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, internal)
}
