package onboarding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/eventprosnz/eventpros-backend/internal/notifications"
	"github.com/eventprosnz/eventpros-backend/internal/verification"
	"github.com/eventprosnz/eventpros-backend/pkg/db/models"
	"github.com/eventprosnz/eventpros-backend/pkg/enums"
	pkgerrors "github.com/eventprosnz/eventpros-backend/pkg/errors"
	"github.com/eventprosnz/eventpros-backend/pkg/logger"
	"github.com/eventprosnz/eventpros-backend/pkg/outbox"
	"github.com/eventprosnz/eventpros-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type statusReader interface {
	Status(ctx context.Context, userID uuid.UUID) (enums.VerificationStatus, error)
}

// Service manages business profiles and contractor onboarding.
type Service interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
	UpsertProfile(ctx context.Context, userID uuid.UUID, role enums.UserRole, input ProfileInput) (*Profile, error)
	SaveStep(ctx context.Context, userID uuid.UUID, step int) (*Status, error)
	SubmitContractor(ctx context.Context, userID uuid.UUID) (*Status, error)
	ContractorStatus(ctx context.Context, userID uuid.UUID) (*Status, error)
}

// ServiceParams wires the onboarding service.
type ServiceParams struct {
	Repo         Repository
	Tx           txRunner
	Outbox       outboxEmitter
	Notifier     notifications.Notifier
	Verification statusReader
	Logger       *logger.Logger
}

type service struct {
	repo         Repository
	tx           txRunner
	outbox       outboxEmitter
	notifier     notifications.Notifier
	verification statusReader
	logg         *logger.Logger
	now          func() time.Time
}

var _ statusReader = (verification.Service)(nil)

// NewService validates dependencies and builds the service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("onboarding repository required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Notifier == nil:
		return nil, fmt.Errorf("notifier required")
	case params.Verification == nil:
		return nil, fmt.Errorf("verification status reader required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:         params.Repo,
		tx:           params.Tx,
		outbox:       params.Outbox,
		notifier:     params.Notifier,
		verification: params.Verification,
		logg:         params.Logger,
		now:          time.Now,
	}, nil
}

func (s *service) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	profile, err := s.repo.FindProfile(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load business profile")
	}
	if profile == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "business profile not found")
	}
	view := profileFromModel(*profile)
	return &view, nil
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func normalizeCategories(values []string) pq.StringArray {
	seen := make(map[string]struct{}, len(values))
	out := pq.StringArray{}
	for _, raw := range values {
		value := strings.ToLower(strings.TrimSpace(raw))
		if value == "" {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func (s *service) UpsertProfile(ctx context.Context, userID uuid.UUID, role enums.UserRole, input ProfileInput) (*Profile, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !role.HasBusinessProfile() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot own a business profile")
	}
	company := strings.TrimSpace(input.CompanyName)
	if company == "" {
		return nil, pkgerrors.FieldError("company_name", "is required")
	}

	now := s.now().UTC()
	var saved models.BusinessProfile
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindProfile(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load business profile")
		}

		if existing == nil {
			saved = models.BusinessProfile{
				ID:        uuid.New(),
				UserID:    userID,
				CreatedAt: now,
			}
		} else {
			saved = *existing
		}
		saved.CompanyName = company
		saved.Description = trimmedOrNil(input.Description)
		saved.Website = trimmedOrNil(input.Website)
		saved.Location = trimmedOrNil(input.Location)
		saved.ServiceCategories = normalizeCategories(input.ServiceCategories)
		saved.UpdatedAt = now

		if existing == nil {
			err = repo.CreateProfile(ctx, &saved)
		} else {
			err = repo.UpdateProfile(ctx, &saved)
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save business profile")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	view := profileFromModel(saved)
	return &view, nil
}

func (s *service) SaveStep(ctx context.Context, userID uuid.UUID, step int) (*Status, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if step < 1 || step > MaxStep {
		return nil, pkgerrors.FieldError("step", fmt.Sprintf("must be between 1 and %d", MaxStep))
	}

	now := s.now().UTC()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.FindOnboarding(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load onboarding status")
		}
		if row == nil {
			row = &models.ContractorOnboardingStatus{UserID: userID, CreatedAt: now}
		}
		if row.IsSubmitted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "onboarding already submitted")
		}
		row.Step = max(row.Step, step)
		row.UpdatedAt = now
		if err := repo.UpsertOnboarding(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save onboarding step")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.ContractorStatus(ctx, userID)
}

// SubmitContractor marks onboarding submitted and queues the user for review.
// Submitting twice is a no-op.
func (s *service) SubmitContractor(ctx context.Context, userID uuid.UUID) (*Status, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	now := s.now().UTC()
	submitted := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		profile, err := repo.FindProfile(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load business profile")
		}
		if profile == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "business profile required before submitting").
				WithDetails(map[string]string{"business_profile": "missing"})
		}

		row, err := repo.FindOnboarding(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load onboarding status")
		}
		if row != nil && row.IsSubmitted {
			return nil
		}
		if row == nil {
			row = &models.ContractorOnboardingStatus{UserID: userID, CreatedAt: now}
		}
		row.Step = MaxStep
		row.IsSubmitted = true
		row.SubmittedAt = &now
		row.UpdatedAt = now
		if err := repo.UpsertOnboarding(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save onboarding status")
		}

		subject := userID
		if err := s.notifier.Notify(ctx, tx, notifications.NewNotification{
			Type:          enums.NotificationTypeVerificationSubmitted,
			Title:         "New verification request",
			Message:       fmt.Sprintf("%s submitted contractor onboarding for review", profile.CompanyName),
			SubjectUserID: &subject,
		}); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOnboardingSubmitted,
			AggregateType: enums.AggregateUser,
			AggregateID:   userID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: string(enums.UserRoleContractor)},
			Data: payloads.OnboardingSubmittedEvent{
				UserID:      userID,
				ProfileID:   profile.ID,
				CompanyName: profile.CompanyName,
				SubmittedAt: now,
			},
			OccurredAt: now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit onboarding event")
		}
		submitted = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if submitted {
		s.logg.Info(s.logg.WithUserID(ctx, userID.String()), "contractor onboarding submitted")
	}
	return s.ContractorStatus(ctx, userID)
}

func (s *service) ContractorStatus(ctx context.Context, userID uuid.UUID) (*Status, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	row, err := s.repo.FindOnboarding(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load onboarding status")
	}
	status, err := s.verification.Status(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &Status{
		State:              verification.OnboardingState(enums.UserRoleContractor, nil, row),
		VerificationStatus: status,
	}
	if row != nil {
		view.Step = row.Step
		view.IsSubmitted = row.IsSubmitted
		view.SubmittedAt = row.SubmittedAt
	}
	return view, nil
}
