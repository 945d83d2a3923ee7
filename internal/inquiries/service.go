package inquiries

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/eventprosnz/eventpros-backend/internal/users"
	"github.com/eventprosnz/eventpros-backend/pkg/db/models"
	"github.com/eventprosnz/eventpros-backend/pkg/enums"
	pkgerrors "github.com/eventprosnz/eventpros-backend/pkg/errors"
	"github.com/eventprosnz/eventpros-backend/pkg/logger"
	"github.com/eventprosnz/eventpros-backend/pkg/metrics"
	"github.com/eventprosnz/eventpros-backend/pkg/outbox"
	"github.com/eventprosnz/eventpros-backend/pkg/outbox/payloads"
	"github.com/eventprosnz/eventpros-backend/pkg/pagination"
)

// enrichConcurrency bounds the sender lookups in flight per list call.
const enrichConcurrency = 8

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type contractorLookup interface {
	FindByIDAndRole(ctx context.Context, id uuid.UUID, role enums.UserRole) (*models.User, error)
}

type eventLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

type senderLookup interface {
	PublicSummary(ctx context.Context, id uuid.UUID) (*users.PublicSummary, error)
}

// Service exposes inquiry creation, listing and templates.
type Service interface {
	Create(ctx context.Context, senderID uuid.UUID, input CreateInput) (*Inquiry, error)
	List(ctx context.Context, userID uuid.UUID, input ListInput) (*ListResult, error)
	CreateTemplate(ctx context.Context, ownerID uuid.UUID, input TemplateInput) (*Template, error)
	ListTemplates(ctx context.Context, ownerID uuid.UUID, includePublic bool) ([]Template, error)
}

// ServiceParams wires the inquiries service.
type ServiceParams struct {
	Repo        Repository
	Tx          txRunner
	Outbox      outboxEmitter
	Contractors contractorLookup
	Events      eventLookup
	Senders     senderLookup
	Logger      *logger.Logger
	Metrics     *metrics.DomainMetrics
}

type service struct {
	repo        Repository
	tx          txRunner
	outbox      outboxEmitter
	contractors contractorLookup
	events      eventLookup
	senders     senderLookup
	logg        *logger.Logger
	metrics     *metrics.DomainMetrics
	now         func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("inquiries repository required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Contractors == nil:
		return nil, fmt.Errorf("contractor lookup required")
	case params.Events == nil:
		return nil, fmt.Errorf("event lookup required")
	case params.Senders == nil:
		return nil, fmt.Errorf("sender lookup required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:        params.Repo,
		tx:          params.Tx,
		outbox:      params.Outbox,
		contractors: params.Contractors,
		events:      params.Events,
		senders:     params.Senders,
		logg:        params.Logger,
		metrics:     params.Metrics,
		now:         time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, senderID uuid.UUID, input CreateInput) (*Inquiry, error) {
	subject := strings.TrimSpace(input.Subject)
	message := strings.TrimSpace(input.Message)
	switch {
	case input.ContractorID == uuid.Nil:
		return nil, pkgerrors.FieldError("contractor_id", "is required")
	case subject == "" || utf8.RuneCountInString(subject) > 200:
		return nil, pkgerrors.FieldError("subject", "must be between 1 and 200 characters")
	case message == "" || utf8.RuneCountInString(message) > 5000:
		return nil, pkgerrors.FieldError("message", "must be between 1 and 5000 characters")
	}

	if _, err := s.contractors.FindByIDAndRole(ctx, input.ContractorID, enums.UserRoleContractor); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "contractor not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load contractor")
	}
	if input.EventID != nil {
		event, err := s.events.FindByID(ctx, *input.EventID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load event")
		}
		if event.ManagerID != senderID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "event does not belong to sender")
		}
	}

	now := s.now().UTC()
	row := &models.Inquiry{
		ID:           uuid.New(),
		EventID:      input.EventID,
		SenderID:     senderID,
		ContractorID: input.ContractorID,
		Subject:      subject,
		Message:      message,
		Status:       enums.InquiryStatusSent,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create inquiry")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInquiryCreated,
			AggregateType: enums.AggregateInquiry,
			AggregateID:   row.ID,
			Actor:         &outbox.ActorRef{UserID: senderID, Role: string(enums.UserRoleEventManager)},
			Data: payloads.InquiryCreatedEvent{
				InquiryID:    row.ID,
				SenderID:     senderID,
				ContractorID: row.ContractorID,
				EventID:      row.EventID,
				Subject:      row.Subject,
			},
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	dto := fromModel(*row)
	dto.Sender = s.lookupSender(ctx, senderID)
	return &dto, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, input ListInput) (*ListResult, error) {
	box := input.Box
	if box == "" {
		box = BoxSent
	}
	if box != BoxSent && box != BoxReceived {
		return nil, pkgerrors.FieldError("role", "must be sent or received")
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.FieldError("status", "must be one of sent, viewed, responded, closed")
	}
	page := pagination.Offset{Limit: input.Limit, Offset: input.Offset}
	if page.Limit == 0 {
		page.Limit = pagination.DefaultLimit
	}
	if field, err := page.Validate(); err != nil {
		return nil, pkgerrors.FieldError(field, err.Error())
	}

	rows, total, err := s.repo.List(ctx, listParams{
		UserID: userID,
		Box:    box,
		Status: input.Status,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list inquiries")
	}

	items := make([]Inquiry, len(rows))
	for i, row := range rows {
		items[i] = fromModel(row)
	}
	senders := s.enrichSenders(ctx, rows)
	for i := range items {
		items[i].Sender = senders[items[i].SenderID]
	}

	return &ListResult{Items: items, Total: total, Limit: page.Limit, Offset: page.Offset}, nil
}

// enrichSenders resolves each distinct sender once. Lookups never fail the
// request: a failed lookup yields the placeholder summary.
func (s *service) enrichSenders(ctx context.Context, rows []models.Inquiry) map[uuid.UUID]users.PublicSummary {
	ids := make([]uuid.UUID, 0, len(rows))
	seen := make(map[uuid.UUID]struct{}, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.SenderID]; ok {
			continue
		}
		seen[row.SenderID] = struct{}{}
		ids = append(ids, row.SenderID)
	}

	summaries := make([]users.PublicSummary, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			summaries[i] = s.lookupSender(gctx, id)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[uuid.UUID]users.PublicSummary, len(ids))
	for i, id := range ids {
		out[id] = summaries[i]
	}
	return out
}

func (s *service) lookupSender(ctx context.Context, id uuid.UUID) users.PublicSummary {
	summary, err := s.senders.PublicSummary(ctx, id)
	if err != nil || summary == nil {
		if err == nil {
			err = errors.New("empty summary")
		}
		logCtx := s.logg.WithFields(ctx, map[string]any{"sender_id": id.String(), "error": err.Error()})
		s.logg.Warn(logCtx, "sender lookup failed")
		s.metrics.IncEnrichmentFailure()
		return unknownSender(id)
	}
	return *summary
}

func (s *service) CreateTemplate(ctx context.Context, ownerID uuid.UUID, input TemplateInput) (*Template, error) {
	name := strings.TrimSpace(input.Name)
	subject := strings.TrimSpace(input.Subject)
	body := strings.TrimSpace(input.Body)
	switch {
	case name == "" || utf8.RuneCountInString(name) > 100:
		return nil, pkgerrors.FieldError("name", "must be between 1 and 100 characters")
	case subject == "":
		return nil, pkgerrors.FieldError("subject", "is required")
	case body == "":
		return nil, pkgerrors.FieldError("body", "is required")
	}

	now := s.now().UTC()
	row := &models.InquiryTemplate{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      name,
		Subject:   subject,
		Body:      body,
		IsPublic:  input.IsPublic,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateTemplate(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create template")
	}
	dto := templateFromModel(*row)
	return &dto, nil
}

func (s *service) ListTemplates(ctx context.Context, ownerID uuid.UUID, includePublic bool) ([]Template, error) {
	rows, err := s.repo.ListTemplates(ctx, ownerID, includePublic)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list templates")
	}
	out := make([]Template, len(rows))
	for i, row := range rows {
		out[i] = templateFromModel(row)
	}
	return out, nil
}
