package notifications

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eventprosnz/eventpros-backend/pkg/db/models"
	pkgerrors "github.com/eventprosnz/eventpros-backend/pkg/errors"
	"github.com/eventprosnz/eventpros-backend/pkg/pagination"
)

// Service defines admin notification list/read operations.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, input MarkReadInput) (int64, error)
	Notify(ctx context.Context, tx *gorm.DB, input NewNotification) error
}

// Notifier is the producer-side surface other domains depend on.
type Notifier interface {
	Notify(ctx context.Context, tx *gorm.DB, input NewNotification) error
}

type service struct {
	repo Repository
	now  func() time.Time
}

// ListParams configures pagination for notifications.
type ListParams struct {
	AdminID    uuid.UUID
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items       []Notification `json:"items"`
	Cursor      string         `json:"cursor"`
	UnreadCount int64          `json:"unread_count"`
}

// MarkReadInput carries either explicit ids or MarkAll, never both.
type MarkReadInput struct {
	AdminID uuid.UUID
	IDs     []uuid.UUID
	MarkAll bool
}

// NewService wires notifications dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.AdminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor").
			WithDetails(map[string]string{"cursor": "invalid cursor"})
	}

	rows, err := s.repo.List(ctx, listNotificationsParams{
		AdminID:    params.AdminID,
		Limit:      pagination.LimitWithBuffer(params.Limit),
		Cursor:     cursor,
		UnreadOnly: params.UnreadOnly,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	unread, err := s.repo.CountUnread(ctx, params.AdminID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}

	page, next := pagination.Page(rows, params.Limit, func(n models.AdminNotification) pagination.Cursor {
		return pagination.Cursor{At: n.CreatedAt, ID: n.ID}
	})
	items := make([]Notification, 0, len(page))
	for _, row := range page {
		items = append(items, fromModel(row))
	}

	return &ListResult{
		Items:       items,
		Cursor:      next,
		UnreadCount: unread,
	}, nil
}

func (s *service) MarkRead(ctx context.Context, input MarkReadInput) (int64, error) {
	if input.AdminID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}
	hasIDs := len(input.IDs) > 0
	if hasIDs == input.MarkAll {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "provide either notification_ids or mark_all").
			WithDetails(map[string]string{"notification_ids": "exactly one of notification_ids or mark_all is required"})
	}

	now := s.now().UTC()
	if input.MarkAll {
		count, err := s.repo.MarkAllRead(ctx, input.AdminID, now)
		if err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
		}
		return count, nil
	}

	for _, id := range input.IDs {
		if id == uuid.Nil {
			return 0, pkgerrors.FieldError("notification_ids", "ids must be valid uuids")
		}
	}
	count, err := s.repo.MarkRead(ctx, input.AdminID, input.IDs, now)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}

// Notify inserts a notification using tx so it commits with the caller's change.
func (s *service) Notify(ctx context.Context, tx *gorm.DB, input NewNotification) error {
	if !input.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeInternal, "invalid notification type")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return pkgerrors.New(pkgerrors.CodeInternal, "notification title required")
	}

	row := &models.AdminNotification{
		ID:            uuid.New(),
		RecipientID:   input.RecipientID,
		Type:          input.Type,
		Title:         title,
		Message:       strings.TrimSpace(input.Message),
		SubjectUserID: input.SubjectUserID,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
	}
	return nil
}
