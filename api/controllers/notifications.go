package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/eventprosnz/eventpros-backend/api/responses"
	"github.com/eventprosnz/eventpros-backend/api/validators"
	"github.com/eventprosnz/eventpros-backend/internal/notifications"
	pkgerrors "github.com/eventprosnz/eventpros-backend/pkg/errors"
	"github.com/eventprosnz/eventpros-backend/pkg/logger"
)

type markNotificationsRequest struct {
	NotificationIDs []uuid.UUID `json:"notification_ids" validate:"omitempty,max=100"`
	MarkAll         bool        `json:"mark_all"`
}

// AdminListNotifications returns the caller's and broadcast notifications, newest first.
func AdminListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		adminID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseOptionalInt(r, "limit")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		unreadOnly, err := validators.ParseQueryBool(r, "unreadOnly", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.List(r.Context(), notifications.ListParams{
			AdminID:    adminID,
			Limit:      limit,
			Cursor:     strings.TrimSpace(r.URL.Query().Get("cursor")),
			UnreadOnly: unreadOnly,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// AdminMarkNotificationsRead marks the listed notifications, or all of them, as read.
func AdminMarkNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		adminID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body markNotificationsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.MarkRead(r.Context(), notifications.MarkReadInput{
			AdminID: adminID,
			IDs:     body.NotificationIDs,
			MarkAll: body.MarkAll,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"updated": updated})
	}
}
