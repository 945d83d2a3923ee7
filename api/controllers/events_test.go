package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eventprosnz/eventpros-backend/internal/events"
	"github.com/eventprosnz/eventpros-backend/pkg/enums"
	pkgerrors "github.com/eventprosnz/eventpros-backend/pkg/errors"
)

type testEventsService struct {
	createFn    func(ctx context.Context, managerID uuid.UUID, input events.CreateInput) (*events.Event, error)
	listFn      func(ctx context.Context, managerID uuid.UUID, input events.ListInput) (*events.ListResult, error)
	dashboardFn func(ctx context.Context, managerID uuid.UUID) (*events.Dashboard, error)
}

func (s *testEventsService) Create(ctx context.Context, managerID uuid.UUID, input events.CreateInput) (*events.Event, error) {
	if s.createFn != nil {
		return s.createFn(ctx, managerID, input)
	}
	return &events.Event{}, nil
}

func (s *testEventsService) List(ctx context.Context, managerID uuid.UUID, input events.ListInput) (*events.ListResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, managerID, input)
	}
	return &events.ListResult{}, nil
}

func (s *testEventsService) Dashboard(ctx context.Context, managerID uuid.UUID) (*events.Dashboard, error) {
	if s.dashboardFn != nil {
		return s.dashboardFn(ctx, managerID)
	}
	return &events.Dashboard{}, nil
}

func TestCreateEventDecodesBudget(t *testing.T) {
	managerID := uuid.New()
	var got events.CreateInput
	svc := &testEventsService{
		createFn: func(ctx context.Context, mid uuid.UUID, input events.CreateInput) (*events.Event, error) {
			got = input
			return &events.Event{ID: uuid.New(), ManagerID: mid, Status: enums.EventStatusDraft, Budget: input.Budget}, nil
		},
	}

	date := time.Now().Add(30 * 24 * time.Hour).UTC().Format(time.RFC3339)
	payload := `{"title":"Gala","event_type":"corporate","event_date":"` + date + `","attendee_count":120,"budget":"15000.50"}`
	req := httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader(payload))
	req = asCaller(req, managerID, enums.UserRoleEventManager)
	resp := httptest.NewRecorder()
	CreateEvent(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if !got.Budget.Equal(decimal.RequireFromString("15000.50")) || got.AttendeeCount != 120 {
		t.Fatalf("unexpected input %+v", got)
	}
	var body events.Event
	decodeData(t, resp, &body)
	if body.Status != enums.EventStatusDraft {
		t.Fatalf("expected draft got %s", body.Status)
	}
}

func TestCreateEventRejectsNegativeAttendees(t *testing.T) {
	payload := `{"title":"Gala","event_type":"corporate","event_date":"2030-01-01T00:00:00Z","attendee_count":-1,"budget":"0"}`
	req := httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader(payload))
	req = asCaller(req, uuid.New(), enums.UserRoleEventManager)
	resp := httptest.NewRecorder()
	CreateEvent(&testEventsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestListEventsPassesCursorAndStatus(t *testing.T) {
	var got events.ListInput
	svc := &testEventsService{
		listFn: func(ctx context.Context, mid uuid.UUID, input events.ListInput) (*events.ListResult, error) {
			got = input
			return &events.ListResult{Items: []events.Event{}, Cursor: "next"}, nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/api/events?status=planning&limit=2&cursor=abc", nil)
	req = asCaller(req, uuid.New(), enums.UserRoleEventManager)
	resp := httptest.NewRecorder()
	ListEvents(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if got.Status == nil || *got.Status != enums.EventStatusPlanning || got.Limit != 2 || got.Cursor != "abc" {
		t.Fatalf("unexpected input %+v", got)
	}
}

func TestEventDashboard(t *testing.T) {
	managerID := uuid.New()
	svc := &testEventsService{
		dashboardFn: func(ctx context.Context, mid uuid.UUID) (*events.Dashboard, error) {
			if mid != managerID {
				t.Fatalf("unexpected manager %s", mid)
			}
			return &events.Dashboard{
				CountsByStatus:    map[enums.EventStatus]int64{enums.EventStatusDraft: 2},
				TotalEvents:       2,
				Upcoming:          []events.Event{},
				TotalBudget:       decimal.RequireFromString("300.25"),
				InquiriesReceived: 4,
			}, nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/api/events/dashboard", nil)
	req = asCaller(req, managerID, enums.UserRoleEventManager)
	resp := httptest.NewRecorder()
	EventDashboard(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var body events.Dashboard
	decodeData(t, resp, &body)
	if body.TotalEvents != 2 || body.InquiriesReceived != 4 || !body.TotalBudget.Equal(decimal.RequireFromString("300.25")) {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestEventDashboardDependencyFailure(t *testing.T) {
	svc := &testEventsService{
		dashboardFn: func(ctx context.Context, mid uuid.UUID) (*events.Dashboard, error) {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "count events by status")
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/api/events/dashboard", nil)
	req = asCaller(req, uuid.New(), enums.UserRoleEventManager)
	resp := httptest.NewRecorder()
	EventDashboard(svc, testLogger())(resp, req)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}
