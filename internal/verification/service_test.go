package verification

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eventprosnz/eventpros-backend/internal/notifications"
	"github.com/eventprosnz/eventpros-backend/pkg/db/models"
	"github.com/eventprosnz/eventpros-backend/pkg/enums"
	pkgerrors "github.com/eventprosnz/eventpros-backend/pkg/errors"
	"github.com/eventprosnz/eventpros-backend/pkg/logger"
	"github.com/eventprosnz/eventpros-backend/pkg/outbox"
	"github.com/eventprosnz/eventpros-backend/pkg/outbox/payloads"
)

type stubRepo struct {
	users      map[uuid.UUID]*models.User
	profiles   map[uuid.UUID]models.BusinessProfile
	onboarding map[uuid.UUID]models.ContractorOnboardingStatus
	logs       map[uuid.UUID][]models.VerificationLog
	batchCalls int
	locked     []uuid.UUID
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		users:      map[uuid.UUID]*models.User{},
		profiles:   map[uuid.UUID]models.BusinessProfile{},
		onboarding: map[uuid.UUID]models.ContractorOnboardingStatus{},
		logs:       map[uuid.UUID][]models.VerificationLog{},
	}
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *stubRepo) FindUserForUpdate(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.locked = append(s.locked, id)
	return s.FindUser(ctx, id)
}

func (s *stubRepo) ListCandidates(ctx context.Context) ([]models.User, error) {
	var out []models.User
	for _, u := range s.users {
		if u.Role.HasBusinessProfile() {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *stubRepo) ProfilesByUser(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.BusinessProfile, error) {
	s.batchCalls++
	return s.profiles, nil
}

func (s *stubRepo) OnboardingByUser(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ContractorOnboardingStatus, error) {
	s.batchCalls++
	return s.onboarding, nil
}

func (s *stubRepo) LogsByUser(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]models.VerificationLog, error) {
	s.batchCalls++
	return s.logs, nil
}

func (s *stubRepo) SetUserVerified(ctx context.Context, userID uuid.UUID, verified bool, now time.Time) error {
	s.users[userID].IsVerified = verified
	return nil
}

func (s *stubRepo) SetProfileVerified(ctx context.Context, userID uuid.UUID, verified bool, now time.Time) (int64, error) {
	profile, ok := s.profiles[userID]
	if !ok {
		return 0, nil
	}
	profile.IsVerified = verified
	s.profiles[userID] = profile
	return 1, nil
}

func (s *stubRepo) InsertLog(ctx context.Context, entry *models.VerificationLog) error {
	s.logs[entry.UserID] = append([]models.VerificationLog{*entry}, s.logs[entry.UserID]...)
	return nil
}

type stubTxRunner struct {
	writes int
	reads  int
}

func (s *stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	s.writes++
	return fn(nil)
}

func (s *stubTxRunner) WithReadTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	s.reads++
	return fn(nil)
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubNotifier struct {
	sent []notifications.NewNotification
}

func (s *stubNotifier) Notify(ctx context.Context, tx *gorm.DB, input notifications.NewNotification) error {
	s.sent = append(s.sent, input)
	return nil
}

type fixture struct {
	repo     *stubRepo
	tx       *stubTxRunner
	outbox   *stubOutbox
	notifier *stubNotifier
	svc      *service
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     newStubRepo(),
		tx:       &stubTxRunner{},
		outbox:   &stubOutbox{},
		notifier: &stubNotifier{},
		now:      time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	svc, err := NewService(ServiceParams{
		Repo:     f.repo,
		Tx:       f.tx,
		Outbox:   f.outbox,
		Notifier: f.notifier,
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc.(*service)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) addUser(role enums.UserRole, age time.Duration) *models.User {
	user := &models.User{
		ID:        uuid.New(),
		Email:     uuid.NewString() + "@example.co.nz",
		FirstName: "Aroha",
		LastName:  "Smith",
		Role:      role,
		IsActive:  true,
		CreatedAt: f.now.Add(-age),
	}
	f.repo.users[user.ID] = user
	return user
}

func TestQueue_DefaultExcludesApprovedAndSortsByPriority(t *testing.T) {
	f := newFixture(t)
	day := 24 * time.Hour

	fresh := f.addUser(enums.UserRoleContractor, time.Hour)
	old := f.addUser(enums.UserRoleEventManager, 10*day)
	f.repo.profiles[old.ID] = models.BusinessProfile{UserID: old.ID, CompanyName: "Old Co"}
	mid := f.addUser(enums.UserRoleContractor, 20*day)
	submitted := f.now.Add(-4 * day)
	f.repo.onboarding[mid.ID] = models.ContractorOnboardingStatus{UserID: mid.ID, IsSubmitted: true, SubmittedAt: &submitted}
	approved := f.addUser(enums.UserRoleContractor, 30*day)
	approved.IsVerified = true
	f.addUser(enums.UserRoleAdmin, 40*day)

	result, err := f.svc.Queue(context.Background(), QueueParams{})
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if result.Total != 3 || len(result.Items) != 3 {
		t.Fatalf("expected 3 items, got total=%d len=%d", result.Total, len(result.Items))
	}
	if result.Limit != 20 || result.Offset != 0 {
		t.Fatalf("expected default paging, got limit=%d offset=%d", result.Limit, result.Offset)
	}

	got := []uuid.UUID{result.Items[0].UserID, result.Items[1].UserID, result.Items[2].UserID}
	want := []uuid.UUID{old.ID, mid.ID, fresh.ID}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	if result.Items[0].Priority != enums.VerificationPriorityHigh ||
		result.Items[1].Priority != enums.VerificationPriorityMedium ||
		result.Items[2].Priority != enums.VerificationPriorityLow {
		t.Fatalf("unexpected priorities: %+v", result.Items)
	}
	if result.Items[0].Status != enums.VerificationStatusPending || result.Items[0].CompanyName == nil {
		t.Fatalf("expected pending event manager with company name")
	}
	if result.Items[2].Status != enums.VerificationStatusOnboarding {
		t.Fatalf("expected contractor without onboarding to be onboarding")
	}
	if f.tx.reads != 1 {
		t.Fatalf("expected a single read transaction, got %d", f.tx.reads)
	}
	if f.repo.batchCalls != 3 {
		t.Fatalf("expected one batch query per signal table, got %d", f.repo.batchCalls)
	}
}

func TestQueue_FiltersAndPaging(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.addUser(enums.UserRoleContractor, time.Duration(i+1)*time.Hour)
	}
	approved := f.addUser(enums.UserRoleContractor, time.Hour)
	approved.IsVerified = true

	result, err := f.svc.Queue(context.Background(), QueueParams{Status: "approved"})
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if result.Total != 1 || result.Items[0].UserID != approved.ID {
		t.Fatalf("expected only the approved user")
	}

	result, err = f.svc.Queue(context.Background(), QueueParams{Status: "all", Limit: 2, Offset: 4})
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if result.Total != 6 || len(result.Items) != 2 {
		t.Fatalf("expected total 6 with 2 items, got %d/%d", result.Total, len(result.Items))
	}

	result, err = f.svc.Queue(context.Background(), QueueParams{Priority: "high"})
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if result.Total != 0 {
		t.Fatalf("expected no high priority entries")
	}

	result, err = f.svc.Queue(context.Background(), QueueParams{Offset: 50})
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if len(result.Items) != 0 || result.Total != 5 {
		t.Fatalf("expected empty page past the end")
	}
}

func TestQueue_Validation(t *testing.T) {
	f := newFixture(t)
	cases := []QueueParams{
		{Status: "bogus"},
		{Priority: "urgent"},
		{Limit: 101},
		{Limit: -1},
		{Offset: -1},
	}
	for _, params := range cases {
		if _, err := f.svc.Queue(context.Background(), params); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("params %+v: expected validation error, got %v", params, err)
		}
	}
}

func TestDecide_Approve(t *testing.T) {
	f := newFixture(t)
	user := f.addUser(enums.UserRoleContractor, 48*time.Hour)
	f.repo.profiles[user.ID] = models.BusinessProfile{UserID: user.ID, CompanyName: "Sparks Ltd"}
	adminID := uuid.New()

	result, err := f.svc.Decide(context.Background(), DecisionInput{AdminID: adminID, UserID: user.ID, Action: enums.VerificationActionApprove})
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if result.Status != enums.VerificationStatusApproved {
		t.Fatalf("expected approved, got %s", result.Status)
	}
	if !f.repo.users[user.ID].IsVerified || !f.repo.profiles[user.ID].IsVerified {
		t.Fatalf("expected user and profile flags to be set together")
	}
	if len(f.repo.logs[user.ID]) != 1 || f.repo.logs[user.ID][0].AdminID != adminID {
		t.Fatalf("expected one log row by the admin")
	}
	if len(f.notifier.sent) != 1 || f.notifier.sent[0].Type != enums.NotificationTypeVerificationDecided || f.notifier.sent[0].RecipientID != nil {
		t.Fatalf("expected broadcast decision notification, got %+v", f.notifier.sent)
	}
	if len(f.outbox.events) != 1 {
		t.Fatalf("expected one outbox event")
	}
	event := f.outbox.events[0]
	if event.EventType != enums.EventVerificationDecided || event.AggregateID != user.ID {
		t.Fatalf("unexpected outbox event %+v", event)
	}
	data, ok := event.Data.(payloads.VerificationDecidedEvent)
	if !ok || data.Status != enums.VerificationStatusApproved {
		t.Fatalf("unexpected payload %+v", event.Data)
	}
	if f.tx.writes != 1 {
		t.Fatalf("expected a single write transaction")
	}
	if len(f.repo.locked) != 1 || f.repo.locked[0] != user.ID {
		t.Fatalf("expected the user row to be locked before deciding, got %v", f.repo.locked)
	}

	_, err = f.svc.Decide(context.Background(), DecisionInput{AdminID: adminID, UserID: user.ID, Action: enums.VerificationActionApprove})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict on second approve, got %v", err)
	}
}

func TestDecide_RejectRevokesApproval(t *testing.T) {
	f := newFixture(t)
	user := f.addUser(enums.UserRoleEventManager, time.Hour)
	user.IsVerified = true

	result, err := f.svc.Decide(context.Background(), DecisionInput{
		AdminID: uuid.New(),
		UserID:  user.ID,
		Action:  enums.VerificationActionReject,
		Reason:  "  documents expired ",
	})
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if result.Status != enums.VerificationStatusRejected {
		t.Fatalf("expected rejected, got %s", result.Status)
	}
	if f.repo.users[user.ID].IsVerified {
		t.Fatalf("expected approval to be revoked")
	}
	if result.Log.Reason == nil || *result.Log.Reason != "documents expired" {
		t.Fatalf("expected trimmed reason, got %v", result.Log.Reason)
	}
}

func TestDecide_Errors(t *testing.T) {
	f := newFixture(t)
	admin := f.addUser(enums.UserRoleAdmin, time.Hour)
	contractor := f.addUser(enums.UserRoleContractor, time.Hour)
	adminID := uuid.New()

	cases := []struct {
		name  string
		input DecisionInput
		code  pkgerrors.Code
	}{
		{"missing user", DecisionInput{AdminID: adminID, UserID: uuid.New(), Action: enums.VerificationActionApprove}, pkgerrors.CodeNotFound},
		{"admin target", DecisionInput{AdminID: adminID, UserID: admin.ID, Action: enums.VerificationActionApprove}, pkgerrors.CodeStateConflict},
		{"reject without reason", DecisionInput{AdminID: adminID, UserID: contractor.ID, Action: enums.VerificationActionReject}, pkgerrors.CodeValidation},
		{"bad action", DecisionInput{AdminID: adminID, UserID: contractor.ID, Action: "maybe"}, pkgerrors.CodeValidation},
		{"no admin", DecisionInput{UserID: contractor.ID, Action: enums.VerificationActionApprove}, pkgerrors.CodeUnauthorized},
	}
	long := make([]byte, maxReasonLength+1)
	for i := range long {
		long[i] = 'a'
	}
	cases = append(cases, struct {
		name  string
		input DecisionInput
		code  pkgerrors.Code
	}{"reason too long", DecisionInput{AdminID: adminID, UserID: contractor.ID, Action: enums.VerificationActionReject, Reason: string(long)}, pkgerrors.CodeValidation})

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Decide(context.Background(), tc.input)
			if !pkgerrors.IsCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}
	if len(f.outbox.events) != 0 || len(f.notifier.sent) != 0 {
		t.Fatalf("failed decisions must not emit side effects")
	}
}

func TestDetailAndStatus(t *testing.T) {
	f := newFixture(t)
	user := f.addUser(enums.UserRoleContractor, time.Hour)
	reason := "blurry id"
	f.repo.logs[user.ID] = []models.VerificationLog{
		{ID: uuid.New(), UserID: user.ID, Action: enums.VerificationActionReject, Status: enums.VerificationStatusRejected, Reason: &reason, CreatedAt: f.now},
	}

	detail, err := f.svc.Detail(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if detail.Status != enums.VerificationStatusRejected || len(detail.Logs) != 1 || detail.LatestLog == nil {
		t.Fatalf("unexpected detail %+v", detail)
	}

	status, err := f.svc.Status(context.Background(), user.ID)
	if err != nil || status != enums.VerificationStatusRejected {
		t.Fatalf("expected rejected status, got %s (%v)", status, err)
	}

	if _, err := f.svc.Detail(context.Background(), uuid.New()); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
