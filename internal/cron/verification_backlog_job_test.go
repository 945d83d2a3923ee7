package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/eventprosnz/eventpros-backend/internal/notifications"
	"github.com/eventprosnz/eventpros-backend/internal/verification"
	"github.com/eventprosnz/eventpros-backend/pkg/enums"
	"github.com/eventprosnz/eventpros-backend/pkg/logger"
)

type fakeQueue struct {
	totals map[string]int
	err    error
	calls  []verification.QueueParams
}

func (f *fakeQueue) Queue(ctx context.Context, params verification.QueueParams) (*verification.QueueResult, error) {
	f.calls = append(f.calls, params)
	if f.err != nil {
		return nil, f.err
	}
	return &verification.QueueResult{Total: f.totals[params.Status]}, nil
}

type fakeBacklogNotifications struct {
	exists bool
	since  time.Time
}

func (f *fakeBacklogNotifications) ExistsSince(ctx context.Context, kind enums.NotificationType, since time.Time) (bool, error) {
	f.since = since
	return f.exists, nil
}

type fakeNotifier struct {
	sent []notifications.NewNotification
}

func (f *fakeNotifier) Notify(ctx context.Context, tx *gorm.DB, input notifications.NewNotification) error {
	f.sent = append(f.sent, input)
	return nil
}

type backlogTxRunner struct{}

func (backlogTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newBacklogJob(t *testing.T, queue *fakeQueue, existing *fakeBacklogNotifications, notifier *fakeNotifier) *verificationBacklogJob {
	t.Helper()
	jobIface, err := NewVerificationBacklogJob(VerificationBacklogJobParams{
		Logger:        logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		DB:            backlogTxRunner{},
		Queue:         queue,
		Notifications: existing,
		Notifier:      notifier,
		Threshold:     5,
	})
	if err != nil {
		t.Fatalf("NewVerificationBacklogJob: %v", err)
	}
	return jobIface.(*verificationBacklogJob)
}

func TestVerificationBacklogJobNotifiesOverThreshold(t *testing.T) {
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	queue := &fakeQueue{totals: map[string]int{"pending": 3, "onboarding": 2}}
	existing := &fakeBacklogNotifications{}
	notifier := &fakeNotifier{}
	job := newBacklogJob(t, queue, existing, notifier)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(queue.calls) != 2 {
		t.Fatalf("expected two queue lookups, got %d", len(queue.calls))
	}
	for _, call := range queue.calls {
		if call.Priority != "high" {
			t.Fatalf("expected high priority filter, got %q", call.Priority)
		}
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.sent))
	}
	sent := notifier.sent[0]
	if sent.Type != enums.NotificationTypeVerificationBacklog || sent.RecipientID != nil {
		t.Fatalf("expected broadcast backlog notification, got %+v", sent)
	}
	if !existing.since.Equal(now.Add(-backlogNotifyCooldown)) {
		t.Fatalf("unexpected cooldown window start %s", existing.since)
	}
}

func TestVerificationBacklogJobQuietCases(t *testing.T) {
	below := &fakeNotifier{}
	job := newBacklogJob(t, &fakeQueue{totals: map[string]int{"pending": 4}}, &fakeBacklogNotifications{}, below)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(below.sent) != 0 {
		t.Fatal("expected no notification below threshold")
	}

	cooling := &fakeNotifier{}
	job = newBacklogJob(t, &fakeQueue{totals: map[string]int{"pending": 9}}, &fakeBacklogNotifications{exists: true}, cooling)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(cooling.sent) != 0 {
		t.Fatal("expected no repeat notification inside cooldown")
	}
}

func TestVerificationBacklogJobQueueError(t *testing.T) {
	notifier := &fakeNotifier{}
	job := newBacklogJob(t, &fakeQueue{err: errors.New("db down")}, &fakeBacklogNotifications{}, notifier)
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(notifier.sent) != 0 {
		t.Fatal("expected no notification on error")
	}
}
