package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/eventprosnz/eventpros-backend/internal/notifications"
	"github.com/eventprosnz/eventpros-backend/internal/verification"
	"github.com/eventprosnz/eventpros-backend/pkg/enums"
	"github.com/eventprosnz/eventpros-backend/pkg/logger"
)

const (
	defaultBacklogThreshold = 10
	backlogNotifyCooldown   = 24 * time.Hour
)

type VerificationBacklogJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	Queue         backlogQueue
	Notifications backlogNotifications
	Notifier      notifications.Notifier
	Threshold     int
}

type backlogQueue interface {
	Queue(ctx context.Context, params verification.QueueParams) (*verification.QueueResult, error)
}

type backlogNotifications interface {
	ExistsSince(ctx context.Context, kind enums.NotificationType, since time.Time) (bool, error)
}

// NewVerificationBacklogJob broadcasts a backlog notification when too many
// users have waited past the high priority threshold. At most one backlog
// notification is sent per cooldown window.
func NewVerificationBacklogJob(params VerificationBacklogJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.DB == nil:
		return nil, fmt.Errorf("db runner required")
	case params.Queue == nil:
		return nil, fmt.Errorf("verification queue required")
	case params.Notifications == nil:
		return nil, fmt.Errorf("notifications repository required")
	case params.Notifier == nil:
		return nil, fmt.Errorf("notifier required")
	}
	threshold := params.Threshold
	if threshold <= 0 {
		threshold = defaultBacklogThreshold
	}
	return &verificationBacklogJob{
		logg:          params.Logger,
		db:            params.DB,
		queue:         params.Queue,
		notifications: params.Notifications,
		notifier:      params.Notifier,
		threshold:     threshold,
		now:           time.Now,
	}, nil
}

type verificationBacklogJob struct {
	logg          *logger.Logger
	db            txRunner
	queue         backlogQueue
	notifications backlogNotifications
	notifier      notifications.Notifier
	threshold     int
	now           func() time.Time
}

func (j *verificationBacklogJob) Name() string { return "verification-backlog" }

func (j *verificationBacklogJob) Run(ctx context.Context) error {
	overdue, err := j.countOverdue(ctx)
	if err != nil {
		return fmt.Errorf("verification backlog: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"overdue": overdue, "threshold": j.threshold})
	if overdue < int64(j.threshold) {
		j.logg.Info(logCtx, "verification backlog within threshold")
		return nil
	}

	recent, err := j.notifications.ExistsSince(ctx, enums.NotificationTypeVerificationBacklog, j.now().UTC().Add(-backlogNotifyCooldown))
	if err != nil {
		return fmt.Errorf("verification backlog: check recent notification: %w", err)
	}
	if recent {
		j.logg.Info(logCtx, "verification backlog already announced")
		return nil
	}

	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		return j.notifier.Notify(ctx, tx, notifications.NewNotification{
			Type:    enums.NotificationTypeVerificationBacklog,
			Title:   "Verification backlog",
			Message: fmt.Sprintf("%d users have waited more than a week for verification.", overdue),
		})
	})
	if err != nil {
		return fmt.Errorf("verification backlog: notify: %w", err)
	}
	j.logg.Warn(logCtx, "verification backlog announced")
	return nil
}

// countOverdue sums the high priority users still awaiting a first decision.
func (j *verificationBacklogJob) countOverdue(ctx context.Context) (int64, error) {
	var (
		total int64
		errs  error
	)
	for _, status := range []enums.VerificationStatus{enums.VerificationStatusPending, enums.VerificationStatusOnboarding} {
		res, err := j.queue.Queue(ctx, verification.QueueParams{
			Status:   string(status),
			Priority: string(enums.VerificationPriorityHigh),
			Limit:    1,
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s queue: %w", status, err))
			continue
		}
		total += int64(res.Total)
	}
	return total, errs
}
