package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/eventprosnz/eventpros-backend/pkg/logger"
)

const defaultRetentionDays = 30

// PurgeFunc deletes rows older than cutoff using tx and reports how many went.
type PurgeFunc func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)

// RetentionTarget is one table a retention job trims. Days <= 0 means 30.
type RetentionTarget struct {
	Table string
	Days  int
	Purge PurgeFunc
}

type RetentionJobParams struct {
	Name    string
	Logger  *logger.Logger
	DB      txRunner
	Targets []RetentionTarget
}

type notificationPurger interface {
	DeleteReadBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type outboxPurger interface {
	PurgeBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttempts int) (int64, error)
}

type dlqPurger interface {
	PurgeBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NotificationRetention trims read admin notifications. Unread ones stay
// regardless of age.
func NotificationRetention(repo notificationPurger, days int) RetentionTarget {
	return RetentionTarget{Table: "admin_notifications", Days: days, Purge: repo.DeleteReadBefore}
}

// OutboxRetention trims published outbox rows and rows that used up
// minAttempts without publishing.
func OutboxRetention(repo outboxPurger, minAttempts, days int) RetentionTarget {
	return RetentionTarget{
		Table: "outbox_events",
		Days:  days,
		Purge: func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
			return repo.PurgeBefore(ctx, tx, cutoff, minAttempts)
		},
	}
}

func DLQRetention(repo dlqPurger, days int) RetentionTarget {
	return RetentionTarget{Table: "outbox_dlq", Days: days, Purge: repo.PurgeBefore}
}

// NewRetentionJob builds a job that purges each target in its own
// transaction. A failing target does not stop the rest; all failures are
// returned together.
func NewRetentionJob(params RetentionJobParams) (Job, error) {
	switch {
	case params.Name == "":
		return nil, errors.New("job name required")
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.DB == nil:
		return nil, errors.New("db runner required")
	case len(params.Targets) == 0:
		return nil, errors.New("at least one retention target required")
	}
	targets := make([]RetentionTarget, len(params.Targets))
	for i, target := range params.Targets {
		if target.Purge == nil {
			return nil, fmt.Errorf("retention target %q has no purge func", target.Table)
		}
		if target.Days <= 0 {
			target.Days = defaultRetentionDays
		}
		targets[i] = target
	}
	return &retentionJob{
		name:    params.Name,
		logg:    params.Logger,
		db:      params.DB,
		targets: targets,
		now:     time.Now,
	}, nil
}

type retentionJob struct {
	name    string
	logg    *logger.Logger
	db      txRunner
	targets []RetentionTarget
	now     func() time.Time
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	fields := make(map[string]any, len(j.targets)*2)
	var errs error
	for _, target := range j.targets {
		cutoff := now.AddDate(0, 0, -target.Days)
		var deleted int64
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			n, err := target.Purge(ctx, tx, cutoff)
			deleted = n
			return err
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s retention: %w", target.Table, err))
			continue
		}
		fields[target.Table+"_deleted"] = deleted
		fields[target.Table+"_cutoff"] = cutoff
	}
	if errs != nil {
		return errs
	}
	j.logg.Info(j.logg.WithFields(ctx, fields), "retention purge complete")
	return nil
}
