package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/eventprosnz/eventpros-backend/internal/cron"
	"github.com/eventprosnz/eventpros-backend/internal/notifications"
	"github.com/eventprosnz/eventpros-backend/internal/verification"
	"github.com/eventprosnz/eventpros-backend/pkg/config"
	"github.com/eventprosnz/eventpros-backend/pkg/db"
	"github.com/eventprosnz/eventpros-backend/pkg/logger"
	"github.com/eventprosnz/eventpros-backend/pkg/metrics"
	"github.com/eventprosnz/eventpros-backend/pkg/migrate"
	"github.com/eventprosnz/eventpros-backend/pkg/outbox"
	"github.com/eventprosnz/eventpros-backend/pkg/redis"
)

const serviceKind = "cron-worker"

func main() {
	jobs := flag.String("jobs", "", "comma separated job names to run (default: all)")
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *jobs, *once); err != nil && !errors.Is(err, context.Canceled) {
		logger.New(logger.Options{ServiceName: serviceKind}).Error(ctx, "cron worker stopped", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, jobNames string, once bool) error {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = serviceKind

	logg := logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "serviceKind": serviceKind})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer dbClient.Close()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer redisClient.Close()

	service, err := buildService(cfg, logg, dbClient, redisClient, jobNames)
	if err != nil {
		return err
	}

	if once {
		report, err := service.RunOnce(ctx)
		if err != nil {
			return err
		}
		logg.Info(logg.WithFields(ctx, map[string]any{"ran": report.Ran, "skipped": report.Skipped}), "cron cycle finished")
		return report.Err()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return service.Run(ctx) })
	if addr := cfg.Service.MetricsAddr; addr != "" {
		g.Go(func() error { return metrics.Serve(ctx, addr, prometheus.DefaultGatherer) })
	}
	logg.Info(ctx, "cron worker started")
	return g.Wait()
}

func buildService(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, jobNames string) (*cron.Service, error) {
	env := cfg.App.Env
	if env == "" {
		env = "local"
	}
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(serviceKind+":"+env), 0)
	if err != nil {
		return nil, fmt.Errorf("cron lock: %w", err)
	}

	conn := dbClient.DB()
	notificationsRepo := notifications.NewRepository(conn)
	notifier, err := notifications.NewService(notificationsRepo)
	if err != nil {
		return nil, fmt.Errorf("notifications service: %w", err)
	}
	verificationService, err := verification.NewService(verification.ServiceParams{
		Repo:     verification.NewRepository(conn),
		Tx:       dbClient,
		Outbox:   outbox.NewService(outbox.NewRepository(conn), logg),
		Notifier: notifier,
		Logger:   logg,
		Thresholds: verification.Thresholds{
			High:   cfg.Verification.HighPriorityAfter,
			Medium: cfg.Verification.MediumPriorityAfter,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("verification service: %w", err)
	}

	var all []cron.Job
	for _, build := range []func() (cron.Job, error){
		func() (cron.Job, error) {
			return cron.NewRetentionJob(cron.RetentionJobParams{
				Name:    "admin-notification-cleanup",
				Logger:  logg,
				DB:      dbClient,
				Targets: []cron.RetentionTarget{cron.NotificationRetention(notificationsRepo, cfg.Cron.NotificationRetentionDays)},
			})
		},
		func() (cron.Job, error) {
			return cron.NewRetentionJob(cron.RetentionJobParams{
				Name:   "outbox-retention",
				Logger: logg,
				DB:     dbClient,
				Targets: []cron.RetentionTarget{
					cron.OutboxRetention(outbox.NewRepository(conn), cfg.Outbox.MaxAttempts, cfg.Outbox.RetentionDays),
					cron.DLQRetention(outbox.NewDLQRepository(), cfg.Outbox.DLQRetentionDays),
				},
			})
		},
		func() (cron.Job, error) {
			return cron.NewVerificationBacklogJob(cron.VerificationBacklogJobParams{
				Logger:        logg,
				DB:            dbClient,
				Queue:         verificationService,
				Notifications: notificationsRepo,
				Notifier:      notifier,
				Threshold:     cfg.Verification.BacklogThreshold,
			})
		},
	} {
		job, err := build()
		if err != nil {
			return nil, err
		}
		all = append(all, job)
	}

	registry, err := cron.NewRegistry(all...).Select(jobNames)
	if err != nil {
		return nil, err
	}
	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
}
