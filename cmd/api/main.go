package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/eventprosnz/eventpros-backend/api/routes"
	"github.com/eventprosnz/eventpros-backend/internal/analytics"
	"github.com/eventprosnz/eventpros-backend/internal/auth"
	"github.com/eventprosnz/eventpros-backend/internal/events"
	"github.com/eventprosnz/eventpros-backend/internal/inquiries"
	"github.com/eventprosnz/eventpros-backend/internal/notifications"
	"github.com/eventprosnz/eventpros-backend/internal/onboarding"
	"github.com/eventprosnz/eventpros-backend/internal/privacy"
	"github.com/eventprosnz/eventpros-backend/internal/users"
	"github.com/eventprosnz/eventpros-backend/internal/verification"
	"github.com/eventprosnz/eventpros-backend/pkg/auth/session"
	"github.com/eventprosnz/eventpros-backend/pkg/cache"
	"github.com/eventprosnz/eventpros-backend/pkg/config"
	"github.com/eventprosnz/eventpros-backend/pkg/db"
	"github.com/eventprosnz/eventpros-backend/pkg/logger"
	"github.com/eventprosnz/eventpros-backend/pkg/metrics"
	"github.com/eventprosnz/eventpros-backend/pkg/migrate"
	"github.com/eventprosnz/eventpros-backend/pkg/outbox"
	"github.com/eventprosnz/eventpros-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	dashboardCache, err := cache.NewJSON(redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create cache", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	domainMetrics := metrics.NewDomainMetrics(registry)

	conn := dbClient.DB()
	usersRepo := users.NewRepository(conn)
	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)

	notificationsService, err := notifications.NewService(notifications.NewRepository(conn))
	mustService(logg, "notifications", err)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	mustService(logg, "auth", err)

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		Users:          usersRepo,
		PasswordConfig: cfg.Password,
	})
	mustService(logg, "register", err)

	verificationService, err := verification.NewService(verification.ServiceParams{
		Repo:     verification.NewRepository(conn),
		Tx:       dbClient,
		Outbox:   outboxService,
		Notifier: notificationsService,
		Logger:   logg,
		Metrics:  domainMetrics,
		Thresholds: verification.Thresholds{
			High:   cfg.Verification.HighPriorityAfter,
			Medium: cfg.Verification.MediumPriorityAfter,
		},
	})
	mustService(logg, "verification", err)

	onboardingService, err := onboarding.NewService(onboarding.ServiceParams{
		Repo:         onboarding.NewRepository(conn),
		Tx:           dbClient,
		Outbox:       outboxService,
		Notifier:     notificationsService,
		Verification: verificationService,
		Logger:       logg,
	})
	mustService(logg, "onboarding", err)

	eventsRepo := events.NewRepository(conn)
	eventsService, err := events.NewService(events.ServiceParams{
		Repo:         eventsRepo,
		Tx:           dbClient,
		Outbox:       outboxService,
		Cache:        dashboardCache,
		DashboardTTL: cfg.Cache.DashboardTTL,
		Logger:       logg,
		Metrics:      domainMetrics,
	})
	mustService(logg, "events", err)

	inquiriesService, err := inquiries.NewService(inquiries.ServiceParams{
		Repo:        inquiries.NewRepository(conn),
		Tx:          dbClient,
		Outbox:      outboxService,
		Contractors: usersRepo,
		Events:      eventsRepo,
		Senders:     usersRepo,
		Logger:      logg,
		Metrics:     domainMetrics,
	})
	mustService(logg, "inquiries", err)

	privacyService, err := privacy.NewService(privacy.ServiceParams{
		Repo:   privacy.NewRepository(conn),
		Tx:     dbClient,
		Outbox: outboxService,
		Logger: logg,
	})
	mustService(logg, "privacy", err)

	analyticsService, err := analytics.NewService(analytics.NewRepository(conn))
	mustService(logg, "analytics", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(cfg, logg, routes.Deps{
			DB:            dbClient,
			Redis:         redisClient,
			Sessions:      sessionManager,
			Metrics:       metrics.NewHTTPMetrics(registry),
			Gatherer:      registry,
			Auth:          authService,
			Register:      registerService,
			Verification:  verificationService,
			Notifications: notificationsService,
			Onboarding:    onboardingService,
			Inquiries:     inquiriesService,
			Events:        eventsService,
			Privacy:       privacyService,
			Analytics:     analyticsService,
		}),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

func mustService(logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	ctx := logg.WithField(context.Background(), "service", name)
	logg.Error(ctx, "failed to create service", err)
	os.Exit(1)
}
