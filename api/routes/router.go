package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/eventprosnz/eventpros-backend/api/controllers"
	"github.com/eventprosnz/eventpros-backend/api/middleware"
	"github.com/eventprosnz/eventpros-backend/internal/analytics"
	"github.com/eventprosnz/eventpros-backend/internal/auth"
	"github.com/eventprosnz/eventpros-backend/internal/events"
	"github.com/eventprosnz/eventpros-backend/internal/inquiries"
	"github.com/eventprosnz/eventpros-backend/internal/notifications"
	"github.com/eventprosnz/eventpros-backend/internal/onboarding"
	"github.com/eventprosnz/eventpros-backend/internal/privacy"
	"github.com/eventprosnz/eventpros-backend/internal/verification"
	"github.com/eventprosnz/eventpros-backend/pkg/auth/session"
	"github.com/eventprosnz/eventpros-backend/pkg/config"
	"github.com/eventprosnz/eventpros-backend/pkg/enums"
	"github.com/eventprosnz/eventpros-backend/pkg/logger"
	"github.com/eventprosnz/eventpros-backend/pkg/metrics"
	"github.com/eventprosnz/eventpros-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs. Metrics and Gatherer may be nil.
type Deps struct {
	DB       controllers.Pinger
	Redis    *redis.Client
	Sessions session.AccessSessionChecker
	Metrics  *metrics.HTTPMetrics
	Gatherer prometheus.Gatherer

	Auth          auth.Service
	Register      auth.RegisterService
	Verification  verification.Service
	Notifications notifications.Service
	Onboarding    onboarding.Service
	Inquiries     inquiries.Service
	Events        events.Service
	Privacy       privacy.Service
	Analytics     analytics.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.GlobalRateLimit(cfg.RateLimit.GlobalPerMinute, logg),
	)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	privacyRead := middleware.RoutePolicy{
		Name:    "privacy_read",
		Limit:   cfg.RateLimit.PrivacyReadLimit,
		Window:  cfg.RateLimit.Window,
		Subject: middleware.LimitByIP,
	}
	privacyWrite := middleware.RoutePolicy{
		Name:    "privacy_write",
		Limit:   cfg.RateLimit.PrivacyWriteLimit,
		Window:  cfg.RateLimit.Window,
		Subject: middleware.LimitByUser,
	}
	searchReport := middleware.RoutePolicy{
		Name:    "search_analytics",
		Limit:   cfg.RateLimit.SearchAnalyticsRead,
		Window:  cfg.RateLimit.Window,
		Subject: middleware.LimitByUser,
	}

	readiness := map[string]controllers.Pinger{}
	if deps.DB != nil {
		readiness["postgres"] = deps.DB
	}
	if deps.Redis != nil {
		readiness["redis"] = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	// idempotency keys are scoped per caller, so they run after Auth
	authenticated := middleware.Auth(cfg.JWT, deps.Sessions, logg)
	if deps.Redis != nil {
		verify, idempotent := authenticated, middleware.Idempotency(deps.Redis, logg)
		authenticated = func(next http.Handler) http.Handler { return verify(idempotent(next)) }
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).Post("/register", controllers.AuthRegister(deps.Register, deps.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
		r.With(authenticated).Post("/logout", controllers.AuthLogout(deps.Auth, logg))
	})

	r.Route("/api/privacy/policy", func(r chi.Router) {
		r.With(middleware.RouteRateLimit(privacyRead, deps.Redis, logg)).Get("/", controllers.GetPrivacyPolicy(deps.Privacy, logg))
		r.Group(func(r chi.Router) {
			r.Use(authenticated)
			r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
			r.Use(middleware.RouteRateLimit(privacyWrite, deps.Redis, logg))
			r.Post("/", controllers.CreatePrivacyPolicy(deps.Privacy, logg))
			r.Put("/", controllers.UpdatePrivacyPolicy(deps.Privacy, logg))
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(authenticated)
		r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))

		r.Route("/verification", func(r chi.Router) {
			r.Get("/queue", controllers.AdminVerificationQueue(deps.Verification, logg))
			r.Get("/notifications", controllers.AdminListNotifications(deps.Notifications, logg))
			r.Post("/notifications", controllers.AdminMarkNotificationsRead(deps.Notifications, logg))
			r.Get("/{userId}", controllers.AdminVerificationDetail(deps.Verification, logg))
			r.Post("/{userId}/approve", controllers.AdminVerificationDecide(deps.Verification, enums.VerificationActionApprove, logg))
			r.Post("/{userId}/reject", controllers.AdminVerificationDecide(deps.Verification, enums.VerificationActionReject, logg))
		})
	})

	r.Route("/api/analytics/search/queries", func(r chi.Router) {
		r.Use(authenticated)
		r.Post("/", controllers.RecordSearchQuery(deps.Analytics, logg))
		r.With(
			middleware.RequireRole(logg, enums.UserRoleAdmin),
			middleware.RouteRateLimit(searchReport, deps.Redis, logg),
		).Get("/", controllers.SearchQueryReport(deps.Analytics, logg))
	})

	r.Route("/api/inquiries", func(r chi.Router) {
		r.Use(authenticated)
		r.Get("/", controllers.ListInquiries(deps.Inquiries, logg))
		r.With(middleware.RequireRole(logg, enums.UserRoleEventManager)).Post("/", controllers.CreateInquiry(deps.Inquiries, logg))
		r.Route("/templates", func(r chi.Router) {
			r.Get("/", controllers.ListInquiryTemplates(deps.Inquiries, logg))
			r.Post("/", controllers.CreateInquiryTemplate(deps.Inquiries, logg))
		})
	})

	r.Route("/api/events", func(r chi.Router) {
		r.Use(authenticated)
		r.Use(middleware.RequireRole(logg, enums.UserRoleEventManager))
		r.Get("/", controllers.ListEvents(deps.Events, logg))
		r.Post("/", controllers.CreateEvent(deps.Events, logg))
		r.Get("/dashboard", controllers.EventDashboard(deps.Events, logg))
	})

	r.Route("/api/business-profile/me", func(r chi.Router) {
		r.Use(authenticated)
		r.Use(middleware.RequireRole(logg, enums.UserRoleContractor, enums.UserRoleEventManager))
		r.Get("/", controllers.GetBusinessProfile(deps.Onboarding, logg))
		r.Put("/", controllers.UpsertBusinessProfile(deps.Onboarding, logg))
	})

	r.Route("/api/onboarding/contractor", func(r chi.Router) {
		r.Use(authenticated)
		r.Use(middleware.RequireRole(logg, enums.UserRoleContractor))
		r.Put("/step", controllers.SaveOnboardingStep(deps.Onboarding, logg))
		r.Post("/submit", controllers.SubmitContractorOnboarding(deps.Onboarding, logg))
		r.Get("/status", controllers.ContractorOnboardingStatus(deps.Onboarding, logg))
	})

	return r
}
