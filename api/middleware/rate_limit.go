package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/eventprosnz/eventpros-backend/api/responses"
	pkgerrors "github.com/eventprosnz/eventpros-backend/pkg/errors"
	"github.com/eventprosnz/eventpros-backend/pkg/logger"
)

type fixedWindowStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimitSubject selects what a route limit counts against.
type RateLimitSubject int

const (
	LimitByIP RateLimitSubject = iota
	LimitByUser
)

// RoutePolicy is a fixed-window limit for one route and method.
type RoutePolicy struct {
	Name    string
	Limit   int
	Window  time.Duration
	Subject RateLimitSubject
}

func (p RoutePolicy) enabled() bool {
	return p.Limit > 0 && p.Window > 0
}

// GlobalRateLimit caps every request per client IP with an in-process sliding window.
func GlobalRateLimit(perMinute int, logg *logger.Logger) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		perMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
			if logg != nil {
				logg.Warn(logg.WithField(r.Context(), "ip", clientIP(r)), "rate_limit.global.blocked")
			}
		}),
	)
}

// RouteRateLimit enforces policy using a Redis fixed window shared by all API
// instances. Unauthenticated callers of a per-user policy are counted by IP.
func RouteRateLimit(policy RoutePolicy, store fixedWindowStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			subject := "ip:" + clientIP(r)
			if policy.Subject == LimitByUser {
				if userID := UserIDFromContext(ctx); userID != "" {
					subject = "user:" + userID
				}
			}

			allowed, count, err := store.FixedWindowAllow(ctx, policy.Name+":"+subject, int64(policy.Limit), policy.Window)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			if !allowed {
				rejectRateLimited(w, r, logg, policy.Window, "rate_limit.route.blocked", map[string]any{
					"policy":   policy.Name,
					"subject":  subject,
					"attempts": count,
					"limit":    policy.Limit,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rejectRateLimited(w http.ResponseWriter, r *http.Request, logg *logger.Logger, window time.Duration, msg string, fields map[string]any) {
	if logg != nil {
		logg.Warn(logg.WithFields(r.Context(), fields), msg)
	}
	if window > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
	}
	responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
}
