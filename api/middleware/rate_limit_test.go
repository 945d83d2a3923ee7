package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	pkgredis "github.com/eventprosnz/eventpros-backend/pkg/redis"
)

func newRateLimitStore(t *testing.T) (*pkgredis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	raw := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	return pkgredis.NewFromClient(raw), mr
}

func TestRouteRateLimitPerIP(t *testing.T) {
	store, _ := newRateLimitStore(t)
	policy := RoutePolicy{Name: "privacy_read", Limit: 2, Window: time.Minute, Subject: LimitByIP}
	handler := RouteRateLimit(policy, store, nil)(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/privacy/policy", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes %v", codes)
	}

	other := httptest.NewRequest(http.MethodGet, "/api/privacy/policy", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	if rec.Code != http.StatusOK {
		t.Fatalf("other ip should have its own window, got %d", rec.Code)
	}
}

func TestRouteRateLimitPerUserWindowExpires(t *testing.T) {
	store, mr := newRateLimitStore(t)
	policy := RoutePolicy{Name: "privacy_write", Limit: 1, Window: time.Minute, Subject: LimitByUser}
	handler := RouteRateLimit(policy, store, nil)(okHandler())

	send := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/privacy/policy", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req = req.WithContext(WithUserID(req.Context(), user))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := send("admin-1"); rec.Code != http.StatusOK {
		t.Fatalf("first request: got %d", rec.Code)
	}
	blocked := send("admin-1")
	if blocked.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429 got %d", blocked.Code)
	}
	if blocked.Header().Get("Retry-After") != "60" {
		t.Fatalf("expected Retry-After 60 got %q", blocked.Header().Get("Retry-After"))
	}
	if rec := send("admin-2"); rec.Code != http.StatusOK {
		t.Fatalf("different user shares the ip but not the window, got %d", rec.Code)
	}

	mr.FastForward(time.Minute + time.Second)
	if rec := send("admin-1"); rec.Code != http.StatusOK {
		t.Fatalf("expected window reset, got %d", rec.Code)
	}
}

func TestRouteRateLimitStoreFailure(t *testing.T) {
	store, mr := newRateLimitStore(t)
	mr.Close()
	policy := RoutePolicy{Name: "search_analytics", Limit: 5, Window: time.Minute, Subject: LimitByUser}
	handler := RouteRateLimit(policy, store, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/analytics/search/queries", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
}

func TestGlobalRateLimitByIP(t *testing.T) {
	handler := GlobalRateLimit(1, nil)(okHandler())

	first := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	first.RemoteAddr = "10.1.1.1:1000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: got %d", rec.Code)
	}

	second := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	second.RemoteAddr = "10.1.1.1:1001"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429 got %d", rec.Code)
	}
}
