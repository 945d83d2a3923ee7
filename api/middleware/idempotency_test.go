package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/eventprosnz/eventpros-backend/pkg/errors"
)

func idempotentPost(path, key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	return req
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload.Error.Code
}

func TestIdempotencyTTL(t *testing.T) {
	tests := []struct {
		method, path string
		want         time.Duration
		ok           bool
	}{
		{http.MethodPost, "/api/admin/verification/5b1c/approve", criticalIdempotencyTTL, true},
		{http.MethodPost, "/api/admin/verification/5b1c/reject/", criticalIdempotencyTTL, true},
		{http.MethodPost, "/api/inquiries", defaultIdempotencyTTL, true},
		{http.MethodPost, "/api/events", defaultIdempotencyTTL, true},
		{http.MethodGet, "/api/events", 0, false},
		{http.MethodPost, "/api/admin/verification/a/b/approve", 0, false},
		{http.MethodPost, "/api/auth/login", 0, false},
	}
	for _, tt := range tests {
		ttl, ok := idempotencyTTL(tt.method, tt.path)
		assert.Equal(t, tt.ok, ok, "%s %s", tt.method, tt.path)
		assert.Equal(t, tt.want, ttl, "%s %s", tt.method, tt.path)
	}
}

func TestIdempotencyPassesThroughWithoutHeader(t *testing.T) {
	store, mr := newRateLimitStore(t)
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, idempotentPost("/api/inquiries", "", `{"subject":"hi"}`))
		assert.Equal(t, http.StatusCreated, rec.Code)
	}
	assert.Equal(t, 2, calls)
	assert.Empty(t, mr.Keys())
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store, mr := newRateLimitStore(t)
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, idempotentPost("/api/events", "abc", `{"title":"gala"}`))
	require.Equal(t, http.StatusCreated, first.Code)

	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, idempotentPost("/api/events", "abc", `{"title":"gala"}`))

	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "application/json", replay.Header().Get("Content-Type"))
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, `{"ok":true}`, replay.Body.String())
	assert.Equal(t, 1, calls)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, defaultIdempotencyTTL, mr.TTL(keys[0]))
}

func TestIdempotencyRejectsDifferentBody(t *testing.T) {
	store, _ := newRateLimitStore(t)
	handler := Idempotency(store, nil)(okHandler())
	path := "/api/admin/verification/u1/reject"

	handler.ServeHTTP(httptest.NewRecorder(), idempotentPost(path, "xyz", `{"reason":"a"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, idempotentPost(path, "xyz", `{"reason":"b"}`))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, rec))
}

func TestIdempotencyRejectsConcurrentDuplicate(t *testing.T) {
	store, _ := newRateLimitStore(t)
	var inner http.Handler
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// the duplicate arrives while the first request is still running
		dup := httptest.NewRecorder()
		inner.ServeHTTP(dup, idempotentPost("/api/inquiries", "dup", `{"x":1}`))
		assert.Equal(t, http.StatusConflict, dup.Code)
		assert.Contains(t, dup.Body.String(), "in progress")
		w.WriteHeader(http.StatusCreated)
	}))
	inner = handler

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, idempotentPost("/api/inquiries", "dup", `{"x":1}`))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestIdempotencyDoesNotStoreServerErrors(t *testing.T) {
	store, mr := newRateLimitStore(t)
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, idempotentPost("/api/events", "k1", `{}`))
	assert.Equal(t, http.StatusServiceUnavailable, first.Code)
	assert.Empty(t, mr.Keys())

	retry := httptest.NewRecorder()
	handler.ServeHTTP(retry, idempotentPost("/api/events", "k1", `{}`))
	assert.Equal(t, http.StatusCreated, retry.Code)
	assert.Equal(t, 2, calls)
}

func TestIdempotencyScopesKeysPerUser(t *testing.T) {
	store, _ := newRateLimitStore(t)
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for _, user := range []string{"mgr-1", "mgr-2"} {
		req := idempotentPost("/api/events", "same-key", `{}`)
		req = req.WithContext(WithUserID(req.Context(), user))
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, 2, calls)
}
