package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serranodev/quickcart-backend/pkg/config"
)

type fakeLimitStore struct {
	counts map[string]int64
	err    error
}

func newFakeLimitStore() *fakeLimitStore {
	return &fakeLimitStore{counts: map[string]int64{}}
}

func (s *fakeLimitStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.counts[key]++
	return s.counts[key], nil
}

func (s *fakeLimitStore) RateLimitKey(scope string) string {
	return "qc:counter:rl:" + scope
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthRateLimitBlocksAfterLimit(t *testing.T) {
	t.Parallel()

	store := newFakeLimitStore()
	cfg := config.RateLimitConfig{AuthPerIP: 2, AuthWindow: time.Minute}
	handler := AuthRateLimit(cfg, store, testMiddlewareLogger())(okHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = "203.0.113.9:51000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = "203.0.113.9:51000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestAuthRateLimitIsolatesClients(t *testing.T) {
	t.Parallel()

	store := newFakeLimitStore()
	cfg := config.RateLimitConfig{AuthPerIP: 1, AuthWindow: time.Minute}
	handler := AuthRateLimit(cfg, store, testMiddlewareLogger())(okHandler())

	first := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	first.RemoteAddr = "203.0.113.9:51000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	require.Equal(t, http.StatusNoContent, rec.Code)

	other := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	other.RemoteAddr = "198.51.100.14:43210"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAuthRateLimitHonorsForwardedFor(t *testing.T) {
	t.Parallel()

	store := newFakeLimitStore()
	cfg := config.RateLimitConfig{AuthPerIP: 1, AuthWindow: time.Minute}
	handler := AuthRateLimit(cfg, store, testMiddlewareLogger())(okHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("X-Forwarded-For", "203.0.113.50, 10.0.0.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if i == 0 {
			require.Equal(t, http.StatusNoContent, rec.Code)
		} else {
			require.Equal(t, http.StatusTooManyRequests, rec.Code)
		}
	}

	if _, ok := store.counts["qc:counter:rl:auth:203.0.113.50"]; !ok {
		t.Fatalf("expected counter keyed by forwarded client ip, got %v", store.counts)
	}
}

func TestAuthRateLimitDisabledWithoutStoreOrLimit(t *testing.T) {
	t.Parallel()

	cfg := config.RateLimitConfig{AuthPerIP: 1, AuthWindow: time.Minute}
	handler := AuthRateLimit(cfg, nil, testMiddlewareLogger())(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	zero := config.RateLimitConfig{}
	handler = AuthRateLimit(zero, newFakeLimitStore(), testMiddlewareLogger())(okHandler())
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAuthRateLimitStoreFailure(t *testing.T) {
	t.Parallel()

	store := newFakeLimitStore()
	store.err = errors.New("redis down")
	cfg := config.RateLimitConfig{AuthPerIP: 5, AuthWindow: time.Minute}
	handler := AuthRateLimit(cfg, store, testMiddlewareLogger())(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
