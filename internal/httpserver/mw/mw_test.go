package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/hajimi/internal/logger"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestMatchHost(t *testing.T) {
	tests := []struct {
		host, pattern string
		want          bool
	}{
		{"hajimi.example.com", "hajimi.example.com", true},
		{"a.example.com", "*.example.com", true},
		{"example.com", "*.example.com", false},
		{"evil-example.com", "*.example.com", false},
		{"other.com", "hajimi.example.com", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matchHost(tt.host, tt.pattern), "%s vs %s", tt.host, tt.pattern)
	}
}

func TestEnforceHost(t *testing.T) {
	h := EnforceHost([]string{"Hajimi.Local"}, logger.Nop())(ok)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Host = "hajimi.local:8080"
	assert.Equal(t, http.StatusNoContent, serve(h, r).Code)

	r.Host = "other.local"
	rec := serve(h, r)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"type":"error","message":"forbidden"}`, rec.Body.String())

	passthrough := EnforceHost(nil, logger.Nop())(ok)
	assert.Equal(t, http.StatusNoContent, serve(passthrough, r).Code)
}

func TestAllowOnlyCIDRS(t *testing.T) {
	h := AllowOnlyCIDRS([]string{"10.0.0.0/8"}, false, logger.Nop())(ok)

	r := httptest.NewRequest(http.MethodPost, "/api/sync", nil)
	r.RemoteAddr = "10.2.3.4:1234"
	assert.Equal(t, http.StatusNoContent, serve(h, r).Code)

	r.RemoteAddr = "192.0.2.1:1234"
	r.Header.Set("X-Forwarded-For", "10.0.0.1")
	assert.Equal(t, http.StatusForbidden, serve(h, r).Code, "forwarding headers need trustProxy")
}

func TestRateLimit(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	h := RateLimit(RateLimitConfig{Burst: 2, RefillPerIPPerMin: 60, Now: func() time.Time { return now }})(ok)

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.RemoteAddr = "192.0.2.1:1"

	assert.Equal(t, http.StatusNoContent, serve(h, r).Code)
	rec := serve(h, r)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = serve(h, r)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	other := httptest.NewRequest(http.MethodPost, "/", nil)
	other.RemoteAddr = "192.0.2.2:1"
	assert.Equal(t, http.StatusNoContent, serve(h, other).Code, "buckets are per IP")

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusNoContent, serve(h, r).Code, "one token refilled per second")
}

func TestLimiterSweepsIdleBuckets(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := newLimiter(RateLimitConfig{Burst: 1, IdleTTL: time.Minute, SweepInterval: time.Minute, Now: func() time.Time { return now }})

	l.allow("a", now)
	l.allow("b", now.Add(90*time.Second))
	assert.NotContains(t, l.buckets, "a")
	assert.Contains(t, l.buckets, "b")
}
