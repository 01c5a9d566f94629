package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"perfeval/internal/domain/auth"
)

func noContent() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

type caller struct {
	userID string
	addr   string
}

func (c caller) send(h http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = c.addr
	if c.userID != "" {
		req = req.WithContext(WithUser(context.Background(), auth.UserContext{UserID: c.userID}))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitKeys(t *testing.T) {
	tests := []struct {
		name   string
		first  caller
		second caller
	}{
		{name: "same actor from two addresses", first: caller{userID: "u-1", addr: "198.51.100.11:2222"}, second: caller{userID: "u-1", addr: "198.51.100.12:3333"}},
		{name: "anonymous falls back to ip", first: caller{addr: "203.0.113.10:4444"}, second: caller{addr: "203.0.113.10:5555"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			limited := RateLimit(1, time.Minute)(noContent())
			require.Equal(t, http.StatusNoContent, tc.first.send(limited, http.MethodGet, "/api/v1/performance/kpis").Code)
			require.Equal(t, http.StatusTooManyRequests, tc.second.send(limited, http.MethodGet, "/api/v1/performance/kpis").Code)
		})
	}

	limited := RateLimit(1, time.Minute)(noContent())
	require.Equal(t, http.StatusNoContent, caller{userID: "u-1", addr: "198.51.100.20:1"}.send(limited, http.MethodGet, "/api/v1/me").Code)
	require.Equal(t, http.StatusNoContent, caller{userID: "u-2", addr: "198.51.100.20:1"}.send(limited, http.MethodGet, "/api/v1/me").Code)
}

func TestRateLimitCustomKeyFunc(t *testing.T) {
	limited := RateLimit(1, time.Minute, WithKeyFunc(func(r *http.Request) string {
		return r.Header.Get("X-Tenant")
	}))(noContent())

	send := func(tenant string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/performance/periods", nil)
		req.RemoteAddr = "192.0.2.50:1000"
		req.Header.Set("X-Tenant", tenant)
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusNoContent, send("acme"))
	require.Equal(t, http.StatusNoContent, send("globex"))
	require.Equal(t, http.StatusTooManyRequests, send("acme"))
	// An empty key is charged to the client address.
	require.Equal(t, http.StatusNoContent, send(""))
	require.Equal(t, http.StatusTooManyRequests, send(""))
}

func TestRateLimitWindowReset(t *testing.T) {
	limited := RateLimit(1, 40*time.Millisecond)(noContent())
	c := caller{addr: "192.0.2.20:1111"}

	require.Equal(t, http.StatusNoContent, c.send(limited, http.MethodGet, "/api/v1/performance/periods").Code)
	require.Equal(t, http.StatusTooManyRequests, c.send(limited, http.MethodGet, "/api/v1/performance/periods").Code)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, http.StatusNoContent, c.send(limited, http.MethodGet, "/api/v1/performance/periods").Code)
}

func TestRateLimitHeaders(t *testing.T) {
	limited := RateLimit(2, time.Minute)(noContent())
	c := caller{addr: "192.0.2.30:1234"}

	rec := c.send(limited, http.MethodGet, "/api/v1/me")
	require.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))
	require.Empty(t, rec.Header().Get("Retry-After"))

	c.send(limited, http.MethodGet, "/api/v1/me")
	rec = c.send(limited, http.MethodGet, "/api/v1/me")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	require.Contains(t, rec.Body.String(), `"rate_limited"`)
}

func TestSensitiveMutationsTripBeforeGeneralLimit(t *testing.T) {
	// Same ordering as the /api/v1 group: general bucket outside, sensitive inside.
	chain := RateLimit(4, time.Minute)(SensitiveMutationRateLimit(4, time.Minute)(noContent()))
	hr := caller{userID: "hr-1", addr: "198.51.100.41:9999"}

	require.Equal(t, http.StatusNoContent, hr.send(chain, http.MethodPost, "/api/v1/performance/reviews").Code)
	require.Equal(t, http.StatusNoContent, hr.send(chain, http.MethodPost, "/api/v1/performance/periods/p1/close").Code)

	rec := hr.send(chain, http.MethodPost, "/api/v1/performance/periods/p1/activate")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))

	// Reads and catalog edits still have general budget left.
	require.Equal(t, http.StatusNoContent, hr.send(chain, http.MethodGet, "/api/v1/performance/reviews").Code)

	rec = hr.send(chain, http.MethodPut, "/api/v1/performance/kpis/k1")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "4", rec.Header().Get("X-RateLimit-Limit"))

	other := caller{userID: "hr-2", addr: "198.51.100.41:9999"}
	require.Equal(t, http.StatusNoContent, other.send(chain, http.MethodPost, "/api/v1/performance/reviews").Code)
}

func TestSensitiveMutationLimitIgnoresReads(t *testing.T) {
	limited := SensitiveMutationRateLimit(2, time.Minute)(noContent())
	c := caller{userID: "mgr-1", addr: "198.51.100.40:8888"}

	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusNoContent, c.send(limited, http.MethodGet, "/api/v1/performance/reviews/r1").Code, "read %d", i+1)
	}
	require.Equal(t, http.StatusNoContent, c.send(limited, http.MethodPost, "/api/v1/performance/reviews").Code)
	require.Equal(t, http.StatusTooManyRequests, c.send(limited, http.MethodPost, "/api/v1/performance/reviews").Code)
}

func TestRateLimiterEvictsExpiredBucketsPastThreshold(t *testing.T) {
	rl := newRateLimiter(5, time.Minute, func(r *http.Request) string { return r.Header.Get("X-Key") })
	past := time.Now().Add(-time.Second)
	for i := 0; i < 5000; i++ {
		rl.clients[fmt.Sprintf("stale-%d", i)] = &rateBucket{count: 1, reset: past}
	}
	rl.clients["live"] = &rateBucket{count: 1, reset: time.Now().Add(time.Minute)}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("X-Key", "fresh")
	require.True(t, rl.enforce(httptest.NewRecorder(), req))

	require.Len(t, rl.clients, 2)
	require.Contains(t, rl.clients, "live")
	require.Contains(t, rl.clients, "fresh")
}

func TestRateLimiterKeepsBucketsBelowThreshold(t *testing.T) {
	rl := newRateLimiter(5, time.Minute, func(r *http.Request) string { return r.Header.Get("X-Key") })
	past := time.Now().Add(-time.Second)
	for i := 0; i < 10; i++ {
		rl.clients[fmt.Sprintf("stale-%d", i)] = &rateBucket{count: 1, reset: past}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("X-Key", "stale-3")
	require.True(t, rl.enforce(httptest.NewRecorder(), req))

	require.Len(t, rl.clients, 10)
	require.Equal(t, 1, rl.clients["stale-3"].count)
}

func TestIsSensitiveMutation(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   bool
	}{
		{http.MethodPost, "/api/v1/performance/reviews", true},
		{http.MethodPost, "/api/v1/performance/periods/abc/activate", true},
		{http.MethodPost, "/api/v1/performance/periods/abc/close/", true},
		{http.MethodPost, "/api/v1/performance/periods", false},
		{http.MethodGet, "/api/v1/performance/reviews", false},
		{http.MethodPut, "/api/v1/performance/kpis/k1", false},
		{http.MethodPost, "/api/v1/performance/kpis/k1/activate", false},
	}
	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			require.Equal(t, tc.want, isSensitiveMutation(req))
		})
	}
}
