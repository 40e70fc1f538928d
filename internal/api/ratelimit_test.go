package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/joestump/joe-pages/internal/api"
	"github.com/joestump/joe-pages/internal/auth"
)

func newRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

func serve(env *testEnv, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.Router.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiterStopReleasesGoroutine(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rl := api.NewRateLimiter(api.RateLimiterConfig{PerMinute: 60, Burst: 1, CleanupInterval: time.Millisecond})
	rl.Stop()
	rl.Stop()
}

func TestRateLimiterRequiresIdentity(t *testing.T) {
	rl := api.NewRateLimiter(api.RateLimiterConfig{PerMinute: 60, Burst: 1})
	defer rl.Stop()

	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, newRequest(http.MethodGet, "/"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", rec.Code)
	}

	req := newRequest(http.MethodGet, "/")
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: 7}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first status = %d, want 204", rec.Code)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q, want 1", got)
	}
}

func TestRateLimiterCleanupDropsIdleBuckets(t *testing.T) {
	rl := api.NewRateLimiter(api.RateLimiterConfig{PerMinute: 60, Burst: 5, CleanupInterval: 10 * time.Millisecond})
	defer rl.Stop()

	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := newRequest(http.MethodGet, "/")
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: 1}))
	h.ServeHTTP(httptest.NewRecorder(), req)
	if rl.Len() != 1 {
		t.Fatalf("Len = %d, want 1", rl.Len())
	}

	deadline := time.Now().Add(2 * time.Second)
	for rl.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("idle bucket was never removed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
