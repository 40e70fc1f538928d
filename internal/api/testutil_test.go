package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/joestump/joe-pages/internal/api"
	"github.com/joestump/joe-pages/internal/auth"
	"github.com/joestump/joe-pages/internal/pages"
	"github.com/joestump/joe-pages/internal/store"
	"github.com/joestump/joe-pages/internal/testutil"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// testEnv holds the stores and helpers needed for API integration tests.
type testEnv struct {
	Router    http.Handler
	PageStore *store.PageStore
	UserStore *store.UserStore
	Tokens    *auth.Tokens
}

type envOption func(*api.Deps)

func withLimiter(rl *api.RateLimiter) envOption {
	return func(d *api.Deps) { d.Limiter = rl }
}

// newTestEnv creates an in-memory SQLite test database, runs migrations,
// and wires up the full API router with real stores.
func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	db := testutil.NewTestDB(t)

	ps := store.NewPageStore(db)
	us := store.NewUserStore(db)
	tokens, err := auth.NewTokens(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}

	deps := api.Deps{
		Auth:      auth.NewMiddleware(tokens),
		Tokens:    tokens,
		Cookies:   auth.CookiePolicy{Mode: auth.SecureAuto, Lifetime: time.Hour},
		Pages:     pages.NewService(ps, nil),
		PageStore: ps,
		UserStore: us,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	return &testEnv{
		Router:    api.NewAPIRouter(deps),
		PageStore: ps,
		UserStore: us,
		Tokens:    tokens,
	}
}

// seedUser creates a password account and returns it with a valid token.
func seedUser(t *testing.T, env *testEnv, email string) (*store.User, string) {
	t.Helper()
	hash, err := auth.HashPassword("secret1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u, err := env.UserStore.Create(context.Background(), "Test User", email, hash)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	token, err := env.Tokens.Issue(auth.Identity{UserID: u.ID, Email: u.Email})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return u, token
}

// seedPage stores a page directly, bypassing the API.
func seedPage(t *testing.T, env *testEnv, ownerID int64, slug string) *store.Page {
	t.Helper()
	p, err := env.PageStore.Create(context.Background(), ownerID, store.PageFields{Slug: slug, Title: "Seeded"})
	if err != nil {
		t.Fatalf("seed page: %v", err)
	}
	return p
}

// authRequest adds a Bearer token to the request.
func authRequest(r *http.Request, token string) *http.Request {
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

// do serves a request against the router. body is JSON-encoded when non-nil.
func (env *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		authRequest(req, token)
	}
	rec := httptest.NewRecorder()
	env.Router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %T: %v (body %q)", v, err, rec.Body.String())
	}
	return v
}
