package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joestump/joe-pages/internal/api"
	"github.com/joestump/joe-pages/internal/auth"
	"github.com/joestump/joe-pages/internal/client"
	"github.com/joestump/joe-pages/internal/handler"
	"github.com/joestump/joe-pages/internal/pages"
	"github.com/joestump/joe-pages/internal/store"
	"github.com/joestump/joe-pages/internal/testutil"
)

// newServer starts the full joe-pages router over an in-memory database.
func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	db := testutil.NewTestDB(t)
	ps := store.NewPageStore(db)
	tokens, err := auth.NewTokens([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
	require.NoError(t, err)

	srv := httptest.NewServer(handler.NewRouter(handler.Deps{
		API: api.Deps{
			Auth:      auth.NewMiddleware(tokens),
			Tokens:    tokens,
			Cookies:   auth.CookiePolicy{Mode: auth.SecureAuto, Lifetime: time.Hour},
			Pages:     pages.NewService(ps, nil),
			PageStore: ps,
			UserStore: store.NewUserStore(db),
		},
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, srv *httptest.Server, opts ...client.Option) *client.Client {
	t.Helper()
	hc := &http.Client{Transport: &http.Transport{}}
	t.Cleanup(hc.CloseIdleConnections)
	return client.New(srv.URL, append([]client.Option{client.WithHTTPClient(hc)}, opts...)...)
}

func TestAccountLifecycle(t *testing.T) {
	srv := newServer(t)
	c := newClient(t, srv)
	ctx := context.Background()

	s, err := c.Register(ctx, "Ana", "ana@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, s.Token, c.Token())

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, s.ID, me.ID)

	_, err = c.Register(ctx, "Ana", "ana@example.com", "secret1")
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "EMAIL_TAKEN", apiErr.Code)

	require.NoError(t, c.Logout(ctx))
	assert.Empty(t, c.Token())
	_, err = c.Me(ctx)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	_, err = c.Login(ctx, "ana@example.com", "wrong-password")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid credentials", apiErr.Message)

	_, err = c.Login(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)
}

func TestPagesRoundTrip(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	ana := newClient(t, srv)
	bea := newClient(t, srv)
	_, err := ana.Register(ctx, "Ana", "ana@example.com", "secret1")
	require.NoError(t, err)
	_, err = bea.Register(ctx, "Bea", "bea@example.com", "secret1")
	require.NoError(t, err)

	p, err := ana.SavePage(ctx, client.PageInput{Slug: "ana", Title: "Ana", InstagramURL: "ana"})
	require.NoError(t, err)
	assert.Equal(t, "https://instagram.com/ana", p.InstagramURL)

	v, err := bea.CheckAvailability(ctx, "ana", &p.ID)
	require.NoError(t, err)
	assert.False(t, v.Available)
	assert.Equal(t, "address already in use.", v.Message)

	v, err = ana.CheckAvailability(ctx, "ana", &p.ID)
	require.NoError(t, err)
	assert.True(t, v.Available)

	list, err := ana.MyPages(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	mine, err := ana.MyPage(ctx, "ana")
	require.NoError(t, err)
	require.NotNil(t, mine)
	assert.Equal(t, p.ID, mine.ID)

	none, err := bea.MyPage(ctx, "ana")
	require.NoError(t, err)
	assert.Nil(t, none)

	pub, err := newClient(t, srv).PublicPage(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, "Ana", pub.Title)
}

func TestSlugFieldAgainstServer(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	ana := newClient(t, srv)
	bea := newClient(t, srv)
	_, err := ana.Register(ctx, "Ana", "ana@example.com", "secret1")
	require.NoError(t, err)
	_, err = bea.Register(ctx, "Bea", "bea@example.com", "secret1")
	require.NoError(t, err)
	_, err = ana.SavePage(ctx, client.PageInput{Slug: "maria"})
	require.NoError(t, err)

	f := client.NewSlugField(bea)
	f.SetInput("Maria")
	_, err = f.Submit(ctx, bea.Saver(client.PageInput{Title: "Bea"}))
	var unavailable *client.UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "address already in use.", unavailable.Message)

	f.SetInput("Maria Bea")
	got, err := f.Submit(ctx, bea.Saver(client.PageInput{Title: "Bea"}))
	require.NoError(t, err)
	assert.Equal(t, "maria-bea", got)
	st, _ := f.State()
	assert.Equal(t, client.StateAvailable, st)
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c := newClient(t, srv, client.WithTimeout(50*time.Millisecond), client.WithToken("abc"))
	_, err := c.CheckAvailability(context.Background(), "maria", nil)
	require.ErrorIs(t, err, client.ErrTimeout)

	var apiErr *client.APIError
	assert.False(t, errors.As(err, &apiErr), "a timeout is not a server verdict")
}

func TestNonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	_, err := newClient(t, srv).Me(context.Background())
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "bad gateway", apiErr.Message)
}
