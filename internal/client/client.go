// Package client is a typed HTTP client for the joe-pages API and the slug
// field state machine editors drive with it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultTimeout bounds every request made by a Client.
const DefaultTimeout = 8 * time.Second

// ErrTimeout is returned when a request exceeds the client timeout. It is a
// network failure, never a verdict about the slug.
var ErrTimeout = errors.New("request timed out")

// APIError is a non-2xx response decoded from the server's error body.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api: %d %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Message)
}

// User is an account as returned by the API.
type User struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

// Session is the result of Register and Login.
type Session struct {
	User
	Token string `json:"token"`
}

// Availability is the server's verdict on a slug.
type Availability struct {
	Available bool   `json:"available"`
	Message   string `json:"message,omitempty"`
}

// Page is an owner's view of a page.
type Page struct {
	ID           int64     `json:"id"`
	Slug         string    `json:"slug"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	InstagramURL string    `json:"instagram_url"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PublicPage is the anonymous view of a page.
type PublicPage struct {
	Slug         string `json:"slug"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	InstagramURL string `json:"instagram_url"`
}

// PageInput is the body of SavePage. A nil ID creates a page.
type PageInput struct {
	ID           *int64 `json:"id,omitempty"`
	Slug         string `json:"slug"`
	Title        string `json:"title,omitempty"`
	Description  string `json:"description,omitempty"`
	InstagramURL string `json:"instagram_url,omitempty"`
}

// Client talks to a joe-pages server. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken authenticates requests with an existing identity token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New returns a Client for the server at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the identity token currently attached to requests.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Register creates an account and keeps its token for later requests.
func (c *Client) Register(ctx context.Context, name, email, password string) (*Session, error) {
	var s Session
	body := map[string]string{"name": name, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", nil, body, &s); err != nil {
		return nil, err
	}
	c.setToken(s.Token)
	return &s, nil
}

// Login signs in and keeps the token for later requests.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, body, &s); err != nil {
		return nil, err
	}
	c.setToken(s.Token)
	return &s, nil
}

// Logout expires the server cookie and forgets the local token.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil, nil); err != nil {
		return err
	}
	c.setToken("")
	return nil
}

// Me returns the signed-in account.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// CheckAvailability asks whether the caller may use slug. pageID names the
// page being edited, if any.
func (c *Client) CheckAvailability(ctx context.Context, slug string, pageID *int64) (Availability, error) {
	q := url.Values{"slug": {slug}}
	if pageID != nil {
		q.Set("pageId", strconv.FormatInt(*pageID, 10))
	}
	var a Availability
	err := c.do(ctx, http.MethodGet, "/api/pages/availability", q, nil, &a)
	return a, err
}

// SavePage creates or updates a page.
func (c *Client) SavePage(ctx context.Context, in PageInput) (*Page, error) {
	var p Page
	if err := c.do(ctx, http.MethodPost, "/api/pages", nil, in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Saver returns a SaveFunc that saves in with the slug chosen by a SlugField.
func (c *Client) Saver(in PageInput) SaveFunc {
	return func(ctx context.Context, slug string) (string, error) {
		in.Slug = slug
		p, err := c.SavePage(ctx, in)
		if err != nil {
			return "", err
		}
		return p.Slug, nil
	}
}

// MyPages lists the caller's pages, most recently updated first.
func (c *Client) MyPages(ctx context.Context) ([]Page, error) {
	var list []Page
	if err := c.do(ctx, http.MethodGet, "/api/pages/me", nil, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// MyPage returns the caller's page at slug, or nil when the caller owns no
// such page.
func (c *Client) MyPage(ctx context.Context, slug string) (*Page, error) {
	var p *Page
	if err := c.do(ctx, http.MethodGet, "/api/pages/me", url.Values{"slug": {slug}}, nil, &p); err != nil {
		return nil, err
	}
	return p, nil
}

// PublicPage fetches the public view of a page.
func (c *Client) PublicPage(ctx context.Context, slug string) (*PublicPage, error) {
	var p PublicPage
	if err := c.do(ctx, http.MethodGet, "/api/pages", url.Values{"slug": {slug}}, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, in, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s %s", ErrTimeout, method, path)
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s %s", ErrTimeout, method, path)
		}
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
		apiErr.Code = body.Code
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	return apiErr
}
