package api

import (
	"time"

	"github.com/joestump/joe-pages/internal/store"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// --- Page types ---

// AvailabilityResponse is the verdict for GET /pages/availability.
type AvailabilityResponse struct {
	Available bool   `json:"available"`
	Message   string `json:"message,omitempty"`
}

// UpsertPageRequest is the request body for POST /pages. A missing or zero
// id creates a page.
type UpsertPageRequest struct {
	ID           *int64 `json:"id,omitempty"`
	Slug         string `json:"slug"`
	Title        string `json:"title,omitempty"`
	Description  string `json:"description,omitempty"`
	InstagramURL string `json:"instagram_url,omitempty"`
}

// PageResponse is an owner's view of a page.
type PageResponse struct {
	ID           int64     `json:"id"`
	Slug         string    `json:"slug"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	InstagramURL string    `json:"instagram_url"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PublicPageResponse is the anonymous view of a page.
type PublicPageResponse struct {
	Slug         string `json:"slug"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	InstagramURL string `json:"instagram_url"`
}

func toPageResponse(p *store.Page) PageResponse {
	return PageResponse{
		ID:           p.ID,
		Slug:         p.Slug,
		Title:        p.Title,
		Description:  p.Description,
		InstagramURL: p.SocialLink,
		UpdatedAt:    p.UpdatedAt,
	}
}

func toPublicPageResponse(p *store.Page) PublicPageResponse {
	return PublicPageResponse{
		Slug:         p.Slug,
		Title:        p.Title,
		Description:  p.Description,
		InstagramURL: p.SocialLink,
	}
}

// --- Account types ---

// RegisterRequest is the request body for POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the request body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is the JSON representation of an account.
type UserResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

// SessionResponse is returned by register and login. Token is the same
// value set in the token cookie, for clients that send Bearer headers.
type SessionResponse struct {
	UserResponse
	Token string `json:"token"`
}

// OKResponse acknowledges an action with no other payload.
type OKResponse struct {
	OK bool `json:"ok"`
}

func toUserResponse(u *store.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, IsAdmin: u.IsAdmin}
}
