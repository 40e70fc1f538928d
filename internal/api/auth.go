package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/joestump/joe-pages/internal/auth"
	"github.com/joestump/joe-pages/internal/metrics"
	"github.com/joestump/joe-pages/internal/store"
)

const minPasswordLength = 6

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// authAPIHandler provides password accounts and token issuance.
type authAPIHandler struct {
	users   *store.UserStore
	tokens  *auth.Tokens
	cookies auth.CookiePolicy
	logger  *zap.Logger
}

func registerAuthRoutes(public, private chi.Router, us *store.UserStore, tokens *auth.Tokens, cookies auth.CookiePolicy, logger *zap.Logger) {
	h := &authAPIHandler{users: us, tokens: tokens, cookies: cookies, logger: logger}
	public.Post("/auth/register", h.Register)
	public.Post("/auth/login", h.Login)
	public.Post("/auth/logout", h.Logout)
	private.Get("/auth/me", h.Me)
}

// Register creates a password account and signs it in.
// POST /api/auth/register
//
// @Summary      Register
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      RegisterRequest  true  "Account"
// @Success      201   {object}  SessionResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Router       /auth/register [post]
func (h *authAPIHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", CodeBadRequest)
		return
	}
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	if name == "" || email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "name, email and password are required", CodeBadRequest)
		return
	}
	if !emailRe.MatchString(email) {
		writeError(w, http.StatusBadRequest, "invalid email address", CodeInvalidField)
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "password must be at least 6 characters", CodeInvalidField)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeInternal(w, r, h.logger, "api: hash password", err)
		return
	}
	user, err := h.users.Create(r.Context(), name, email, hash)
	if errors.Is(err, store.ErrEmailTaken) {
		metrics.AuthEventsTotal.WithLabelValues("register", "email_taken").Inc()
		writeError(w, http.StatusConflict, "email is already registered", CodeEmailTaken)
		return
	}
	if err != nil {
		writeInternal(w, r, h.logger, "api: create user", err)
		return
	}

	metrics.AuthEventsTotal.WithLabelValues("register", "success").Inc()
	h.issue(w, r, http.StatusCreated, user)
}

// Login verifies a password and signs the account in.
// POST /api/auth/login
//
// @Summary      Log in
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      LoginRequest  true  "Credentials"
// @Success      200   {object}  SessionResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Router       /auth/login [post]
func (h *authAPIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", CodeBadRequest)
		return
	}
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required", CodeBadRequest)
		return
	}

	user, err := h.users.GetByEmail(r.Context(), email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		writeInternal(w, r, h.logger, "api: load user", err)
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		metrics.AuthEventsTotal.WithLabelValues("login", "failure").Inc()
		writeError(w, http.StatusUnauthorized, "invalid credentials", CodeUnauthorized)
		return
	}

	metrics.AuthEventsTotal.WithLabelValues("login", "success").Inc()
	h.issue(w, r, http.StatusOK, user)
}

// Logout expires the token cookie. Bearer tokens stay valid until expiry.
// POST /api/auth/logout
//
// @Summary      Log out
// @Tags         Auth
// @Produce      json
// @Success      200  {object}  OKResponse
// @Router       /auth/logout [post]
func (h *authAPIHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.Clear(w, r)
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// Me returns the caller's account.
// GET /api/auth/me
//
// @Summary      Current account
// @Tags         Auth
// @Produce      json
// @Success      200  {object}  UserResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Security     BearerToken
// @Router       /auth/me [get]
func (h *authAPIHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", CodeUnauthorized)
		return
	}
	user, err := h.users.GetByID(r.Context(), id.UserID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user not found", CodeNotFound)
		return
	}
	if err != nil {
		writeInternal(w, r, h.logger, "api: load current user", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *authAPIHandler) issue(w http.ResponseWriter, r *http.Request, status int, u *store.User) {
	token, err := h.tokens.Issue(auth.Identity{UserID: u.ID, Email: u.Email, IsAdmin: u.IsAdmin})
	if err != nil {
		writeInternal(w, r, h.logger, "api: issue token", err)
		return
	}
	h.cookies.Set(w, r, token)
	writeJSON(w, status, SessionResponse{UserResponse: toUserResponse(u), Token: token})
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
