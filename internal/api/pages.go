package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/joestump/joe-pages/internal/auth"
	"github.com/joestump/joe-pages/internal/pages"
	"github.com/joestump/joe-pages/internal/slug"
	"github.com/joestump/joe-pages/internal/store"
)

// pagesAPIHandler serves availability checks, page writes and page reads.
type pagesAPIHandler struct {
	svc    *pages.Service
	pages  *store.PageStore
	logger *zap.Logger
}

func registerPageRoutes(public, private chi.Router, svc *pages.Service, ps *store.PageStore, limiter *RateLimiter, logger *zap.Logger) {
	h := &pagesAPIHandler{svc: svc, pages: ps, logger: logger}
	public.Get("/pages", h.GetPublic)

	probe := http.Handler(http.HandlerFunc(h.Availability))
	if limiter != nil {
		probe = limiter.Middleware(probe)
	}
	private.Method(http.MethodGet, "/pages/availability", probe)
	private.Post("/pages", h.Upsert)
	private.Get("/pages/me", h.Mine)
}

// Availability reports whether the caller may use a slug.
// GET /api/pages/availability
//
// @Summary      Check slug availability
// @Description  Always answers 200 with a verdict for any slug shape. The verdict is advisory; POST /pages re-checks.
// @Tags         Pages
// @Produce      json
// @Param        slug    query     string  false  "Requested address (canonicalized server-side)"
// @Param        pageId  query     int     false  "Page being edited"
// @Success      200     {object}  AvailabilityResponse
// @Failure      400     {object}  ErrorResponse
// @Failure      401     {object}  ErrorResponse
// @Failure      429     {object}  ErrorResponse
// @Failure      500     {object}  ErrorResponse
// @Security     BearerToken
// @Router       /pages/availability [get]
func (h *pagesAPIHandler) Availability(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", CodeUnauthorized)
		return
	}

	var pageID *int64
	if raw := strings.TrimSpace(r.URL.Query().Get("pageId")); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "pageId must be an integer", CodeBadRequest)
			return
		}
		pageID = &v
	}

	verdict, err := h.svc.Probe(r.Context(), r.URL.Query().Get("slug"), id.UserID, pageID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, AvailabilityResponse{Available: verdict.Available, Message: verdict.Message})
}

// Upsert creates a page, or updates the caller's page when id is given.
// POST /api/pages
//
// @Summary      Create or update a page
// @Description  Without id a page is created (201). With id the caller's page is updated (200); its slug may change.
// @Tags         Pages
// @Accept       json
// @Produce      json
// @Param        body  body      UpsertPageRequest  true  "Page fields"
// @Success      200   {object}  PageResponse
// @Success      201   {object}  PageResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Security     BearerToken
// @Router       /pages [post]
func (h *pagesAPIHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", CodeUnauthorized)
		return
	}

	var req UpsertPageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", CodeBadRequest)
		return
	}
	if req.ID != nil && *req.ID == 0 {
		req.ID = nil
	}

	page, created, err := h.svc.Upsert(r.Context(), id.UserID, pages.Input{
		ID:          req.ID,
		Slug:        req.Slug,
		Title:       req.Title,
		Description: req.Description,
		SocialLink:  req.InstagramURL,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, toPageResponse(page))
}

// GetPublic returns the public view of a page.
// GET /api/pages
//
// @Summary      Get a public page
// @Tags         Pages
// @Produce      json
// @Param        slug  query     string  true  "Page address"
// @Success      200   {object}  PublicPageResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Router       /pages [get]
func (h *pagesAPIHandler) GetPublic(w http.ResponseWriter, r *http.Request) {
	s := slug.Canonicalize(r.URL.Query().Get("slug"))
	if s == "" {
		writeError(w, http.StatusBadRequest, "slug is required", CodeBadRequest)
		return
	}
	page, err := h.pages.GetBySlug(r.Context(), s)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, pages.ErrPageNotFound.Error(), CodeNotFound)
		return
	}
	if err != nil {
		writeInternal(w, r, h.logger, "api: get public page", err)
		return
	}
	writeJSON(w, http.StatusOK, toPublicPageResponse(page))
}

// Mine lists the caller's pages, or returns one of them when slug is given.
// GET /api/pages/me
//
// @Summary      List my pages
// @Description  Without slug: all pages, most recently updated first. With slug: that page, or null.
// @Tags         Pages
// @Produce      json
// @Param        slug  query     string  false  "Return only this page"
// @Success      200   {array}   PageResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Security     BearerToken
// @Router       /pages/me [get]
func (h *pagesAPIHandler) Mine(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", CodeUnauthorized)
		return
	}

	if raw := r.URL.Query().Get("slug"); raw != "" {
		page, err := h.pages.GetOwnedBySlug(r.Context(), id.UserID, slug.Canonicalize(raw))
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusOK, nil)
			return
		}
		if err != nil {
			writeInternal(w, r, h.logger, "api: get own page", err)
			return
		}
		writeJSON(w, http.StatusOK, toPageResponse(page))
		return
	}

	list, err := h.pages.ListByOwner(r.Context(), id.UserID)
	if err != nil {
		writeInternal(w, r, h.logger, "api: list own pages", err)
		return
	}
	resp := make([]PageResponse, 0, len(list))
	for _, p := range list {
		resp = append(resp, toPageResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}
