package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/joestump/joe-pages/internal/auth"
	"github.com/joestump/joe-pages/internal/slug"
	"github.com/joestump/joe-pages/internal/store"
)

// ProfilePage is the template data for a public profile page.
type ProfilePage struct {
	BasePage
	Page *store.Page
}

type notFoundPage struct {
	BasePage
	Slug string
	// Claimable is set when the address is well formed and not reserved.
	Claimable bool
}

// PageLookup is the read side of store.PageStore used for rendering.
type PageLookup interface {
	GetBySlug(ctx context.Context, slug string) (*store.Page, error)
}

// ProfileHandler renders public profile pages at /{slug}.
type ProfileHandler struct {
	pages  PageLookup
	logger *zap.Logger
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(pages PageLookup, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{pages: pages, logger: logger}
}

// Show serves GET /{slug}. Non-canonical addresses redirect permanently to
// their canonical form; unknown addresses render the 404 page.
func (h *ProfileHandler) Show(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "slug")
	canonical := slug.Canonicalize(raw)
	if canonical != "" && canonical != raw {
		http.Redirect(w, r, "/"+canonical, http.StatusMovedPermanently)
		return
	}

	_, signedIn := auth.IdentityFromContext(r.Context())
	base := BasePage{Title: canonical, SignedIn: signedIn}

	if canonical == "" {
		h.notFound(w, base, canonical)
		return
	}
	page, err := h.pages.GetBySlug(r.Context(), canonical)
	if errors.Is(err, store.ErrNotFound) {
		h.notFound(w, base, canonical)
		return
	}
	if err != nil {
		h.logger.Error("load profile page", zap.String("slug", canonical), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if page.Title != "" {
		base.Title = page.Title
	}
	render(w, h.logger, http.StatusOK, "profile.html", ProfilePage{BasePage: base, Page: page})
}

func (h *ProfileHandler) notFound(w http.ResponseWriter, base BasePage, s string) {
	base.Title = "Not found"
	render(w, h.logger, http.StatusNotFound, "404.html", notFoundPage{
		BasePage:  base,
		Slug:      s,
		Claimable: slug.Classify(s) == nil,
	})
}
