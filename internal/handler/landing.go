package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/joestump/joe-pages/internal/auth"
)

// LandingHandler serves the public landing page.
type LandingHandler struct {
	oidc   bool
	logger *zap.Logger
}

// NewLandingHandler creates a new LandingHandler.
func NewLandingHandler(oidc bool, logger *zap.Logger) *LandingHandler {
	return &LandingHandler{oidc: oidc, logger: logger}
}

// Index serves GET /.
func (h *LandingHandler) Index(w http.ResponseWriter, r *http.Request) {
	_, signedIn := auth.IdentityFromContext(r.Context())
	render(w, h.logger, http.StatusOK, "landing.html", BasePage{
		Title:    "joe-pages",
		SignedIn: signedIn,
		OIDC:     h.oidc,
	})
}
