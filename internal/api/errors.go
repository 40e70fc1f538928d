package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/joestump/joe-pages/internal/pages"
)

// Error codes carried in ErrorResponse.Code.
const (
	CodeInvalidSlug  = "INVALID_SLUG"
	CodeInvalidField = "INVALID_FIELD"
	CodeBadRequest   = "BAD_REQUEST"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeNotFound     = "NOT_FOUND"
	CodeSlugConflict = "SLUG_CONFLICT"
	CodeEmailTaken   = "EMAIL_TAKEN"
	CodeRateLimited  = "RATE_LIMITED"
	CodeInternal     = "INTERNAL_ERROR"
)

// writeError writes a JSON error response with the given HTTP status code.
func writeError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message, Code: code})
}

// writeJSON writes a JSON response with the given HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeInternal logs err with its request context and answers with the
// generic 500 body.
func writeInternal(w http.ResponseWriter, r *http.Request, logger *zap.Logger, msg string, err error) {
	logger.Error(msg, zap.Error(err), zap.String("method", r.Method), zap.String("path", r.URL.Path))
	writeError(w, http.StatusInternalServerError, "internal error", CodeInternal)
}

// writeServiceError maps a pages.Service error onto the HTTP taxonomy.
// Validation and conflict messages are passed through verbatim.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var ve *pages.ValidationError
	switch {
	case errors.As(err, &ve):
		code := CodeInvalidField
		if ve.Field == pages.FieldSlug {
			code = CodeInvalidSlug
		}
		writeError(w, http.StatusBadRequest, ve.Message(), code)
	case errors.Is(err, pages.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthorized", CodeUnauthorized)
	case errors.Is(err, pages.ErrPageNotFound):
		writeError(w, http.StatusNotFound, pages.ErrPageNotFound.Error(), CodeNotFound)
	case errors.Is(err, pages.ErrSlugConflict):
		writeError(w, http.StatusConflict, pages.ErrSlugConflict.Error(), CodeSlugConflict)
	default:
		writeInternal(w, r, logger, "api: page service", err)
	}
}
