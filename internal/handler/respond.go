package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"storefront/internal/domain/auth"
)

// detailResponse is the legacy message envelope. Like every response body it
// carries the HTTP status code inline, so clients that only look at the body
// still see the outcome.
type detailResponse struct {
	Detail string `json:"detail"`
	Status int    `json:"status"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zctx.From(r.Context()).Error("Encode response", zap.Error(err))
	}
}

func (h *Handler) detail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.writeJSON(w, r, status, detailResponse{Detail: msg, Status: status})
}

// authorize gates the request at the given capability level. On failure it
// writes the error response and returns ok=false.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, c auth.Capability) (auth.Identity, bool) {
	id := identityFrom(r.Context())
	switch err := auth.Authorize(id, c); err {
	case nil:
		return id, true
	case auth.ErrUnauthenticated:
		h.detail(w, r, http.StatusUnauthorized, "Authentication credentials were not provided.")
	default:
		h.detail(w, r, http.StatusForbidden, "You do not have permission to perform this action.")
	}
	return auth.Identity{}, false
}

// serverError logs the unexpected error and writes an opaque 500.
func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("Handle request", zap.Error(err))
	h.detail(w, r, http.StatusInternalServerError, "Internal server error")
}

// decode parses the JSON request body into dst, rejecting malformed input.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.detail(w, r, http.StatusBadRequest, "Malformed request body")
		return false
	}
	return true
}
