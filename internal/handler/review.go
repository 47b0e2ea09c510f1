package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"storefront/internal/domain/auth"
	"storefront/internal/domain/review"
)

type createReviewRequest struct {
	Rating  decimal.Decimal `json:"rating"`
	Comment string          `json:"comment"`
}

func (h *Handler) createReview(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authorize(w, r, auth.Authenticated)
	if !ok {
		return
	}
	var req createReviewRequest
	if !h.decode(w, r, &req) {
		return
	}

	_, err := h.reviews.AddReview(r.Context(), r.PathValue("id"), id, req.Rating, req.Comment)
	switch {
	case err == nil:
	case errors.Is(err, review.ErrRatingRequired):
		h.detail(w, r, http.StatusBadRequest, "Please select product rating!")
		return
	case errors.Is(err, review.ErrAlreadyReviewed):
		h.detail(w, r, http.StatusBadRequest, "Product review has already been submitted!")
		return
	case errors.Is(err, review.ErrProductNotFound):
		h.detail(w, r, http.StatusNotFound, "Product does not exist")
		return
	default:
		h.serverError(w, r, err)
		return
	}
	h.detail(w, r, http.StatusOK, "Product review got added successfully")
}
