package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"storefront/internal/domain/category"
)

func categoriesJSON(categories []category.Category) []categoryJSON {
	out := make([]categoryJSON, len(categories))
	for i, c := range categories {
		out[i] = categoryJSON{ID: c.ID, Name: c.Name, Slug: c.Slug}
	}
	return out
}

// topLevelCategories answers with a bare array, without the status envelope
// the write endpoints carry. Clients consume this listing as-is.
func (h *Handler) topLevelCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.TopLevel(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, categoriesJSON(categories))
}

// productsByCategory lists products of the category and all of its
// descendants, so browsing a parent shows its whole subtree.
func (h *Handler) productsByCategory(w http.ResponseWriter, r *http.Request) {
	tree, err := h.categories.DescendantsInclusive(r.Context(), r.PathValue("slug"))
	switch {
	case err == nil:
	case errors.Is(err, category.ErrNotFound):
		h.detail(w, r, http.StatusNotFound, "Category does not exist")
		return
	default:
		h.serverError(w, r, err)
		return
	}

	ids := make([]string, len(tree))
	for i, c := range tree {
		ids[i] = c.ID
	}
	products, err := h.products.ListByCategories(r.Context(), ids)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, h.productsJSON(products))
}
