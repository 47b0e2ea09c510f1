// Package handler exposes the store over HTTP JSON, preserving the legacy
// response contract: write and error bodies embed a numeric "status" field
// mirroring the HTTP status code, while the plain catalog reads (product by
// slug, category listings) return bare objects and arrays.
package handler

import (
	"net/http"

	"storefront/internal/domain/catalog"
	"storefront/internal/domain/category"
	"storefront/internal/domain/order"
	"storefront/internal/domain/review"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// PageSize is the number of products per listing page.
	PageSize int
	// ImageBaseURL is prepended to relative image paths in responses.
	// When empty, image paths are returned as stored.
	ImageBaseURL string
}

// Handler maps HTTP requests onto the domain services and repositories.
type Handler struct {
	products     catalog.Repository
	categories   category.Repository
	reviews      *review.Service
	orders       *order.Service
	pageSize     int
	imageBaseURL string
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	products catalog.Repository,
	categories category.Repository,
	reviews *review.Service,
	orders *order.Service,
) *Handler {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 2
	}
	return &Handler{
		products:     products,
		categories:   categories,
		reviews:      reviews,
		orders:       orders,
		pageSize:     pageSize,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Routes returns the API route table. Paths follow the legacy URL layout
// under /api; health endpoints are mounted separately by the app.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/top", h.topProducts)
	mux.HandleFunc("POST /api/products", h.createProduct)
	mux.HandleFunc("POST /api/products/upload", h.uploadProductImage)
	mux.HandleFunc("GET /api/products/{slug}", h.productBySlug)
	mux.HandleFunc("PUT /api/products/{id}", h.updateProduct)
	mux.HandleFunc("DELETE /api/products/{id}", h.deleteProduct)
	mux.HandleFunc("POST /api/products/{id}/reviews", h.createReview)

	mux.HandleFunc("GET /api/categories", h.topLevelCategories)
	mux.HandleFunc("GET /api/categories/{slug}", h.productsByCategory)

	mux.HandleFunc("POST /api/orders", h.placeOrder)
	mux.HandleFunc("GET /api/orders", h.listOrders)
	mux.HandleFunc("GET /api/orders/history", h.orderHistory)
	mux.HandleFunc("GET /api/orders/{id}", h.orderByID)
	mux.HandleFunc("PUT /api/orders/{id}/pay", h.markPaid)
	mux.HandleFunc("PUT /api/orders/{id}/deliver", h.markDelivered)

	return mux
}
