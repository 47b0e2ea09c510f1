package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/internal/domain/auth"
	"storefront/internal/domain/catalog"
	"storefront/internal/domain/category"
	"storefront/internal/domain/review"
)

type categoryJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type imageJSON struct {
	Image   string `json:"image"`
	AltText string `json:"alt_text"`
}

type reviewJSON struct {
	ID        string          `json:"id"`
	Product   string          `json:"product"`
	CreatedBy string          `json:"created_by"`
	Name      string          `json:"name"`
	Rating    decimal.Decimal `json:"rating"`
	Comment   string          `json:"comment"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type productJSON struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	Brand         string           `json:"brand"`
	Description   string           `json:"description"`
	Slug          string           `json:"slug"`
	RegularPrice  decimal.Decimal  `json:"regular_price"`
	DiscountPrice decimal.Decimal  `json:"discount_price"`
	Rating        *decimal.Decimal `json:"rating"`
	NumReviews    int              `json:"num_reviews"`
	CountInStock  int              `json:"count_in_stock"`
	InStock       bool             `json:"in_stock"`
	Category      *categoryJSON    `json:"category"`
	ProductImage  []imageJSON      `json:"product_image"`
	Reviews       []reviewJSON     `json:"reviews"`
	CreatedBy     string           `json:"created_by"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// imageURL resolves a stored image path against the configured base URL.
// Absolute URLs pass through untouched.
func (h *Handler) imageURL(path string) string {
	if h.imageBaseURL == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimSuffix(h.imageBaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}

func (h *Handler) productJSON(p catalog.Product) productJSON {
	out := productJSON{
		ID:            p.ID,
		Title:         p.Title,
		Brand:         p.Brand,
		Description:   p.Description,
		Slug:          p.Slug,
		RegularPrice:  p.RegularPrice,
		DiscountPrice: p.DiscountPrice,
		Rating:        p.Rating,
		NumReviews:    p.NumReviews,
		CountInStock:  p.CountInStock,
		InStock:       p.InStock,
		ProductImage:  []imageJSON{},
		Reviews:       []reviewJSON{},
		CreatedBy:     p.CreatedBy,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.Category != nil {
		out.Category = &categoryJSON{ID: p.Category.ID, Name: p.Category.Name, Slug: p.Category.Slug}
	}
	for _, img := range p.Images {
		out.ProductImage = append(out.ProductImage, imageJSON{
			Image:   h.imageURL(img.Image),
			AltText: img.AltText,
		})
	}
	for _, rev := range p.Reviews {
		out.Reviews = append(out.Reviews, reviewJSONFrom(rev))
	}
	return out
}

func reviewJSONFrom(rev review.Review) reviewJSON {
	return reviewJSON{
		ID:        rev.ID,
		Product:   rev.ProductID,
		CreatedBy: rev.CreatedBy,
		Name:      rev.Name,
		Rating:    rev.Rating,
		Comment:   rev.Comment,
		CreatedAt: rev.CreatedAt,
		UpdatedAt: rev.UpdatedAt,
	}
}

func (h *Handler) productsJSON(products []catalog.Product) []productJSON {
	out := make([]productJSON, len(products))
	for i, p := range products {
		out[i] = h.productJSON(p)
	}
	return out
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.detail(w, r, http.StatusBadRequest, "Invalid page number")
			return
		}
		page = n
	}

	result, err := h.products.ListActive(r.Context(), page, h.pageSize)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, struct {
		Products []productJSON `json:"products"`
		Page     int           `json:"page"`
		Pages    int           `json:"pages"`
		Status   int           `json:"status"`
	}{h.productsJSON(result.Products), result.Page, result.Pages, http.StatusOK})
}

func (h *Handler) topProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.TopRated(r.Context(), 5)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, struct {
		Products []productJSON `json:"products"`
		Status   int           `json:"status"`
	}{h.productsJSON(products), http.StatusOK})
}

func (h *Handler) productBySlug(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.BySlug(r.Context(), r.PathValue("slug"))
	switch {
	case err == nil:
	case errors.Is(err, catalog.ErrNotFound):
		h.detail(w, r, http.StatusNotFound, "Product does not exist")
		return
	default:
		h.serverError(w, r, err)
		return
	}
	// The public read returns the bare product object; only the admin write
	// endpoints wrap it in the status envelope.
	h.writeJSON(w, r, http.StatusOK, h.productJSON(*p))
}

func (h *Handler) writeProduct(w http.ResponseWriter, r *http.Request, p *catalog.Product) {
	h.writeJSON(w, r, http.StatusOK, struct {
		Product productJSON `json:"product"`
		Status  int         `json:"status"`
	}{h.productJSON(*p), http.StatusOK})
}

type createProductRequest struct {
	Title         string          `json:"title"`
	Brand         string          `json:"brand"`
	Description   string          `json:"description"`
	Slug          string          `json:"slug"`
	RegularPrice  decimal.Decimal `json:"regular_price"`
	DiscountPrice decimal.Decimal `json:"discount_price"`
	CountInStock  int             `json:"count_in_stock"`
	CategoryID    string          `json:"category_id"`
	ProductTypeID string          `json:"product_type_id"`
}

// createProduct inserts a draft product. Unset fields fall back to
// placeholder values so the admin UI can create first and edit after.
func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authorize(w, r, auth.Admin)
	if !ok {
		return
	}
	var req createProductRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.CategoryID == "" || req.ProductTypeID == "" {
		h.detail(w, r, http.StatusBadRequest, "category_id and product_type_id are required")
		return
	}

	p := &catalog.Product{
		ID:            uuid.New().String(),
		ProductTypeID: req.ProductTypeID,
		CategoryID:    req.CategoryID,
		CreatedBy:     id.UserID,
		Title:         req.Title,
		Brand:         req.Brand,
		Description:   req.Description,
		Slug:          req.Slug,
		RegularPrice:  req.RegularPrice,
		DiscountPrice: req.DiscountPrice,
		CountInStock:  req.CountInStock,
		InStock:       req.CountInStock > 0,
		IsActive:      true,
	}
	if p.Title == "" {
		p.Title = "New Product"
	}
	if p.Brand == "" {
		p.Brand = "Generic"
	}
	if p.Slug == "" {
		p.Slug = "new-product-" + uuid.New().String()[:8]
	}

	err := h.products.Create(r.Context(), p)
	switch {
	case err == nil:
	case errors.Is(err, catalog.ErrSlugTaken):
		h.detail(w, r, http.StatusBadRequest, "Product with this slug already exists")
		return
	case errors.Is(err, catalog.ErrTypeNotFound):
		h.detail(w, r, http.StatusBadRequest, "Product type does not exist")
		return
	case errors.Is(err, category.ErrNotFound):
		h.detail(w, r, http.StatusBadRequest, "Category does not exist")
		return
	default:
		h.serverError(w, r, err)
		return
	}

	created, err := h.products.ByID(r.Context(), p.ID)
	if err != nil {
		h.serverError(w, r, errors.Wrap(err, "reload created product"))
		return
	}
	h.writeProduct(w, r, created)
}

type updateProductRequest struct {
	Title         string          `json:"title"`
	Brand         string          `json:"brand"`
	Description   string          `json:"description"`
	Slug          string          `json:"slug"`
	RegularPrice  decimal.Decimal `json:"regular_price"`
	DiscountPrice decimal.Decimal `json:"discount_price"`
	CountInStock  int             `json:"count_in_stock"`
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, auth.Admin); !ok {
		return
	}
	var req updateProductRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.products.ByID(r.Context(), r.PathValue("id"))
	switch {
	case err == nil:
	case errors.Is(err, catalog.ErrNotFound):
		h.detail(w, r, http.StatusNotFound, "Product does not exist")
		return
	default:
		h.serverError(w, r, err)
		return
	}

	p.Title = req.Title
	p.Brand = req.Brand
	p.Description = req.Description
	p.Slug = req.Slug
	p.RegularPrice = req.RegularPrice
	p.DiscountPrice = req.DiscountPrice
	p.CountInStock = req.CountInStock
	p.InStock = req.CountInStock > 0

	err = h.products.Update(r.Context(), p)
	switch {
	case err == nil:
	case errors.Is(err, catalog.ErrSlugTaken):
		h.detail(w, r, http.StatusBadRequest, "Product with this slug already exists")
		return
	case errors.Is(err, catalog.ErrNotFound):
		h.detail(w, r, http.StatusNotFound, "Product does not exist")
		return
	default:
		h.serverError(w, r, err)
		return
	}
	h.writeProduct(w, r, p)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, auth.Admin); !ok {
		return
	}
	err := h.products.Delete(r.Context(), r.PathValue("id"))
	switch {
	case err == nil:
	case errors.Is(err, catalog.ErrNotFound):
		h.detail(w, r, http.StatusNotFound, "Product does not exist")
		return
	case errors.Is(err, catalog.ErrProductInUse):
		h.detail(w, r, http.StatusConflict, "Product is referenced by existing orders")
		return
	default:
		h.serverError(w, r, err)
		return
	}
	h.detail(w, r, http.StatusOK, "Product got deleted successfully")
}

type uploadImageRequest struct {
	ProductID string `json:"product_id"`
	Image     string `json:"image"`
	IsFeature bool   `json:"is_feature"`
}

// uploadProductImage records an already-stored image path for a product.
// Binary upload and storage happen on the media host; this endpoint only
// attaches the reference.
func (h *Handler) uploadProductImage(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, auth.Admin); !ok {
		return
	}
	var req uploadImageRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.ProductID == "" || req.Image == "" {
		h.detail(w, r, http.StatusBadRequest, "product_id and image are required")
		return
	}

	p, err := h.products.ByID(r.Context(), req.ProductID)
	switch {
	case err == nil:
	case errors.Is(err, catalog.ErrNotFound):
		h.detail(w, r, http.StatusNotFound, "Product does not exist")
		return
	default:
		h.serverError(w, r, err)
		return
	}

	img := &catalog.Image{
		ID:        uuid.New().String(),
		ProductID: p.ID,
		Image:     req.Image,
		AltText:   p.Title,
		IsFeature: req.IsFeature,
	}
	err = h.products.AddImage(r.Context(), img)
	switch {
	case err == nil:
	case errors.Is(err, catalog.ErrNotFound):
		h.detail(w, r, http.StatusNotFound, "Product does not exist")
		return
	default:
		h.serverError(w, r, err)
		return
	}
	h.detail(w, r, http.StatusOK, "Product image got uploaded successfully")
}
