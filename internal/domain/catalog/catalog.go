// Package catalog holds the product catalog: products, product types,
// specifications, and images, with their referential and uniqueness rules.
package catalog

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"storefront/internal/domain/category"
	"storefront/internal/domain/review"
)

// DefaultImage is the placeholder image path used when a product has no
// uploaded image.
const DefaultImage = "images/default.png"

// Sentinel errors for catalog operations.
var (
	// ErrNotFound is returned when no product matches the given slug or id.
	ErrNotFound = errors.New("product not found")
	// ErrSlugTaken is returned on a product create/update with a slug that is
	// already in use.
	ErrSlugTaken = errors.New("product slug already taken")
	// ErrProductInUse is returned when deleting a product that is referenced
	// by order items; order history must stay intact.
	ErrProductInUse = errors.New("product is referenced by existing orders")
	// ErrTypeNotFound is returned when a referenced product type is missing.
	ErrTypeNotFound = errors.New("product type not found")
	// ErrTypeInUse is returned when deleting a product type still referenced
	// by products or specifications.
	ErrTypeInUse = errors.New("product type is still referenced")
	// ErrSpecificationInUse is returned when deleting a specification that has
	// recorded values.
	ErrSpecificationInUse = errors.New("product specification is still referenced")
	// ErrNameTaken is returned when a type or specification name collides.
	ErrNameTaken = errors.New("name already taken")
)

// ProductType groups products that share a specification schema.
type ProductType struct {
	ID       string
	Name     string
	IsActive bool
}

// Specification is a named attribute slot belonging to one product type.
type Specification struct {
	ID            string
	ProductTypeID string
	Name          string
}

// SpecificationValue is a product's value for one specification. The
// specification is expected to belong to the product's type; that is an
// application-level expectation, not a structural constraint.
type SpecificationValue struct {
	ID              string
	ProductID       string
	SpecificationID string
	Value           string
}

// Image is one product image, ordered by creation time.
type Image struct {
	ID        string
	ProductID string
	Image     string
	AltText   string
	IsFeature bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Product is a catalog item. Rating and NumReviews are aggregates maintained
// by the review workflow; CountInStock is maintained by the order workflow.
type Product struct {
	ID            string
	ProductTypeID string
	CategoryID    string
	CreatedBy     string
	Title         string
	Brand         string
	Description   string
	Slug          string
	RegularPrice  decimal.Decimal
	DiscountPrice decimal.Decimal
	Rating        *decimal.Decimal // nil until the first review lands
	NumReviews    int
	CountInStock  int
	InStock       bool
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Eagerly loaded relations, populated by read queries.
	Category *category.Category
	Images   []Image
	Reviews  []review.Review
}

// Page is one page of an active-product listing.
type Page struct {
	Products []Product
	Page     int
	Pages    int
}

// Repository defines persistence operations for products.
type Repository interface {
	// ListActive returns active products newest-first, eagerly joined with
	// category, images, and reviews. Page is clamped Django-Paginator style:
	// below 1 becomes 1, past the end becomes the last page.
	ListActive(ctx context.Context, page, pageSize int) (*Page, error)
	// TopRated returns up to limit active products with rating >= 3, best first.
	TopRated(ctx context.Context, limit int) ([]Product, error)
	// BySlug returns one product with its relations, or ErrNotFound.
	BySlug(ctx context.Context, slug string) (*Product, error)
	// ByID returns one product with its relations, or ErrNotFound.
	ByID(ctx context.Context, id string) (*Product, error)
	// ListByCategories returns products belonging to any of the given
	// categories, newest first.
	ListByCategories(ctx context.Context, categoryIDs []string) ([]Product, error)
	// Create inserts the product together with a placeholder image row.
	Create(ctx context.Context, p *Product) error
	// Update rewrites the mutable product fields and bumps updated_at.
	Update(ctx context.Context, p *Product) error
	// Delete removes the product, cascading to images, specification values,
	// and reviews. Returns ErrProductInUse when order items reference it.
	Delete(ctx context.Context, id string) error
	// AddImage attaches an image to a product.
	AddImage(ctx context.Context, img *Image) error
}

// TypeRepository defines persistence for product types, specifications, and
// per-product specification values. All of these are admin-managed and
// long-lived; deletes are restricted while referenced.
type TypeRepository interface {
	CreateType(ctx context.Context, t *ProductType) error
	ListTypes(ctx context.Context) ([]ProductType, error)
	// DeleteType returns ErrTypeInUse while products or specifications
	// reference the type.
	DeleteType(ctx context.Context, id string) error
	CreateSpecification(ctx context.Context, s *Specification) error
	// DeleteSpecification returns ErrSpecificationInUse while values exist.
	DeleteSpecification(ctx context.Context, id string) error
	SetSpecificationValue(ctx context.Context, v *SpecificationValue) error
}
