// Package review holds product reviews and the aggregate-rating recompute.
package review

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for review submission.
var (
	// ErrAlreadyReviewed is returned when the reviewer already has a review on
	// the product.
	ErrAlreadyReviewed = errors.New("product review has already been submitted")
	// ErrRatingRequired is returned when the rating is zero or negative.
	ErrRatingRequired = errors.New("product rating is required")
	// ErrProductNotFound is returned when the reviewed product does not exist.
	ErrProductNotFound = errors.New("product not found")
)

// Review is a single customer review of a product.
type Review struct {
	ID        string
	ProductID string
	CreatedBy string
	Name      string
	Rating    decimal.Decimal
	Comment   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository persists reviews and the product's aggregate rating.
type Repository interface {
	// Add inserts the review and, in the same transaction, recomputes the
	// product's num_reviews (count of all reviews) and rating (mean of all
	// review ratings, 2 decimal places). Returns ErrAlreadyReviewed when the
	// creator already reviewed the product and ErrProductNotFound when the
	// product is missing.
	Add(ctx context.Context, r *Review) error
}
