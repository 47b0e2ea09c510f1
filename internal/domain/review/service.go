package review

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/internal/domain/auth"
)

// Service encapsulates review submission rules: one review per reviewer per
// product, a non-zero rating, and the from-scratch aggregate recompute.
type Service struct {
	reviews Repository
}

// NewService creates a review Service backed by the given repository.
func NewService(reviews Repository) *Service {
	return &Service{reviews: reviews}
}

// AddReview validates and persists a review for the product.
//
// The aggregate recompute happens inside the repository transaction, so the
// product's rating is always the exact mean of its reviews, even under
// concurrent submissions. Recomputing from scratch (rather than keeping a
// running average) keeps the value correct after any interleaving and avoids
// accumulated rounding drift.
func (s *Service) AddReview(ctx context.Context, productID string, reviewer auth.Identity, rating decimal.Decimal, comment string) (*Review, error) {
	if !rating.IsPositive() {
		return nil, ErrRatingRequired
	}

	r := &Review{
		ID:        uuid.New().String(),
		ProductID: productID,
		CreatedBy: reviewer.UserID,
		Name:      reviewer.Name,
		Rating:    rating,
		Comment:   comment,
	}

	if err := s.reviews.Add(ctx, r); err != nil {
		if errors.Is(err, ErrAlreadyReviewed) || errors.Is(err, ErrProductNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, "add review")
	}

	return r, nil
}
