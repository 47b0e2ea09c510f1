package review

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain/auth"
)

type mockReviewRepo struct {
	added  []*Review
	addErr error
}

func (m *mockReviewRepo) Add(_ context.Context, r *Review) error {
	if m.addErr != nil {
		return m.addErr
	}
	m.added = append(m.added, r)
	return nil
}

var reviewer = auth.Identity{UserID: "user-1", Name: "Ada"}

func TestAddReview_ZeroRating(t *testing.T) {
	repo := &mockReviewRepo{}
	svc := NewService(repo)

	_, err := svc.AddReview(context.Background(), "p1", reviewer, decimal.Zero, "meh")
	require.ErrorIs(t, err, ErrRatingRequired)
	assert.Empty(t, repo.added)
}

func TestAddReview_NegativeRating(t *testing.T) {
	svc := NewService(&mockReviewRepo{})

	_, err := svc.AddReview(context.Background(), "p1", reviewer, decimal.NewFromInt(-1), "")
	require.ErrorIs(t, err, ErrRatingRequired)
}

func TestAddReview_Success(t *testing.T) {
	repo := &mockReviewRepo{}
	svc := NewService(repo)

	r, err := svc.AddReview(context.Background(), "p1", reviewer, decimal.NewFromInt(4), "solid")
	require.NoError(t, err)

	require.Len(t, repo.added, 1)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "p1", r.ProductID)
	assert.Equal(t, "user-1", r.CreatedBy)
	assert.Equal(t, "Ada", r.Name, "display name comes from the token claims")
	assert.True(t, decimal.NewFromInt(4).Equal(r.Rating))
	assert.Equal(t, "solid", r.Comment)
}

func TestAddReview_Duplicate(t *testing.T) {
	repo := &mockReviewRepo{addErr: ErrAlreadyReviewed}
	svc := NewService(repo)

	_, err := svc.AddReview(context.Background(), "p1", reviewer, decimal.NewFromInt(5), "")
	require.ErrorIs(t, err, ErrAlreadyReviewed)
}

func TestAddReview_ProductMissing(t *testing.T) {
	repo := &mockReviewRepo{addErr: ErrProductNotFound}
	svc := NewService(repo)

	_, err := svc.AddReview(context.Background(), "ghost", reviewer, decimal.NewFromInt(5), "")
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestAddReview_WrapsInfraError(t *testing.T) {
	repo := &mockReviewRepo{addErr: errors.New("connection reset")}
	svc := NewService(repo)

	_, err := svc.AddReview(context.Background(), "p1", reviewer, decimal.NewFromInt(5), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "add review")
}
