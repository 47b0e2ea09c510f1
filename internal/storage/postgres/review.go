package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/domain/review"
)

const (
	lockProductSQL = `SELECT id FROM products WHERE id = $1 FOR UPDATE`

	reviewExistsSQL = `SELECT EXISTS (
		SELECT 1 FROM reviews WHERE product_id = $1 AND created_by = $2)`

	insertReviewSQL = `INSERT INTO reviews (id, product_id, created_by, name, rating, comment)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at, updated_at`

	recomputeRatingSQL = `UPDATE products p
		SET num_reviews = s.cnt,
		    rating = s.avg_rating,
		    updated_at = now()
		FROM (
			SELECT count(*) AS cnt, round(avg(rating), 2) AS avg_rating
			FROM reviews WHERE product_id = $1
		) s
		WHERE p.id = $1`
)

var _ review.Repository = (*ReviewRepository)(nil)

// ReviewRepository implements review.Repository backed by PostgreSQL.
type ReviewRepository struct {
	pool *pgxpool.Pool
}

// NewReviewRepository returns a ReviewRepository that uses the given pool.
func NewReviewRepository(pool *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Add inserts the review and recomputes the product's aggregate rating and
// review count from scratch, all in one transaction. The product row is
// locked first so concurrent submissions for the same product serialize:
// the duplicate check and the recompute always see a consistent review set.
func (r *ReviewRepository) Add(ctx context.Context, rev *review.Review) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var productID string
	if err := tx.QueryRow(ctx, lockProductSQL, rev.ProductID).Scan(&productID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return review.ErrProductNotFound
		}
		return errors.Wrapf(err, "lock product %q", rev.ProductID)
	}

	var exists bool
	if err := tx.QueryRow(ctx, reviewExistsSQL, rev.ProductID, rev.CreatedBy).Scan(&exists); err != nil {
		return errors.Wrap(err, "check existing review")
	}
	if exists {
		return review.ErrAlreadyReviewed
	}

	err = tx.QueryRow(ctx, insertReviewSQL,
		rev.ID, rev.ProductID, rev.CreatedBy, rev.Name, rev.Rating, rev.Comment,
	).Scan(&rev.CreatedAt, &rev.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "insert review")
	}

	if _, err := tx.Exec(ctx, recomputeRatingSQL, rev.ProductID); err != nil {
		return errors.Wrapf(err, "recompute rating for product %q", rev.ProductID)
	}

	return errors.Wrap(tx.Commit(ctx), "commit")
}
