package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/domain/category"
)

const (
	categoryColumns = `id, name, slug, COALESCE(parent_id, ''), path, depth, is_active`

	insertCategorySQL = `INSERT INTO categories (id, name, slug, parent_id, path, depth, is_active)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)`

	categoryPathSQL = `SELECT path, depth FROM categories WHERE id = $1`

	topLevelCategoriesSQL = `SELECT ` + categoryColumns + `
		FROM categories WHERE parent_id IS NULL ORDER BY name`

	categoryBySlugSQL = `SELECT ` + categoryColumns + ` FROM categories WHERE slug = $1`

	allCategoriesSQL = `SELECT ` + categoryColumns + ` FROM categories ORDER BY path`

	// Plain prefix comparison, not LIKE: slugs may contain _ which LIKE
	// would treat as a wildcard.
	descendantsSQL = `SELECT ` + categoryColumns + `
		FROM categories WHERE left(path, length($1)) = $1 ORDER BY depth, name`
)

var _ category.Repository = (*CategoryRepository)(nil)

// CategoryRepository implements category.Repository backed by PostgreSQL.
type CategoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository returns a CategoryRepository that uses the given pool.
func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// Create inserts a category, computing its materialized path and depth from
// the parent inside one transaction so concurrent inserts cannot observe a
// half-built path.
func (r *CategoryRepository) Create(ctx context.Context, c *category.Category) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	c.Path = "/" + c.Slug + "/"
	c.Depth = 0
	if c.ParentID != "" {
		var parentPath string
		var parentDepth int
		err := tx.QueryRow(ctx, categoryPathSQL, c.ParentID).Scan(&parentPath, &parentDepth)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return category.ErrParentNotFound
			}
			return errors.Wrapf(err, "lookup parent %q", c.ParentID)
		}
		c.Path = parentPath + c.Slug + "/"
		c.Depth = parentDepth + 1
	}

	_, err = tx.Exec(ctx, insertCategorySQL,
		c.ID, c.Name, c.Slug, c.ParentID, c.Path, c.Depth, c.IsActive,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return category.ErrExists
		}
		return errors.Wrapf(err, "insert category %q", c.Slug)
	}

	return errors.Wrap(tx.Commit(ctx), "commit")
}

// TopLevel returns root categories ordered by name.
func (r *CategoryRepository) TopLevel(ctx context.Context) ([]category.Category, error) {
	rows, err := r.pool.Query(ctx, topLevelCategoriesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list top-level categories")
	}
	return pgx.CollectRows(rows, scanCategory)
}

// All returns every category ordered by path, parents before children.
func (r *CategoryRepository) All(ctx context.Context) ([]category.Category, error) {
	rows, err := r.pool.Query(ctx, allCategoriesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	return pgx.CollectRows(rows, scanCategory)
}

// DescendantsInclusive returns the category matching slug plus everything
// beneath it. The materialized path makes this a single prefix scan.
func (r *CategoryRepository) DescendantsInclusive(ctx context.Context, slug string) ([]category.Category, error) {
	rows, err := r.pool.Query(ctx, categoryBySlugSQL, slug)
	if err != nil {
		return nil, errors.Wrapf(err, "lookup category %q", slug)
	}
	base, err := pgx.CollectExactlyOneRow(rows, scanCategory)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, category.ErrNotFound
		}
		return nil, errors.Wrapf(err, "lookup category %q", slug)
	}

	rows, err = r.pool.Query(ctx, descendantsSQL, base.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "list descendants of %q", slug)
	}
	return pgx.CollectRows(rows, scanCategory)
}

func scanCategory(row pgx.CollectableRow) (category.Category, error) {
	var c category.Category
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.ParentID, &c.Path, &c.Depth, &c.IsActive)
	return c, err
}
