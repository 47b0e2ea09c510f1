package postgres

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"storefront/internal/domain/catalog"
	"storefront/internal/domain/category"
	"storefront/internal/domain/review"
)

const (
	productColumns = `p.id, p.product_type_id, p.category_id, p.created_by, p.title, p.brand,
		p.description, p.slug, p.regular_price, p.discount_price, p.rating, p.num_reviews,
		p.count_in_stock, p.in_stock, p.is_active, p.created_at, p.updated_at,
		c.id, c.name, c.slug, COALESCE(c.parent_id, ''), c.path, c.depth, c.is_active`

	productFromJoin = ` FROM products p JOIN categories c ON c.id = p.category_id`

	countActiveProductsSQL = `SELECT count(*) FROM products WHERE is_active`

	listActiveProductsSQL = `SELECT ` + productColumns + productFromJoin + `
		WHERE p.is_active ORDER BY p.created_at DESC LIMIT $1 OFFSET $2`

	topRatedProductsSQL = `SELECT ` + productColumns + productFromJoin + `
		WHERE p.is_active AND p.rating >= 3 ORDER BY p.rating DESC LIMIT $1`

	productBySlugSQL = `SELECT ` + productColumns + productFromJoin + ` WHERE p.slug = $1`

	productByIDSQL = `SELECT ` + productColumns + productFromJoin + ` WHERE p.id = $1`

	productsByCategoriesSQL = `SELECT ` + productColumns + productFromJoin + `
		WHERE p.category_id = ANY($1) ORDER BY p.created_at DESC`

	insertProductSQL = `INSERT INTO products (id, product_type_id, category_id, created_by,
		title, brand, description, slug, regular_price, discount_price, count_in_stock,
		in_stock, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`

	updateProductSQL = `UPDATE products SET title = $2, brand = $3, description = $4,
		slug = $5, regular_price = $6, discount_price = $7, count_in_stock = $8,
		in_stock = $9, is_active = $10, updated_at = now()
		WHERE id = $1 RETURNING updated_at`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`

	insertImageSQL = `INSERT INTO product_images (id, product_id, image, alt_text, is_feature)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at, updated_at`

	imagesForProductsSQL = `SELECT id, product_id, image, alt_text, is_feature, created_at, updated_at
		FROM product_images WHERE product_id = ANY($1) ORDER BY created_at`

	reviewsForProductsSQL = `SELECT id, product_id, created_by, name, rating, comment, created_at, updated_at
		FROM reviews WHERE product_id = ANY($1) ORDER BY created_at`
)

var _ catalog.Repository = (*ProductRepository)(nil)

// ProductRepository implements catalog.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// ListActive returns one page of active products, newest first, with
// category, images, and reviews eagerly attached. Page clamping follows the
// legacy paginator: anything below 1 becomes 1, anything past the end becomes
// the last page.
func (r *ProductRepository) ListActive(ctx context.Context, page, pageSize int) (*catalog.Page, error) {
	if pageSize <= 0 {
		pageSize = 1
	}

	var total int
	if err := r.pool.QueryRow(ctx, countActiveProductsSQL).Scan(&total); err != nil {
		return nil, errors.Wrap(err, "count active products")
	}

	pages := (total + pageSize - 1) / pageSize
	if pages < 1 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	rows, err := r.pool.Query(ctx, listActiveProductsSQL, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, errors.Wrap(err, "list active products")
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, errors.Wrap(err, "scan active products")
	}

	if err := r.attachRelations(ctx, products); err != nil {
		return nil, err
	}

	return &catalog.Page{Products: products, Page: page, Pages: pages}, nil
}

// TopRated returns up to limit active products with rating >= 3, best first.
func (r *ProductRepository) TopRated(ctx context.Context, limit int) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, topRatedProductsSQL, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list top rated products")
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, errors.Wrap(err, "scan top rated products")
	}
	if err := r.attachRelations(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// BySlug returns a single product with its relations.
func (r *ProductRepository) BySlug(ctx context.Context, slug string) (*catalog.Product, error) {
	return r.one(ctx, productBySlugSQL, slug)
}

// ByID returns a single product with its relations.
func (r *ProductRepository) ByID(ctx context.Context, id string) (*catalog.Product, error) {
	return r.one(ctx, productByIDSQL, id)
}

func (r *ProductRepository) one(ctx context.Context, query, arg string) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %q", arg)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %q", arg)
	}

	products := []catalog.Product{p}
	if err := r.attachRelations(ctx, products); err != nil {
		return nil, err
	}
	return &products[0], nil
}

// ListByCategories returns products in any of the given categories, newest
// first, with relations attached.
func (r *ProductRepository) ListByCategories(ctx context.Context, categoryIDs []string) ([]catalog.Product, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, productsByCategoriesSQL, categoryIDs)
	if err != nil {
		return nil, errors.Wrap(err, "list products by categories")
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, errors.Wrap(err, "scan products by categories")
	}
	if err := r.attachRelations(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// Create inserts the product and a placeholder image row in one transaction,
// so a product always has at least one image to render.
func (r *ProductRepository) Create(ctx context.Context, p *catalog.Product) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, insertProductSQL,
		p.ID, p.ProductTypeID, p.CategoryID, p.CreatedBy,
		p.Title, p.Brand, p.Description, p.Slug,
		p.RegularPrice, p.DiscountPrice, p.CountInStock,
		p.InStock, p.IsActive,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return mapProductWriteError(err, p.Slug)
	}

	if len(p.Images) == 0 {
		p.Images = []catalog.Image{{
			ProductID: p.ID,
			Image:     catalog.DefaultImage,
			AltText:   p.Title,
		}}
	}
	for i := range p.Images {
		img := &p.Images[i]
		img.ProductID = p.ID
		if img.ID == "" {
			img.ID = uuid.New().String()
		}
		err := tx.QueryRow(ctx, insertImageSQL,
			img.ID, img.ProductID, img.Image, img.AltText, img.IsFeature,
		).Scan(&img.CreatedAt, &img.UpdatedAt)
		if err != nil {
			return errors.Wrapf(err, "insert image for product %q", p.ID)
		}
	}

	return errors.Wrap(tx.Commit(ctx), "commit")
}

// Update rewrites the mutable fields and bumps updated_at.
func (r *ProductRepository) Update(ctx context.Context, p *catalog.Product) error {
	err := r.pool.QueryRow(ctx, updateProductSQL,
		p.ID, p.Title, p.Brand, p.Description, p.Slug,
		p.RegularPrice, p.DiscountPrice, p.CountInStock,
		p.InStock, p.IsActive,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.ErrNotFound
		}
		return mapProductWriteError(err, p.Slug)
	}
	return nil
}

// Delete removes the product; images, specification values, and reviews go
// with it via ON DELETE CASCADE. A foreign-key violation from order_items
// means the product was sold and must stay.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return catalog.ErrProductInUse
		}
		return errors.Wrapf(err, "delete product %q", id)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// AddImage attaches an image to an existing product.
func (r *ProductRepository) AddImage(ctx context.Context, img *catalog.Image) error {
	err := r.pool.QueryRow(ctx, insertImageSQL,
		img.ID, img.ProductID, img.Image, img.AltText, img.IsFeature,
	).Scan(&img.CreatedAt, &img.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return catalog.ErrNotFound
		}
		return errors.Wrapf(err, "insert image for product %q", img.ProductID)
	}
	return nil
}

// attachRelations loads images and reviews for all given products in two
// batch queries, avoiding per-product round trips.
func (r *ProductRepository) attachRelations(ctx context.Context, products []catalog.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]string, len(products))
	index := make(map[string]*catalog.Product, len(products))
	for i := range products {
		ids[i] = products[i].ID
		index[products[i].ID] = &products[i]
	}

	rows, err := r.pool.Query(ctx, imagesForProductsSQL, ids)
	if err != nil {
		return errors.Wrap(err, "load product images")
	}
	images, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Image, error) {
		var img catalog.Image
		err := row.Scan(&img.ID, &img.ProductID, &img.Image, &img.AltText,
			&img.IsFeature, &img.CreatedAt, &img.UpdatedAt)
		return img, err
	})
	if err != nil {
		return errors.Wrap(err, "scan product images")
	}
	for _, img := range images {
		p := index[img.ProductID]
		p.Images = append(p.Images, img)
	}

	rows, err = r.pool.Query(ctx, reviewsForProductsSQL, ids)
	if err != nil {
		return errors.Wrap(err, "load product reviews")
	}
	reviews, err := pgx.CollectRows(rows, scanReview)
	if err != nil {
		return errors.Wrap(err, "scan product reviews")
	}
	for _, rev := range reviews {
		p := index[rev.ProductID]
		p.Reviews = append(p.Reviews, rev)
	}

	return nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var (
		p      catalog.Product
		c      category.Category
		rating decimal.NullDecimal
	)
	err := row.Scan(
		&p.ID, &p.ProductTypeID, &p.CategoryID, &p.CreatedBy, &p.Title, &p.Brand,
		&p.Description, &p.Slug, &p.RegularPrice, &p.DiscountPrice, &rating,
		&p.NumReviews, &p.CountInStock, &p.InStock, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt,
		&c.ID, &c.Name, &c.Slug, &c.ParentID, &c.Path, &c.Depth, &c.IsActive,
	)
	if rating.Valid {
		p.Rating = &rating.Decimal
	}
	p.Category = &c
	return p, err
}

func scanReview(row pgx.CollectableRow) (review.Review, error) {
	var rev review.Review
	err := row.Scan(&rev.ID, &rev.ProductID, &rev.CreatedBy, &rev.Name,
		&rev.Rating, &rev.Comment, &rev.CreatedAt, &rev.UpdatedAt)
	return rev, err
}

func mapProductWriteError(err error, slug string) error {
	code, constraint := pgErrCode(err)
	switch code {
	case codeUniqueViolation:
		return catalog.ErrSlugTaken
	case codeForeignKeyViolation:
		if strings.Contains(constraint, "product_type") {
			return catalog.ErrTypeNotFound
		}
		return category.ErrNotFound
	}
	return errors.Wrapf(err, "write product %q", slug)
}
