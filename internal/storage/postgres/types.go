package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/domain/catalog"
)

const (
	insertTypeSQL = `INSERT INTO product_types (id, name, is_active) VALUES ($1, $2, $3)`

	listTypesSQL = `SELECT id, name, is_active FROM product_types ORDER BY name`

	deleteTypeSQL = `DELETE FROM product_types WHERE id = $1`

	insertSpecificationSQL = `INSERT INTO product_specifications (id, product_type_id, name)
		VALUES ($1, $2, $3)`

	deleteSpecificationSQL = `DELETE FROM product_specifications WHERE id = $1`

	insertSpecificationValueSQL = `INSERT INTO product_specification_values
		(id, product_id, specification_id, value) VALUES ($1, $2, $3, $4)`
)

var _ catalog.TypeRepository = (*TypeRepository)(nil)

// TypeRepository implements catalog.TypeRepository backed by PostgreSQL.
// Product types and specifications are admin-managed and long-lived; deletes
// are restricted by foreign keys while anything references them.
type TypeRepository struct {
	pool *pgxpool.Pool
}

// NewTypeRepository returns a TypeRepository that uses the given pool.
func NewTypeRepository(pool *pgxpool.Pool) *TypeRepository {
	return &TypeRepository{pool: pool}
}

func (r *TypeRepository) CreateType(ctx context.Context, t *catalog.ProductType) error {
	_, err := r.pool.Exec(ctx, insertTypeSQL, t.ID, t.Name, t.IsActive)
	if err != nil {
		if isUniqueViolation(err) {
			return catalog.ErrNameTaken
		}
		return errors.Wrapf(err, "insert product type %q", t.Name)
	}
	return nil
}

func (r *TypeRepository) ListTypes(ctx context.Context) ([]catalog.ProductType, error) {
	rows, err := r.pool.Query(ctx, listTypesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list product types")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.ProductType, error) {
		var t catalog.ProductType
		err := row.Scan(&t.ID, &t.Name, &t.IsActive)
		return t, err
	})
}

// DeleteType fails with ErrTypeInUse while products or specifications still
// reference the type (RESTRICT foreign keys).
func (r *TypeRepository) DeleteType(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteTypeSQL, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return catalog.ErrTypeInUse
		}
		return errors.Wrapf(err, "delete product type %q", id)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrTypeNotFound
	}
	return nil
}

func (r *TypeRepository) CreateSpecification(ctx context.Context, s *catalog.Specification) error {
	_, err := r.pool.Exec(ctx, insertSpecificationSQL, s.ID, s.ProductTypeID, s.Name)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return catalog.ErrNameTaken
		case isForeignKeyViolation(err):
			return catalog.ErrTypeNotFound
		}
		return errors.Wrapf(err, "insert specification %q", s.Name)
	}
	return nil
}

// DeleteSpecification fails with ErrSpecificationInUse while products carry
// values for it.
func (r *TypeRepository) DeleteSpecification(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteSpecificationSQL, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return catalog.ErrSpecificationInUse
		}
		return errors.Wrapf(err, "delete specification %q", id)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (r *TypeRepository) SetSpecificationValue(ctx context.Context, v *catalog.SpecificationValue) error {
	_, err := r.pool.Exec(ctx, insertSpecificationValueSQL,
		v.ID, v.ProductID, v.SpecificationID, v.Value,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return catalog.ErrNotFound
		}
		return errors.Wrap(err, "insert specification value")
	}
	return nil
}
