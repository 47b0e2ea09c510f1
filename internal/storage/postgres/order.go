package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, created_by, transaction_id, payment_method, tax, shipping_charge)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`

	insertShippingAddressSQL = `INSERT INTO shipping_addresses
		(id, order_id, customer, name, address, city, state, zipcode, country, shipping_charge)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING created_at`

	// Guarded atomic decrement: zero rows affected means the product is
	// missing or the stock is insufficient, and the whole checkout rolls back.
	// A single UPDATE cannot lose concurrent decrements, unlike a
	// read-then-write pair.
	decrementStockSQL = `UPDATE products
		SET count_in_stock = count_in_stock - $2,
		    in_stock = count_in_stock - $2 > 0,
		    updated_at = now()
		WHERE id = $1 AND count_in_stock >= $2`

	productExistsSQL = `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`

	insertOrderItemSQL = `INSERT INTO order_items (id, order_id, product_id, quantity)
		VALUES ($1, $2, $3, $4) RETURNING created_at`

	orderColumns = `id, created_by, transaction_id, payment_method, tax, shipping_charge,
		is_paid, is_delivered, paid_at, delivered_at, created_at`

	orderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	ordersByUserSQL = `SELECT ` + orderColumns + ` FROM orders WHERE created_by = $1 ORDER BY created_at`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at`

	// Line items dereference the linked product at read time: price is the
	// current discount price, the image is the oldest product image (matching
	// the catalog's created_at ordering) with the placeholder as fallback.
	orderItemsSQL = `SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.created_at,
		p.title, p.slug, p.brand, p.discount_price,
		COALESCE(img.image, 'images/default.png')
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		LEFT JOIN LATERAL (
			SELECT image FROM product_images
			WHERE product_id = p.id ORDER BY created_at LIMIT 1
		) img ON TRUE
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.created_at`

	shippingAddressesSQL = `SELECT id, order_id, customer, name, address, city, state,
		zipcode, country, shipping_charge, created_at
		FROM shipping_addresses WHERE order_id = ANY($1)`

	markPaidSQL = `UPDATE orders
		SET is_paid = TRUE, paid_at = COALESCE(paid_at, $2)
		WHERE id = $1`

	markDeliveredSQL = `UPDATE orders
		SET is_delivered = TRUE, delivered_at = COALESCE(delivered_at, $2)
		WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order aggregate in one transaction: order row first
// (items and address carry a foreign key to it), then the shipping address,
// then each line item with its guarded stock decrement. Any failure aborts
// the whole checkout; there is no partial order and no partial decrement.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, insertOrderSQL,
		o.ID, o.CreatedBy, o.TransactionID, o.PaymentMethod, o.Tax, o.ShippingCharge,
	).Scan(&o.CreatedAt)
	if err != nil {
		return errors.Wrapf(err, "insert order %q", o.ID)
	}

	if o.ShippingAddress != nil {
		addr := o.ShippingAddress
		err = tx.QueryRow(ctx, insertShippingAddressSQL,
			addr.ID, o.ID, addr.Customer, addr.Name, addr.Address,
			addr.City, addr.State, addr.Zipcode, addr.Country, addr.ShippingCharge,
		).Scan(&addr.CreatedAt)
		if err != nil {
			return errors.Wrapf(err, "insert shipping address for order %q", o.ID)
		}
	}

	for i := range o.Items {
		item := &o.Items[i]

		tag, err := tx.Exec(ctx, decrementStockSQL, item.ProductID, item.Quantity)
		if err != nil {
			return errors.Wrapf(err, "decrement stock for product %q", item.ProductID)
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, productExistsSQL, item.ProductID).Scan(&exists); err != nil {
				return errors.Wrapf(err, "check product %q", item.ProductID)
			}
			if !exists {
				return &order.ProductNotFoundError{ProductID: item.ProductID}
			}
			return &order.InsufficientStockError{ProductID: item.ProductID, Requested: item.Quantity}
		}

		err = tx.QueryRow(ctx, insertOrderItemSQL,
			item.ID, o.ID, item.ProductID, item.Quantity,
		).Scan(&item.CreatedAt)
		if err != nil {
			return errors.Wrapf(err, "insert order item for product %q", item.ProductID)
		}
	}

	return errors.Wrap(tx.Commit(ctx), "commit")
}

// ByID returns the full order aggregate.
func (r *OrderRepository) ByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, orderByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}

	orders := []order.Order{o}
	if err := r.attachRelations(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// ByUser returns the user's orders, oldest first, with relations attached.
func (r *OrderRepository) ByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, ordersByUserSQL, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "list orders for user %q", userID)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, errors.Wrap(err, "scan orders")
	}
	if err := r.attachRelations(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// List returns all orders, oldest first, with relations attached.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, errors.Wrap(err, "scan orders")
	}
	if err := r.attachRelations(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// MarkPaid flags the order paid. COALESCE keeps the first timestamp, making
// repeated calls idempotent.
func (r *OrderRepository) MarkPaid(ctx context.Context, id string, at time.Time) error {
	return r.mark(ctx, markPaidSQL, id, at)
}

// MarkDelivered flags the order delivered, same semantics as MarkPaid.
func (r *OrderRepository) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	return r.mark(ctx, markDeliveredSQL, id, at)
}

func (r *OrderRepository) mark(ctx context.Context, query, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return errors.Wrapf(err, "mark order %q", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// attachRelations loads line items (with dereferenced product data) and
// shipping addresses for all given orders in two batch queries.
func (r *OrderRepository) attachRelations(ctx context.Context, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	index := make(map[string]*order.Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = &orders[i]
	}

	rows, err := r.pool.Query(ctx, orderItemsSQL, ids)
	if err != nil {
		return errors.Wrap(err, "load order items")
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Item, error) {
		var item order.Item
		err := row.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity,
			&item.CreatedAt, &item.Name, &item.Slug, &item.Brand, &item.Price, &item.Image)
		return item, err
	})
	if err != nil {
		return errors.Wrap(err, "scan order items")
	}
	for _, item := range items {
		o := index[item.OrderID]
		o.Items = append(o.Items, item)
	}

	rows, err = r.pool.Query(ctx, shippingAddressesSQL, ids)
	if err != nil {
		return errors.Wrap(err, "load shipping addresses")
	}
	addrs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.ShippingAddress, error) {
		var a order.ShippingAddress
		err := row.Scan(&a.ID, &a.OrderID, &a.Customer, &a.Name, &a.Address,
			&a.City, &a.State, &a.Zipcode, &a.Country, &a.ShippingCharge, &a.CreatedAt)
		return a, err
	})
	if err != nil {
		return errors.Wrap(err, "scan shipping addresses")
	}
	for i := range addrs {
		o := index[addrs[i].OrderID]
		o.ShippingAddress = &addrs[i]
	}

	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(&o.ID, &o.CreatedBy, &o.TransactionID, &o.PaymentMethod,
		&o.Tax, &o.ShippingCharge, &o.IsPaid, &o.IsDelivered,
		&o.PaidAt, &o.DeliveredAt, &o.CreatedAt)
	return o, err
}
