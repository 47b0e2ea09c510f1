// Package order implements the checkout workflow: transactional order
// placement with stock reconciliation, status transitions, and derived totals.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for order operations.
var (
	// ErrEmptyItems is returned when the cart has no line items.
	ErrEmptyItems = errors.New("no order items")
	// ErrNotFound is returned when no order matches the given id.
	ErrNotFound = errors.New("order not found")
	// ErrNotOwner is returned when a non-admin caller reads an order created
	// by somebody else.
	ErrNotOwner = errors.New("not authorized to view this order")
)

// ProductNotFoundError indicates a cart line references a missing product.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a cart line has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// InsufficientStockError indicates the requested quantity exceeds the
// product's stock. Checkout rejects over-selling instead of letting the
// count go negative.
type InsufficientStockError struct {
	ProductID string
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s (requested %d)", e.ProductID, e.Requested)
}

// Order is a placed customer order with its line items and shipping address.
type Order struct {
	ID             string
	CreatedBy      string
	TransactionID  string
	PaymentMethod  string
	Tax            decimal.Decimal
	ShippingCharge decimal.Decimal
	IsPaid         bool
	IsDelivered    bool
	PaidAt         *time.Time
	DeliveredAt    *time.Time
	CreatedAt      time.Time

	Items           []Item
	ShippingAddress *ShippingAddress
}

// Item is one product+quantity line within an order. Price, Name, Image,
// Brand, and Slug are dereferenced from the linked product at read time, so
// they always reflect current product data, not price-at-purchase.
type Item struct {
	ID        string
	OrderID   string
	ProductID string
	Quantity  int
	CreatedAt time.Time

	Name  string
	Slug  string
	Brand string
	Image string
	Price decimal.Decimal
}

// Subtotal is the line total: current product price times quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ShippingAddress is the one-to-one delivery address of an order. The
// shipping charge is duplicated from the order.
type ShippingAddress struct {
	ID             string
	OrderID        string
	Customer       string
	Name           string
	Address        string
	City           string
	State          string
	Zipcode        string
	Country        string
	ShippingCharge decimal.Decimal
	CreatedAt      time.Time
}

// TotalPrice is the derived order total: sum of line subtotals plus tax and
// shipping charge. Computed over the loaded aggregate, never stored.
func (o *Order) TotalPrice() decimal.Decimal {
	total := o.Tax.Add(o.ShippingCharge)
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// TotalItems is the derived sum of line quantities.
func (o *Order) TotalItems() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create persists the order, its shipping address, and its items, and
	// decrements each product's stock, all in one transaction. Any failure
	// (missing product, insufficient stock) rolls the whole order back.
	Create(ctx context.Context, o *Order) error
	// ByID returns the full order aggregate (items with dereferenced product
	// data, shipping address), or ErrNotFound.
	ByID(ctx context.Context, id string) (*Order, error)
	// ByUser returns the orders created by the given user, oldest first.
	ByUser(ctx context.Context, userID string) ([]Order, error)
	// List returns all orders, oldest first.
	List(ctx context.Context) ([]Order, error)
	// MarkPaid sets is_paid and paid_at. Idempotent: re-marking keeps the
	// original timestamp. Returns ErrNotFound for unknown ids.
	MarkPaid(ctx context.Context, id string, at time.Time) error
	// MarkDelivered sets is_delivered and delivered_at, same semantics as
	// MarkPaid.
	MarkDelivered(ctx context.Context, id string, at time.Time) error
}
