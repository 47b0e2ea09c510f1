package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/internal/domain/auth"
)

// Cart is the checkout payload submitted by a buyer.
type Cart struct {
	TransactionID   string
	PaymentMethod   string
	Tax             decimal.Decimal
	ShippingCharge  decimal.Decimal
	ShippingAddress CartAddress
	Items           []CartItem
}

// CartItem is one requested product+quantity pair.
type CartItem struct {
	ProductID string
	Quantity  int
}

// CartAddress is the delivery address part of the checkout payload.
type CartAddress struct {
	Name    string
	Address string
	City    string
	State   string
	Zipcode string
	Country string
}

// Service encapsulates the order workflow business rules.
type Service struct {
	orders Repository
	now    func() time.Time
}

// NewService creates an order Service backed by the given repository.
func NewService(orders Repository) *Service {
	return &Service{orders: orders, now: time.Now}
}

// PlaceOrder validates the cart, builds the order aggregate, and persists it
// in a single transaction together with the shipping address, line items, and
// stock decrements. On success the order is re-read so line items carry the
// dereferenced product data and the derived totals are computable.
//
// The transaction id falls back to the buyer id when the caller supplies
// none; it is a correlation handle, not a real payment transaction id.
func (s *Service) PlaceOrder(ctx context.Context, buyer auth.Identity, cart Cart) (*Order, error) {
	if len(cart.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for _, item := range cart.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
	}

	txID := cart.TransactionID
	if txID == "" {
		txID = buyer.UserID
	}

	o := &Order{
		ID:             uuid.New().String(),
		CreatedBy:      buyer.UserID,
		TransactionID:  txID,
		PaymentMethod:  cart.PaymentMethod,
		Tax:            cart.Tax,
		ShippingCharge: cart.ShippingCharge,
	}
	o.Items = make([]Item, len(cart.Items))
	for i, item := range cart.Items {
		o.Items[i] = Item{
			ID:        uuid.New().String(),
			OrderID:   o.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
	}
	o.ShippingAddress = &ShippingAddress{
		ID:             uuid.New().String(),
		OrderID:        o.ID,
		Customer:       buyer.UserID,
		Name:           cart.ShippingAddress.Name,
		Address:        cart.ShippingAddress.Address,
		City:           cart.ShippingAddress.City,
		State:          cart.ShippingAddress.State,
		Zipcode:        cart.ShippingAddress.Zipcode,
		Country:        cart.ShippingAddress.Country,
		ShippingCharge: cart.ShippingCharge,
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, err
	}

	placed, err := s.orders.ByID(ctx, o.ID)
	if err != nil {
		return nil, errors.Wrap(err, "reload placed order")
	}
	return placed, nil
}

// Get returns the order when the caller owns it or is an admin. The domain
// keeps ErrNotOwner distinct from ErrNotFound; the HTTP boundary decides how
// much of that distinction to reveal.
func (s *Service) Get(ctx context.Context, caller auth.Identity, id string) (*Order, error) {
	o, err := s.orders.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.Admin && o.CreatedBy != caller.UserID {
		return nil, ErrNotOwner
	}
	return o, nil
}

// History returns the caller's own orders.
func (s *Service) History(ctx context.Context, caller auth.Identity) ([]Order, error) {
	return s.orders.ByUser(ctx, caller.UserID)
}

// ListAll returns every order. Callers must hold the admin capability; the
// HTTP boundary enforces that before invoking.
func (s *Service) ListAll(ctx context.Context) ([]Order, error) {
	return s.orders.List(ctx)
}

// MarkPaid flags the order as paid at the current time. Re-marking an
// already-paid order succeeds and keeps the original timestamp.
func (s *Service) MarkPaid(ctx context.Context, id string) error {
	return s.orders.MarkPaid(ctx, id, s.now())
}

// MarkDelivered flags the order as delivered at the current time, with the
// same idempotency as MarkPaid.
func (s *Service) MarkDelivered(ctx context.Context, id string) error {
	return s.orders.MarkDelivered(ctx, id, s.now())
}
