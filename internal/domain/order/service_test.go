package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain/auth"
)

// --- Mock repository ---

type mockOrderRepo struct {
	created   *Order
	createErr error

	byID map[string]*Order

	paidID         string
	paidAt         time.Time
	deliveredID    string
	markPaidErr    error
	markDeliverErr error
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = o

	// Simulate the read-time product dereference the storage layer performs:
	// attach a price to every line so derived totals are computable.
	loaded := *o
	loaded.Items = make([]Item, len(o.Items))
	for i, item := range o.Items {
		item.Name = "Widget"
		item.Price = decimal.RequireFromString("499.00")
		loaded.Items[i] = item
	}
	if m.byID == nil {
		m.byID = make(map[string]*Order)
	}
	m.byID[o.ID] = &loaded
	return nil
}

func (m *mockOrderRepo) ByID(_ context.Context, id string) (*Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) ByUser(_ context.Context, userID string) ([]Order, error) {
	var out []Order
	for _, o := range m.byID {
		if o.CreatedBy == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) List(_ context.Context) ([]Order, error) {
	var out []Order
	for _, o := range m.byID {
		out = append(out, *o)
	}
	return out, nil
}

func (m *mockOrderRepo) MarkPaid(_ context.Context, id string, at time.Time) error {
	if m.markPaidErr != nil {
		return m.markPaidErr
	}
	m.paidID = id
	m.paidAt = at
	return nil
}

func (m *mockOrderRepo) MarkDelivered(_ context.Context, id string, _ time.Time) error {
	if m.markDeliverErr != nil {
		return m.markDeliverErr
	}
	m.deliveredID = id
	return nil
}

// --- Helpers ---

var buyer = auth.Identity{UserID: "user-1", Name: "Ada"}

func validCart() Cart {
	return Cart{
		PaymentMethod:  "PayPal",
		Tax:            decimal.RequireFromString("10.00"),
		ShippingCharge: decimal.RequireFromString("5.00"),
		ShippingAddress: CartAddress{
			Name:    "Ada",
			Address: "1 Main St",
			City:    "Springfield",
			State:   "IL",
			Zipcode: "62701",
			Country: "US",
		},
		Items: []CartItem{{ProductID: "p1", Quantity: 2}},
	}
}

// --- Tests ---

func TestPlaceOrder_EmptyItems(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := NewService(repo)

	cart := validCart()
	cart.Items = nil

	_, err := svc.PlaceOrder(context.Background(), buyer, cart)
	require.ErrorIs(t, err, ErrEmptyItems)
	assert.Nil(t, repo.created, "nothing must be persisted for an empty cart")
}

func TestPlaceOrder_InvalidQuantity(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := NewService(repo)

	cart := validCart()
	cart.Items = []CartItem{{ProductID: "p1", Quantity: 0}}

	_, err := svc.PlaceOrder(context.Background(), buyer, cart)

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Equal(t, "p1", iqErr.ProductID)
	assert.Nil(t, repo.created)
}

func TestPlaceOrder_Success(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := NewService(repo)

	placed, err := svc.PlaceOrder(context.Background(), buyer, validCart())
	require.NoError(t, err)

	require.NotNil(t, repo.created)
	assert.Equal(t, "user-1", repo.created.CreatedBy)
	assert.Equal(t, "PayPal", repo.created.PaymentMethod)
	require.NotNil(t, repo.created.ShippingAddress)
	assert.Equal(t, "user-1", repo.created.ShippingAddress.Customer)
	assert.True(t, decimal.RequireFromString("5.00").Equal(repo.created.ShippingAddress.ShippingCharge),
		"shipping charge is duplicated onto the address")

	assert.Equal(t, 2, placed.TotalItems())
	// 499.00*2 + 10.00 tax + 5.00 shipping
	assert.True(t, decimal.RequireFromString("1013.00").Equal(placed.TotalPrice()))
}

func TestPlaceOrder_TransactionIDFallsBackToBuyer(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := NewService(repo)

	_, err := svc.PlaceOrder(context.Background(), buyer, validCart())
	require.NoError(t, err)
	assert.Equal(t, "user-1", repo.created.TransactionID)
}

func TestPlaceOrder_ExplicitTransactionID(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := NewService(repo)

	cart := validCart()
	cart.TransactionID = "tx-42"

	_, err := svc.PlaceOrder(context.Background(), buyer, cart)
	require.NoError(t, err)
	assert.Equal(t, "tx-42", repo.created.TransactionID)
}

func TestPlaceOrder_RepositoryFailure(t *testing.T) {
	repo := &mockOrderRepo{createErr: &InsufficientStockError{ProductID: "p1", Requested: 2}}
	svc := NewService(repo)

	_, err := svc.PlaceOrder(context.Background(), buyer, validCart())

	var isErr *InsufficientStockError
	require.ErrorAs(t, err, &isErr)
	assert.Equal(t, "p1", isErr.ProductID)
}

func TestGet_OwnerAndAdmin(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := NewService(repo)

	placed, err := svc.PlaceOrder(context.Background(), buyer, validCart())
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), buyer, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, placed.ID, got.ID)

	admin := auth.Identity{UserID: "staff-1", Admin: true}
	_, err = svc.Get(context.Background(), admin, placed.ID)
	require.NoError(t, err)
}

func TestGet_ForbiddenForStranger(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := NewService(repo)

	placed, err := svc.PlaceOrder(context.Background(), buyer, validCart())
	require.NoError(t, err)

	stranger := auth.Identity{UserID: "user-2"}
	_, err = svc.Get(context.Background(), stranger, placed.ID)
	require.ErrorIs(t, err, ErrNotOwner)
}

func TestGet_NotFound(t *testing.T) {
	svc := NewService(&mockOrderRepo{})

	_, err := svc.Get(context.Background(), buyer, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMarkPaid_Delegates(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := NewService(repo)
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }

	require.NoError(t, svc.MarkPaid(context.Background(), "o1"))
	assert.Equal(t, "o1", repo.paidID)
	assert.Equal(t, time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), repo.paidAt)
}

func TestMarkDelivered_PropagatesNotFound(t *testing.T) {
	repo := &mockOrderRepo{markDeliverErr: ErrNotFound}
	svc := NewService(repo)

	err := svc.MarkDelivered(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPlaceOrder_ReloadFailure(t *testing.T) {
	repo := &reloadFailingRepo{}
	svc := NewService(repo)

	_, err := svc.PlaceOrder(context.Background(), buyer, validCart())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reload placed order")
}

type reloadFailingRepo struct {
	mockOrderRepo
}

func (r *reloadFailingRepo) Create(_ context.Context, _ *Order) error { return nil }

func (r *reloadFailingRepo) ByID(_ context.Context, _ string) (*Order, error) {
	return nil, errors.New("connection reset")
}
