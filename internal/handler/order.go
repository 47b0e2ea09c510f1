package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"storefront/internal/domain/auth"
	"storefront/internal/domain/order"
)

type orderItemJSON struct {
	ID        string          `json:"id"`
	Product   string          `json:"product"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Brand     string          `json:"brand"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	CreatedAt time.Time       `json:"created_at"`
}

type shippingAddressJSON struct {
	ID             string          `json:"id"`
	Order          string          `json:"order"`
	Customer       string          `json:"customer"`
	Name           string          `json:"name"`
	Address        string          `json:"address"`
	City           string          `json:"city"`
	State          string          `json:"state"`
	Zipcode        string          `json:"zipcode"`
	Country        string          `json:"country"`
	ShippingCharge decimal.Decimal `json:"shipping_charge"`
	CreatedAt      time.Time       `json:"created_at"`
}

// orderJSON mirrors the legacy order shape: shippingAddress is the address
// object, or the JSON literal false when the order has none.
type orderJSON struct {
	ID              string          `json:"id"`
	CreatedBy       string          `json:"created_by"`
	OrderItems      []orderItemJSON `json:"orderItems"`
	ShippingAddress any             `json:"shippingAddress"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	TotalItems      int             `json:"total_items"`
	PaymentMethod   string          `json:"payment_method"`
	TransactionID   string          `json:"transaction_id"`
	Tax             decimal.Decimal `json:"tax"`
	ShippingCharge  decimal.Decimal `json:"shipping_charge"`
	IsPaid          bool            `json:"is_paid"`
	IsDelivered     bool            `json:"is_delivered"`
	PaidAt          *time.Time      `json:"paid_at"`
	DeliveredAt     *time.Time      `json:"delivered_at"`
	CreatedAt       time.Time       `json:"created_at"`
}

type orderResponse struct {
	Order  orderJSON `json:"order"`
	Status int       `json:"status"`
}

func (h *Handler) orderJSON(o *order.Order) orderJSON {
	out := orderJSON{
		ID:              o.ID,
		CreatedBy:       o.CreatedBy,
		OrderItems:      []orderItemJSON{},
		ShippingAddress: false,
		TotalPrice:      o.TotalPrice(),
		TotalItems:      o.TotalItems(),
		PaymentMethod:   o.PaymentMethod,
		TransactionID:   o.TransactionID,
		Tax:             o.Tax,
		ShippingCharge:  o.ShippingCharge,
		IsPaid:          o.IsPaid,
		IsDelivered:     o.IsDelivered,
		PaidAt:          o.PaidAt,
		DeliveredAt:     o.DeliveredAt,
		CreatedAt:       o.CreatedAt,
	}
	for _, item := range o.Items {
		out.OrderItems = append(out.OrderItems, orderItemJSON{
			ID:        item.ID,
			Product:   item.ProductID,
			Name:      item.Name,
			Slug:      item.Slug,
			Brand:     item.Brand,
			Image:     h.imageURL(item.Image),
			Price:     item.Price,
			Quantity:  item.Quantity,
			CreatedAt: item.CreatedAt,
		})
	}
	if a := o.ShippingAddress; a != nil {
		out.ShippingAddress = shippingAddressJSON{
			ID:             a.ID,
			Order:          a.OrderID,
			Customer:       a.Customer,
			Name:           a.Name,
			Address:        a.Address,
			City:           a.City,
			State:          a.State,
			Zipcode:        a.Zipcode,
			Country:        a.Country,
			ShippingCharge: a.ShippingCharge,
			CreatedAt:      a.CreatedAt,
		}
	}
	return out
}

func (h *Handler) ordersJSON(orders []order.Order) []orderJSON {
	out := make([]orderJSON, len(orders))
	for i := range orders {
		out[i] = h.orderJSON(&orders[i])
	}
	return out
}

func (h *Handler) writeOrders(w http.ResponseWriter, r *http.Request, orders []order.Order) {
	h.writeJSON(w, r, http.StatusOK, struct {
		Orders []orderJSON `json:"orders"`
		Status int         `json:"status"`
	}{h.ordersJSON(orders), http.StatusOK})
}

type placeOrderRequest struct {
	OrderItems []struct {
		Product string `json:"product"`
		Qty     int    `json:"qty"`
	} `json:"orderItems"`
	TransactionID   string          `json:"transactionId"`
	PaymentMethod   string          `json:"paymentMethod"`
	Tax             decimal.Decimal `json:"tax"`
	ShippingCharge  decimal.Decimal `json:"shippingCharge"`
	ShippingAddress struct {
		Name    string `json:"name"`
		Address string `json:"address"`
		City    string `json:"city"`
		State   string `json:"state"`
		Zipcode string `json:"zipcode"`
		Country string `json:"country"`
	} `json:"shippingAddress"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authorize(w, r, auth.Authenticated)
	if !ok {
		return
	}
	var req placeOrderRequest
	if !h.decode(w, r, &req) {
		return
	}

	cart := order.Cart{
		TransactionID:  req.TransactionID,
		PaymentMethod:  req.PaymentMethod,
		Tax:            req.Tax,
		ShippingCharge: req.ShippingCharge,
		ShippingAddress: order.CartAddress{
			Name:    req.ShippingAddress.Name,
			Address: req.ShippingAddress.Address,
			City:    req.ShippingAddress.City,
			State:   req.ShippingAddress.State,
			Zipcode: req.ShippingAddress.Zipcode,
			Country: req.ShippingAddress.Country,
		},
	}
	for _, item := range req.OrderItems {
		cart.Items = append(cart.Items, order.CartItem{ProductID: item.Product, Quantity: item.Qty})
	}

	placed, err := h.orders.PlaceOrder(r.Context(), id, cart)
	var (
		notFound    *order.ProductNotFoundError
		badQuantity *order.InvalidQuantityError
		outOfStock  *order.InsufficientStockError
	)
	switch {
	case err == nil:
	case errors.Is(err, order.ErrEmptyItems):
		h.detail(w, r, http.StatusBadRequest, "No Order Items")
		return
	case errors.As(err, &badQuantity):
		h.detail(w, r, http.StatusBadRequest, "Quantity must be greater than 0")
		return
	case errors.As(err, &notFound):
		h.detail(w, r, http.StatusBadRequest, "Product does not exist")
		return
	case errors.As(err, &outOfStock):
		h.detail(w, r, http.StatusBadRequest, "Product is out of stock")
		return
	default:
		h.serverError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, orderResponse{h.orderJSON(placed), http.StatusOK})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, auth.Admin); !ok {
		return
	}
	orders, err := h.orders.ListAll(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.writeOrders(w, r, orders)
}

func (h *Handler) orderHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authorize(w, r, auth.Authenticated)
	if !ok {
		return
	}
	orders, err := h.orders.History(r.Context(), id)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.writeOrders(w, r, orders)
}

// orderByID keeps the legacy error contract: both "not yours" and "does not
// exist" come back as 400 with their historical detail strings. Clients were
// built against those exact responses.
func (h *Handler) orderByID(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authorize(w, r, auth.Authenticated)
	if !ok {
		return
	}
	o, err := h.orders.Get(r.Context(), id, r.PathValue("id"))
	switch {
	case err == nil:
	case errors.Is(err, order.ErrNotOwner):
		h.detail(w, r, http.StatusBadRequest, "Not authorized to view this order!")
		return
	case errors.Is(err, order.ErrNotFound):
		h.detail(w, r, http.StatusBadRequest, "Order does not exist!")
		return
	default:
		h.serverError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, orderResponse{h.orderJSON(o), http.StatusOK})
}

// markPaid needs only an authenticated caller while markDelivered needs
// admin: payment confirmation arrives as a low-trust callback, delivery
// confirmation is an operational action.
func (h *Handler) markPaid(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, auth.Authenticated); !ok {
		return
	}
	err := h.orders.MarkPaid(r.Context(), r.PathValue("id"))
	switch {
	case err == nil:
	case errors.Is(err, order.ErrNotFound):
		h.detail(w, r, http.StatusNotFound, "Order does not exist!")
		return
	default:
		h.serverError(w, r, err)
		return
	}
	h.detail(w, r, http.StatusOK, "Order was paid successfully")
}

func (h *Handler) markDelivered(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, auth.Admin); !ok {
		return
	}
	err := h.orders.MarkDelivered(r.Context(), r.PathValue("id"))
	switch {
	case err == nil:
	case errors.Is(err, order.ErrNotFound):
		h.detail(w, r, http.StatusNotFound, "Order does not exist!")
		return
	default:
		h.serverError(w, r, err)
		return
	}
	h.detail(w, r, http.StatusOK, "Order was delivered successfully")
}
