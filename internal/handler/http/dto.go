package http

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
)

// Money renders an amount as a JSON number with two decimals.
type Money decimal.Decimal

// MarshalJSON implements json.Marshaler.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(m).StringFixed(domain.MoneyScale)), nil
}

// --- Request DTOs ---

// AddItemRequest is the JSON body for adding a product to a cart. Quantity
// is checked by the service so a bad value is a plain 400.
type AddItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// PaymentRequest is the JSON body for paying an order. Amount is optional.
type PaymentRequest struct {
	OrderID int64            `json:"orderId" validate:"required,gt=0"`
	Amount  *decimal.Decimal `json:"amount"`
	Method  string           `json:"method" validate:"required,max=32"`
}

// ProductRequest is the JSON body for creating or replacing a product.
type ProductRequest struct {
	Name        string          `json:"name" validate:"required,max=255"`
	Description string          `json:"description" validate:"max=2000"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"imageUrl" validate:"omitempty,url,max=1024"`
	CategoryID  int64           `json:"categoryId" validate:"required,gt=0"`
}

// --- Response DTOs ---

// CartLineResponse is one cart line.
type CartLineResponse struct {
	ID        int64 `json:"id"`
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// CartResponse is a cart with its lines.
type CartResponse struct {
	ID         int64              `json:"id"`
	CustomerID int64              `json:"customerId"`
	Items      []CartLineResponse `json:"items"`
	Status     domain.CartStatus  `json:"status"`
}

// OrderLineResponse is one order line with the unit price paid.
type OrderLineResponse struct {
	ID              int64 `json:"id"`
	ProductID       int64 `json:"productId"`
	Quantity        int   `json:"quantity"`
	PriceAtPurchase Money `json:"priceAtPurchase"`
}

// OrderResponse is an order with its lines. TotalAmount is null only for
// orders that never had a total recorded.
type OrderResponse struct {
	ID          int64               `json:"id"`
	CustomerID  int64               `json:"customerId"`
	TotalAmount *Money              `json:"totalAmount"`
	Items       []OrderLineResponse `json:"items"`
	Status      domain.OrderStatus  `json:"status"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// PaymentResponse reports the outcome of a payment attempt.
type PaymentResponse struct {
	PaymentID int64                `json:"paymentId,omitempty"`
	Status    domain.PaymentStatus `json:"status"`
	Message   string               `json:"message,omitempty"`
}

// PaymentRecordResponse is one recorded payment attempt for an order.
type PaymentRecordResponse struct {
	ID            int64                `json:"id"`
	OrderID       int64                `json:"orderId"`
	Amount        Money                `json:"amount"`
	Method        string               `json:"method"`
	Status        domain.PaymentStatus `json:"status"`
	FailureReason string               `json:"failureReason,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
}

// ProductResponse is a catalog product with its stock flag.
type ProductResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       Money  `json:"price"`
	ImageURL    string `json:"imageUrl"`
	CategoryID  int64  `json:"categoryId"`
	InStock     bool   `json:"inStock"`
}

func toCartLineResponse(l domain.CartLine) CartLineResponse {
	return CartLineResponse{ID: l.ID, ProductID: l.ProductID, Quantity: l.Quantity}
}

func toCartResponse(c *domain.Cart) CartResponse {
	items := make([]CartLineResponse, len(c.Lines))
	for i, l := range c.Lines {
		items[i] = toCartLineResponse(l)
	}
	return CartResponse{ID: c.ID, CustomerID: c.CustomerID, Items: items, Status: c.Status}
}

func toOrderResponse(o *domain.Order) OrderResponse {
	items := make([]OrderLineResponse, len(o.Lines))
	for i, l := range o.Lines {
		items[i] = OrderLineResponse{
			ID:              l.ID,
			ProductID:       l.ProductID,
			Quantity:        l.Quantity,
			PriceAtPurchase: Money(l.PriceAtPurchase),
		}
	}
	resp := OrderResponse{
		ID:         o.ID,
		CustomerID: o.CustomerID,
		Items:      items,
		Status:     o.Status,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
	if o.TotalAmount != nil {
		total := Money(*o.TotalAmount)
		resp.TotalAmount = &total
	}
	return resp
}

func toOrderResponses(orders []domain.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	return out
}

func toPaymentRecordResponses(payments []domain.Payment) []PaymentRecordResponse {
	out := make([]PaymentRecordResponse, len(payments))
	for i, p := range payments {
		out[i] = PaymentRecordResponse{
			ID:            p.ID,
			OrderID:       p.OrderID,
			Amount:        Money(p.Amount),
			Method:        p.Method,
			Status:        p.Status,
			FailureReason: p.FailureReason,
			CreatedAt:     p.CreatedAt,
		}
	}
	return out
}

func toProductResponse(v *service.ProductView) ProductResponse {
	return ProductResponse{
		ID:          v.ID,
		Name:        v.Name,
		Description: v.Description,
		Price:       Money(v.Price),
		ImageURL:    v.ImageURL,
		CategoryID:  v.CategoryID,
		InStock:     v.InStock,
	}
}

func toProductResponses(views []service.ProductView) []ProductResponse {
	out := make([]ProductResponse, len(views))
	for i := range views {
		out[i] = toProductResponse(&views[i])
	}
	return out
}

func (r ProductRequest) toInput() service.ProductInput {
	return service.ProductInput{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		ImageURL:    r.ImageURL,
		CategoryID:  r.CategoryID,
	}
}
