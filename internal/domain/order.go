package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "NEW"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// OrderStatuses lists every valid status.
func OrderStatuses() []OrderStatus {
	return []OrderStatus{OrderStatusNew, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled}
}

// ParseOrderStatus accepts the exact upper-case status name.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	for _, st := range OrderStatuses() {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further business transition is expected.
// Status updates do not enforce it.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// Order is created from a cart at checkout. Its total is fixed at that
// moment and its lines are immutable.
type Order struct {
	ID          int64
	CustomerID  int64
	Status      OrderStatus
	TotalAmount *decimal.Decimal
	Lines       []OrderLine
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderLine records a product, quantity and the unit price paid.
type OrderLine struct {
	ID              int64
	OrderID         int64
	ProductID       int64
	Quantity        int
	PriceAtPurchase decimal.Decimal
}

// LinesTotal sums quantity × price over all lines, rounded to cents.
func (o *Order) LinesTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range o.Lines {
		sum = sum.Add(LineTotal(l.Quantity, l.PriceAtPurchase))
	}
	return RoundMoney(sum)
}

// AmountDue is the stored total, or the lines total for orders that never
// had one recorded.
func (o *Order) AmountDue() decimal.Decimal {
	if o.TotalAmount != nil {
		return RoundMoney(*o.TotalAmount)
	}
	return o.LinesTotal()
}
