package domain

import "time"

// CartStatus is the lifecycle state of a cart.
type CartStatus string

const (
	CartStatusActive  CartStatus = "ACTIVE"
	CartStatusOrdered CartStatus = "ORDERED"
)

// Cart is a customer's basket. A customer has at most one ACTIVE cart; once
// ORDERED it is never modified again.
type Cart struct {
	ID         int64
	CustomerID int64
	Status     CartStatus
	Lines      []CartLine
	CreatedAt  time.Time
}

// MaxLineQuantity caps the quantity of a single cart line, including the
// sum of repeated adds of the same product.
const MaxLineQuantity = 10000

// CartLine is one product in a cart. There is at most one line per product.
type CartLine struct {
	ID        int64
	CartID    int64
	ProductID int64
	Quantity  int
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Line returns the line with the given ID.
func (c *Cart) Line(id int64) (CartLine, bool) {
	for _, l := range c.Lines {
		if l.ID == id {
			return l, true
		}
	}
	return CartLine{}, false
}
