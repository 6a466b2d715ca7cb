package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the outcome of a payment attempt.
type PaymentStatus string

const (
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// Payment is an immutable record of one attempt to settle an order.
type Payment struct {
	ID            int64
	OrderID       int64
	Amount        decimal.Decimal
	Method        string
	Status        PaymentStatus
	Provider      string
	ProviderRef   string
	FailureReason string
	CreatedAt     time.Time
}
