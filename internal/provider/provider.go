// Package provider abstracts the external payment processor.
package provider

import (
	"context"

	"github.com/shopspring/decimal"
)

// Charge statuses reported by providers.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// ChargeInput holds the parameters for charging a payment.
type ChargeInput struct {
	OrderID     int64
	Amount      decimal.Decimal
	Method      string
	Description string
}

// ChargeResult is the provider's answer to a charge. A decline is a result
// with Status "failed", not an error; errors mean the provider could not
// be reached or did not answer.
type ChargeResult struct {
	ProviderPaymentID string
	Status            string
	FailureReason     string
}

// Succeeded reports whether the charge went through.
func (r *ChargeResult) Succeeded() bool {
	return r.Status == StatusSucceeded
}

// RefundInput holds the parameters for refunding a payment.
type RefundInput struct {
	ProviderPaymentID string
	Amount            decimal.Decimal
	Reason            string
}

// RefundResult holds the result of a refund operation.
type RefundResult struct {
	ProviderRefundID string
	Status           string
	FailureReason    string
}

// Provider defines the interface for payment provider integrations.
type Provider interface {
	// Name returns the provider name (e.g., "mock").
	Name() string

	Charge(ctx context.Context, input *ChargeInput) (*ChargeResult, error)
	Refund(ctx context.Context, input *RefundInput) (*RefundResult, error)
}
