// Package mock is a payment provider that accepts every charge.
package mock

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/provider"
)

// Provider is a mock payment provider that always succeeds. Latency
// simulates a round trip and honours context cancellation.
type Provider struct {
	Latency time.Duration
}

var _ provider.Provider = (*Provider)(nil)

// NewProvider creates a mock provider with a 50ms simulated latency.
func NewProvider() *Provider {
	return &Provider{Latency: 50 * time.Millisecond}
}

func (p *Provider) Name() string {
	return "mock"
}

// Charge simulates a payment charge that always succeeds.
func (p *Provider) Charge(ctx context.Context, _ *provider.ChargeInput) (*provider.ChargeResult, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	return &provider.ChargeResult{
		ProviderPaymentID: "mock_pay_" + uuid.New().String(),
		Status:            provider.StatusSucceeded,
	}, nil
}

// Refund simulates a payment refund that always succeeds.
func (p *Provider) Refund(ctx context.Context, _ *provider.RefundInput) (*provider.RefundResult, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	return &provider.RefundResult{
		ProviderRefundID: "mock_ref_" + uuid.New().String(),
		Status:           provider.StatusSucceeded,
	}, nil
}

func (p *Provider) wait(ctx context.Context) error {
	if p.Latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(p.Latency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
