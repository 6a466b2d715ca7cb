package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/cache"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/provider"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/resilience"
)

// FallbackMessage is returned when payment processing is degraded.
const FallbackMessage = "payment service unreachable, please try again"

const refundTimeout = 10 * time.Second

// PaymentRequest asks to settle an order. Amount is optional; when given it
// must equal the amount due to the cent.
type PaymentRequest struct {
	OrderID int64
	Amount  *decimal.Decimal
	Method  string
}

// PaymentResult is the outcome reported to the client. PaymentID is zero
// when nothing was recorded.
type PaymentResult struct {
	PaymentID int64
	Status    domain.PaymentStatus
	Message   string
}

// PaymentService settles orders through a payment provider under a
// resilience policy.
type PaymentService struct {
	store    repository.Store
	provider provider.Provider
	policy   *resilience.Policy[*PaymentResult]
	cache    cacheAside
	producer *event.Producer
	logger   *slog.Logger
}

// NewPaymentService creates a new payment service.
func NewPaymentService(
	store repository.Store,
	prov provider.Provider,
	policy *resilience.Policy[*PaymentResult],
	c cache.Cache,
	producer *event.Producer,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		store:    store,
		provider: prov,
		policy:   policy,
		cache:    newCacheAside(c, 0, logger),
		producer: producer,
		logger:   logger,
	}
}

// ProcessPayment charges the amount due for an order and completes it.
//
// Business failures (unknown order, amount mismatch) are returned as
// errors. Dependency failures are not: the caller gets a FAILED result
// with FallbackMessage and nothing is persisted.
func (s *PaymentService) ProcessPayment(ctx context.Context, req PaymentRequest) (*PaymentResult, error) {
	res, outcome, err := s.policy.Execute(ctx, func(ctx context.Context) (*PaymentResult, error) {
		return s.process(ctx, req)
	})

	switch outcome {
	case resilience.Succeeded:
		paymentsTotal.WithLabelValues(string(res.Status)).Inc()
		return res, nil
	case resilience.Rejected:
		return nil, err
	default:
		paymentsTotal.WithLabelValues(paymentDegraded).Inc()
		s.logger.WarnContext(ctx, "payment degraded, returning fallback",
			slog.Int64("order_id", req.OrderID),
			slog.String("error", err.Error()),
		)
		return &PaymentResult{Status: domain.PaymentStatusFailed, Message: FallbackMessage}, nil
	}
}

// ListByOrder returns the payment attempts recorded for an order, oldest
// first. Attempts that fell back are never recorded.
func (s *PaymentService) ListByOrder(ctx context.Context, orderID int64) ([]domain.Payment, error) {
	if _, err := s.store.Orders().GetByID(ctx, orderID); err != nil {
		return nil, fmt.Errorf("list order payments: %w", err)
	}
	payments, err := s.store.Payments().ListByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order payments: %w", err)
	}
	return payments, nil
}

func (s *PaymentService) process(ctx context.Context, req PaymentRequest) (*PaymentResult, error) {
	order, err := s.store.Orders().GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	due := order.AmountDue()
	if req.Amount != nil && !req.Amount.Equal(due) {
		return nil, apperrors.InvalidArgument(fmt.Sprintf(
			"amount %s does not match amount due %s",
			req.Amount.StringFixed(domain.MoneyScale), due.StringFixed(domain.MoneyScale),
		))
	}

	charge, err := s.provider.Charge(ctx, &provider.ChargeInput{
		OrderID:     order.ID,
		Amount:      due,
		Method:      req.Method,
		Description: fmt.Sprintf("order %d", order.ID),
	})
	if err != nil {
		return nil, apperrors.DependencyUnavailable("payment provider", err)
	}

	payment := &domain.Payment{
		OrderID:     order.ID,
		Amount:      domain.RoundMoney(due),
		Method:      req.Method,
		Provider:    s.provider.Name(),
		ProviderRef: charge.ProviderPaymentID,
	}

	if !charge.Succeeded() {
		return s.recordDecline(ctx, payment, charge.FailureReason)
	}

	payment.Status = domain.PaymentStatusSuccess
	orderKeys := []string{cache.OrderKey(order.ID), cache.CustomerOrdersKey(order.CustomerID)}
	s.cache.evict(ctx, orderKeys...)

	err = s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		if err := r.Payments().Create(ctx, payment); err != nil {
			return err
		}
		_, err := r.Orders().UpdateStatus(ctx, order.ID, domain.OrderStatusCompleted)
		return err
	})
	if err != nil {
		s.refund(ctx, charge.ProviderPaymentID, due)
		return nil, fmt.Errorf("record payment: %w", err)
	}

	s.cache.evict(ctx, orderKeys...)

	if err := s.producer.PublishPaymentSucceeded(ctx, payment); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish payment.succeeded event",
			slog.Int64("payment_id", payment.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "payment succeeded",
		slog.Int64("payment_id", payment.ID),
		slog.Int64("order_id", order.ID),
		slog.String("amount", payment.Amount.StringFixed(domain.MoneyScale)),
	)
	return &PaymentResult{PaymentID: payment.ID, Status: domain.PaymentStatusSuccess}, nil
}

// recordDecline stores a FAILED payment. The order is left as it was.
func (s *PaymentService) recordDecline(ctx context.Context, payment *domain.Payment, reason string) (*PaymentResult, error) {
	if reason == "" {
		reason = "payment declined"
	}
	payment.Status = domain.PaymentStatusFailed
	payment.FailureReason = reason

	if err := s.store.Payments().Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("record declined payment: %w", err)
	}

	s.logger.WarnContext(ctx, "payment declined",
		slog.Int64("payment_id", payment.ID),
		slog.Int64("order_id", payment.OrderID),
		slog.String("reason", reason),
	)
	return &PaymentResult{PaymentID: payment.ID, Status: domain.PaymentStatusFailed, Message: reason}, nil
}

// refund reverses a charge whose payment could not be recorded. It runs
// detached from ctx, which may already be cancelled.
func (s *PaymentService) refund(ctx context.Context, providerRef string, amount decimal.Decimal) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refundTimeout)
	defer cancel()

	_, err := s.provider.Refund(rctx, &provider.RefundInput{
		ProviderPaymentID: providerRef,
		Amount:            amount,
		Reason:            "payment could not be recorded",
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "refund after failed payment recording failed",
			slog.String("provider_ref", providerRef),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.WarnContext(ctx, "charge refunded after failed payment recording",
		slog.String("provider_ref", providerRef),
	)
}
