package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/storefront/internal/cache"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// OrderService implements order retrieval and status updates.
type OrderService struct {
	store    repository.Store
	cache    cacheAside
	producer *event.Producer
	logger   *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(store repository.Store, c cache.Cache, ttl time.Duration, producer *event.Producer, logger *slog.Logger) *OrderService {
	return &OrderService{
		store:    store,
		cache:    newCacheAside(c, ttl, logger),
		producer: producer,
		logger:   logger,
	}
}

// GetByID retrieves an order by its ID.
func (s *OrderService) GetByID(ctx context.Context, orderID int64) (*domain.Order, error) {
	key := cache.OrderKey(orderID)

	var cached domain.Order
	gen, hit := s.cache.get(ctx, key, &cached)
	if hit {
		return &cached, nil
	}

	order, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order by id: %w", err)
	}

	s.cache.put(ctx, gen, key, order)
	return order, nil
}

// GetByCustomer lists a customer's orders, newest first. Unknown customers
// simply have none.
func (s *OrderService) GetByCustomer(ctx context.Context, customerID int64) ([]domain.Order, error) {
	key := cache.CustomerOrdersKey(customerID)

	var cached []domain.Order
	gen, hit := s.cache.get(ctx, key, &cached)
	if hit && cached != nil {
		return cached, nil
	}

	orders, err := s.store.Orders().ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("list customer orders: %w", err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}

	s.cache.put(ctx, gen, key, orders)
	return orders, nil
}

// UpdateStatus sets the order status. rawStatus must be one of the exact
// status names. Any status may follow any other.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, rawStatus string) (*domain.Order, error) {
	status, ok := domain.ParseOrderStatus(rawStatus)
	if !ok {
		return nil, apperrors.InvalidArgument(fmt.Sprintf("invalid status: %s", rawStatus))
	}

	var (
		updated *domain.Order
		old     domain.OrderStatus
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		current, err := r.Orders().GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		old = current.Status
		s.cache.evict(ctx, cache.OrderKey(orderID), cache.CustomerOrdersKey(current.CustomerID))

		updated, err = r.Orders().UpdateStatus(ctx, orderID, status)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	s.cache.evict(ctx, cache.OrderKey(orderID), cache.CustomerOrdersKey(updated.CustomerID))

	if err := s.producer.PublishOrderStatusChanged(ctx, updated, old); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
			slog.Int64("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order status updated",
		slog.Int64("order_id", orderID),
		slog.String("old_status", string(old)),
		slog.String("new_status", string(status)),
	)
	return updated, nil
}
