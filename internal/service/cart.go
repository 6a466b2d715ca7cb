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
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// CartService implements the cart lifecycle and checkout.
type CartService struct {
	store    repository.Store
	cache    cacheAside
	producer *event.Producer
	logger   *slog.Logger
}

// NewCartService creates a new cart service. c may be nil to disable caching.
func NewCartService(store repository.Store, c cache.Cache, ttl time.Duration, producer *event.Producer, logger *slog.Logger) *CartService {
	return &CartService{
		store:    store,
		cache:    newCacheAside(c, ttl, logger),
		producer: producer,
		logger:   logger,
	}
}

// GetActiveCart returns the customer's ACTIVE cart, creating an empty one
// on first access.
func (s *CartService) GetActiveCart(ctx context.Context, customerID int64) (*domain.Cart, error) {
	key := cache.CartKey(customerID)

	var cached domain.Cart
	gen, hit := s.cache.get(ctx, key, &cached)
	if hit {
		return &cached, nil
	}

	cart, err := s.store.Carts().GetOrCreateActive(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("get active cart: %w", err)
	}

	s.cache.put(ctx, gen, key, cart)
	return cart, nil
}

// AddItem adds quantity units of productID to the customer's cart. Adding
// a product already in the cart increases that line's quantity.
func (s *CartService) AddItem(ctx context.Context, customerID, productID int64, quantity int) (*domain.CartLine, error) {
	if quantity <= 0 {
		return nil, apperrors.InvalidArgument("quantity must be positive")
	}
	if quantity > domain.MaxLineQuantity {
		return nil, apperrors.InvalidArgument(fmt.Sprintf("quantity must not exceed %d", domain.MaxLineQuantity))
	}

	key := cache.CartKey(customerID)
	s.cache.evict(ctx, key)

	var line *domain.CartLine
	err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		if _, err := r.Products().GetByID(ctx, productID); err != nil {
			return err
		}
		if err := r.Carts().LockCustomer(ctx, customerID); err != nil {
			return err
		}
		cart, err := r.Carts().GetOrCreateActive(ctx, customerID)
		if err != nil {
			return err
		}
		line, err = r.Carts().UpsertLine(ctx, cart.ID, productID, quantity)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("add cart item: %w", err)
	}

	s.cache.evict(ctx, key)

	s.logger.InfoContext(ctx, "cart item added",
		slog.Int64("customer_id", customerID),
		slog.Int64("product_id", productID),
		slog.Int("quantity", line.Quantity),
	)
	return line, nil
}

// RemoveItem deletes a line from the customer's ACTIVE cart.
func (s *CartService) RemoveItem(ctx context.Context, customerID, lineID int64) error {
	key := cache.CartKey(customerID)
	s.cache.evict(ctx, key)

	err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		if err := r.Carts().LockCustomer(ctx, customerID); err != nil {
			return err
		}
		cart, err := r.Carts().FindActive(ctx, customerID)
		if err != nil {
			return err
		}
		if _, ok := cart.Line(lineID); !ok {
			return apperrors.NotFound("cart line", lineID)
		}
		return r.Carts().DeleteLine(ctx, cart.ID, lineID)
	})
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}

	s.cache.evict(ctx, key)

	s.logger.InfoContext(ctx, "cart item removed",
		slog.Int64("customer_id", customerID),
		slog.Int64("line_id", lineID),
	)
	return nil
}

// Checkout turns the ACTIVE cart into a NEW order priced at the current
// catalog prices and closes the cart. The order total is fixed here.
func (s *CartService) Checkout(ctx context.Context, customerID int64) (*domain.Order, error) {
	cartKey := cache.CartKey(customerID)
	ordersKey := cache.CustomerOrdersKey(customerID)
	s.cache.evict(ctx, cartKey, ordersKey)

	var order *domain.Order
	err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		if err := r.Carts().LockCustomer(ctx, customerID); err != nil {
			return err
		}
		cart, err := r.Carts().FindActive(ctx, customerID)
		if err != nil {
			return err
		}
		if cart.IsEmpty() {
			return apperrors.InvalidState("cart is empty")
		}

		lines := make([]domain.OrderLine, 0, len(cart.Lines))
		total := decimal.Zero
		for _, cl := range cart.Lines {
			p, err := r.Products().GetByID(ctx, cl.ProductID)
			if err != nil {
				return err
			}
			price := domain.RoundMoney(p.Price)
			lines = append(lines, domain.OrderLine{
				ProductID:       cl.ProductID,
				Quantity:        cl.Quantity,
				PriceAtPurchase: price,
			})
			total = total.Add(domain.LineTotal(cl.Quantity, price))
		}
		total = domain.RoundMoney(total)

		order = &domain.Order{
			CustomerID:  customerID,
			Status:      domain.OrderStatusNew,
			TotalAmount: &total,
			Lines:       lines,
		}
		if err := r.Orders().Create(ctx, order); err != nil {
			return err
		}
		return r.Carts().MarkOrdered(ctx, cart.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("checkout: %w", err)
	}

	s.cache.evict(ctx, cartKey, ordersKey)
	checkoutsTotal.Inc()

	if err := s.producer.PublishOrderCreated(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.created event",
			slog.Int64("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order created",
		slog.Int64("order_id", order.ID),
		slog.Int64("customer_id", customerID),
		slog.String("total_amount", order.TotalAmount.StringFixed(domain.MoneyScale)),
	)
	return order, nil
}
