package repository

import (
	"context"

	"github.com/utafrali/storefront/internal/domain"
)

// ProductFilter narrows product listings. Zero values do not filter.
type ProductFilter struct {
	NameContains string
	CategoryID   int64
}

// ProductRepository persists catalog products.
type ProductRepository interface {
	// GetByID returns apperrors.ErrNotFound when no product has id.
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, error)
	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id int64) error
}

// CategoryRepository reads product categories.
type CategoryRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Category, error)
}

// CartRepository persists carts and their lines.
type CartRepository interface {
	// LockCustomer serializes cart mutations for customerID until the
	// surrounding transaction ends.
	LockCustomer(ctx context.Context, customerID int64) error

	// FindActive returns the customer's ACTIVE cart with its lines, or
	// apperrors.ErrNotFound.
	FindActive(ctx context.Context, customerID int64) (*domain.Cart, error)

	// GetOrCreateActive returns the ACTIVE cart, creating an empty one when
	// the customer has none. Safe to race.
	GetOrCreateActive(ctx context.Context, customerID int64) (*domain.Cart, error)

	// UpsertLine adds quantity of productID to the cart, creating the line
	// or incrementing the existing one.
	UpsertLine(ctx context.Context, cartID, productID int64, quantity int) (*domain.CartLine, error)

	// DeleteLine removes a line of cartID; apperrors.ErrNotFound when the
	// line does not belong to that cart.
	DeleteLine(ctx context.Context, cartID, lineID int64) error

	// MarkOrdered moves an ACTIVE cart to ORDERED.
	MarkOrdered(ctx context.Context, cartID int64) error
}

// OrderRepository persists orders and their lines.
type OrderRepository interface {
	// Create inserts o and its lines, filling in IDs and timestamps.
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error)
}

// PaymentRepository records payment attempts.
type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) error
	ListByOrder(ctx context.Context, orderID int64) ([]domain.Payment, error)
}

// Repositories bundles every repository bound to the same connection or
// transaction.
type Repositories interface {
	Products() ProductRepository
	Categories() CategoryRepository
	Carts() CartRepository
	Orders() OrderRepository
	Payments() PaymentRepository
}

// Store is the entry point to persistence. Outside WithinTx every call runs
// on its own connection.
type Store interface {
	Repositories

	// WithinTx runs fn in a single transaction, committing when fn returns
	// nil. Transient conflicts re-run fn from the start, so fn must not
	// have side effects outside the repositories it is given.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
