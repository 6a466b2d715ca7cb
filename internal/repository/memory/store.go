// Package memory implements repository.Store in process memory. It is used
// for local runs without Postgres and as the store behind service tests.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// state is the whole database. Transactions work on a clone and swap it in
// on commit.
type state struct {
	nextID     int64
	products   map[int64]domain.Product
	categories map[int64]domain.Category
	carts      map[int64]domain.Cart
	cartLines  map[int64]domain.CartLine
	orders     map[int64]domain.Order
	payments   []domain.Payment
}

func newState() *state {
	return &state{
		products:   map[int64]domain.Product{},
		categories: map[int64]domain.Category{},
		carts:      map[int64]domain.Cart{},
		cartLines:  map[int64]domain.CartLine{},
		orders:     map[int64]domain.Order{},
	}
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *state) clone() *state {
	c := &state{
		nextID:     s.nextID,
		products:   make(map[int64]domain.Product, len(s.products)),
		categories: make(map[int64]domain.Category, len(s.categories)),
		carts:      make(map[int64]domain.Cart, len(s.carts)),
		cartLines:  make(map[int64]domain.CartLine, len(s.cartLines)),
		orders:     make(map[int64]domain.Order, len(s.orders)),
		payments:   slices.Clone(s.payments),
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.carts {
		c.carts[k] = v
	}
	for k, v := range s.cartLines {
		c.cartLines[k] = v
	}
	for k, v := range s.orders {
		v.Lines = slices.Clone(v.Lines)
		c.orders[k] = v
	}
	return c
}

// Store implements repository.Store. A transaction holds one store-wide
// lock for its whole duration, so transactions are serial and
// Carts().LockCustomer is a no-op.
type Store struct {
	mu sync.Mutex
	st *state
}

var _ repository.Store = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{st: newState()}
}

// WithinTx runs fn against a private copy of the data and publishes it only
// when fn returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(context.Context, repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.st.clone()
	if err := fn(ctx, repos{repo{s: s, tx: tx}}); err != nil {
		return err
	}
	s.st = tx
	return nil
}

func (s *Store) Products() repository.ProductRepository    { return productRepo{repo{s: s}} }
func (s *Store) Categories() repository.CategoryRepository { return categoryRepo{repo{s: s}} }
func (s *Store) Carts() repository.CartRepository          { return cartRepo{repo{s: s}} }
func (s *Store) Orders() repository.OrderRepository        { return orderRepo{repo{s: s}} }
func (s *Store) Payments() repository.PaymentRepository    { return paymentRepo{repo{s: s}} }

// SeedCategories adds categories and returns their IDs in order.
func (s *Store) SeedCategories(names ...string) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, len(names))
	for i, name := range names {
		ids[i] = s.st.id()
		s.st.categories[ids[i]] = domain.Category{ID: ids[i], Name: name}
	}
	return ids
}

// ActiveCarts counts the ACTIVE carts of a customer.
func (s *Store) ActiveCarts(customerID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, c := range s.st.carts {
		if c.CustomerID == customerID && c.Status == domain.CartStatusActive {
			n++
		}
	}
	return n
}

// OrderCount returns the number of stored orders.
func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.orders)
}

// AllPayments returns every recorded payment in insertion order.
func (s *Store) AllPayments() []domain.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.st.payments)
}

type repo struct {
	s  *Store
	tx *state
}

func (r repo) with(fn func(st *state) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return fn(r.s.st)
}

type repos struct{ repo }

func (r repos) Products() repository.ProductRepository    { return productRepo(r) }
func (r repos) Categories() repository.CategoryRepository { return categoryRepo(r) }
func (r repos) Carts() repository.CartRepository          { return cartRepo(r) }
func (r repos) Orders() repository.OrderRepository        { return orderRepo(r) }
func (r repos) Payments() repository.PaymentRepository    { return paymentRepo(r) }

// --- products ---

type productRepo struct{ repo }

func (r productRepo) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	var out *domain.Product
	err := r.with(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return apperrors.NotFound("product", id)
		}
		out = &p
		return nil
	})
	return out, err
}

func (r productRepo) List(_ context.Context, filter repository.ProductFilter) ([]domain.Product, error) {
	out := []domain.Product{}
	err := r.with(func(st *state) error {
		for _, p := range st.products {
			if filter.NameContains != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.NameContains)) {
				continue
			}
			if filter.CategoryID != 0 && p.CategoryID != filter.CategoryID {
				continue
			}
			out = append(out, p)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b domain.Product) int { return cmp.Compare(a.ID, b.ID) })
	return out, err
}

func (r productRepo) Create(_ context.Context, p *domain.Product) error {
	return r.with(func(st *state) error {
		if _, ok := st.categories[p.CategoryID]; !ok {
			return apperrors.NotFound("category", p.CategoryID)
		}
		p.ID = st.id()
		st.products[p.ID] = *p
		return nil
	})
}

func (r productRepo) Update(_ context.Context, p *domain.Product) error {
	return r.with(func(st *state) error {
		if _, ok := st.products[p.ID]; !ok {
			return apperrors.NotFound("product", p.ID)
		}
		st.products[p.ID] = *p
		return nil
	})
}

func (r productRepo) Delete(_ context.Context, id int64) error {
	return r.with(func(st *state) error {
		if _, ok := st.products[id]; !ok {
			return apperrors.NotFound("product", id)
		}
		for _, o := range st.orders {
			for _, l := range o.Lines {
				if l.ProductID == id {
					return apperrors.InvalidState("product is referenced by orders")
				}
			}
		}
		for lid, l := range st.cartLines {
			if l.ProductID == id {
				delete(st.cartLines, lid)
			}
		}
		delete(st.products, id)
		return nil
	})
}

type categoryRepo struct{ repo }

func (r categoryRepo) GetByID(_ context.Context, id int64) (*domain.Category, error) {
	var out *domain.Category
	err := r.with(func(st *state) error {
		c, ok := st.categories[id]
		if !ok {
			return apperrors.NotFound("category", id)
		}
		out = &c
		return nil
	})
	return out, err
}

// --- carts ---

type cartRepo struct{ repo }

func (r cartRepo) LockCustomer(context.Context, int64) error { return nil }

func activeCart(st *state, customerID int64) (domain.Cart, bool) {
	for _, c := range st.carts {
		if c.CustomerID == customerID && c.Status == domain.CartStatusActive {
			c.Lines = []domain.CartLine{}
			for _, l := range st.cartLines {
				if l.CartID == c.ID {
					c.Lines = append(c.Lines, l)
				}
			}
			slices.SortFunc(c.Lines, func(a, b domain.CartLine) int { return cmp.Compare(a.ID, b.ID) })
			return c, true
		}
	}
	return domain.Cart{}, false
}

func (r cartRepo) FindActive(_ context.Context, customerID int64) (*domain.Cart, error) {
	var out *domain.Cart
	err := r.with(func(st *state) error {
		c, ok := activeCart(st, customerID)
		if !ok {
			return apperrors.NotFound("cart for customer", customerID)
		}
		out = &c
		return nil
	})
	return out, err
}

func (r cartRepo) GetOrCreateActive(_ context.Context, customerID int64) (*domain.Cart, error) {
	var out *domain.Cart
	err := r.with(func(st *state) error {
		c, ok := activeCart(st, customerID)
		if !ok {
			c = domain.Cart{
				ID:         st.id(),
				CustomerID: customerID,
				Status:     domain.CartStatusActive,
				CreatedAt:  time.Now().UTC(),
			}
			st.carts[c.ID] = c
			c.Lines = []domain.CartLine{}
		}
		out = &c
		return nil
	})
	return out, err
}

func (r cartRepo) UpsertLine(_ context.Context, cartID, productID int64, quantity int) (*domain.CartLine, error) {
	var out *domain.CartLine
	err := r.with(func(st *state) error {
		if _, ok := st.products[productID]; !ok {
			return apperrors.NotFound("product", productID)
		}
		for id, l := range st.cartLines {
			if l.CartID == cartID && l.ProductID == productID {
				if l.Quantity+quantity > domain.MaxLineQuantity {
					return lineQuantityExceeded()
				}
				l.Quantity += quantity
				st.cartLines[id] = l
				out = &l
				return nil
			}
		}
		if quantity > domain.MaxLineQuantity {
			return lineQuantityExceeded()
		}
		l := domain.CartLine{ID: st.id(), CartID: cartID, ProductID: productID, Quantity: quantity}
		st.cartLines[l.ID] = l
		out = &l
		return nil
	})
	return out, err
}

func lineQuantityExceeded() error {
	return apperrors.InvalidArgument(fmt.Sprintf("cart line quantity must not exceed %d", domain.MaxLineQuantity))
}

func (r cartRepo) DeleteLine(_ context.Context, cartID, lineID int64) error {
	return r.with(func(st *state) error {
		l, ok := st.cartLines[lineID]
		if !ok || l.CartID != cartID {
			return apperrors.NotFound("cart line", lineID)
		}
		delete(st.cartLines, lineID)
		return nil
	})
}

func (r cartRepo) MarkOrdered(_ context.Context, cartID int64) error {
	return r.with(func(st *state) error {
		c, ok := st.carts[cartID]
		if !ok || c.Status != domain.CartStatusActive {
			return apperrors.InvalidState("cart is not active")
		}
		c.Status = domain.CartStatusOrdered
		st.carts[cartID] = c
		return nil
	})
}

// --- orders ---

type orderRepo struct{ repo }

func (r orderRepo) Create(_ context.Context, o *domain.Order) error {
	return r.with(func(st *state) error {
		o.ID = st.id()
		o.CreatedAt = time.Now().UTC()
		o.UpdatedAt = o.CreatedAt
		for i := range o.Lines {
			o.Lines[i].ID = st.id()
			o.Lines[i].OrderID = o.ID
		}
		stored := *o
		stored.Lines = slices.Clone(o.Lines)
		st.orders[o.ID] = stored
		return nil
	})
}

func (r orderRepo) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	var out *domain.Order
	err := r.with(func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return apperrors.NotFound("order", id)
		}
		o.Lines = slices.Clone(o.Lines)
		out = &o
		return nil
	})
	return out, err
}

func (r orderRepo) ListByCustomer(_ context.Context, customerID int64) ([]domain.Order, error) {
	out := []domain.Order{}
	err := r.with(func(st *state) error {
		for _, o := range st.orders {
			if o.CustomerID == customerID {
				o.Lines = slices.Clone(o.Lines)
				out = append(out, o)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b domain.Order) int { return cmp.Compare(b.ID, a.ID) })
	return out, err
}

func (r orderRepo) UpdateStatus(_ context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	var out *domain.Order
	err := r.with(func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return apperrors.NotFound("order", id)
		}
		o.Status = status
		o.UpdatedAt = time.Now().UTC()
		st.orders[id] = o
		o.Lines = slices.Clone(o.Lines)
		out = &o
		return nil
	})
	return out, err
}

// --- payments ---

type paymentRepo struct{ repo }

func (r paymentRepo) Create(_ context.Context, p *domain.Payment) error {
	return r.with(func(st *state) error {
		p.ID = st.id()
		p.CreatedAt = time.Now().UTC()
		st.payments = append(st.payments, *p)
		return nil
	})
}

func (r paymentRepo) ListByOrder(_ context.Context, orderID int64) ([]domain.Payment, error) {
	out := []domain.Payment{}
	err := r.with(func(st *state) error {
		for _, p := range st.payments {
			if p.OrderID == orderID {
				out = append(out, p)
			}
		}
		return nil
	})
	return out, err
}
