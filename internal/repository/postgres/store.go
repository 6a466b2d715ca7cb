package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const (
	codeForeignKeyViolation = "23503"
)

// repos binds every repository to the same DBTX.
type repos struct {
	products   *ProductRepository
	categories *CategoryRepository
	carts      *CartRepository
	orders     *OrderRepository
	payments   *PaymentRepository
}

func newRepos(db database.DBTX) *repos {
	return &repos{
		products:   NewProductRepository(db),
		categories: NewCategoryRepository(db),
		carts:      NewCartRepository(db),
		orders:     NewOrderRepository(db),
		payments:   NewPaymentRepository(db),
	}
}

func (r *repos) Products() repository.ProductRepository    { return r.products }
func (r *repos) Categories() repository.CategoryRepository { return r.categories }
func (r *repos) Carts() repository.CartRepository          { return r.carts }
func (r *repos) Orders() repository.OrderRepository        { return r.orders }
func (r *repos) Payments() repository.PaymentRepository    { return r.payments }

// Store implements repository.Store on a PostgreSQL pool.
type Store struct {
	*repos
	pool  database.DBTX
	retry database.RetryPolicy
}

var _ repository.Store = (*Store)(nil)

// NewStore creates a Store. Transactions started through WithinTx are
// retried under retry.
func NewStore(pool database.DBTX, retry database.RetryPolicy) *Store {
	return &Store{
		repos: newRepos(pool),
		pool:  pool,
		retry: retry,
	}
}

// WithinTx runs fn inside a transaction. Once the retry policy is used up
// the caller gets an apperrors.ErrConflict.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, r repository.Repositories) error) error {
	err := database.RunInTxWithRetry(ctx, s.pool, s.retry, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, newRepos(tx))
	})
	if errors.Is(err, database.ErrRetriesExhausted) {
		e := apperrors.Conflict("concurrent update, please retry")
		e.Err = errors.Join(apperrors.ErrConflict, err)
		return e
	}
	return err
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation
}

// NUMERIC columns are read as text so they land in decimal.Decimal without
// a float round-trip.
func parseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}

func parseNullMoney(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := parseMoney(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
