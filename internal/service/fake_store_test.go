package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/internal/repository/memory"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is the in-memory store with a switch to fail every commit.
type fakeStore struct {
	*memory.Store
	failCommit error
}

var _ repository.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{Store: memory.NewStore()}
}

func (f *fakeStore) WithinTx(ctx context.Context, fn func(context.Context, repository.Repositories) error) error {
	return f.Store.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		if err := fn(ctx, r); err != nil {
			return err
		}
		return f.failCommit
	})
}

func (f *fakeStore) addCategory(name string) int64 {
	return f.SeedCategories(name)[0]
}

func (f *fakeStore) addProduct(p domain.Product) int64 {
	if err := f.Products().Create(context.Background(), &p); err != nil {
		panic(err)
	}
	return p.ID
}

func (f *fakeStore) setPrice(id int64, price string) {
	ctx := context.Background()
	p, err := f.Products().GetByID(ctx, id)
	if err != nil {
		panic(err)
	}
	p.Price = mustMoney(price)
	if err := f.Products().Update(ctx, p); err != nil {
		panic(err)
	}
}

func (f *fakeStore) addOrder(o domain.Order) int64 {
	if err := f.Orders().Create(context.Background(), &o); err != nil {
		panic(err)
	}
	return o.ID
}

func (f *fakeStore) orderCount() int                  { return f.OrderCount() }
func (f *fakeStore) paymentList() []domain.Payment    { return f.AllPayments() }
func (f *fakeStore) activeCarts(customerID int64) int { return f.ActiveCarts(customerID) }
