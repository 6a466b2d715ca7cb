package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/cache"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// fakeStock reports fixed stock levels and counts lookups.
type fakeStock struct {
	mu     sync.Mutex
	levels map[int64]int
	calls  atomic.Int32
}

func (f *fakeStock) GetAvailable(_ context.Context, productID int64) int {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.levels[productID]
}

func newProductFixture(t *testing.T, c cache.Cache) (*fakeStore, *fakeStock, *ProductService, *recorder, []int64) {
	t.Helper()
	store := newFakeStore()
	ids := seedCatalog(store, "10.00", "20.00", "30.00")
	stock := &fakeStock{levels: map[int64]int{ids[0]: 5, ids[2]: 1}}
	rec, producer := newRecorder()
	return store, stock, NewProductService(store, stock, c, testTTL, producer, discardLogger()), rec, ids
}

func TestProductService_GetByID_InStock(t *testing.T) {
	_, _, svc, _, ids := newProductFixture(t, nil)
	ctx := context.Background()

	v, err := svc.GetByID(ctx, ids[0])
	require.NoError(t, err)
	assert.True(t, v.InStock)
	assert.True(t, v.Price.Equal(mustMoney("10.00")))

	v, err = svc.GetByID(ctx, ids[1])
	require.NoError(t, err)
	assert.False(t, v.InStock)

	_, err = svc.GetByID(ctx, 999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProductService_List(t *testing.T) {
	_, _, svc, _, ids := newProductFixture(t, nil)

	views, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 3)
	for i, v := range views {
		assert.Equal(t, ids[i], v.ID)
	}
	assert.Equal(t, []bool{true, false, true}, []bool{views[0].InStock, views[1].InStock, views[2].InStock})
}

func TestProductService_ListIsCached(t *testing.T) {
	c, mr := newTestCache(t)
	_, stock, svc, _, _ := newProductFixture(t, c)
	ctx := context.Background()

	_, err := svc.List(ctx)
	require.NoError(t, err)
	assert.True(t, mr.Exists("shop::"+cache.AllProductsKey))
	calls := stock.calls.Load()

	views, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, views, 3)
	assert.Equal(t, calls, stock.calls.Load())
}

func TestProductService_SearchAndCategory(t *testing.T) {
	store, _, svc, _, _ := newProductFixture(t, nil)
	other := store.addCategory("Books")
	store.addProduct(domain.Product{Name: "Go Programming", Price: mustMoney("40.00"), CategoryID: other})
	ctx := context.Background()

	found, err := svc.SearchByName(ctx, "  programming ")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Go Programming", found[0].Name)

	none, err := svc.SearchByName(ctx, "nothing like this")
	require.NoError(t, err)
	assert.Empty(t, none)

	books, err := svc.ListByCategory(ctx, other)
	require.NoError(t, err)
	assert.Len(t, books, 1)
}

func TestProductService_Create(t *testing.T) {
	store, _, svc, rec, _ := newProductFixture(t, nil)
	cat := store.addCategory("Home")

	v, err := svc.Create(context.Background(), ProductInput{
		Name: "Lamp", Price: mustMoney("19.999"), CategoryID: cat,
	})
	require.NoError(t, err)
	assert.NotZero(t, v.ID)
	assert.Equal(t, "20.00", v.Price.StringFixed(2))
	assert.Equal(t, []string{event.TopicProductChanged}, rec.published())
}

func TestProductService_Create_Invalid(t *testing.T) {
	_, _, svc, _, _ := newProductFixture(t, nil)

	tests := []struct {
		name string
		in   ProductInput
		want error
	}{
		{"missing name", ProductInput{Price: mustMoney("1.00"), CategoryID: 1}, apperrors.ErrInvalidArgument},
		{"negative price", ProductInput{Name: "X", Price: mustMoney("-1.00"), CategoryID: 1}, apperrors.ErrInvalidArgument},
		{"missing category", ProductInput{Name: "X", Price: mustMoney("1.00")}, apperrors.ErrInvalidArgument},
		{"unknown category", ProductInput{Name: "X", Price: mustMoney("1.00"), CategoryID: 999}, apperrors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestProductService_Update(t *testing.T) {
	c, mr := newTestCache(t)
	_, _, svc, _, ids := newProductFixture(t, c)
	ctx := context.Background()

	before, err := svc.GetByID(ctx, ids[0])
	require.NoError(t, err)
	_, err = svc.List(ctx)
	require.NoError(t, err)
	assert.True(t, mr.Exists("shop::"+cache.ProductKey(ids[0])))

	_, err = svc.Update(ctx, ids[0], ProductInput{
		Name: "Renamed", Price: mustMoney("11.00"), CategoryID: before.CategoryID,
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists("shop::"+cache.ProductKey(ids[0])))
	assert.False(t, mr.Exists("shop::"+cache.AllProductsKey))

	after, err := svc.GetByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "Renamed", after.Name)
	assert.True(t, after.Price.Equal(mustMoney("11.00")))

	_, err = svc.Update(ctx, 999, ProductInput{Name: "X", Price: mustMoney("1.00"), CategoryID: before.CategoryID})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.Update(ctx, ids[0], ProductInput{Name: "X", Price: mustMoney("1.00"), CategoryID: 999})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProductService_Delete(t *testing.T) {
	store, _, svc, rec, ids := newProductFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, ids[1]))
	_, err := svc.GetByID(ctx, ids[1])
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Len(t, rec.published(), 1)

	assert.ErrorIs(t, svc.Delete(ctx, ids[1]), apperrors.ErrNotFound)

	store.addOrder(domain.Order{
		CustomerID: 12,
		Status:     domain.OrderStatusNew,
		Lines:      []domain.OrderLine{{ProductID: ids[0], Quantity: 1, PriceAtPurchase: mustMoney("10.00")}},
	})
	assert.ErrorIs(t, svc.Delete(ctx, ids[0]), apperrors.ErrInvalidState)
	_, err = svc.GetByID(ctx, ids[0])
	assert.NoError(t, err)
}

func TestProductService_GetByID_ConcurrentMisses(t *testing.T) {
	_, stock, svc, _, ids := newProductFixture(t, nil)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := svc.GetByID(context.Background(), ids[2])
			assert.NoError(t, err)
			assert.True(t, v.InStock)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, stock.calls.Load(), int32(20))
}
