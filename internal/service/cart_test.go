package service

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/cache"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func newCartService(store *fakeStore) *CartService {
	return NewCartService(store, nil, testTTL, nil, discardLogger())
}

func TestCartService_GetActiveCart_CreatesEmpty(t *testing.T) {
	store := newFakeStore()
	svc := newCartService(store)

	cart, err := svc.GetActiveCart(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, int64(12), cart.CustomerID)
	assert.Equal(t, domain.CartStatusActive, cart.Status)
	assert.Empty(t, cart.Lines)

	again, err := svc.GetActiveCart(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, again.ID)
	assert.Equal(t, 1, store.activeCarts(12))
}

func TestCartService_AddItem_MergesQuantity(t *testing.T) {
	store := newFakeStore()
	ids := seedCatalog(store, "6.00")
	svc := newCartService(store)
	ctx := context.Background()

	first, err := svc.AddItem(ctx, 12, ids[0], 2)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Quantity)

	second, err := svc.AddItem(ctx, 12, ids[0], 3)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.Quantity)

	cart, err := svc.GetActiveCart(ctx, 12)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 5, cart.Lines[0].Quantity)
}

func TestCartService_AddItem_Rejects(t *testing.T) {
	store := newFakeStore()
	ids := seedCatalog(store, "6.00")
	svc := newCartService(store)

	tests := []struct {
		name      string
		productID int64
		quantity  int
		want      error
	}{
		{"zero quantity", ids[0], 0, apperrors.ErrInvalidArgument},
		{"negative quantity", ids[0], -1, apperrors.ErrInvalidArgument},
		{"quantity above line cap", ids[0], domain.MaxLineQuantity + 1, apperrors.ErrInvalidArgument},
		{"quantity that would overflow int", ids[0], math.MaxInt, apperrors.ErrInvalidArgument},
		{"unknown product", 9999, 1, apperrors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddItem(context.Background(), 12, tt.productID, tt.quantity)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, 0, store.activeCarts(12))
}

func TestCartService_AddItem_MergeAboveCapKeepsLine(t *testing.T) {
	store := newFakeStore()
	ids := seedCatalog(store, "6.00")
	svc := newCartService(store)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 12, ids[0], domain.MaxLineQuantity)
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, 12, ids[0], 1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	cart, err := svc.GetActiveCart(ctx, 12)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, domain.MaxLineQuantity, cart.Lines[0].Quantity)

	order, err := svc.Checkout(ctx, 12)
	require.NoError(t, err)
	require.NotNil(t, order.TotalAmount)
	assert.True(t, mustMoney("60000.00").Equal(*order.TotalAmount))
}

func TestCartService_AddItem_ConcurrentSameCustomer(t *testing.T) {
	store := newFakeStore()
	ids := seedCatalog(store, "1.00", "2.00")
	svc := newCartService(store)

	const workers = 16
	const addsPerWorker = 10

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range addsPerWorker {
				_, err := svc.AddItem(context.Background(), 12, ids[w%2], 1)
				assert.NoError(t, err)
				_, err = svc.GetActiveCart(context.Background(), 12)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.activeCarts(12))

	cart, err := svc.GetActiveCart(context.Background(), 12)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 2)
	total := 0
	for _, l := range cart.Lines {
		total += l.Quantity
	}
	assert.Equal(t, workers*addsPerWorker, total)
}

func TestCartService_RemoveItem(t *testing.T) {
	store := newFakeStore()
	ids := seedCatalog(store, "6.00")
	svc := newCartService(store)
	ctx := context.Background()

	err := svc.RemoveItem(ctx, 12, 1)
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "no active cart")

	mine, err := svc.AddItem(ctx, 12, ids[0], 1)
	require.NoError(t, err)
	theirs, err := svc.AddItem(ctx, 13, ids[0], 1)
	require.NoError(t, err)

	err = svc.RemoveItem(ctx, 12, theirs.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "line of another customer")

	require.NoError(t, svc.RemoveItem(ctx, 12, mine.ID))
	cart, err := svc.GetActiveCart(ctx, 12)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)
}

func TestCartService_Checkout(t *testing.T) {
	store := newFakeStore()
	ids := seedCatalog(store, "6.00", "0.10")
	rec, producer := newRecorder()
	svc := NewCartService(store, nil, testTTL, producer, discardLogger())
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 12, ids[0], 4)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, 12, ids[1], 3)
	require.NoError(t, err)

	order, err := svc.Checkout(ctx, 12)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusNew, order.Status)
	require.Len(t, order.Lines, 2)
	require.NotNil(t, order.TotalAmount)
	assert.True(t, order.TotalAmount.Equal(mustMoney("24.30")), order.TotalAmount.String())
	assert.Equal(t, []string{event.TopicOrderCreated}, rec.published())

	// The cart is closed and the next access starts a fresh one.
	cart, err := svc.GetActiveCart(ctx, 12)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)
	assert.Equal(t, 1, store.activeCarts(12))
}

func TestCartService_Checkout_NoCart(t *testing.T) {
	store := newFakeStore()
	svc := newCartService(store)

	_, err := svc.Checkout(context.Background(), 12)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, 0, store.orderCount())
}

func TestCartService_Checkout_EmptyCart(t *testing.T) {
	store := newFakeStore()
	svc := newCartService(store)
	ctx := context.Background()

	_, err := svc.GetActiveCart(ctx, 12)
	require.NoError(t, err)

	_, err = svc.Checkout(ctx, 12)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	assert.Equal(t, 0, store.orderCount())
	assert.Equal(t, 1, store.activeCarts(12))
}

func TestCartService_Checkout_PriceFreeze(t *testing.T) {
	store := newFakeStore()
	ids := seedCatalog(store, "19.99")
	carts := newCartService(store)
	orders := NewOrderService(store, nil, testTTL, nil, discardLogger())
	ctx := context.Background()

	_, err := carts.AddItem(ctx, 12, ids[0], 2)
	require.NoError(t, err)
	placed, err := carts.Checkout(ctx, 12)
	require.NoError(t, err)

	store.setPrice(ids[0], "99.00")

	got, err := orders.GetByID(ctx, placed.ID)
	require.NoError(t, err)
	assert.True(t, got.Lines[0].PriceAtPurchase.Equal(mustMoney("19.99")))
	assert.True(t, got.AmountDue().Equal(mustMoney("39.98")))
}

func TestCartService_Checkout_TotalIsExactSum(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))

	for iter := range 50 {
		store := newFakeStore()
		svc := newCartService(store)
		ctx := context.Background()
		customer := int64(iter + 1)

		want := decimal.Zero
		n := 1 + rng.IntN(6)
		for range n {
			cents := rng.Int64N(100_000)
			price := decimal.New(cents, -2)
			id := seedCatalog(store, price.String())[0]
			qty := 1 + rng.IntN(20)

			_, err := svc.AddItem(ctx, customer, id, qty)
			require.NoError(t, err)
			want = want.Add(price.Mul(decimal.NewFromInt(int64(qty))))
		}

		order, err := svc.Checkout(ctx, customer)
		require.NoError(t, err)
		assert.True(t, order.TotalAmount.Equal(want), "iteration %d: got %s want %s", iter, order.TotalAmount, want)
		assert.True(t, order.LinesTotal().Equal(want))
	}
}

func TestCartService_EvictsCacheOnWrite(t *testing.T) {
	store := newFakeStore()
	ids := seedCatalog(store, "6.00")
	c, mr := newTestCache(t)
	svc := NewCartService(store, c, testTTL, nil, discardLogger())
	ctx := context.Background()

	_, err := svc.GetActiveCart(ctx, 12)
	require.NoError(t, err)
	assert.True(t, mr.Exists("shop::"+cache.CartKey(12)))

	_, err = svc.AddItem(ctx, 12, ids[0], 2)
	require.NoError(t, err)
	assert.False(t, mr.Exists("shop::"+cache.CartKey(12)))

	cart, err := svc.GetActiveCart(ctx, 12)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 2, cart.Lines[0].Quantity)

	// Served from cache now.
	cached, err := svc.GetActiveCart(ctx, 12)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, cached.ID)
	assert.Equal(t, 2, cached.Lines[0].Quantity)
}
