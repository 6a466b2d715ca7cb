package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/cache"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
)

const testTTL = 10 * time.Minute

func mustMoney(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// recorder is an event.Publisher that keeps every event.
type recorder struct {
	mu     sync.Mutex
	topics []string
}

func (r *recorder) Publish(_ context.Context, topic string, _ *pkgkafka.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	return nil
}

func (r *recorder) published() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.topics...)
}

func newRecorder() (*recorder, *event.Producer) {
	rec := &recorder{}
	return rec, event.NewProducer(rec, discardLogger())
}

func newTestCache(t *testing.T) (*cache.Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewRedis(client, ""), mr
}

// seedCatalog adds one category and a product per price.
func seedCatalog(store *fakeStore, prices ...string) []int64 {
	cat := store.addCategory("General")
	ids := make([]int64, len(prices))
	for i, p := range prices {
		ids[i] = store.addProduct(domain.Product{
			Name:       "Product",
			Price:      mustMoney(p),
			CategoryID: cat,
		})
	}
	return ids
}
