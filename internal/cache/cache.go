// Package cache provides the read-through cache used by the engines.
// Values are stored as JSON under a configurable key prefix.
package cache

import (
	"context"
	"strconv"
	"time"
)

// Cache is a best-effort key/value cache. Callers must treat every error as
// a miss and fall back to the store.
type Cache interface {
	// Get decodes the value stored at key into dst and reports whether it
	// was present.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Put(ctx context.Context, key string, value any, ttl time.Duration) error
	Evict(ctx context.Context, keys ...string) error
}

// Noop is used when caching is disabled. Every Get is a miss.
type Noop struct{}

var _ Cache = Noop{}

func (Noop) Get(context.Context, string, any) (bool, error)        { return false, nil }
func (Noop) Put(context.Context, string, any, time.Duration) error { return nil }
func (Noop) Evict(context.Context, ...string) error                { return nil }

// Key builders. The prefix is applied by the Redis implementation.

func CartKey(customerID int64) string {
	return "cart:" + strconv.FormatInt(customerID, 10)
}

func OrderKey(orderID int64) string {
	return "order:" + strconv.FormatInt(orderID, 10)
}

func CustomerOrdersKey(customerID int64) string {
	return "customerOrders:" + strconv.FormatInt(customerID, 10)
}

func ProductKey(productID int64) string {
	return "product:" + strconv.FormatInt(productID, 10)
}

// AllProductsKey caches the unfiltered product listing.
const AllProductsKey = "products:all"
