// Package inventory is the gateway to the stock service used to enrich
// catalog reads.
package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var fallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "inventory_fallback_total",
	Help: "Inventory lookups answered with the zero-stock fallback.",
})

// Doer sends GET requests. *httpclient.CircuitBreakerClient satisfies it.
type Doer interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// Availability is the body of the stock endpoint.
type Availability struct {
	ProductID int64 `json:"productId"`
	Available int   `json:"available"`
}

// Client queries available stock per product.
type Client struct {
	http    Doer
	baseURL string
	logger  *slog.Logger
}

// NewClient creates a Client rooted at baseURL.
func NewClient(doer Doer, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		http:    doer,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// GetAvailable returns the units in stock for productID. Any failure,
// including an open breaker, is logged and reported as 0.
func (c *Client) GetAvailable(ctx context.Context, productID int64) int {
	n, err := c.fetch(ctx, productID)
	if err != nil {
		fallbackTotal.Inc()
		c.logger.WarnContext(ctx, "inventory lookup failed, assuming out of stock",
			slog.Int64("product_id", productID),
			slog.String("error", err.Error()),
		)
		return 0
	}
	return n
}

func (c *Client) fetch(ctx context.Context, productID int64) (int, error) {
	url := fmt.Sprintf("%s/api/v1/inventory/%d", c.baseURL, productID)
	resp, err := c.http.Get(ctx, url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("inventory returned status %d", resp.StatusCode)
	}

	var body Availability
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode inventory response: %w", err)
	}
	if body.Available < 0 {
		return 0, nil
	}
	return body.Available, nil
}
