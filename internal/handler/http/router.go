package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
)

// Services bundles the engines the API exposes.
type Services struct {
	Carts    *service.CartService
	Orders   *service.OrderService
	Payments *service.PaymentService
	Products *service.ProductService
}

// RouterConfig holds the router options.
type RouterConfig struct {
	// Tokens verifies bearer tokens on /api/v1. Nil serves the API
	// anonymously.
	Tokens middleware.TokenValidator

	// InventoryStubAvailable is the stock reported by the inventory stub.
	InventoryStubAvailable int

	// RateLimitRPS enables per-client rate limiting when positive.
	RateLimitRPS   float64
	RateLimitBurst int

	PprofCIDRs []string
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(svc Services, healthHandler *health.Handler, cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	if cfg.RateLimitRPS > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger))
	}
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("storefront"))
	r.Use(middleware.Tracing())
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	cartHandler := NewCartHandler(svc.Carts, logger)
	orderHandler := NewOrderHandler(svc.Orders, logger)
	paymentHandler := NewPaymentHandler(svc.Payments, svc.Orders, logger)
	productHandler := NewProductHandler(svc.Products, logger)
	inventoryHandler := NewInventoryHandler(cfg.InventoryStubAvailable)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		// The catalog calls the inventory stub without credentials.
		r.Get("/inventory/{productId}", inventoryHandler.GetStock)

		r.Group(func(r chi.Router) {
			if cfg.Tokens != nil {
				r.Use(middleware.Auth(cfg.Tokens))
			}

			r.Route("/cart/{customerId}", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Post("/items", cartHandler.AddItem)
				r.Delete("/items/{itemId}", cartHandler.RemoveItem)
				r.Post("/checkout", cartHandler.Checkout)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/customer/{customerId}", orderHandler.ListCustomerOrders)
				r.Get("/{orderId}", orderHandler.GetOrder)
				r.Patch("/{orderId}/status", orderHandler.UpdateOrderStatus)
				r.Get("/{orderId}/payments", paymentHandler.ListOrderPayments)
			})

			r.Post("/payments", paymentHandler.ProcessPayment)

			r.Route("/products", func(r chi.Router) {
				r.Get("/", productHandler.ListProducts)
				r.Get("/{id}", productHandler.GetProduct)

				r.Group(func(r chi.Router) {
					if cfg.Tokens != nil {
						r.Use(middleware.RequireRole(middleware.RoleAdmin))
					}
					r.Post("/", productHandler.CreateProduct)
					r.Put("/{id}", productHandler.UpdateProduct)
					r.Delete("/{id}", productHandler.DeleteProduct)
				})
			})
		})
	})

	return r
}
