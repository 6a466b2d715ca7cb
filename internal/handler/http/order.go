package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	service *service.OrderService
	logger  *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(svc *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{service: svc, logger: logger}
}

// GetOrder handles GET /api/v1/orders/{orderId}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, r, "orderId", chi.URLParam(r, "orderId"))
	if !ok {
		return
	}

	order, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := authorizeCustomer(r, order.CustomerID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toOrderResponse(order))
}

// ListCustomerOrders handles GET /api/v1/orders/customer/{customerId}
func (h *OrderHandler) ListCustomerOrders(w http.ResponseWriter, r *http.Request) {
	customerID, ok := httputil.ParseID(w, r, "customerId", chi.URLParam(r, "customerId"))
	if !ok {
		return
	}
	if err := authorizeCustomer(r, customerID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	orders, err := h.service.GetByCustomer(r.Context(), customerID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toOrderResponses(orders))
}

// UpdateOrderStatus handles PATCH /api/v1/orders/{orderId}/status?status=X
func (h *OrderHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, r, "orderId", chi.URLParam(r, "orderId"))
	if !ok {
		return
	}

	if err := authorizeOrder(r, h.service, id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), id, r.URL.Query().Get("status"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toOrderResponse(order))
}
