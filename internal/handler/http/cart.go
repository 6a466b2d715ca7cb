package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{service: svc, logger: logger}
}

// customerID parses and authorizes the {customerId} path parameter.
func (h *CartHandler) customerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := httputil.ParseID(w, r, "customerId", chi.URLParam(r, "customerId"))
	if !ok {
		return 0, false
	}
	if err := authorizeCustomer(r, id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return 0, false
	}
	return id, true
}

// GetCart handles GET /api/v1/cart/{customerId}
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	customerID, ok := h.customerID(w, r)
	if !ok {
		return
	}

	cart, err := h.service.GetActiveCart(r.Context(), customerID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCartResponse(cart))
}

// AddItem handles POST /api/v1/cart/{customerId}/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	customerID, ok := h.customerID(w, r)
	if !ok {
		return
	}

	var req AddItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	line, err := h.service.AddItem(r.Context(), customerID, req.ProductID, req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toCartLineResponse(*line))
}

// RemoveItem handles DELETE /api/v1/cart/{customerId}/items/{itemId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	customerID, ok := h.customerID(w, r)
	if !ok {
		return
	}
	itemID, ok := httputil.ParseID(w, r, "itemId", chi.URLParam(r, "itemId"))
	if !ok {
		return
	}

	if err := h.service.RemoveItem(r.Context(), customerID, itemID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteNoContent(w)
}

// Checkout handles POST /api/v1/cart/{customerId}/checkout
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	customerID, ok := h.customerID(w, r)
	if !ok {
		return
	}

	order, err := h.service.Checkout(r.Context(), customerID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toOrderResponse(order))
}
