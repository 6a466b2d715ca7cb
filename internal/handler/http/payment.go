package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/validator"
)

// PaymentHandler handles HTTP requests for payment endpoints.
type PaymentHandler struct {
	service *service.PaymentService
	orders  *service.OrderService
	logger  *slog.Logger
}

// NewPaymentHandler creates a new payment HTTP handler. orders is used to
// check that a signed-in customer pays only their own orders.
func NewPaymentHandler(svc *service.PaymentService, orders *service.OrderService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{service: svc, orders: orders, logger: logger}
}

// ProcessPayment handles POST /api/v1/payments. A degraded provider still
// answers 200 with status FAILED and the fallback message.
func (h *PaymentHandler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req PaymentRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	if err := authorizeOrder(r, h.orders, req.OrderID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	res, err := h.service.ProcessPayment(r.Context(), service.PaymentRequest{
		OrderID: req.OrderID,
		Amount:  req.Amount,
		Method:  req.Method,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, PaymentResponse{
		PaymentID: res.PaymentID,
		Status:    res.Status,
		Message:   res.Message,
	})
}

// ListOrderPayments handles GET /api/v1/orders/{orderId}/payments
func (h *PaymentHandler) ListOrderPayments(w http.ResponseWriter, r *http.Request) {
	orderID, ok := httputil.ParseID(w, r, "orderId", chi.URLParam(r, "orderId"))
	if !ok {
		return
	}
	if err := authorizeOrder(r, h.orders, orderID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	payments, err := h.service.ListByOrder(r.Context(), orderID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPaymentRecordResponses(payments))
}
