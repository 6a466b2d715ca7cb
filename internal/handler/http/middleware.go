package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/utafrali/storefront/internal/service"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/middleware"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// ContentTypeJSON rejects request bodies that are not declared as JSON.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.ErrorResponse{
					Status:    http.StatusUnsupportedMediaType,
					Code:      "UNSUPPORTED_MEDIA_TYPE",
					Message:   "Content-Type must be application/json",
					RequestID: logger.CorrelationIDFromContext(r.Context()),
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// restricted reports whether the caller is a signed-in customer limited to
// their own data. Anonymous requests (auth disabled) and admins are not.
func restricted(r *http.Request) bool {
	ctx := r.Context()
	return middleware.UserIDFromContext(ctx) != "" && middleware.RoleFromContext(ctx) != middleware.RoleAdmin
}

// authorizeCustomer lets anonymous requests, admins and the customer
// themself through.
func authorizeCustomer(r *http.Request, customerID int64) error {
	if !restricted(r) {
		return nil
	}
	if middleware.UserIDFromContext(r.Context()) != strconv.FormatInt(customerID, 10) {
		return apperrors.Forbidden("access to another customer's data is not allowed")
	}
	return nil
}

// authorizeOrder applies authorizeCustomer to the owner of orderID. The
// order is only loaded for restricted callers.
func authorizeOrder(r *http.Request, orders *service.OrderService, orderID int64) error {
	if !restricted(r) {
		return nil
	}
	order, err := orders.GetByID(r.Context(), orderID)
	if err != nil {
		return err
	}
	return authorizeCustomer(r, order.CustomerID)
}

// decodeJSON decodes the body into dst. On failure it writes a 400 and
// returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		httputil.WriteBadRequest(w, r, "invalid request body: "+err.Error())
		return false
	}
	return true
}
