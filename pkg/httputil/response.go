package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/validator"
)

// ErrorResponse is the single error envelope written for every failure.
type ErrorResponse struct {
	Status    int               `json:"status"`
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
}

// now is swapped in tests.
var now = func() time.Time { return time.Now().UTC() }

// WriteJSON writes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; an encode failure cannot be reported.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteNoContent writes a bare 204.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError maps err onto the error envelope. AppErrors keep their code and
// message; anything else becomes an opaque 500 that is logged with the
// request-scoped logger (or fallback when none is mounted).
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	status := apperrors.HTTPStatus(err)
	resp := ErrorResponse{
		Status:    status,
		Code:      "INTERNAL_ERROR",
		Message:   "an internal error occurred",
		Timestamp: now(),
		RequestID: logger.CorrelationIDFromContext(r.Context()),
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		resp.Code = appErr.Code
		resp.Message = appErr.Message
	}

	if status >= http.StatusInternalServerError {
		l := logger.FromContext(r.Context())
		if l == slog.Default() && fallback != nil {
			l = fallback
		}
		l.ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
		)
	}

	WriteJSON(w, status, resp)
}

// WriteBadRequest writes a 400 envelope for malformed input that never
// reached the service layer.
func WriteBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	WriteJSON(w, http.StatusBadRequest, ErrorResponse{
		Status:    http.StatusBadRequest,
		Code:      "INVALID_ARGUMENT",
		Message:   message,
		Timestamp: now(),
		RequestID: logger.CorrelationIDFromContext(r.Context()),
	})
}

// WriteValidationError writes a 422 envelope with per-field messages when
// err is a validator.ValidationError, or a 400 otherwise.
func WriteValidationError(w http.ResponseWriter, r *http.Request, err error) {
	var valErr *validator.ValidationError
	if !errors.As(err, &valErr) {
		WriteBadRequest(w, r, err.Error())
		return
	}
	WriteJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
		Status:    http.StatusUnprocessableEntity,
		Code:      "VALIDATION_ERROR",
		Message:   "request validation failed",
		Timestamp: now(),
		Fields:    valErr.Fields(),
		RequestID: logger.CorrelationIDFromContext(r.Context()),
	})
}

// ParseID parses a positive numeric path parameter. On failure it writes a
// 400 and returns false so the handler can return early.
func ParseID(w http.ResponseWriter, r *http.Request, name, raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		WriteBadRequest(w, r, fmt.Sprintf("invalid %s: %q", name, raw))
		return 0, false
	}
	return id, true
}
