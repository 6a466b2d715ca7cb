package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/validator"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func useFixedClock(t *testing.T) {
	t.Helper()
	prev := now
	now = func() time.Time { return fixedNow }
	t.Cleanup(func() { now = prev })
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]int{"quantity": 4})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"quantity":4}`, rec.Body.String())
}

func TestWriteNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteNoContent(rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestWriteError_BusinessErrors(t *testing.T) {
	useFixedClock(t)

	tests := []struct {
		name string
		err  error
		code string
	}{
		{"not found", apperrors.NotFound("order", 999), "NOT_FOUND"},
		{"invalid state", apperrors.InvalidState("cart is empty"), "INVALID_STATE"},
		{"invalid argument", apperrors.InvalidArgument("invalid status: BOGUS"), "INVALID_ARGUMENT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			req = req.WithContext(logger.WithCorrelationID(req.Context(), "corr-1"))
			rec := httptest.NewRecorder()

			WriteError(rec, req, tt.err, nil)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, http.StatusBadRequest, resp.Status)
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, fixedNow, resp.Timestamp)
			assert.Equal(t, "corr-1", resp.RequestID)
		})
	}
}

func TestWriteError_InternalHidesDetails(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()

	WriteError(rec, req, errors.New("pq: relation carts does not exist"), nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", resp.Code)
	assert.Equal(t, "an internal error occurred", resp.Message)
	assert.NotContains(t, rec.Body.String(), "relation")
}

func TestWriteError_Conflict(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	rec := httptest.NewRecorder()

	WriteError(rec, req, apperrors.Conflict("concurrent cart update, please retry"), nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", decodeError(t, rec).Code)
}

type createReq struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

func TestWriteValidationError(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	rec := httptest.NewRecorder()

	err := validator.Validate(createReq{})
	require.Error(t, err)
	WriteValidationError(rec, req, err)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", resp.Code)
	assert.Contains(t, resp.Fields, "quantity")
}

func TestWriteValidationError_PlainError(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	rec := httptest.NewRecorder()

	WriteValidationError(rec, req, errors.New("decode request body: EOF"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ARGUMENT", decodeError(t, rec).Code)
}

func TestParseID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	rec := httptest.NewRecorder()
	id, ok := ParseID(rec, req, "customerId", "12")
	assert.True(t, ok)
	assert.Equal(t, int64(12), id)

	for _, raw := range []string{"abc", "0", "-3", ""} {
		rec := httptest.NewRecorder()
		_, ok := ParseID(rec, req, "customerId", raw)
		assert.False(t, ok, raw)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}
