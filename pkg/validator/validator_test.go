package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type addItem struct {
	ProductID int64  `json:"productId" validate:"required,gt=0"`
	Quantity  int    `json:"quantity" validate:"required,gte=1,lte=1000"`
	Note      string `json:"note,omitempty" validate:"max=5"`
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, Validate(addItem{ProductID: 5, Quantity: 2}))
}

func TestValidate_FieldsUseJSONNames(t *testing.T) {
	err := Validate(addItem{Quantity: 5000, Note: "too long"})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)

	fields := valErr.Fields()
	assert.Equal(t, "is required", fields["productId"])
	assert.Equal(t, "must be less than or equal to 1000", fields["quantity"])
	assert.Equal(t, "must be at most 5 characters", fields["note"])
	assert.Contains(t, err.Error(), "productId is required")
}

func TestDecodeAndValidate(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"productId":5,"quantity":2}`))
	var dst addItem
	require.NoError(t, DecodeAndValidate(r, &dst))
	assert.Equal(t, int64(5), dst.ProductID)
	assert.Equal(t, 2, dst.Quantity)
}

func TestDecodeAndValidate_Malformed(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"productId":`))
	var dst addItem
	err := DecodeAndValidate(r, &dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}

func TestDecodeAndValidate_UnknownField(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"productId":5,"quantity":1,"sku":"x"}`))
	var dst addItem
	assert.Error(t, DecodeAndValidate(r, &dst))
}
