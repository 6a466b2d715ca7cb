package httpclient

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func response(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body))}
}

func TestParseResponseError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
		contains string
	}{
		{"not found", 404, `{"status":404,"code":"NOT_FOUND","message":"product 5"}`, apperrors.ErrNotFound, "product 5"},
		{"conflict", 409, `{"code":"CONFLICT","message":"busy"}`, apperrors.ErrConflict, "inventory: busy"},
		{"unauthorized", 401, `{"code":"UNAUTHORIZED","message":"no token"}`, apperrors.ErrUnauthorized, "no token"},
		{"forbidden", 403, `{"code":"FORBIDDEN","message":"nope"}`, apperrors.ErrForbidden, "nope"},
		{"unavailable", 503, `{"code":"DEPENDENCY_UNAVAILABLE","message":"down"}`, apperrors.ErrDependencyUnavailable, "inventory is unavailable"},
		{"bad request", 400, `{"code":"INVALID_ARGUMENT","message":"bad id"}`, apperrors.ErrInvalidArgument, "bad id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseResponseError(response(tt.status, tt.body), "inventory")
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestParseResponseError_Unstructured(t *testing.T) {
	err := ParseResponseError(response(502, "<html>bad gateway</html>"), "inventory")
	assert.EqualError(t, err, "inventory returned status 502: <html>bad gateway</html>")
}

func TestParseResponseError_ServerErrorWithEnvelope(t *testing.T) {
	err := ParseResponseError(response(500, `{"code":"INTERNAL_ERROR","message":"oops"}`), "inventory")
	assert.EqualError(t, err, "inventory server error (500/INTERNAL_ERROR): oops")
}
