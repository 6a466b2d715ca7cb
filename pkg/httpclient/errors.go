package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// remoteError is the error envelope written by httputil.WriteError.
type remoteError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ParseResponseError consumes and closes a non-2xx response body and turns
// it into an error. Envelopes with a code keep their code and message.
func ParseResponseError(resp *http.Response, service string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", service, resp.StatusCode, err)
	}

	var env remoteError
	if json.Unmarshal(body, &env) != nil || env.Code == "" {
		return fmt.Errorf("%s returned status %d: %s", service, resp.StatusCode, body)
	}

	msg := fmt.Sprintf("%s: %s", service, env.Message)
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NotFound(service+" resource", env.Message)
	case resp.StatusCode == http.StatusConflict:
		return apperrors.Conflict(msg)
	case resp.StatusCode == http.StatusUnauthorized:
		return apperrors.Unauthorized(msg)
	case resp.StatusCode == http.StatusForbidden:
		return apperrors.Forbidden(msg)
	case resp.StatusCode == http.StatusServiceUnavailable:
		return apperrors.DependencyUnavailable(service, fmt.Errorf("%s", env.Message))
	case resp.StatusCode >= 500:
		return fmt.Errorf("%s server error (%d/%s): %s", service, resp.StatusCode, env.Code, env.Message)
	default:
		return &apperrors.AppError{
			Code:    env.Code,
			Message: msg,
			Status:  resp.StatusCode,
			Err:     apperrors.ErrInvalidArgument,
		}
	}
}
