package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/raterly/raterly/pkg/errors"
)

// DownstreamErrorResponse mirrors the httputil.ErrorResponse envelope so that
// structured error bodies from other Raterly services can be decoded.
type DownstreamErrorResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError reads the body of a non-2xx response and translates it
// into an AppError. Bodies in the standard ErrorResponse envelope keep their
// code and message; anything else becomes a generic error carrying the status
// and raw body.
//
// Call this only when resp.StatusCode indicates an error. The body is fully
// consumed and closed, and is capped at 1 MB to bound memory on a misbehaving
// downstream.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	var envelope DownstreamErrorResponse
	if json.Unmarshal(body, &envelope) == nil && envelope.Error != nil {
		return mapDownstreamError(resp.StatusCode, envelope.Error.Code, envelope.Error.Message, serviceName)
	}

	return fmt.Errorf("%s returned status %d: %s", serviceName, resp.StatusCode, string(body))
}

// mapDownstreamError turns a downstream status and error code into the
// matching AppError so the sentinel classification survives the hop between
// services.
func mapDownstreamError(status int, code, message, serviceName string) error {
	qualified := fmt.Sprintf("%s: %s", serviceName, message)

	switch status {
	case http.StatusNotFound:
		return apperrors.NotFound(serviceName, message)
	case http.StatusBadRequest:
		return apperrors.InvalidInput(qualified)
	case http.StatusConflict:
		return apperrors.Conflict(qualified)
	case http.StatusUnauthorized:
		return apperrors.Unauthorized(qualified)
	case http.StatusForbidden:
		return apperrors.Forbidden(qualified)
	case http.StatusGone:
		return apperrors.Gone(qualified)
	case http.StatusServiceUnavailable:
		return &apperrors.AppError{
			Code:    code,
			Message: qualified,
			Status:  http.StatusServiceUnavailable,
			Err:     apperrors.ErrServiceUnavail,
		}
	}

	if status >= 500 {
		return fmt.Errorf("%s server error (%d/%s): %s", serviceName, status, code, message)
	}

	// Remaining 4xx statuses keep the downstream code verbatim.
	return &apperrors.AppError{
		Code:    code,
		Message: qualified,
		Status:  status,
	}
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
// Client errors are not retried: the request itself was invalid, so repeating
// it cannot succeed.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
