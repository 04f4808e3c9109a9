package httpclient

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	apperrors "github.com/raterly/raterly/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeResponse creates an *http.Response with the given status code and body string.
func makeResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// structuredError builds a standard JSON error body.
func structuredError(code, message string) string {
	return `{"error":{"code":"` + code + `","message":"` + message + `"}}`
}

// asAppError asserts err unwraps to an *AppError and returns it.
func asAppError(t *testing.T, err error) *apperrors.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	return appErr
}

func TestParseResponseError_StructuredSentinels(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		code     string
		message  string
		sentinel error
	}{
		{"not found", http.StatusNotFound, "NOT_FOUND", "listing not found", apperrors.ErrNotFound},
		{"bad request", http.StatusBadRequest, "INVALID_INPUT", "missing field name", apperrors.ErrInvalidInput},
		{"conflict", http.StatusConflict, "CONFLICT", "version mismatch", apperrors.ErrConflict},
		{"unauthorized", http.StatusUnauthorized, "UNAUTHORIZED", "invalid token", apperrors.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, "FORBIDDEN", "insufficient permissions", apperrors.ErrForbidden},
		{"gone", http.StatusGone, "GONE", "listing removed", apperrors.ErrGone},
		{"service unavailable", http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "overloaded", apperrors.ErrServiceUnavail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := makeResponse(tt.status, structuredError(tt.code, tt.message))
			appErr := asAppError(t, ParseResponseError(resp, "directory-api"))
			assert.Equal(t, tt.status, appErr.Status)
			assert.True(t, errors.Is(appErr, tt.sentinel))
			assert.Contains(t, appErr.Message, "directory-api")
		})
	}
}

func TestParseResponseError_StructuredError_UnprocessableEntity(t *testing.T) {
	// 422 has no dedicated mapping; the status and code pass through unchanged.
	resp := makeResponse(http.StatusUnprocessableEntity, structuredError("UNPROCESSABLE", "rejected payload"))
	appErr := asAppError(t, ParseResponseError(resp, "review-platform"))
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.Status)
	assert.Equal(t, "UNPROCESSABLE", appErr.Code)
	assert.Contains(t, appErr.Message, "review-platform")
}

func TestParseResponseError_StructuredError_ServerError(t *testing.T) {
	resp := makeResponse(http.StatusInternalServerError, structuredError("INTERNAL_ERROR", "something went wrong"))
	err := ParseResponseError(resp, "review-platform")
	require.Error(t, err)

	// 500 server errors produce a generic error (not AppError).
	assert.Contains(t, err.Error(), "review-platform")
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "something went wrong")
}

func TestParseResponseError_StructuredError_502(t *testing.T) {
	resp := makeResponse(http.StatusBadGateway, structuredError("BAD_GATEWAY", "upstream error"))
	err := ParseResponseError(resp, "gateway")
	require.Error(t, err)

	// 502 is >= 500, should produce a generic error string.
	assert.Contains(t, err.Error(), "gateway")
	assert.Contains(t, err.Error(), "502")
}

func TestParseResponseError_UnstructuredBody(t *testing.T) {
	resp := makeResponse(http.StatusBadGateway, "Bad Gateway: upstream connection refused")
	err := ParseResponseError(resp, "api-gateway")
	require.Error(t, err)

	assert.Contains(t, err.Error(), "api-gateway")
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "Bad Gateway: upstream connection refused")
}

func TestParseResponseError_EmptyBody(t *testing.T) {
	resp := makeResponse(http.StatusInternalServerError, "")
	err := ParseResponseError(resp, "review-platform")
	require.Error(t, err)

	assert.Contains(t, err.Error(), "review-platform")
	assert.Contains(t, err.Error(), "500")
}

func TestParseResponseError_HTMLBody(t *testing.T) {
	resp := makeResponse(http.StatusBadGateway, "<html><body><h1>502 Bad Gateway</h1></body></html>")
	err := ParseResponseError(resp, "nginx")
	require.Error(t, err)

	assert.Contains(t, err.Error(), "nginx")
	assert.Contains(t, err.Error(), "502")
}

func TestParseResponseError_StructuredButNullError(t *testing.T) {
	// JSON body with error: null falls through to the unstructured path,
	// producing a plain error rather than an AppError.
	resp := makeResponse(http.StatusBadRequest, `{"error":null}`)
	err := ParseResponseError(resp, "directory-api")
	require.Error(t, err)

	assert.Contains(t, err.Error(), "directory-api")
	assert.Contains(t, err.Error(), "400")
}

func TestParseResponseError_DefaultStatusCode(t *testing.T) {
	// A 4xx status not specifically handled (e.g. 429 Too Many Requests) should
	// produce a generic AppError with the original status preserved.
	resp := makeResponse(http.StatusTooManyRequests, structuredError("RATE_LIMITED", "slow down"))
	appErr := asAppError(t, ParseResponseError(resp, "gateway"))
	assert.Equal(t, http.StatusTooManyRequests, appErr.Status)
	assert.Equal(t, "RATE_LIMITED", appErr.Code)
	assert.Contains(t, appErr.Message, "gateway")
}

func TestIsClientError(t *testing.T) {
	clientStatuses := []int{400, 401, 403, 404, 409, 410, 422, 429, 499}
	for _, status := range clientStatuses {
		assert.True(t, IsClientError(status), "status %d should be a client error", status)
	}

	otherStatuses := []int{200, 201, 204, 301, 302, 399, 500, 501, 502, 503, 504}
	for _, status := range otherStatuses {
		assert.False(t, IsClientError(status), "status %d should NOT be a client error", status)
	}
}
