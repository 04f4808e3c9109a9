package httputil

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/raterly/raterly/pkg/errors"
	"github.com/raterly/raterly/pkg/logger"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

// rawBody decodes the recorded body into raw JSON fields so tests can check
// which keys are present, not just their decoded values.
func rawBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var raw map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&raw))
	return raw
}

// writeErr runs WriteError for err on a request with the given context and
// returns the recorder plus the decoded envelope.
func writeErr(t *testing.T, ctx context.Context, path string, err error) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil).WithContext(ctx)
	WriteError(rec, req, err, testLogger())
	return rec, decodeResponse(t, rec)
}

// --- WriteJSON ---

func TestWriteJSON_SetsContentType(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusOK, Response{Data: "hello"})

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWriteJSON_EncodesData(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusOK, Response{Data: map[string]string{"business_id": "biz-1"}})

	resp := decodeResponse(t, rec)
	assert.NotNil(t, resp.Data)
}

func TestWriteJSON_ErrorPayload(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusBadRequest, Response{
		Error: &ErrorResponse{Code: "INVALID_RATING", Message: "rating must be between 1 and 5"},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_RATING", resp.Error.Code)
	assert.Equal(t, "rating must be between 1 and 5", resp.Error.Message)
}

func TestWriteJSON_StatusCodes(t *testing.T) {
	for _, code := range []int{http.StatusOK, http.StatusCreated, http.StatusNotFound, http.StatusTeapot} {
		rec := httptest.NewRecorder()
		WriteJSON(rec, code, Response{})
		assert.Equal(t, code, rec.Code)
	}
}

func TestWriteJSON_OmitsNilFields(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusOK, Response{Data: "ok"})
	_, hasError := rawBody(t, rec)["error"]
	assert.False(t, hasError, "error field should be omitted when nil")

	rec = httptest.NewRecorder()
	WriteJSON(rec, http.StatusBadRequest, Response{
		Error: &ErrorResponse{Code: "ERR", Message: "msg"},
	})
	_, hasData := rawBody(t, rec)["data"]
	assert.False(t, hasData, "data field should be omitted when nil")
}

// --- WriteError ---

func TestWriteError_AppError(t *testing.T) {
	rec, resp := writeErr(t, context.Background(), "/api/v1/businesses/abc-123",
		apperrors.NotFound("business", "abc-123"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestWriteError_Sentinels(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", apperrors.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"already exists", apperrors.ErrAlreadyExists, http.StatusConflict, "ALREADY_EXISTS"},
		{"invalid input", apperrors.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, resp := writeErr(t, context.Background(), "/api/v1/reviews", tc.err)
			assert.Equal(t, tc.wantStatus, rec.Code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.wantCode, resp.Error.Code)
		})
	}
}

func TestWriteError_UnknownError_Returns500(t *testing.T) {
	rec, resp := writeErr(t, context.Background(), "/api/v1/reviews",
		fmt.Errorf("something unexpected"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
}

// --- WriteValidationError ---

func TestWriteValidationError_NonValidationError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteValidationError(rec, fmt.Errorf("not a validation error"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeResponse(t, rec)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
}

// --- PaginatedResponse ---

func TestNewPaginatedResponse(t *testing.T) {
	tests := []struct {
		name           string
		data           []string
		total          int
		page           int
		perPage        int
		wantTotalPages int
		wantHasNext    bool
	}{
		{"middle page", []string{"rev-1", "rev-2"}, 25, 1, 10, 3, true},
		{"last page", []string{"rev-21"}, 21, 3, 10, 3, false},
		{"exact division", []string{"rev-11", "rev-12", "rev-13"}, 30, 2, 10, 3, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := NewPaginatedResponse(tc.data, tc.total, tc.page, tc.perPage)
			assert.Equal(t, tc.wantTotalPages, resp.TotalPages)
			assert.Equal(t, tc.wantHasNext, resp.HasNext)
			assert.Len(t, resp.Data, len(tc.data))
		})
	}
}

func TestNewPaginatedResponse_NilDataBecomesEmptySlice(t *testing.T) {
	resp := NewPaginatedResponse[string](nil, 0, 1, 20)
	assert.NotNil(t, resp.Data)
	assert.Empty(t, resp.Data)
	assert.Equal(t, 0, resp.TotalPages)
	assert.False(t, resp.HasNext)
}

func TestNewPaginatedResponse_JSONSerialization(t *testing.T) {
	resp := NewPaginatedResponse([]string{"rev-1"}, 1, 1, 10)
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusOK, resp)

	out := rawBody(t, rec)
	assert.Contains(t, string(out["data"]), "rev-1")
	assert.Contains(t, string(out["total_count"]), "1")
	assert.Contains(t, string(out["page"]), "1")
	assert.Contains(t, string(out["per_page"]), "10")
}

// --- ParseUUID ---

func TestParseUUID_ValidUUID(t *testing.T) {
	rec := httptest.NewRecorder()
	id, ok := ParseUUID(rec, "550e8400-e29b-41d4-a716-446655440000")
	assert.True(t, ok)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", id.String())
	assert.Equal(t, http.StatusOK, rec.Code) // no response written
}

func TestParseUUID_UppercaseUUID(t *testing.T) {
	rec := httptest.NewRecorder()
	id, ok := ParseUUID(rec, "550E8400-E29B-41D4-A716-446655440000")
	assert.True(t, ok)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", id.String())
}

func TestParseUUID_Invalid_Returns400(t *testing.T) {
	for _, input := range []string{"not-a-uuid", "", "abc123"} {
		t.Run(fmt.Sprintf("input %q", input), func(t *testing.T) {
			rec := httptest.NewRecorder()
			id, ok := ParseUUID(rec, input)
			assert.False(t, ok)
			assert.Equal(t, "00000000-0000-0000-0000-000000000000", id.String())
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			resp := decodeResponse(t, rec)
			require.NotNil(t, resp.Error)
			assert.Equal(t, "INVALID_PARAMETER", resp.Error.Code)
		})
	}
}

// --- Request ID propagation into error responses ---

func TestWriteError_IncludesRequestID(t *testing.T) {
	ctx := logger.WithCorrelationID(context.Background(), "corr-123")
	rec, resp := writeErr(t, ctx, "/api/v1/reviews", apperrors.ErrNotFound)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "corr-123", resp.Error.RequestID)
}

func TestWriteError_AppError_IncludesRequestID(t *testing.T) {
	ctx := logger.WithCorrelationID(context.Background(), "corr-456")
	rec, resp := writeErr(t, ctx, "/api/v1/businesses/xyz-789",
		apperrors.NotFound("business", "xyz-789"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	assert.Equal(t, "corr-456", resp.Error.RequestID)
}

func TestWriteError_NoCorrelationID_OmitsRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews", nil)

	WriteError(rec, req, apperrors.ErrNotFound, testLogger())
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// The request_id key must be absent from the raw JSON, not just empty.
	raw := rawBody(t, rec)
	var errObj map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw["error"], &errObj))
	_, hasRequestID := errObj["request_id"]
	assert.False(t, hasRequestID, "request_id should be omitted when no correlation ID is in context")
}

func TestErrorResponse_RequestID_JSONSerialization(t *testing.T) {
	withID := ErrorResponse{Code: "ERR", Message: "msg", RequestID: "req-abc"}
	data, err := json.Marshal(withID)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	_, hasRequestID := raw["request_id"]
	assert.True(t, hasRequestID, "request_id should be present in JSON when set")
	assert.Contains(t, string(raw["request_id"]), "req-abc")

	withoutID := ErrorResponse{Code: "ERR", Message: "msg"}
	data2, err := json.Marshal(withoutID)
	require.NoError(t, err)

	var raw2 map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data2, &raw2))
	_, hasRequestID2 := raw2["request_id"]
	assert.False(t, hasRequestID2, "request_id should be omitted from JSON when empty")
}
