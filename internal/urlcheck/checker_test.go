package urlcheck

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/raterly/raterly/pkg/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("https://g.page/r/some-biz/review"))
	assert.NoError(t, Validate("http://example.com"))

	assert.ErrorIs(t, Validate("ftp://example.com"), apperrors.ErrInvalidInput)
	assert.ErrorIs(t, Validate("not a url"), apperrors.ErrInvalidInput)
	assert.ErrorIs(t, Validate("https://"), apperrors.ErrInvalidInput)
}

func TestChecker_Check_Reachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	checker := New(testLogger())
	err := checker.Check(context.Background(), srv.URL)
	assert.NoError(t, err)
}

func TestChecker_Check_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	checker := New(testLogger())
	err := checker.Check(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestChecker_Check_InvalidURLSkipsProbe(t *testing.T) {
	checker := New(testLogger())
	err := checker.Check(context.Background(), "ftp://example.com")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
