package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		err    *AppError
		status int
	}{
		{Internal("x"), http.StatusInternalServerError},
		{NotFound("x"), http.StatusNotFound},
		{BadRequestWrap(io.EOF, "x"), http.StatusBadRequest},
		{RateLimit("x"), http.StatusTooManyRequests},
		{DataLoad("x"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, tt.err.StatusCode, string(tt.err.Code))
	}
}

func TestIsDataLoad(t *testing.T) {
	err := DataLoadWrap(os.ErrNotExist, "open dataset").WithDetails("sales.csv")
	wrapped := fmt.Errorf("bootstrap: %w", err)

	assert.True(t, IsDataLoad(wrapped))
	assert.ErrorIs(t, wrapped, os.ErrNotExist)
	assert.Contains(t, err.Error(), "DATA_LOAD_ERROR")

	assert.False(t, IsDataLoad(NotFound("x")))
	assert.False(t, IsDataLoad(io.EOF))
	assert.False(t, IsDataLoad(nil))
}

func TestWriteError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("app error", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, logger, NotFound("Endpoint not found").WithDetails("/nope"), "req-1")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var resp ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.False(t, resp.Success)
		assert.Equal(t, CodeNotFound, resp.Error.Code)
		assert.Equal(t, "/nope", resp.Error.Details)
		assert.Equal(t, "req-1", resp.Error.RequestID)
	})

	t.Run("plain error", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, logger, io.ErrUnexpectedEOF, "")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
		assert.NotContains(t, w.Body.String(), "unexpected EOF")
	})
}

func TestWriteSuccessWithHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessWithHeaders(w, []int{1, 2}, map[string]string{"Cache-Control": "no-store"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"data":[1,2],"success":true}`, w.Body.String())
}

func TestWriteSuccess_UnencodableData(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessWithHeaders(w, map[string]float64{"total_revenue": math.NaN()}, map[string]string{"Cache-Control": "public, max-age=300"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, w.Header().Get("Cache-Control"), "error responses must not be cached")

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.False(t, resp.Success)
	assert.Equal(t, CodeInternal, resp.Error.Code)
}
