package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{Validation("x"), http.StatusBadRequest},
		{BadRequest("x"), http.StatusBadRequest},
		{NotFound("x"), http.StatusNotFound},
		{Superseded("x"), http.StatusConflict},
		{RateLimit("x"), http.StatusTooManyRequests},
		{ServiceUnavailable("x"), http.StatusServiceUnavailable},
		{Internal("x"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if tt.err.StatusCode != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.err.Code, tt.err.StatusCode, tt.want)
		}
	}
}

func TestValidationWrapListsFields(t *testing.T) {
	type controls struct {
		Granularity string `validate:"required,oneof=Monthly Weekly"`
	}
	err := validator.New().Struct(controls{Granularity: "Daily"})
	require.Error(t, err)

	appErr := ValidationWrap(err, "invalid controls")
	require.Len(t, appErr.Fields, 1)
	assert.Equal(t, "Granularity", appErr.Fields[0].Field)
	assert.Equal(t, "oneof", appErr.Fields[0].Rule)
	assert.Equal(t, "Daily", appErr.Fields[0].Value)
	assert.Equal(t, err, appErr.Cause)
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, discard, fmt.Errorf("handler: %w", BadRequest("bad range")), "req-1")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code      string `json:"code"`
			Message   string `json:"message"`
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "BAD_REQUEST", body.Error.Code)
	assert.Equal(t, "bad range", body.Error.Message)
	assert.Equal(t, "req-1", body.Error.RequestID)
}

func TestWriteErrorHidesPlainErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, discard, fmt.Errorf("db password leaked"), "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestWriteSuccessWithHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccessWithHeaders(rec, map[string]int{"n": 1}, map[string]string{"Cache-Control": "no-store"})

	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"success":true,"data":{"n":1}}`, rec.Body.String())
}
