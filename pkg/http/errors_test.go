package http_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	pkghttp "github.com/campuslink/api/pkg/http"
	"github.com/stretchr/testify/assert"
)

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteError(w, 400, "TEST_ERROR", "Test message")

	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err)
	assert.Equal(t, "TEST_ERROR", resp.Error)
	assert.Equal(t, "Test message", resp.Message)
	assert.Empty(t, resp.Details)
}

func TestWriteErrorWithDetails(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteErrorWithDetails(w, 400, "TEST_ERROR", "Test message", "Additional details")

	assert.Equal(t, 400, w.Code)

	var resp pkghttp.ErrorResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, "TEST_ERROR", resp.Error)
	assert.Equal(t, "Test message", resp.Message)
	assert.Equal(t, "Additional details", resp.Details)
}

func TestOutcomeWriters(t *testing.T) {
	tests := []struct {
		name       string
		write      func(w *httptest.ResponseRecorder)
		wantStatus int
		wantCode   string
	}{
		{"validation", func(w *httptest.ResponseRecorder) { pkghttp.WriteValidationError(w, "bad body") }, 400, pkghttp.CodeValidationError},
		{"resume token", func(w *httptest.ResponseRecorder) { pkghttp.WriteResumeTokenInvalid(w) }, 401, pkghttp.CodeResumeTokenInvalid},
		{"pending not found", func(w *httptest.ResponseRecorder) { pkghttp.WritePendingNotFound(w) }, 404, pkghttp.CodePendingNotFound},
		{"already verified", func(w *httptest.ResponseRecorder) { pkghttp.WriteAlreadyVerified(w) }, 409, pkghttp.CodeAlreadyVerified},
		{"email exists", func(w *httptest.ResponseRecorder) { pkghttp.WriteEmailExists(w) }, 409, pkghttp.CodeEmailExists},
		{"too many requests", func(w *httptest.ResponseRecorder) { pkghttp.WriteTooManyRequests(w, "slow down") }, 429, pkghttp.CodeTooManyRequests},
		{"internal", func(w *httptest.ResponseRecorder) { pkghttp.WriteInternalError(w) }, 500, pkghttp.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)

			assert.Equal(t, tt.wantStatus, w.Code)

			var resp pkghttp.ErrorResponse
			assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Error)
			assert.NotEmpty(t, resp.Message)
		})
	}
}
