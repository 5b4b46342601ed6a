package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/campuslink/api/internal/models"
	"github.com/campuslink/api/internal/services"
	pkghttp "github.com/campuslink/api/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithResumeToken sets the Authorization header the signup endpoints read
func WithResumeToken(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockSignupService implements SignupServiceInterface for testing
type MockSignupService struct {
	RegisterFunc    func(ctx context.Context, email, fullName, password, ipAddress string) (*services.RegistrationResult, error)
	VerifyCodeFunc  func(ctx context.Context, signupID, code, ipAddress string) (*services.VerificationResult, error)
	ResendCodeFunc  func(ctx context.Context, signupID, ipAddress string) error
	ChangeEmailFunc func(ctx context.Context, signupID, newEmail, fullName, ipAddress string) (string, error)
	ContextFunc     func(ctx context.Context, signupID string) (*services.SignupContext, error)
}

func (m *MockSignupService) Register(ctx context.Context, email, fullName, password, ipAddress string) (*services.RegistrationResult, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.RegisterFunc(ctx, email, fullName, password, ipAddress)
}

func (m *MockSignupService) VerifyCode(ctx context.Context, signupID, code, ipAddress string) (*services.VerificationResult, error) {
	if m.VerifyCodeFunc == nil {
		return nil, models.ErrOTPInvalid
	}
	return m.VerifyCodeFunc(ctx, signupID, code, ipAddress)
}

func (m *MockSignupService) ResendCode(ctx context.Context, signupID, ipAddress string) error {
	if m.ResendCodeFunc == nil {
		return nil
	}
	return m.ResendCodeFunc(ctx, signupID, ipAddress)
}

func (m *MockSignupService) ChangeEmail(ctx context.Context, signupID, newEmail, fullName, ipAddress string) (string, error) {
	if m.ChangeEmailFunc == nil {
		return "", models.ErrInternalServer
	}
	return m.ChangeEmailFunc(ctx, signupID, newEmail, fullName, ipAddress)
}

func (m *MockSignupService) Context(ctx context.Context, signupID string) (*services.SignupContext, error) {
	if m.ContextFunc == nil {
		return nil, models.ErrPendingNotFound
	}
	return m.ContextFunc(ctx, signupID)
}

// MockResumeTokenVerifier implements ResumeTokenVerifier for testing
type MockResumeTokenVerifier struct {
	VerifyFunc func(ctx context.Context, token string) (string, error)
}

func (m *MockResumeTokenVerifier) Verify(ctx context.Context, token string) (string, error) {
	if m.VerifyFunc == nil {
		return "", models.ErrResumeTokenInvalid
	}
	return m.VerifyFunc(ctx, token)
}

// AcceptAnyToken maps every presented token to the given signup ID
func AcceptAnyToken(signupID string) *MockResumeTokenVerifier {
	return &MockResumeTokenVerifier{
		VerifyFunc: func(ctx context.Context, token string) (string, error) {
			if token == "" {
				return "", models.ErrResumeTokenInvalid
			}
			return signupID, nil
		},
	}
}
