package handlers_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/campuslink/api/internal/handlers"
	"github.com/campuslink/api/internal/models"
	"github.com/campuslink/api/internal/services"
)

func TestRegister_Success(t *testing.T) {
	mock := &handlers.MockSignupService{
		RegisterFunc: func(ctx context.Context, email, fullName, password, ipAddress string) (*services.RegistrationResult, error) {
			assert.Equal(t, "jordan@university.edu", email)
			assert.Equal(t, "Jordan Reyes", fullName)
			return &services.RegistrationResult{
				SignupID:    "signup-1",
				ResumeToken: "resume-token-1",
			}, nil
		},
	}

	handler := handlers.NewSignupHandler(mock, handlers.AcceptAnyToken("signup-1"), nil)
	req := handlers.NewTestRequest(t, "POST", "/signup/register", handlers.RegisterRequest{
		Email:    "Jordan@University.edu",
		FullName: "  Jordan Reyes  ",
		Password: "correct-horse-battery",
	})

	w := httptest.NewRecorder()
	handler.Register(w, req)

	var resp services.RegistrationResult
	handlers.AssertJSONResponse(t, w, 201, &resp)
	assert.Equal(t, "signup-1", resp.SignupID)
	assert.Equal(t, "resume-token-1", resp.ResumeToken)
}

func TestRegister_EmailExists(t *testing.T) {
	mock := &handlers.MockSignupService{
		RegisterFunc: func(ctx context.Context, email, fullName, password, ipAddress string) (*services.RegistrationResult, error) {
			return nil, models.ErrEmailExists
		},
	}

	handler := handlers.NewSignupHandler(mock, handlers.AcceptAnyToken(""), nil)
	req := handlers.NewTestRequest(t, "POST", "/signup/register", handlers.RegisterRequest{
		Email:    "taken@university.edu",
		FullName: "Jordan Reyes",
		Password: "correct-horse-battery",
	})

	w := httptest.NewRecorder()
	handler.Register(w, req)

	handlers.AssertErrorResponse(t, w, 409, "EMAIL_EXISTS")
}

func TestRegister_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		body handlers.RegisterRequest
	}{
		{"missing email", handlers.RegisterRequest{FullName: "Jordan", Password: "correct-horse-battery"}},
		{"malformed email", handlers.RegisterRequest{Email: "not-an-email", FullName: "Jordan", Password: "correct-horse-battery"}},
		{"short password", handlers.RegisterRequest{Email: "jordan@university.edu", FullName: "Jordan", Password: "short"}},
		{"password over bcrypt limit", handlers.RegisterRequest{Email: "jordan@university.edu", FullName: "Jordan", Password: strings.Repeat("a", 73)}},
		{"missing name", handlers.RegisterRequest{Email: "jordan@university.edu", Password: "correct-horse-battery"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			mock := &handlers.MockSignupService{
				RegisterFunc: func(ctx context.Context, email, fullName, password, ipAddress string) (*services.RegistrationResult, error) {
					called = true
					return nil, nil
				},
			}

			handler := handlers.NewSignupHandler(mock, handlers.AcceptAnyToken(""), nil)
			req := handlers.NewTestRequest(t, "POST", "/signup/register", tt.body)

			w := httptest.NewRecorder()
			handler.Register(w, req)

			handlers.AssertErrorResponse(t, w, 400, "VALIDATION_ERROR")
			assert.False(t, called, "service should not be reached on validation failure")
		})
	}
}

func TestVerify_Success(t *testing.T) {
	mock := &handlers.MockSignupService{
		VerifyCodeFunc: func(ctx context.Context, signupID, code, ipAddress string) (*services.VerificationResult, error) {
			assert.Equal(t, "signup-1", signupID)
			assert.Equal(t, "482913", code)
			return &services.VerificationResult{
				ProfileID: "profile-1",
				Email:     "jordan@university.edu",
				FullName:  "Jordan Reyes",
			}, nil
		},
	}

	handler := handlers.NewSignupHandler(mock, handlers.AcceptAnyToken("signup-1"), nil)
	req := handlers.WithResumeToken(
		handlers.NewTestRequest(t, "POST", "/signup/verify", handlers.VerifyRequest{Code: "482913"}),
		"resume-token-1",
	)

	w := httptest.NewRecorder()
	handler.Verify(w, req)

	var resp services.VerificationResult
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "profile-1", resp.ProfileID)
}

func TestVerify_MissingToken(t *testing.T) {
	called := false
	mock := &handlers.MockSignupService{
		VerifyCodeFunc: func(ctx context.Context, signupID, code, ipAddress string) (*services.VerificationResult, error) {
			called = true
			return nil, nil
		},
	}

	handler := handlers.NewSignupHandler(mock, handlers.AcceptAnyToken("signup-1"), nil)
	req := handlers.NewTestRequest(t, "POST", "/signup/verify", handlers.VerifyRequest{Code: "482913"})

	w := httptest.NewRecorder()
	handler.Verify(w, req)

	handlers.AssertErrorResponse(t, w, 401, "RESUME_TOKEN_INVALID")
	assert.False(t, called)
}

func TestVerify_OutcomeMapping(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{"wrong code", models.ErrOTPInvalid, 400, "OTP_INVALID"},
		{"expired code", models.ErrOTPExpired, 400, "OTP_EXPIRED"},
		{"locked", models.ErrOTPLocked, 423, "OTP_LOCKED"},
		{"not found", models.ErrPendingNotFound, 404, "PENDING_NOT_FOUND"},
		{"already verified", models.ErrAlreadyVerified, 409, "ALREADY_VERIFIED"},
		{"email taken meanwhile", models.ErrEmailExists, 409, "EMAIL_EXISTS"},
		{"storage failure", assert.AnError, 500, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &handlers.MockSignupService{
				VerifyCodeFunc: func(ctx context.Context, signupID, code, ipAddress string) (*services.VerificationResult, error) {
					return nil, tt.serviceErr
				},
			}

			handler := handlers.NewSignupHandler(mock, handlers.AcceptAnyToken("signup-1"), nil)
			req := handlers.WithResumeToken(
				handlers.NewTestRequest(t, "POST", "/signup/verify", handlers.VerifyRequest{Code: "000000"}),
				"resume-token-1",
			)

			w := httptest.NewRecorder()
			handler.Verify(w, req)

			handlers.AssertErrorResponse(t, w, tt.wantStatus, tt.wantCode)
		})
	}
}

func TestVerify_NonNumericCodeRejected(t *testing.T) {
	handler := handlers.NewSignupHandler(&handlers.MockSignupService{}, handlers.AcceptAnyToken("signup-1"), nil)
	req := handlers.WithResumeToken(
		handlers.NewTestRequest(t, "POST", "/signup/verify", handlers.VerifyRequest{Code: "48a913"}),
		"resume-token-1",
	)

	w := httptest.NewRecorder()
	handler.Verify(w, req)

	handlers.AssertErrorResponse(t, w, 400, "VALIDATION_ERROR")
}

func TestResend_Success(t *testing.T) {
	mock := &handlers.MockSignupService{
		ResendCodeFunc: func(ctx context.Context, signupID, ipAddress string) error {
			assert.Equal(t, "signup-1", signupID)
			return nil
		},
	}

	handler := handlers.NewSignupHandler(mock, handlers.AcceptAnyToken("signup-1"), nil)
	req := handlers.WithResumeToken(
		handlers.NewTestRequest(t, "POST", "/signup/resend", nil),
		"resume-token-1",
	)

	w := httptest.NewRecorder()
	handler.Resend(w, req)

	var resp handlers.MessageResponse
	handlers.AssertJSONResponse(t, w, 202, &resp)
	assert.NotEmpty(t, resp.Message)
}

func TestResend_Throttled(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantCode   string
	}{
		{"cooldown", models.ErrOTPCooldown, "OTP_COOLDOWN"},
		{"daily cap", models.ErrOTPResendLimit, "OTP_RESEND_LIMIT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &handlers.MockSignupService{
				ResendCodeFunc: func(ctx context.Context, signupID, ipAddress string) error {
					return tt.serviceErr
				},
			}

			handler := handlers.NewSignupHandler(mock, handlers.AcceptAnyToken("signup-1"), nil)
			req := handlers.WithResumeToken(
				handlers.NewTestRequest(t, "POST", "/signup/resend", nil),
				"resume-token-1",
			)

			w := httptest.NewRecorder()
			handler.Resend(w, req)

			handlers.AssertErrorResponse(t, w, 429, tt.wantCode)
		})
	}
}

func TestChangeEmail_Success(t *testing.T) {
	mock := &handlers.MockSignupService{
		ChangeEmailFunc: func(ctx context.Context, signupID, newEmail, fullName, ipAddress string) (string, error) {
			assert.Equal(t, "signup-1", signupID)
			assert.Equal(t, "jordan.new@university.edu", newEmail)
			return "resume-token-2", nil
		},
	}

	handler := handlers.NewSignupHandler(mock, handlers.AcceptAnyToken("signup-1"), nil)
	req := handlers.WithResumeToken(
		handlers.NewTestRequest(t, "PATCH", "/signup/email", handlers.ChangeEmailRequest{
			Email: "Jordan.New@University.edu",
		}),
		"resume-token-1",
	)

	w := httptest.NewRecorder()
	handler.ChangeEmail(w, req)

	var resp handlers.ChangeEmailResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "resume-token-2", resp.ResumeToken)
}

func TestChangeEmail_TargetTaken(t *testing.T) {
	mock := &handlers.MockSignupService{
		ChangeEmailFunc: func(ctx context.Context, signupID, newEmail, fullName, ipAddress string) (string, error) {
			return "", models.ErrEmailExists
		},
	}

	handler := handlers.NewSignupHandler(mock, handlers.AcceptAnyToken("signup-1"), nil)
	req := handlers.WithResumeToken(
		handlers.NewTestRequest(t, "PATCH", "/signup/email", handlers.ChangeEmailRequest{
			Email: "taken@university.edu",
		}),
		"resume-token-1",
	)

	w := httptest.NewRecorder()
	handler.ChangeEmail(w, req)

	handlers.AssertErrorResponse(t, w, 409, "EMAIL_EXISTS")
}

func TestContext_Success(t *testing.T) {
	expires := time.Now().Add(8 * time.Minute).UTC()
	mock := &handlers.MockSignupService{
		ContextFunc: func(ctx context.Context, signupID string) (*services.SignupContext, error) {
			return &services.SignupContext{
				MaskedEmail:       "j***@university.edu",
				FullName:          "Jordan Reyes",
				OTPExpiresAt:      &expires,
				AttemptsRemaining: 3,
				ResendsRemaining:  4,
				ResendAvailableIn: 42,
			}, nil
		},
	}

	handler := handlers.NewSignupHandler(mock, handlers.AcceptAnyToken("signup-1"), nil)
	req := handlers.WithResumeToken(
		handlers.NewTestRequest(t, "GET", "/signup/context", nil),
		"resume-token-1",
	)

	w := httptest.NewRecorder()
	handler.Context(w, req)

	var resp services.SignupContext
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "j***@university.edu", resp.MaskedEmail)
	assert.Equal(t, 3, resp.AttemptsRemaining)
	assert.Equal(t, 42, resp.ResendAvailableIn)
}

func TestContext_GoneSignup(t *testing.T) {
	mock := &handlers.MockSignupService{
		ContextFunc: func(ctx context.Context, signupID string) (*services.SignupContext, error) {
			return nil, models.ErrPendingNotFound
		},
	}

	handler := handlers.NewSignupHandler(mock, handlers.AcceptAnyToken("signup-1"), nil)
	req := handlers.WithResumeToken(
		handlers.NewTestRequest(t, "GET", "/signup/context", nil),
		"resume-token-1",
	)

	w := httptest.NewRecorder()
	handler.Context(w, req)

	handlers.AssertErrorResponse(t, w, 404, "PENDING_NOT_FOUND")
}
