package services

import (
	"context"
	"time"

	"github.com/campuslink/api/internal/models"
)

// MockPendingSignupRepository implements PendingSignupRepository for testing
type MockPendingSignupRepository struct {
	CreateFunc            func(ctx context.Context, signup *models.PendingSignup) (*models.PendingSignup, error)
	GetByIDFunc           func(ctx context.Context, id string) (*models.PendingSignup, error)
	GetPendingByEmailFunc func(ctx context.Context, email string) (*models.PendingSignup, error)
	SetOTPFunc            func(ctx context.Context, id, otpHash string, expiresAt, sentAt time.Time) error
	IncrementAttemptsFunc func(ctx context.Context, id string) (int, error)
	LockFunc              func(ctx context.Context, id string, at time.Time) error
	ActivateFunc          func(ctx context.Context, id string) error
	UpdateEmailFunc       func(ctx context.Context, id, email, fullName string) error
	MarkExpiredFunc       func(ctx context.Context, id string) error
}

func (m *MockPendingSignupRepository) Create(ctx context.Context, signup *models.PendingSignup) (*models.PendingSignup, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, signup)
	}
	created := *signup
	created.Status = models.StatusPendingVerification
	created.CreatedAt = time.Now()
	return &created, nil
}

func (m *MockPendingSignupRepository) GetByID(ctx context.Context, id string) (*models.PendingSignup, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockPendingSignupRepository) GetPendingByEmail(ctx context.Context, email string) (*models.PendingSignup, error) {
	if m.GetPendingByEmailFunc != nil {
		return m.GetPendingByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockPendingSignupRepository) SetOTP(ctx context.Context, id, otpHash string, expiresAt, sentAt time.Time) error {
	if m.SetOTPFunc != nil {
		return m.SetOTPFunc(ctx, id, otpHash, expiresAt, sentAt)
	}
	return nil
}

func (m *MockPendingSignupRepository) IncrementAttempts(ctx context.Context, id string) (int, error) {
	if m.IncrementAttemptsFunc != nil {
		return m.IncrementAttemptsFunc(ctx, id)
	}
	return 1, nil
}

func (m *MockPendingSignupRepository) Lock(ctx context.Context, id string, at time.Time) error {
	if m.LockFunc != nil {
		return m.LockFunc(ctx, id, at)
	}
	return nil
}

func (m *MockPendingSignupRepository) Activate(ctx context.Context, id string) error {
	if m.ActivateFunc != nil {
		return m.ActivateFunc(ctx, id)
	}
	return nil
}

func (m *MockPendingSignupRepository) UpdateEmail(ctx context.Context, id, email, fullName string) error {
	if m.UpdateEmailFunc != nil {
		return m.UpdateEmailFunc(ctx, id, email, fullName)
	}
	return nil
}

func (m *MockPendingSignupRepository) MarkExpired(ctx context.Context, id string) error {
	if m.MarkExpiredFunc != nil {
		return m.MarkExpiredFunc(ctx, id)
	}
	return nil
}

// MockProfileRepository implements ProfileRepository for testing
type MockProfileRepository struct {
	CreateFunc      func(ctx context.Context, profile *models.Profile) (*models.Profile, error)
	EmailExistsFunc func(ctx context.Context, email string) (bool, error)
}

func (m *MockProfileRepository) Create(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, profile)
	}
	created := *profile
	created.CreatedAt = time.Now()
	return &created, nil
}

func (m *MockProfileRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	if m.EmailExistsFunc != nil {
		return m.EmailExistsFunc(ctx, email)
	}
	return false, nil
}

// MockResumeTokens implements ResumeTokens for testing
type MockResumeTokens struct {
	IssueFunc      func(signupID string) (string, error)
	InvalidateFunc func(ctx context.Context, signupID string) error
}

func (m *MockResumeTokens) Issue(signupID string) (string, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(signupID)
	}
	return "resume-token-" + signupID, nil
}

func (m *MockResumeTokens) Invalidate(ctx context.Context, signupID string) error {
	if m.InvalidateFunc != nil {
		return m.InvalidateFunc(ctx, signupID)
	}
	return nil
}

// MockEmailSender implements EmailSender for testing
type MockEmailSender struct {
	SendVerificationCodeFunc func(ctx context.Context, email, name, code string, expiresAt time.Time) error
}

func (m *MockEmailSender) SendVerificationCode(ctx context.Context, email, name, code string, expiresAt time.Time) error {
	if m.SendVerificationCodeFunc != nil {
		return m.SendVerificationCodeFunc(ctx, email, name, code, expiresAt)
	}
	return nil
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func strPtr(s string) *string {
	return &s
}

// NewTestPendingSignup returns a signup in PENDING_VERIFICATION with a live
// code for the given plain-text OTP
func NewTestPendingSignup(id, email, code string) *models.PendingSignup {
	hash := hashOTP(code)
	return &models.PendingSignup{
		ID:            id,
		Status:        models.StatusPendingVerification,
		SignupEmail:   email,
		FullName:      "Test Student",
		PasswordHash:  "$2a$12$fakefakefakefakefakefake",
		OTPHash:       &hash,
		OTPExpiresAt:  timePtr(time.Now().Add(10 * time.Minute)),
		LastOTPSentAt: timePtr(time.Now().Add(-5 * time.Minute)),
		CreatedAt:     time.Now().Add(-5 * time.Minute),
	}
}

// defaultTestPolicy mirrors the production defaults
func defaultTestPolicy() SignupPolicy {
	return SignupPolicy{
		OTPLength:        6,
		OTPExpiry:        10 * time.Minute,
		LockoutThreshold: 5,
		ResendCooldown:   60 * time.Second,
		DailyResendCap:   5,
		SignupTTL:        24 * time.Hour,
	}
}
