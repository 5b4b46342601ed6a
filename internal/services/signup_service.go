package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/campuslink/api/internal/models"
	pkgauth "github.com/campuslink/api/pkg/auth"
	pkglogger "github.com/campuslink/api/pkg/logger"
	"github.com/google/uuid"
)

// PendingSignupRepository defines the interface for pending signup operations
type PendingSignupRepository interface {
	Create(ctx context.Context, signup *models.PendingSignup) (*models.PendingSignup, error)
	GetByID(ctx context.Context, id string) (*models.PendingSignup, error)
	GetPendingByEmail(ctx context.Context, email string) (*models.PendingSignup, error)
	SetOTP(ctx context.Context, id, otpHash string, expiresAt, sentAt time.Time) error
	IncrementAttempts(ctx context.Context, id string) (int, error)
	Lock(ctx context.Context, id string, at time.Time) error
	Activate(ctx context.Context, id string) error
	UpdateEmail(ctx context.Context, id, email, fullName string) error
	MarkExpired(ctx context.Context, id string) error
}

// ProfileRepository defines the interface for profile materialization
type ProfileRepository interface {
	Create(ctx context.Context, profile *models.Profile) (*models.Profile, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

// ResumeTokens defines the interface the service needs from the resume token
// manager
type ResumeTokens interface {
	Issue(signupID string) (string, error)
	Invalidate(ctx context.Context, signupID string) error
}

// SignupPolicy holds the timing and counting knobs of the verification flow
type SignupPolicy struct {
	OTPLength        int
	OTPExpiry        time.Duration
	LockoutThreshold int
	ResendCooldown   time.Duration
	DailyResendCap   int
	SignupTTL        time.Duration
}

// RegistrationResult is returned from a successful registration
type RegistrationResult struct {
	SignupID    string `json:"signup_id"`
	ResumeToken string `json:"resume_token"`
}

// VerificationResult is returned from a successful code verification
type VerificationResult struct {
	ProfileID string `json:"profile_id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
}

// SignupContext describes a pending signup for the verification screen
type SignupContext struct {
	MaskedEmail       string     `json:"masked_email"`
	FullName          string     `json:"full_name"`
	OTPExpiresAt      *time.Time `json:"otp_expires_at,omitempty"`
	AttemptsRemaining int        `json:"attempts_remaining"`
	ResendsRemaining  int        `json:"resends_remaining"`
	ResendAvailableIn int        `json:"resend_available_in_seconds"`
}

// SignupService carries a registration through email verification: it owns the
// signup lifecycle, code issuance and checking, the resend throttle, and the
// side effects of activation.
type SignupService struct {
	pendingRepo PendingSignupRepository
	profileRepo ProfileRepository
	tokens      ResumeTokens
	email       EmailSender
	policy      SignupPolicy
	logger      *slog.Logger
	audit       *pkglogger.AuditLogger
}

// NewSignupService creates a new SignupService
func NewSignupService(
	pendingRepo PendingSignupRepository,
	profileRepo ProfileRepository,
	tokens ResumeTokens,
	email EmailSender,
	policy SignupPolicy,
	logger *slog.Logger,
	audit *pkglogger.AuditLogger,
) *SignupService {
	return &SignupService{
		pendingRepo: pendingRepo,
		profileRepo: profileRepo,
		tokens:      tokens,
		email:       email,
		policy:      policy,
		logger:      logger,
		audit:       audit,
	}
}

// gate is the single lifecycle guard every entry point goes through. It maps
// the row's state to exactly one of: proceed (signup returned), not found, or
// already verified. Stale pending rows are retired on sight; the background
// sweep catches the rest.
func (s *SignupService) gate(ctx context.Context, signupID string) (*models.PendingSignup, error) {
	signup, err := s.pendingRepo.GetByID(ctx, signupID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrPendingNotFound
		}
		return nil, fmt.Errorf("failed to load pending signup: %w", err)
	}

	switch signup.Status {
	case models.StatusExpired:
		return nil, models.ErrPendingNotFound
	case models.StatusActive:
		return nil, models.ErrAlreadyVerified
	}

	if signup.IsStale(s.policy.SignupTTL) {
		if err := s.pendingRepo.MarkExpired(ctx, signup.ID); err != nil {
			s.logger.Error("failed to retire stale signup",
				slog.String("signup_id", signup.ID),
				slog.Any("error", err))
		} else {
			s.audit.LogSignupEvent(pkglogger.AuditEvent{
				EventType: pkglogger.EventSignupExpired,
				SignupID:  signup.ID,
				Email:     signup.SignupEmail,
				Success:   true,
			})
		}
		return nil, models.ErrPendingNotFound
	}

	return signup, nil
}

// Register creates a pending signup, issues the first verification code, and
// returns a resume token for the verification window. A previous unverified
// signup for the same email is superseded, never resumed.
func (s *SignupService) Register(ctx context.Context, email, fullName, password, ipAddress string) (*RegistrationResult, error) {
	exists, err := s.profileRepo.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email ownership: %w", err)
	}
	if exists {
		return nil, models.ErrEmailExists
	}

	passwordHash, err := pkgauth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrBadRequest, err)
	}

	if prior, err := s.pendingRepo.GetPendingByEmail(ctx, email); err == nil && prior != nil {
		if err := s.pendingRepo.MarkExpired(ctx, prior.ID); err != nil {
			s.logger.Error("failed to supersede prior signup",
				slog.String("signup_id", prior.ID),
				slog.Any("error", err))
		}
		if err := s.tokens.Invalidate(ctx, prior.ID); err != nil {
			s.logger.Error("failed to invalidate superseded resume tokens",
				slog.String("signup_id", prior.ID),
				slog.Any("error", err))
		}
	} else if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to check for prior signup: %w", err)
	}

	code, err := generateOTP(s.policy.OTPLength)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	codeHash := hashOTP(code)
	expiresAt := now.Add(s.policy.OTPExpiry)

	signup := &models.PendingSignup{
		ID:            uuid.New().String(),
		SignupEmail:   email,
		FullName:      fullName,
		PasswordHash:  passwordHash,
		OTPHash:       &codeHash,
		OTPExpiresAt:  &expiresAt,
		LastOTPSentAt: &now,
	}

	created, err := s.pendingRepo.Create(ctx, signup)
	if err != nil {
		return nil, fmt.Errorf("failed to create pending signup: %w", err)
	}

	if err := s.email.SendVerificationCode(ctx, email, fullName, code, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to deliver verification code: %w", err)
	}

	resumeToken, err := s.tokens.Issue(created.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue resume token: %w", err)
	}

	s.audit.LogSignupEvent(pkglogger.AuditEvent{
		EventType: pkglogger.EventSignupRegistered,
		SignupID:  created.ID,
		Email:     email,
		IPAddress: ipAddress,
		Success:   true,
	})

	return &RegistrationResult{SignupID: created.ID, ResumeToken: resumeToken}, nil
}

// VerifyCode checks a supplied code against the live OTP. Every call that
// reaches the comparison step counts toward lockout, expired codes included;
// the call whose increment reaches the threshold observes the lock.
func (s *SignupService) VerifyCode(ctx context.Context, signupID, code, ipAddress string) (*VerificationResult, error) {
	signup, err := s.gate(ctx, signupID)
	if err != nil {
		return nil, err
	}

	// Already-locked rows short-circuit without comparing anything
	if signup.IsLocked(s.policy.LockoutThreshold) {
		return nil, models.ErrOTPLocked
	}

	if signup.OTPExpired() {
		return nil, s.failAttempt(ctx, signup, ipAddress, models.ErrOTPExpired)
	}

	if !otpHashEqual(*signup.OTPHash, hashOTP(code)) {
		return nil, s.failAttempt(ctx, signup, ipAddress, models.ErrOTPInvalid)
	}

	// Re-check email ownership: an unrelated signup for the same address may
	// have activated since registration
	taken, err := s.profileRepo.EmailExists(ctx, signup.SignupEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to check email ownership: %w", err)
	}
	if taken {
		return nil, models.ErrEmailExists
	}

	// One statement transitions the row and clears OTP state; a concurrent
	// winner leaves zero rows for us, so re-read and report the state we lost to
	if err := s.pendingRepo.Activate(ctx, signup.ID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			if _, gateErr := s.gate(ctx, signup.ID); gateErr != nil {
				return nil, gateErr
			}
			return nil, models.ErrPendingNotFound
		}
		return nil, err
	}

	if err := s.tokens.Invalidate(ctx, signup.ID); err != nil {
		// The signup is active either way; a live resume token only leads
		// callers to ALREADY_VERIFIED from here
		s.logger.Error("failed to invalidate resume tokens after verification",
			slog.String("signup_id", signup.ID),
			slog.Any("error", err))
	}

	profile, err := s.profileRepo.Create(ctx, &models.Profile{
		ID:           uuid.New().String(),
		SignupID:     signup.ID,
		Email:        signup.SignupEmail,
		FullName:     signup.FullName,
		PasswordHash: signup.PasswordHash,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrEmailExists
		}
		return nil, fmt.Errorf("failed to materialize profile: %w", err)
	}

	s.audit.LogSignupEvent(pkglogger.AuditEvent{
		EventType: pkglogger.EventSignupVerified,
		SignupID:  signup.ID,
		Email:     signup.SignupEmail,
		IPAddress: ipAddress,
		Success:   true,
	})

	return &VerificationResult{
		ProfileID: profile.ID,
		Email:     profile.Email,
		FullName:  profile.FullName,
	}, nil
}

// failAttempt records a failed verification and decides between the
// underlying failure and lockout. The store-side increment means racing calls
// cannot both land under the threshold.
func (s *SignupService) failAttempt(ctx context.Context, signup *models.PendingSignup, ipAddress string, cause error) error {
	attempts, err := s.pendingRepo.IncrementAttempts(ctx, signup.ID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrPendingNotFound
		}
		return fmt.Errorf("failed to record verification attempt: %w", err)
	}

	if attempts >= s.policy.LockoutThreshold {
		if err := s.pendingRepo.Lock(ctx, signup.ID, time.Now()); err != nil {
			s.logger.Error("failed to persist lockout",
				slog.String("signup_id", signup.ID),
				slog.Any("error", err))
		}

		s.audit.LogSignupEvent(pkglogger.AuditEvent{
			EventType:     pkglogger.EventSignupLocked,
			SignupID:      signup.ID,
			IPAddress:     ipAddress,
			Success:       false,
			FailureReason: cause.Error(),
		})

		return models.ErrOTPLocked
	}

	return cause
}

// canIssue applies the resend throttle: cooldown first, then the daily cap,
// always in that order so a rapid-fire caller never learns how close it is to
// the cap.
func (s *SignupService) canIssue(signup *models.PendingSignup) error {
	if signup.LastOTPSentAt != nil && time.Since(*signup.LastOTPSentAt) < s.policy.ResendCooldown {
		return models.ErrOTPCooldown
	}
	if signup.ResendCount >= s.policy.DailyResendCap {
		return models.ErrOTPResendLimit
	}
	return nil
}

// ResendCode issues a fresh verification code, subject to the cooldown and
// the daily cap. A resend replaces the prior code and resets the attempt
// counter, which also clears a lockout.
func (s *SignupService) ResendCode(ctx context.Context, signupID, ipAddress string) error {
	signup, err := s.gate(ctx, signupID)
	if err != nil {
		return err
	}

	if err := s.canIssue(signup); err != nil {
		s.audit.LogSignupEvent(pkglogger.AuditEvent{
			EventType:     pkglogger.EventSignupThrottled,
			SignupID:      signup.ID,
			IPAddress:     ipAddress,
			Success:       false,
			FailureReason: err.Error(),
		})
		return err
	}

	return s.issueCode(ctx, signup.ID, signup.SignupEmail, signup.FullName)
}

// ChangeEmail updates the signup email while unverified, issues a code to the
// new address, and rotates the resume token. Issuance goes through the same
// throttle as a resend.
func (s *SignupService) ChangeEmail(ctx context.Context, signupID, newEmail, fullName, ipAddress string) (string, error) {
	signup, err := s.gate(ctx, signupID)
	if err != nil {
		return "", err
	}

	if fullName == "" {
		fullName = signup.FullName
	}

	if err := s.canIssue(signup); err != nil {
		return "", err
	}

	exists, err := s.profileRepo.EmailExists(ctx, newEmail)
	if err != nil {
		return "", fmt.Errorf("failed to check email ownership: %w", err)
	}
	if exists {
		return "", models.ErrEmailExists
	}

	if err := s.pendingRepo.UpdateEmail(ctx, signup.ID, newEmail, fullName); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			if _, gateErr := s.gate(ctx, signup.ID); gateErr != nil {
				return "", gateErr
			}
			return "", models.ErrPendingNotFound
		}
		return "", err
	}

	if err := s.issueCode(ctx, signup.ID, newEmail, fullName); err != nil {
		return "", err
	}

	// Revoke outstanding tokens before minting the replacement; the new
	// token's issuance instant sits at or after the cutoff, so it survives
	if err := s.tokens.Invalidate(ctx, signup.ID); err != nil {
		return "", fmt.Errorf("failed to invalidate resume tokens: %w", err)
	}

	newToken, err := s.tokens.Issue(signup.ID)
	if err != nil {
		return "", fmt.Errorf("failed to issue resume token: %w", err)
	}

	s.audit.LogSignupEvent(pkglogger.AuditEvent{
		EventType: pkglogger.EventSignupEmailChange,
		SignupID:  signup.ID,
		Email:     newEmail,
		IPAddress: ipAddress,
		Success:   true,
	})

	return newToken, nil
}

// Context returns what the verification screen needs to render, without
// disclosing the full email or any code material.
func (s *SignupService) Context(ctx context.Context, signupID string) (*SignupContext, error) {
	signup, err := s.gate(ctx, signupID)
	if err != nil {
		return nil, err
	}

	attemptsRemaining := s.policy.LockoutThreshold - signup.OTPAttempts
	if attemptsRemaining < 0 || signup.LockedAt != nil {
		attemptsRemaining = 0
	}

	resendsRemaining := s.policy.DailyResendCap - signup.ResendCount
	if resendsRemaining < 0 {
		resendsRemaining = 0
	}

	resendIn := 0
	if signup.LastOTPSentAt != nil {
		if wait := s.policy.ResendCooldown - time.Since(*signup.LastOTPSentAt); wait > 0 {
			resendIn = int(wait.Round(time.Second).Seconds())
		}
	}

	return &SignupContext{
		MaskedEmail:       pkglogger.SanitizedEmail(signup.SignupEmail),
		FullName:          signup.FullName,
		OTPExpiresAt:      signup.OTPExpiresAt,
		AttemptsRemaining: attemptsRemaining,
		ResendsRemaining:  resendsRemaining,
		ResendAvailableIn: resendIn,
	}, nil
}

// issueCode generates, stores, and delivers a fresh code. The store write is
// one statement covering hash, expiry, attempt reset, issuance stamp, and the
// resend counter, so OTP state never ends up partially set.
func (s *SignupService) issueCode(ctx context.Context, signupID, email, fullName string) error {
	code, err := generateOTP(s.policy.OTPLength)
	if err != nil {
		return err
	}

	now := time.Now()
	expiresAt := now.Add(s.policy.OTPExpiry)

	if err := s.pendingRepo.SetOTP(ctx, signupID, hashOTP(code), expiresAt, now); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			if _, gateErr := s.gate(ctx, signupID); gateErr != nil {
				return gateErr
			}
			return models.ErrPendingNotFound
		}
		return err
	}

	if err := s.email.SendVerificationCode(ctx, email, fullName, code, expiresAt); err != nil {
		return fmt.Errorf("failed to deliver verification code: %w", err)
	}

	return nil
}
