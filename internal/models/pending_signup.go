package models

import (
	"time"
)

// Signup lifecycle statuses. Both activation and expiry are terminal: an
// expired row can only be superseded by a fresh registration, never reinstated.
const (
	StatusPendingVerification = "pending_verification"
	StatusActive              = "active"
	StatusExpired             = "expired"
)

// PendingSignup represents a registration that has not completed email
// verification yet. One row per registration attempt.
type PendingSignup struct {
	ID            string     `json:"id"`
	Status        string     `json:"status"`
	SignupEmail   string     `json:"signup_email"`
	FullName      string     `json:"full_name"`
	PasswordHash  string     `json:"-"` // Never expose password hash
	OTPHash       *string    `json:"-"` // Never expose code hash; nil when no live code
	OTPExpiresAt  *time.Time `json:"otp_expires_at,omitempty"`
	OTPAttempts   int        `json:"otp_attempts"`
	LastOTPSentAt *time.Time `json:"last_otp_sent_at,omitempty"`
	ResendCount   int        `json:"resend_count"`
	LockedAt      *time.Time `json:"locked_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// HasLiveOTP reports whether a code has been issued and not yet cleared.
func (s *PendingSignup) HasLiveOTP() bool {
	return s.OTPHash != nil && s.OTPExpiresAt != nil
}

// OTPExpired reports whether the current code is past its expiry.
// A signup without a live code is treated as expired.
func (s *PendingSignup) OTPExpired() bool {
	if !s.HasLiveOTP() {
		return true
	}
	return time.Now().After(*s.OTPExpiresAt)
}

// IsLocked reports whether the signup has been locked out of verification.
func (s *PendingSignup) IsLocked(threshold int) bool {
	return s.LockedAt != nil || s.OTPAttempts >= threshold
}

// IsStale reports whether the row has outlived the verification window and
// should be treated as expired by the lookup path.
func (s *PendingSignup) IsStale(ttl time.Duration) bool {
	return time.Since(s.CreatedAt) > ttl
}
