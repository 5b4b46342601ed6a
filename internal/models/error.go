package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrBadRequest     = errors.New("bad request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInternalServer = errors.New("internal server error")

	// Signup verification errors
	ErrResumeTokenInvalid = errors.New("resume token is missing, malformed, or expired")
	ErrPendingNotFound    = errors.New("pending signup not found")
	ErrAlreadyVerified    = errors.New("signup is already verified")
	ErrEmailExists        = errors.New("email already belongs to an active profile")

	// OTP errors
	ErrOTPExpired     = errors.New("verification code has expired")
	ErrOTPInvalid     = errors.New("verification code is incorrect")
	ErrOTPLocked      = errors.New("verification locked after too many failed attempts")
	ErrOTPCooldown    = errors.New("verification code was sent too recently")
	ErrOTPResendLimit = errors.New("daily resend limit reached")
)
