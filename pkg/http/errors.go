package http

import (
	"encoding/json"
	"net/http"
)

// Outcome codes surfaced verbatim to API clients
const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeResumeTokenInvalid = "RESUME_TOKEN_INVALID"
	CodePendingNotFound    = "PENDING_NOT_FOUND"
	CodeAlreadyVerified    = "ALREADY_VERIFIED"
	CodeEmailExists        = "EMAIL_EXISTS"
	CodeOTPExpired         = "OTP_EXPIRED"
	CodeOTPInvalid         = "OTP_INVALID"
	CodeOTPLocked          = "OTP_LOCKED"
	CodeOTPCooldown        = "OTP_COOLDOWN"
	CodeOTPResendLimit     = "OTP_RESEND_LIMIT"
	CodeTooManyRequests    = "TOO_MANY_REQUESTS"
	CodeInternal           = "INTERNAL"
)

// ErrorResponse represents a standard API error response
type ErrorResponse struct {
	Error   string `json:"error"`             // Machine-readable outcome code
	Message string `json:"message"`           // Human-readable message
	Details string `json:"details,omitempty"` // Optional additional context
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	WriteErrorWithDetails(w, statusCode, errorCode, message, "")
}

// WriteErrorWithDetails writes a JSON error response with additional details
func WriteErrorWithDetails(w http.ResponseWriter, statusCode int, errorCode, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := ErrorResponse{
		Error:   errorCode,
		Message: message,
		Details: details,
	}

	// Log encoding errors but don't expose them to client
	_ = json.NewEncoder(w).Encode(resp)
}

// Common error writers for consistency

func WriteValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

func WriteResumeTokenInvalid(w http.ResponseWriter) {
	WriteError(w, http.StatusUnauthorized, CodeResumeTokenInvalid, "Resume token is missing, invalid, or expired")
}

func WritePendingNotFound(w http.ResponseWriter) {
	WriteError(w, http.StatusNotFound, CodePendingNotFound, "No pending signup found")
}

func WriteAlreadyVerified(w http.ResponseWriter) {
	WriteError(w, http.StatusConflict, CodeAlreadyVerified, "Signup is already verified")
}

func WriteEmailExists(w http.ResponseWriter) {
	WriteError(w, http.StatusConflict, CodeEmailExists, "An account with this email already exists")
}

func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, CodeTooManyRequests, message)
}

func WriteInternalError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, CodeInternal, "Internal server error")
}
