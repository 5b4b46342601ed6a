package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/campuslink/api/internal/models"
	"github.com/campuslink/api/internal/services"
	pkghttp "github.com/campuslink/api/pkg/http"
)

// SignupServiceInterface defines the interface for the signup lifecycle logic
type SignupServiceInterface interface {
	Register(ctx context.Context, email, fullName, password, ipAddress string) (*services.RegistrationResult, error)
	VerifyCode(ctx context.Context, signupID, code, ipAddress string) (*services.VerificationResult, error)
	ResendCode(ctx context.Context, signupID, ipAddress string) error
	ChangeEmail(ctx context.Context, signupID, newEmail, fullName, ipAddress string) (string, error)
	Context(ctx context.Context, signupID string) (*services.SignupContext, error)
}

// ResumeTokenVerifier resolves a presented resume token to its signup ID
type ResumeTokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// SignupHandler handles signup and verification HTTP requests
type SignupHandler struct {
	service  SignupServiceInterface
	tokens   ResumeTokenVerifier
	ipConfig *pkghttp.IPConfig
}

// NewSignupHandler creates a new SignupHandler
func NewSignupHandler(service SignupServiceInterface, tokens ResumeTokenVerifier, ipConfig *pkghttp.IPConfig) *SignupHandler {
	return &SignupHandler{
		service:  service,
		tokens:   tokens,
		ipConfig: ipConfig,
	}
}

// Request DTOs

// RegisterRequest represents the request body for starting a signup
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	FullName string `json:"full_name" validate:"required,min=1,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// VerifyRequest represents the request body for checking a verification code
type VerifyRequest struct {
	Code string `json:"code" validate:"required,numeric,min=4,max=10"`
}

// ChangeEmailRequest represents the request body for redirecting verification
// to a different address
type ChangeEmailRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	FullName string `json:"full_name" validate:"omitempty,min=1,max=100"`
}

// ChangeEmailResponse carries the replacement resume token after the old one
// is revoked
type ChangeEmailResponse struct {
	ResumeToken string `json:"resume_token"`
}

// MessageResponse is a generic acknowledgement body
type MessageResponse struct {
	Message string `json:"message"`
}

// signupID authenticates the request via the resume token in the
// Authorization header. A missing or bad token writes the error response and
// returns "".
func (h *SignupHandler) signupID(w http.ResponseWriter, r *http.Request) string {
	token := pkghttp.BearerToken(r)
	signupID, err := h.tokens.Verify(r.Context(), token)
	if err != nil {
		pkghttp.WriteResumeTokenInvalid(w)
		return ""
	}
	return signupID
}

// writeServiceError maps service sentinel errors to their outcome codes.
// Anything unmapped is an internal error and must not leak details.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrPendingNotFound):
		pkghttp.WritePendingNotFound(w)
	case errors.Is(err, models.ErrAlreadyVerified):
		pkghttp.WriteAlreadyVerified(w)
	case errors.Is(err, models.ErrEmailExists):
		pkghttp.WriteEmailExists(w)
	case errors.Is(err, models.ErrOTPExpired):
		pkghttp.WriteError(w, http.StatusBadRequest, pkghttp.CodeOTPExpired, "Verification code has expired. Request a new one.")
	case errors.Is(err, models.ErrOTPInvalid):
		pkghttp.WriteError(w, http.StatusBadRequest, pkghttp.CodeOTPInvalid, "Verification code is incorrect")
	case errors.Is(err, models.ErrOTPLocked):
		pkghttp.WriteError(w, http.StatusLocked, pkghttp.CodeOTPLocked, "Too many incorrect attempts. Request a new code.")
	case errors.Is(err, models.ErrOTPCooldown):
		pkghttp.WriteError(w, http.StatusTooManyRequests, pkghttp.CodeOTPCooldown, "A code was sent recently. Wait before requesting another.")
	case errors.Is(err, models.ErrOTPResendLimit):
		pkghttp.WriteError(w, http.StatusTooManyRequests, pkghttp.CodeOTPResendLimit, "Daily resend limit reached. Try again tomorrow.")
	case errors.Is(err, models.ErrResumeTokenInvalid):
		pkghttp.WriteResumeTokenInvalid(w)
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteValidationError(w, "Invalid request")
	default:
		pkghttp.WriteInternalError(w)
	}
}

// Register starts a signup: stores the pending record, emails the first
// verification code, and returns the resume token.
// @Summary Start a signup
// @Accept json
// @Param request body RegisterRequest true "Register request"
// @Produce json
// @Success 201 {object} services.RegistrationResult
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 409 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /signup/register [post]
func (h *SignupHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteValidationError(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteValidationError(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)

	result, err := h.service.Register(r.Context(), req.Email, req.FullName, req.Password, ipAddress)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(result)
}

// Verify checks a submitted code against the pending signup named by the
// resume token and activates on a match.
// @Summary Verify a signup code
// @Accept json
// @Security BearerAuth
// @Param request body VerifyRequest true "Verify request"
// @Produce json
// @Success 200 {object} services.VerificationResult
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 404 {object} pkghttp.ErrorResponse
// @Failure 409 {object} pkghttp.ErrorResponse
// @Failure 423 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /signup/verify [post]
func (h *SignupHandler) Verify(w http.ResponseWriter, r *http.Request) {
	signupID := h.signupID(w, r)
	if signupID == "" {
		return
	}

	var req VerifyRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteValidationError(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteValidationError(w, err.Error())
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)

	result, err := h.service.VerifyCode(r.Context(), signupID, req.Code, ipAddress)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(result)
}

// Resend issues a fresh verification code to the pending signup's email
// @Summary Resend a verification code
// @Security BearerAuth
// @Produce json
// @Success 202 {object} MessageResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 404 {object} pkghttp.ErrorResponse
// @Failure 409 {object} pkghttp.ErrorResponse
// @Failure 429 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /signup/resend [post]
func (h *SignupHandler) Resend(w http.ResponseWriter, r *http.Request) {
	signupID := h.signupID(w, r)
	if signupID == "" {
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)

	if err := h.service.ResendCode(r.Context(), signupID, ipAddress); err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(MessageResponse{Message: "A new verification code has been sent."})
}

// ChangeEmail points an unverified signup at a different address, sends a
// code there, and returns a replacement resume token.
// @Summary Change the signup email
// @Accept json
// @Security BearerAuth
// @Param request body ChangeEmailRequest true "Change email request"
// @Produce json
// @Success 200 {object} ChangeEmailResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 404 {object} pkghttp.ErrorResponse
// @Failure 409 {object} pkghttp.ErrorResponse
// @Failure 429 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /signup/email [patch]
func (h *SignupHandler) ChangeEmail(w http.ResponseWriter, r *http.Request) {
	signupID := h.signupID(w, r)
	if signupID == "" {
		return
	}

	var req ChangeEmailRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteValidationError(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteValidationError(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)

	newToken, err := h.service.ChangeEmail(r.Context(), signupID, req.Email, req.FullName, ipAddress)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(ChangeEmailResponse{ResumeToken: newToken})
}

// Context returns what the verification screen renders: masked email and the
// remaining attempt and resend budget
// @Summary Get pending signup context
// @Security BearerAuth
// @Produce json
// @Success 200 {object} services.SignupContext
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 404 {object} pkghttp.ErrorResponse
// @Failure 409 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /signup/context [get]
func (h *SignupHandler) Context(w http.ResponseWriter, r *http.Request) {
	signupID := h.signupID(w, r)
	if signupID == "" {
		return
	}

	sc, err := h.service.Context(r.Context(), signupID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(sc)
}
