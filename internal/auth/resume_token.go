package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/campuslink/api/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ResumeTokenClaims identify an in-progress signup without a password
type ResumeTokenClaims struct {
	Type     string `json:"type"`
	SignupID string `json:"signup_id"`
	jwt.RegisteredClaims
}

// RevocationStore records and looks up per-signup revocation cutoffs
type RevocationStore interface {
	Revoke(ctx context.Context, signupID string, at time.Time) error
	GetCutoff(ctx context.Context, signupID string) (*time.Time, error)
}

// ResumeTokenManager issues, verifies, and invalidates the opaque bearer
// credential that carries a signup through the verification flow. Tokens are
// HS256 JWTs; invalidation is a persisted cutoff, so every token issued before
// the cutoff dies at once.
type ResumeTokenManager struct {
	secret      string
	expiry      time.Duration
	revocations RevocationStore
	now         func() time.Time
}

// NewResumeTokenManager creates a new ResumeTokenManager
func NewResumeTokenManager(secret string, expiry time.Duration, revocations RevocationStore) *ResumeTokenManager {
	return &ResumeTokenManager{
		secret:      secret,
		expiry:      expiry,
		revocations: revocations,
		now:         time.Now,
	}
}

// Issue creates a resume token bound to the signup id
func (tm *ResumeTokenManager) Issue(signupID string) (string, error) {
	now := tm.now()

	claims := &ResumeTokenClaims{
		Type:     "resume",
		SignupID: signupID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(tm.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign resume token: %w", err)
	}

	return tokenString, nil
}

// Verify resolves a token to its signup id. It fails closed with
// ErrResumeTokenInvalid on any defect: missing token, bad signature, wrong
// type, past expiry, or issuance before a recorded revocation cutoff.
func (tm *ResumeTokenManager) Verify(ctx context.Context, tokenString string) (string, error) {
	if tokenString == "" {
		return "", models.ErrResumeTokenInvalid
	}

	claims := &ResumeTokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tm.secret), nil
	})
	if err != nil || !token.Valid {
		return "", models.ErrResumeTokenInvalid
	}

	if claims.Type != "resume" || claims.SignupID == "" || claims.IssuedAt == nil {
		return "", models.ErrResumeTokenInvalid
	}

	cutoff, err := tm.revocations.GetCutoff(ctx, claims.SignupID)
	if err != nil {
		return "", fmt.Errorf("failed to check token revocation: %w", err)
	}
	// iat carries whole-second precision, so the cutoff is compared at the
	// same granularity. Strictly-before: a token minted in the same second as
	// the cutoff (the replacement issued by an email change) stays valid
	if cutoff != nil && claims.IssuedAt.Time.Before(cutoff.Truncate(jwt.TimePrecision)) {
		return "", models.ErrResumeTokenInvalid
	}

	return claims.SignupID, nil
}

// Invalidate revokes every resume token issued for the signup so far.
// Idempotent; repeated calls only move the cutoff forward.
func (tm *ResumeTokenManager) Invalidate(ctx context.Context, signupID string) error {
	// Stored at jwt.TimePrecision so the cutoff never outruns the truncated
	// iat of a token issued in the same instant
	if err := tm.revocations.Revoke(ctx, signupID, tm.now().Truncate(jwt.TimePrecision)); err != nil {
		return fmt.Errorf("failed to revoke resume tokens: %w", err)
	}
	return nil
}
