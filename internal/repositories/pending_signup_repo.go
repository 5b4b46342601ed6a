package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/campuslink/api/internal/database"
	"github.com/campuslink/api/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PendingSignupRepository handles pending signup data access. Every mutation
// that depends on lifecycle state carries a status predicate so that a
// concurrent transition shows up as zero affected rows instead of a silent
// overwrite.
type PendingSignupRepository struct {
	pool *pgxpool.Pool
}

// NewPendingSignupRepository creates a new PendingSignupRepository
func NewPendingSignupRepository(db *database.DB) *PendingSignupRepository {
	return &PendingSignupRepository{pool: db.Pool}
}

const pendingSignupColumns = `id, status, signup_email, full_name, password_hash,
	otp_hash, otp_expires_at, otp_attempts, last_otp_sent_at, resend_count,
	locked_at, created_at, updated_at`

// scanPendingSignupRow handles nullable fields and populates a PendingSignup
// model from a database row
func scanPendingSignupRow(row rowScanner) (*models.PendingSignup, error) {
	var signup models.PendingSignup

	err := row.Scan(
		&signup.ID, &signup.Status, &signup.SignupEmail, &signup.FullName,
		&signup.PasswordHash, &signup.OTPHash, &signup.OTPExpiresAt,
		&signup.OTPAttempts, &signup.LastOTPSentAt, &signup.ResendCount,
		&signup.LockedAt, &signup.CreatedAt, &signup.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &signup, nil
}

// Create inserts a new pending signup row in PENDING_VERIFICATION state,
// carrying the initial code issuance. resend_count starts at zero: it bounds
// resends proper, not the registration send.
func (r *PendingSignupRepository) Create(ctx context.Context, signup *models.PendingSignup) (*models.PendingSignup, error) {
	query := `
		INSERT INTO pending_signups (id, status, signup_email, full_name, password_hash,
			otp_hash, otp_expires_at, last_otp_sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + pendingSignupColumns

	created, err := scanPendingSignupRow(r.pool.QueryRow(ctx, query,
		signup.ID, models.StatusPendingVerification, signup.SignupEmail,
		signup.FullName, signup.PasswordHash,
		signup.OTPHash, signup.OTPExpiresAt, signup.LastOTPSentAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create pending signup: %w", err)
	}

	return created, nil
}

// GetByID retrieves a pending signup by id
func (r *PendingSignupRepository) GetByID(ctx context.Context, id string) (*models.PendingSignup, error) {
	query := `SELECT ` + pendingSignupColumns + ` FROM pending_signups WHERE id = $1`

	return scanPendingSignupRow(r.pool.QueryRow(ctx, query, id))
}

// GetPendingByEmail retrieves the most recent unverified signup for an email
func (r *PendingSignupRepository) GetPendingByEmail(ctx context.Context, email string) (*models.PendingSignup, error) {
	query := `
		SELECT ` + pendingSignupColumns + `
		FROM pending_signups
		WHERE signup_email = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	return scanPendingSignupRow(r.pool.QueryRow(ctx, query, email, models.StatusPendingVerification))
}

// SetOTP stores a freshly issued code hash: resets the attempt counter, stamps
// the issuance time, and advances the resend counter, all in one statement so
// OTP state is never left partially set. Zero affected rows means the signup
// is no longer pending.
func (r *PendingSignupRepository) SetOTP(ctx context.Context, id, otpHash string, expiresAt, sentAt time.Time) error {
	query := `
		UPDATE pending_signups
		SET otp_hash = $2, otp_expires_at = $3, otp_attempts = 0,
			last_otp_sent_at = $4, resend_count = resend_count + 1,
			locked_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status = $5
	`

	result, err := r.pool.Exec(ctx, query, id, otpHash, expiresAt, sentAt, models.StatusPendingVerification)
	if err != nil {
		return fmt.Errorf("failed to store verification code: %w", database.MapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// IncrementAttempts advances the failed-attempt counter and returns the new
// value. The increment happens store-side so two racing verify calls cannot
// both observe a pre-lockout count.
func (r *PendingSignupRepository) IncrementAttempts(ctx context.Context, id string) (int, error) {
	query := `
		UPDATE pending_signups
		SET otp_attempts = otp_attempts + 1, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING otp_attempts
	`

	var attempts int
	err := r.pool.QueryRow(ctx, query, id, models.StatusPendingVerification).Scan(&attempts)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return attempts, nil
}

// Lock marks the signup as locked out of verification
func (r *PendingSignupRepository) Lock(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE pending_signups
		SET locked_at = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3 AND locked_at IS NULL
	`

	// Already-locked rows are left untouched; locking twice is a no-op
	_, err := r.pool.Exec(ctx, query, id, at, models.StatusPendingVerification)
	if err != nil {
		return fmt.Errorf("failed to lock signup: %w", database.MapPostgresError(err))
	}

	return nil
}

// Activate transitions a pending signup to ACTIVE and clears its OTP state in
// the same statement. The status predicate makes the transition
// exactly-once-effective: the second of two racing verifies affects zero rows.
func (r *PendingSignupRepository) Activate(ctx context.Context, id string) error {
	query := `
		UPDATE pending_signups
		SET status = $2, otp_hash = NULL, otp_expires_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`

	result, err := r.pool.Exec(ctx, query, id, models.StatusActive, models.StatusPendingVerification)
	if err != nil {
		return fmt.Errorf("failed to activate signup: %w", database.MapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// ClearOTP removes any live code without touching lifecycle state. Safe to
// call when no code is set.
func (r *PendingSignupRepository) ClearOTP(ctx context.Context, id string) error {
	query := `
		UPDATE pending_signups
		SET otp_hash = NULL, otp_expires_at = NULL, updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to clear verification code: %w", database.MapPostgresError(err))
	}

	return nil
}

// UpdateEmail changes the signup email and name while still unverified. OTP
// state is cleared in the same statement; the caller issues a fresh code.
func (r *PendingSignupRepository) UpdateEmail(ctx context.Context, id, email, fullName string) error {
	query := `
		UPDATE pending_signups
		SET signup_email = $2, full_name = $3, otp_hash = NULL,
			otp_expires_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status = $4
	`

	result, err := r.pool.Exec(ctx, query, id, email, fullName, models.StatusPendingVerification)
	if err != nil {
		return fmt.Errorf("failed to update signup email: %w", database.MapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// MarkExpired transitions a pending signup to EXPIRED. Rows already in a
// terminal state are left alone.
func (r *PendingSignupRepository) MarkExpired(ctx context.Context, id string) error {
	query := `
		UPDATE pending_signups
		SET status = $2, otp_hash = NULL, otp_expires_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`

	_, err := r.pool.Exec(ctx, query, id, models.StatusExpired, models.StatusPendingVerification)
	if err != nil {
		return fmt.Errorf("failed to expire signup: %w", database.MapPostgresError(err))
	}

	return nil
}

// ExpireStale marks every pending signup older than ttl as EXPIRED and
// returns how many rows were transitioned (call periodically)
func (r *PendingSignupRepository) ExpireStale(ctx context.Context, ttl time.Duration) (int64, error) {
	query := `
		UPDATE pending_signups
		SET status = $1, otp_hash = NULL, otp_expires_at = NULL, updated_at = NOW()
		WHERE status = $2 AND created_at < $3
	`

	result, err := r.pool.Exec(ctx, query, models.StatusExpired,
		models.StatusPendingVerification, time.Now().Add(-ttl))
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale signups: %w", database.MapPostgresError(err))
	}

	return result.RowsAffected(), nil
}

// ResetResendCounters clears the daily resend budget for signups whose last
// issuance is older than the window. The cap is "N resends since last reset";
// this sweep is the reset mechanism.
func (r *PendingSignupRepository) ResetResendCounters(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `
		UPDATE pending_signups
		SET resend_count = 0, updated_at = NOW()
		WHERE status = $1 AND resend_count > 0 AND last_otp_sent_at < $2
	`

	result, err := r.pool.Exec(ctx, query, models.StatusPendingVerification, time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to reset resend counters: %w", database.MapPostgresError(err))
	}

	return result.RowsAffected(), nil
}
