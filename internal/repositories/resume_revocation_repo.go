package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/campuslink/api/internal/database"
	"github.com/campuslink/api/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ResumeRevocationRepository stores per-signup revocation cutoffs for resume
// tokens. A single row per signup holds the latest cutoff; any token issued at
// or before it is dead. This revokes every outstanding token for a signup in
// one write, without tracking individual token ids.
type ResumeRevocationRepository struct {
	pool *pgxpool.Pool
}

// NewResumeRevocationRepository creates a new ResumeRevocationRepository
func NewResumeRevocationRepository(db *database.DB) *ResumeRevocationRepository {
	return &ResumeRevocationRepository{pool: db.Pool}
}

// Revoke records a revocation cutoff for the signup. Calling it again only
// ever moves the cutoff forward, so repeated invalidation is idempotent.
func (r *ResumeRevocationRepository) Revoke(ctx context.Context, signupID string, at time.Time) error {
	query := `
		INSERT INTO resume_token_revocations (signup_id, revoked_at)
		VALUES ($1, $2)
		ON CONFLICT (signup_id)
		DO UPDATE SET revoked_at = GREATEST(resume_token_revocations.revoked_at, EXCLUDED.revoked_at)
	`

	_, err := r.pool.Exec(ctx, query, signupID, at)
	return database.MapPostgresError(err)
}

// GetCutoff returns the revocation cutoff for a signup, or nil when no
// revocation has been recorded
func (r *ResumeRevocationRepository) GetCutoff(ctx context.Context, signupID string) (*time.Time, error) {
	query := `SELECT revoked_at FROM resume_token_revocations WHERE signup_id = $1`

	var cutoff time.Time
	err := r.pool.QueryRow(ctx, query, signupID).Scan(&cutoff)
	if err != nil {
		mapped := database.MapPostgresError(err)
		if errors.Is(mapped, models.ErrNotFound) {
			return nil, nil
		}
		return nil, mapped
	}

	return &cutoff, nil
}

// CleanupOld removes revocation rows old enough that every token they could
// invalidate has expired on its own (call periodically)
func (r *ResumeRevocationRepository) CleanupOld(ctx context.Context, tokenTTL time.Duration) (int64, error) {
	query := `DELETE FROM resume_token_revocations WHERE revoked_at < $1`

	result, err := r.pool.Exec(ctx, query, time.Now().Add(-2*tokenTTL))
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}
