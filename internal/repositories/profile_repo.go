package repositories

import (
	"context"
	"fmt"

	"github.com/campuslink/api/internal/database"
	"github.com/campuslink/api/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// ProfileRepository handles student profile data access
type ProfileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository creates a new ProfileRepository
func NewProfileRepository(db *database.DB) *ProfileRepository {
	return &ProfileRepository{pool: db.Pool}
}

// scanProfileRow populates a Profile model from a database row
func scanProfileRow(row rowScanner) (*models.Profile, error) {
	var profile models.Profile

	err := row.Scan(
		&profile.ID, &profile.SignupID, &profile.Email, &profile.FullName,
		&profile.PasswordHash, &profile.CreatedAt, &profile.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &profile, nil
}

// Create materializes a profile from a verified signup. The unique constraint
// on signup_id means a retried materialization surfaces as ErrConflict rather
// than a duplicate profile.
func (r *ProfileRepository) Create(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	query := `
		INSERT INTO profiles (id, signup_id, email, full_name, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, signup_id, email, full_name, password_hash, created_at, updated_at
	`

	created, err := scanProfileRow(r.pool.QueryRow(ctx, query,
		profile.ID, profile.SignupID, profile.Email, profile.FullName, profile.PasswordHash,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	return created, nil
}

// GetByID retrieves a profile by id
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	query := `
		SELECT id, signup_id, email, full_name, password_hash, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`

	return scanProfileRow(r.pool.QueryRow(ctx, query, id))
}

// EmailExists reports whether an active profile already owns the email
func (r *ProfileRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM profiles WHERE email = $1)`

	var exists bool
	err := r.pool.QueryRow(ctx, query, email).Scan(&exists)
	if err != nil {
		return false, database.MapPostgresError(err)
	}

	return exists, nil
}
