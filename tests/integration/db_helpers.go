package integration

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/campuslink/api/internal/database"
	"github.com/campuslink/api/internal/models"
	"github.com/campuslink/api/internal/repositories"
	"github.com/campuslink/api/pkg/auth"
)

// TestDB manages PostgreSQL testcontainer and database operations
type TestDB struct {
	Container  testcontainers.Container
	ConnString string
	Pool       *pgxpool.Pool
	DB         *database.DB
}

// SetupTestDatabase creates a PostgreSQL testcontainer, runs migrations, returns TestDB
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("campuslink"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	dbWrapper := &database.DB{
		Pool: pool,
	}

	return &TestDB{
		Container:  container,
		ConnString: connStr,
		Pool:       pool,
		DB:         dbWrapper,
	}, nil
}

// runMigrations executes all goose migrations
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir, err := filepath.Abs("../../migrations")
	if err != nil {
		return fmt.Errorf("failed to get migrations path: %w", err)
	}

	// Suppress goose logs
	goose.SetLogger(log.New(io.Discard, "", 0))

	// Goose needs a stdlib DB connection
	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	if err := goose.UpContext(ctx, sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// Teardown stops the container and closes the connection pool
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables truncates all tables for test isolation
func (db *TestDB) CleanupTables(ctx context.Context) error {
	tables := []string{
		"profiles",
		"resume_token_revocations",
		"pending_signups",
	}

	for _, table := range tables {
		if _, err := db.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return nil
}

// InitializeRepositories creates all repository instances from database wrapper
func InitializeRepositories(db *database.DB) (
	*repositories.PendingSignupRepository,
	*repositories.ProfileRepository,
	*repositories.ResumeRevocationRepository,
) {
	return repositories.NewPendingSignupRepository(db),
		repositories.NewProfileRepository(db),
		repositories.NewResumeRevocationRepository(db)
}

// sha256Hash computes SHA256 hash of input string
func sha256Hash(input string) string {
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])
}

// SeedPendingSignup inserts an unverified signup carrying an initial code
func SeedPendingSignup(ctx context.Context, repo *repositories.PendingSignupRepository, email, fullName, password, code string) (*models.PendingSignup, error) {
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	otpHash := sha256Hash(code)
	now := time.Now()
	expiresAt := now.Add(10 * time.Minute)

	signup := &models.PendingSignup{
		ID:            uuid.NewString(),
		SignupEmail:   email,
		FullName:      fullName,
		PasswordHash:  passwordHash,
		OTPHash:       &otpHash,
		OTPExpiresAt:  &expiresAt,
		LastOTPSentAt: &now,
	}

	return repo.Create(ctx, signup)
}

// SeedProfile materializes a verified profile for a signup
func SeedProfile(ctx context.Context, repo *repositories.ProfileRepository, signupID, email, fullName string) (*models.Profile, error) {
	passwordHash, err := auth.HashPassword("integration-password")
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	return repo.Create(ctx, &models.Profile{
		ID:           uuid.NewString(),
		SignupID:     signupID,
		Email:        email,
		FullName:     fullName,
		PasswordHash: passwordHash,
	})
}

// AgePendingSignup backdates a signup's creation so staleness sweeps see it
func AgePendingSignup(ctx context.Context, pool *pgxpool.Pool, signupID string, age time.Duration) error {
	query := `UPDATE pending_signups SET created_at = NOW() - make_interval(secs => $2) WHERE id = $1`
	_, err := pool.Exec(ctx, query, signupID, age.Seconds())
	return err
}

// BackdateLastOTPSend moves the issuance stamp into the past to step over the
// resend cooldown in tests
func BackdateLastOTPSend(ctx context.Context, pool *pgxpool.Pool, signupID string, age time.Duration) error {
	query := `UPDATE pending_signups SET last_otp_sent_at = NOW() - make_interval(secs => $2) WHERE id = $1`
	_, err := pool.Exec(ctx, query, signupID, age.Seconds())
	return err
}
