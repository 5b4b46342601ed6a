package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Signup   SignupConfig
	Email    EmailConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
}

// SignupConfig holds every knob of the verification flow: resume tokens, OTP
// lifetime and lockout, the resend throttle, and the request rate limits in
// front of the sensitive endpoints.
type SignupConfig struct {
	ResumeTokenSecret string
	ResumeTokenExpiry time.Duration
	OTPLength         int
	OTPExpiry         time.Duration
	LockoutThreshold  int
	ResendCooldown    time.Duration
	DailyResendCap    int
	SignupTTL         time.Duration
	SweepInterval     time.Duration

	// Keyed fixed-window limiter for verify/resend (per IP + resume token)
	RateLimitWindow time.Duration
	RateLimitMax    int

	// Coarse per-IP limit on public registration
	RegisterRateLimitPerMinute int
}

type EmailConfig struct {
	AWSRegion   string
	FromAddress string
	AppName     string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	resumeSecret := getEnv("RESUME_TOKEN_SECRET", "")
	if resumeSecret == "" {
		return nil, fmt.Errorf("RESUME_TOKEN_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "campuslink"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: parseList(getEnv("TRUSTED_PROXIES", "")),
		},
		Signup: SignupConfig{
			ResumeTokenSecret: resumeSecret,
			ResumeTokenExpiry: getEnvAsDuration("RESUME_TOKEN_EXPIRY", 30*time.Minute),
			OTPLength:         getEnvAsInt("OTP_LENGTH", 6),
			OTPExpiry:         getEnvAsDuration("OTP_EXPIRY", 10*time.Minute),
			LockoutThreshold:  getEnvAsInt("OTP_LOCKOUT_THRESHOLD", 5),
			ResendCooldown:    getEnvAsDuration("OTP_RESEND_COOLDOWN", 60*time.Second),
			DailyResendCap:    getEnvAsInt("OTP_DAILY_RESEND_CAP", 5),
			SignupTTL:         getEnvAsDuration("SIGNUP_TTL", 24*time.Hour),
			SweepInterval:     getEnvAsDuration("SIGNUP_SWEEP_INTERVAL", 1*time.Hour),

			RateLimitWindow: getEnvAsDuration("SIGNUP_RATE_LIMIT_WINDOW", 1*time.Minute),
			RateLimitMax:    getEnvAsInt("SIGNUP_RATE_LIMIT_MAX", 10),

			RegisterRateLimitPerMinute: getEnvAsInt("REGISTER_RATE_LIMIT_PER_MINUTE", 5),
		},
		Email: EmailConfig{
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "no-reply@campuslink.app"),
			AppName:     getEnv("EMAIL_APP_NAME", "CampusLink"),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateResumeTokenSecret(resumeSecret, env); err != nil {
		return nil, err
	}

	if cfg.Signup.LockoutThreshold < 1 {
		return nil, fmt.Errorf("OTP_LOCKOUT_THRESHOLD must be at least 1")
	}
	if cfg.Signup.OTPLength < 4 || cfg.Signup.OTPLength > 10 {
		return nil, fmt.Errorf("OTP_LENGTH must be between 4 and 10")
	}

	return cfg, nil
}

// validateResumeTokenSecret enforces minimum security standards for the
// resume token signing secret
func validateResumeTokenSecret(secret, env string) error {
	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32 // Production requires stronger secret (256 bits)
	}

	if len(secret) < minLength {
		return fmt.Errorf("RESUME_TOKEN_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("RESUME_TOKEN_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		originsStr := getEnv("ALLOWED_ORIGINS", "")
		if originsStr == "" {
			return []string{} // Default to no origins in production
		}
		return parseList(originsStr)
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
