package config

import (
	"os"
	"testing"
	"time"
)

func TestSignupConfig_Defaults(t *testing.T) {
	// Set required env vars
	os.Setenv("RESUME_TOKEN_SECRET", "test-secret-32-characters-long!!")
	os.Setenv("DB_PASSWORD", "test")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	tests := []struct {
		name     string
		actual   time.Duration
		expected time.Duration
	}{
		{"OTPExpiry", cfg.Signup.OTPExpiry, 10 * time.Minute},
		{"ResendCooldown", cfg.Signup.ResendCooldown, 60 * time.Second},
		{"ResumeTokenExpiry", cfg.Signup.ResumeTokenExpiry, 30 * time.Minute},
		{"SignupTTL", cfg.Signup.SignupTTL, 24 * time.Hour},
		{"RateLimitWindow", cfg.Signup.RateLimitWindow, 1 * time.Minute},
	}

	for _, tt := range tests {
		if tt.actual != tt.expected {
			t.Errorf("%s: got %v, want %v", tt.name, tt.actual, tt.expected)
		}
	}

	if cfg.Signup.LockoutThreshold != 5 {
		t.Errorf("LockoutThreshold: got %d, want 5", cfg.Signup.LockoutThreshold)
	}
	if cfg.Signup.DailyResendCap != 5 {
		t.Errorf("DailyResendCap: got %d, want 5", cfg.Signup.DailyResendCap)
	}
	if cfg.Signup.OTPLength != 6 {
		t.Errorf("OTPLength: got %d, want 6", cfg.Signup.OTPLength)
	}
}

func TestSignupConfig_CustomValues(t *testing.T) {
	os.Setenv("RESUME_TOKEN_SECRET", "test-secret-32-characters-long!!")
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("OTP_EXPIRY", "5m")
	os.Setenv("OTP_RESEND_COOLDOWN", "90s")
	os.Setenv("OTP_LOCKOUT_THRESHOLD", "3")
	os.Setenv("OTP_DAILY_RESEND_CAP", "10")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Signup.OTPExpiry != 5*time.Minute {
		t.Errorf("OTPExpiry: got %v, want 5m", cfg.Signup.OTPExpiry)
	}
	if cfg.Signup.ResendCooldown != 90*time.Second {
		t.Errorf("ResendCooldown: got %v, want 90s", cfg.Signup.ResendCooldown)
	}
	if cfg.Signup.LockoutThreshold != 3 {
		t.Errorf("LockoutThreshold: got %d, want 3", cfg.Signup.LockoutThreshold)
	}
	if cfg.Signup.DailyResendCap != 10 {
		t.Errorf("DailyResendCap: got %d, want 10", cfg.Signup.DailyResendCap)
	}
}

func TestLoad_MissingResumeTokenSecret(t *testing.T) {
	os.Clearenv()
	os.Setenv("DB_PASSWORD", "test")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil, want error for missing RESUME_TOKEN_SECRET")
	}
}

func TestLoad_WeakResumeTokenSecret(t *testing.T) {
	os.Clearenv()
	os.Setenv("RESUME_TOKEN_SECRET", "short")
	os.Setenv("DB_PASSWORD", "test")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil, want error for short secret")
	}
}

func TestLoad_SecretLengthByEnvironment(t *testing.T) {
	os.Clearenv()
	os.Setenv("RESUME_TOKEN_SECRET", "sixteen-chars-ok")
	os.Setenv("DB_PASSWORD", "test")
	defer os.Clearenv()

	// 16 characters passes in development
	if _, err := Load(); err != nil {
		t.Fatalf("Load() = %v, want nil in development", err)
	}

	// but not in production
	os.Setenv("ENV", "production")
	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil, want error for 16-char secret in production")
	}
}

func TestLoad_InvalidOTPLength(t *testing.T) {
	os.Clearenv()
	os.Setenv("RESUME_TOKEN_SECRET", "test-secret-32-characters-long!!")
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("OTP_LENGTH", "2")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil, want error for OTP_LENGTH below 4")
	}
}
