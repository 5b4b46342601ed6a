package logger

import (
	"context"
	"log/slog"
	"time"
)

// Signup lifecycle event types
const (
	EventSignupRegistered  = "signup_registered"
	EventSignupVerified    = "signup_verified"
	EventSignupLocked      = "signup_locked"
	EventSignupThrottled   = "signup_throttled"
	EventSignupEmailChange = "signup_email_changed"
	EventSignupExpired     = "signup_expired"
)

// AuditEvent represents a signup security audit event
type AuditEvent struct {
	EventType     string
	SignupID      string
	Email         string
	IPAddress     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger provides structured audit logging for the verification flow
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogSignupEvent logs a verification lifecycle event. Emails are masked
// before they reach the log stream.
func (al *AuditLogger) LogSignupEvent(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "signup"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.SignupID != "" {
		attrs = append(attrs, slog.String("signup_id", event.SignupID))
	}
	if event.Email != "" {
		attrs = append(attrs, slog.String("email", SanitizedEmail(event.Email)))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}

	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	if event.Success {
		al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
	} else {
		al.logger.LogAttrs(context.Background(), slog.LevelWarn, "audit", attrs...)
	}
}
