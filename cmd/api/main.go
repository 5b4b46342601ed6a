package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/campuslink/api/internal/auth"
	"github.com/campuslink/api/internal/background"
	"github.com/campuslink/api/internal/config"
	"github.com/campuslink/api/internal/database"
	"github.com/campuslink/api/internal/handlers"
	middlewareCustom "github.com/campuslink/api/internal/middleware"
	"github.com/campuslink/api/internal/repositories"
	"github.com/campuslink/api/internal/routes"
	"github.com/campuslink/api/internal/services"
	pkghttp "github.com/campuslink/api/pkg/http"
	pkglogger "github.com/campuslink/api/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	pendingRepo := repositories.NewPendingSignupRepository(db)
	profileRepo := repositories.NewProfileRepository(db)
	revokeRepo := repositories.NewResumeRevocationRepository(db)

	// Resume token manager backed by the persisted revocation cutoffs
	tokenManager := auth.NewResumeTokenManager(
		cfg.Signup.ResumeTokenSecret,
		cfg.Signup.ResumeTokenExpiry,
		revokeRepo,
	)

	auditLogger := pkglogger.NewAuditLogger(logger)

	// AWS SES email delivery
	emailSender, err := services.NewAWSSESEmailSender(
		cfg.Email.AWSRegion,
		cfg.Email.FromAddress,
		cfg.Email.AppName,
		logger,
	)
	if err != nil {
		logger.Error("failed to initialize email sender", slog.Any("error", err))
		os.Exit(1)
	}

	// Business policy for the verification flow
	policy := services.SignupPolicy{
		OTPLength:        cfg.Signup.OTPLength,
		OTPExpiry:        cfg.Signup.OTPExpiry,
		LockoutThreshold: cfg.Signup.LockoutThreshold,
		ResendCooldown:   cfg.Signup.ResendCooldown,
		DailyResendCap:   cfg.Signup.DailyResendCap,
		SignupTTL:        cfg.Signup.SignupTTL,
	}
	signupService := services.NewSignupService(pendingRepo, profileRepo, tokenManager, emailSender, policy, logger, auditLogger)

	// Maintenance sweep for stale signups and dead revocation rows
	maintenanceManager := background.NewMaintenanceManager(
		pendingRepo,
		revokeRepo,
		logger,
		cfg.Signup.SweepInterval,
		cfg.Signup.SignupTTL,
		24*time.Hour,
		cfg.Signup.ResumeTokenExpiry,
	)

	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}

	// Initialize handlers
	signupHandler := handlers.NewSignupHandler(signupService, tokenManager, ipConfig)

	// Setup CORS middleware
	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.Env)
	corsConfig.AllowedOrigins = cfg.Server.AllowedOrigins

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Keyed limiter for the endpoints behind the resume token
	keyedLimiter := middlewareCustom.NewFixedWindowLimiter(middlewareCustom.FixedWindowConfig{
		Window: cfg.Signup.RateLimitWindow,
		Max:    cfg.Signup.RateLimitMax,
		KeyFn:  middlewareCustom.KeyByClientAndResumeToken(ipConfig),
	})
	registerLimit := middlewareCustom.RateLimitConfig{RequestsPerMinute: cfg.Signup.RegisterRateLimitPerMinute}

	routes.RegisterRoutes(router, signupHandler, registerLimit, keyedLimiter)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start maintenance task
	maintenanceCtx, maintenanceCancel := context.WithCancel(context.Background())
	defer maintenanceCancel()

	go maintenanceManager.Start(maintenanceCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	maintenanceCancel()
	maintenanceManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
