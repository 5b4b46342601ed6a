package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/campuslink/api/internal/repositories"
)

// MaintenanceManager periodically expires abandoned signups, resets resend
// counters, and drops revocation rows no outstanding token can match
type MaintenanceManager struct {
	pendingRepo *repositories.PendingSignupRepository
	revokeRepo  *repositories.ResumeRevocationRepository
	logger      *slog.Logger

	interval       time.Duration
	signupTTL      time.Duration
	resendWindow   time.Duration
	resumeTokenTTL time.Duration

	stopCh chan struct{}
}

// NewMaintenanceManager creates a new maintenance manager
func NewMaintenanceManager(
	pendingRepo *repositories.PendingSignupRepository,
	revokeRepo *repositories.ResumeRevocationRepository,
	logger *slog.Logger,
	interval, signupTTL, resendWindow, resumeTokenTTL time.Duration,
) *MaintenanceManager {
	return &MaintenanceManager{
		pendingRepo:    pendingRepo,
		revokeRepo:     revokeRepo,
		logger:         logger,
		interval:       interval,
		signupTTL:      signupTTL,
		resendWindow:   resendWindow,
		resumeTokenTTL: resumeTokenTTL,
		stopCh:         make(chan struct{}),
	}
}

// Start begins the periodic maintenance task
func (mm *MaintenanceManager) Start(ctx context.Context) {
	ticker := time.NewTicker(mm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	mm.runMaintenance(ctx)

	for {
		select {
		case <-ticker.C:
			mm.runMaintenance(ctx)
		case <-mm.stopCh:
			mm.logger.Info("maintenance manager stopped")
			return
		case <-ctx.Done():
			mm.logger.Info("maintenance manager context cancelled")
			return
		}
	}
}

// runMaintenance performs one sweep. Each step is independent; a failure in
// one does not block the others.
func (mm *MaintenanceManager) runMaintenance(ctx context.Context) {
	mm.logger.Info("starting signup maintenance sweep")

	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	expired, err := mm.pendingRepo.ExpireStale(sweepCtx, mm.signupTTL)
	if err != nil {
		mm.logger.Error("failed to expire stale signups", slog.Any("error", err))
	} else if expired > 0 {
		mm.logger.Info("expired stale signups", slog.Int64("rows", expired))
	}

	reset, err := mm.pendingRepo.ResetResendCounters(sweepCtx, mm.resendWindow)
	if err != nil {
		mm.logger.Error("failed to reset resend counters", slog.Any("error", err))
	} else if reset > 0 {
		mm.logger.Info("reset resend counters", slog.Int64("rows", reset))
	}

	// A revocation row only matters while a token issued before it can still
	// be presented, so anything older than the token lifetime is garbage
	dropped, err := mm.revokeRepo.CleanupOld(sweepCtx, mm.resumeTokenTTL)
	if err != nil {
		mm.logger.Error("failed to clean up revocations", slog.Any("error", err))
	} else if dropped > 0 {
		mm.logger.Info("cleaned up revocations", slog.Int64("rows", dropped))
	}
}

// Stop signals the maintenance manager to stop
func (mm *MaintenanceManager) Stop() {
	close(mm.stopCh)
}
