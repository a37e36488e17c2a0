package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/tmcnulty/registrar/internal/repositories"
)

// Sweeper periodically removes expired action tokens and repairs any
// verified-flag drift between students and their owning users. Verification
// writes both flags in one transaction, so the repair normally finds
// nothing; each pass is idempotent either way.
type Sweeper struct {
	tokens   *repositories.ActionTokenRepository
	students *repositories.StudentRepository
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewSweeper creates a new sweeper
func NewSweeper(
	tokens *repositories.ActionTokenRepository,
	students *repositories.StudentRepository,
	logger *slog.Logger,
	interval time.Duration,
) *Sweeper {
	return &Sweeper{
		tokens:   tokens,
		students: students,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep task
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on startup
	s.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.runSweep(ctx)
		case <-s.stopCh:
			s.logger.Info("sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("sweeper context cancelled")
			return
		}
	}
}

func (s *Sweeper) runSweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rowsDeleted, err := s.tokens.DeleteExpired(sweepCtx)
	if err != nil {
		s.logger.Error("failed to delete expired tokens", slog.Any("error", err))
	} else if rowsDeleted > 0 {
		s.logger.Info("expired token sweep completed", slog.Int64("rows_deleted", rowsDeleted))
	}

	rowsRepaired, err := s.students.RepairVerifiedDrift(sweepCtx)
	if err != nil {
		s.logger.Error("failed to repair verified drift", slog.Any("error", err))
	} else if rowsRepaired > 0 {
		s.logger.Warn("verified drift repaired", slog.Int64("rows_repaired", rowsRepaired))
	}
}

// Stop signals the sweeper to stop
func (s *Sweeper) Stop() {
	close(s.stopCh)
}
