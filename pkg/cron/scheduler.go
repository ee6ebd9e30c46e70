// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// RetentionPurger applies the retention policy to stored uploads.
type RetentionPurger interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) error
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron      *cron.Cron
	purger    RetentionPurger
	retention time.Duration
	logger    *slog.Logger
}

// NewScheduler creates a new job scheduler.
func NewScheduler(purger RetentionPurger, retention time.Duration, logger *slog.Logger) *Scheduler {
	// Create cron with seconds disabled (standard 5-field format)
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:      c,
		purger:    purger,
		retention: retention,
		logger:    logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	// Retention purge: runs daily at 3:00 AM
	_, err := s.cron.AddFunc("0 3 * * *", s.purgeExpiredUploads)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers the retention purge (for testing/admin).
func (s *Scheduler) RunNow() {
	go s.purgeExpiredUploads()
}

// purgeExpiredUploads removes job log rows and archived files older than the
// retention window.
func (s *Scheduler) purgeExpiredUploads() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	s.logger.Info("starting daily upload retention purge",
		slog.Duration("retention", s.retention))

	if err := s.purger.PurgeOlderThan(ctx, s.retention); err != nil {
		s.logger.Error("upload retention purge failed", slog.Any("error", err))
		return
	}

	s.logger.Info("daily upload retention purge completed")
}
