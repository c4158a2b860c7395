// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Purger removes stored runs created before a cutoff.
type Purger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron      *cron.Cron
	purger    Purger
	retention time.Duration
	schedule  string
	logger    *slog.Logger
	now       func() time.Time
}

// NewScheduler creates a scheduler that purges runs older than retention on schedule.
func NewScheduler(purger Purger, retention time.Duration, schedule string, logger *slog.Logger) *Scheduler {
	// Create cron with seconds disabled (standard 5-field format)
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:      c,
		purger:    purger,
		retention: retention,
		schedule:  schedule,
		logger:    logger,
		now:       time.Now,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.purgeExpiredRuns)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
		slog.String("schedule", s.schedule),
		slog.Duration("retention", s.retention),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers the retention sweep.
func (s *Scheduler) RunNow() {
	go s.purgeExpiredRuns()
}

// purgeExpiredRuns deletes stored runs past the retention window.
func (s *Scheduler) purgeExpiredRuns() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := s.now().Add(-s.retention)
	purged, err := s.purger.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("failed to purge expired runs",
			slog.Int("runs_purged", purged),
			slog.Any("error", err),
		)
		return
	}

	s.logger.Info("expired runs purged",
		slog.Int("runs_purged", purged),
		slog.Time("cutoff", cutoff),
	)
}
