// Package jobs runs background work on a schedule.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/conorfennell/wordcards/internal/importer"
)

// Syncer re-imports all deck sources.
type Syncer interface {
	RunSync(ctx context.Context) (importer.Report, error)
}

// Scheduler periodically re-imports deck sources.
type Scheduler struct {
	scheduler *gocron.Scheduler
	syncer    Syncer
	interval  time.Duration
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler that runs syncer every interval.
func New(syncer Syncer, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		syncer:    syncer,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the sync job and starts the scheduler without blocking.
// The first run happens immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	if _, err := s.scheduler.Every(s.interval).Do(s.runSync); err != nil {
		s.cancel()
		return fmt.Errorf("failed to schedule sync job: %w", err)
	}
	s.scheduler.StartAsync()
	s.logger.Info("sync job scheduled", "interval", s.interval)
	return nil
}

// Stop cancels a running sync and terminates the scheduler.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.scheduler.Stop()
}

func (s *Scheduler) runSync() {
	report, err := s.syncer.RunSync(s.ctx)
	if err != nil {
		s.logger.Error("scheduled sync failed", "error", err)
		return
	}
	if len(report.Errors) > 0 {
		s.logger.Warn("scheduled sync finished with errors", "errors", len(report.Errors))
	}
}
