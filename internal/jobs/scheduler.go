package jobs

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/personio-adapter/internal/service"
)

// Scheduler triggers one sync run per day at a fixed wall-clock time,
// matching the export windows HR consumers expect.
type Scheduler struct {
	logger *zap.Logger
	svc    *service.Service
	at     time.Time // only hour and minute are used
	now    func() time.Time
	stopCh chan struct{}
}

// NewScheduler constructs a daily scheduler. at carries the local run time
// of day, e.g. the result of parsing "03:30".
func NewScheduler(logger *zap.Logger, svc *service.Service, at time.Time) *Scheduler {
	return &Scheduler{
		logger: logger,
		svc:    svc,
		at:     at,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
}

// Start blocks, running one sync per day until the context is canceled or
// Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("scheduler.started",
		zap.String("daily_at", s.at.Format("15:04")))

	for {
		wait := time.Until(s.nextRun(s.now()))
		timer := time.NewTimer(wait)
		s.logger.Info("scheduler.next_run", zap.Duration("in", wait))

		select {
		case <-timer.C:
			s.runOnce(ctx)
		case <-s.stopCh:
			timer.Stop()
			s.logger.Info("scheduler.stopped (manual stop)")
			return
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("scheduler.stopped (context canceled)")
			return
		}
	}
}

// Stop gracefully halts the scheduler.
func (s *Scheduler) Stop() {
	close(s.stopCh)
}

// nextRun returns the next occurrence of the configured time of day strictly
// after now.
func (s *Scheduler) nextRun(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(),
		s.at.Hour(), s.at.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s *Scheduler) runOnce(ctx context.Context) {
	report, err := s.svc.Run(ctx)
	if errors.Is(err, service.ErrRunInProgress) {
		s.logger.Warn("scheduler.run_skipped_already_running")
		return
	}
	if err != nil {
		s.logger.Error("scheduler.run_failed",
			zap.String("run_id", report.RunID),
			zap.Error(err))
		return
	}
	s.logger.Info("scheduler.run_completed",
		zap.String("run_id", report.RunID),
		zap.Duration("duration", report.Duration))
}
