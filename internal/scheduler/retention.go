package scheduler

import (
	"context"

	"go.uber.org/zap"
)

// EventRetentionJob deletes event rows past the configured retention window.
func (s *Scheduler) EventRetentionJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, "event_retention", 1)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	retentionDays := s.cfg.Scheduler.EventRetentionDays
	if retentionDays <= 0 {
		s.log.Debug("event retention disabled", zap.Int("days", retentionDays))
		return nil
	}

	cutoff := s.clock.Now(ctx).AddDate(0, 0, -retentionDays)
	deleted, err := s.events.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logSchedulerError(ctx, run, "scheduler.retention.failed", "event_retention", 0, err)
		return err
	}

	if deleted > 0 {
		s.log.Info("expired events deleted",
			zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	}
	run.AddProcessed(int(deleted))

	return nil
}
