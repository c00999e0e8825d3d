package scheduler

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	platformdomain "github.com/pullpaylabs/pullpay/internal/platform/domain"
)

// ExecuteDuePaymentsJob sweeps production-scope subscriptions whose
// next_payment has passed and executes each one. A failed payment is counted
// and logged, never aborts the sweep. Subscriptions pinned to a test clock
// are advanced by their clock, not by this job.
func (s *Scheduler) ExecuteDuePaymentsJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, "execute_due_payments", 0)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	state, err := s.platform.Get(ctx)
	if err != nil {
		if errors.Is(err, platformdomain.ErrNotInitialized) {
			s.log.Debug("platform not initialized, nothing to sweep")
			return nil
		}
		s.logSchedulerError(ctx, run, "scheduler.payments.state", "execute_due_payments", 0, err)
		return err
	}
	if state.EmergencyPause {
		s.log.Info("emergency pause set, skipping payment sweep")
		return nil
	}

	batch := s.cfg.Scheduler.BatchSize
	if batch <= 0 {
		batch = 100
	}
	now := s.clock.Now(ctx)

	// A rejected subscription stays due at the same time; attempting it once
	// per sweep keeps the batch loop finite.
	attempted := make(map[snowflake.ID]struct{})
	for {
		due, err := s.subscriptions.ListDue(ctx, now, batch)
		if err != nil {
			s.logSchedulerError(ctx, run, "scheduler.payments.scan", "execute_due_payments", run.Processed, err)
			return err
		}
		run.Batches++

		progressed := false
		for i := range due {
			sub := &due[i]
			if _, seen := attempted[sub.ID]; seen {
				continue
			}
			attempted[sub.ID] = struct{}{}
			progressed = true

			if _, err := s.subscriptions.ExecutePayment(ctx, sub.ID); err != nil {
				run.AddFailed(1)
				s.log.Warn("due payment failed",
					zap.Int64("subscription_id", sub.ID.Int64()),
					zap.Error(err))
				continue
			}
			run.AddProcessed(1)
		}
		if !progressed || len(due) < batch {
			return nil
		}
	}
}
