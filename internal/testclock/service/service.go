package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pullpaylabs/pullpay/internal/clock"
	subscriptiondomain "github.com/pullpaylabs/pullpay/internal/subscription/domain"
	testclockctx "github.com/pullpaylabs/pullpay/internal/testclock/context"
	"github.com/pullpaylabs/pullpay/internal/testclock/domain"
)

// advanceBatchSize bounds one due-scan during an advance.
const advanceBatchSize = 100

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	Clock         clock.Clock
	GenID         *snowflake.Node
	Repo          domain.Repository
	Subscriptions subscriptiondomain.Service
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	clock         clock.Clock
	genID         *snowflake.Node
	repo          domain.Repository
	subscriptions subscriptiondomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("testclock.service"),
		clock:         p.Clock,
		genID:         p.GenID,
		repo:          p.Repo,
		subscriptions: p.Subscriptions,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.TestClock, error) {
	if req.Name == "" || len(req.Name) > domain.MaxClockNameLen {
		return nil, domain.ErrInvalidClockName
	}

	now := s.clock.Now(ctx).UTC()
	initial := req.InitialTime.UTC()
	if req.InitialTime.IsZero() {
		initial = now
	}

	tc := &domain.TestClock{
		ID:         s.genID.Generate(),
		Name:       req.Name,
		FrozenTime: initial,
		Status:     domain.StatusReady,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, tc); err != nil {
		return nil, err
	}

	s.log.Info("test clock created",
		zap.Int64("test_clock_id", tc.ID.Int64()),
		zap.Time("frozen_time", tc.FrozenTime))
	return tc, nil
}

func (s *Service) Advance(ctx context.Context, id snowflake.ID, d time.Duration) (*domain.AdvanceResult, error) {
	if d <= 0 {
		return nil, domain.ErrInvalidAdvance
	}

	tc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	target := tc.FrozenTime.Add(d).UTC()

	// Claim the clock: the conditional update loses against a concurrent
	// advance instead of interleaving two settlements.
	claim := s.db.WithContext(ctx).Model(&domain.TestClock{}).
		Where("id = ? AND status = ?", id, domain.StatusReady).
		Updates(map[string]any{
			"status":      domain.StatusAdvancing,
			"frozen_time": target,
			"updated_at":  s.clock.Now(ctx).UTC(),
		})
	if claim.Error != nil {
		return nil, claim.Error
	}
	if claim.RowsAffected == 0 {
		return nil, domain.ErrAdvanceInProgress
	}

	executed, failed := s.settleDue(ctx, id, target)

	if err := s.repo.Update(ctx, id.String(), map[string]any{
		"status":     domain.StatusReady,
		"updated_at": s.clock.Now(ctx).UTC(),
	}); err != nil {
		return nil, err
	}

	tc, err = s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.log.Info("test clock advanced",
		zap.Int64("test_clock_id", id.Int64()),
		zap.Time("frozen_time", target),
		zap.Int("payments_executed", executed),
		zap.Int("payments_failed", failed))
	return &domain.AdvanceResult{
		Clock:            tc,
		PaymentsExecuted: executed,
		PaymentsFailed:   failed,
	}, nil
}

// settleDue executes every pinned subscription due at the target time. Each
// subscription is attempted once per advance: a settled one lands a full
// period past the target, a rejected one would only fail the same way again.
func (s *Service) settleDue(ctx context.Context, id snowflake.ID, target time.Time) (executed, failed int) {
	armed := testclockctx.WithTestClock(ctx, id, target)
	attempted := make(map[snowflake.ID]struct{})

	for {
		due, err := s.subscriptions.ListDueForClock(armed, id, target, advanceBatchSize)
		if err != nil {
			s.log.Error("due scan failed during advance",
				zap.Int64("test_clock_id", id.Int64()), zap.Error(err))
			return executed, failed
		}

		progressed := false
		for i := range due {
			sub := &due[i]
			if _, seen := attempted[sub.ID]; seen {
				continue
			}
			attempted[sub.ID] = struct{}{}
			progressed = true

			if _, err := s.subscriptions.ExecutePayment(armed, sub.ID); err != nil {
				failed++
				s.log.Warn("pinned payment failed during advance",
					zap.Int64("test_clock_id", id.Int64()),
					zap.Int64("subscription_id", sub.ID.Int64()),
					zap.Error(err))
				continue
			}
			executed++
		}
		if !progressed {
			return executed, failed
		}
	}
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.TestClock, error) {
	tc, err := s.repo.FindByID(ctx, id.String())
	if err != nil {
		return nil, err
	}
	if tc == nil {
		return nil, domain.ErrTestClockNotFound
	}
	return tc, nil
}

func (s *Service) List(ctx context.Context) ([]domain.TestClock, error) {
	return s.repo.ListAll(ctx)
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id.String()); err != nil {
		return err
	}
	s.log.Info("test clock deleted", zap.Int64("test_clock_id", id.Int64()))
	return nil
}
