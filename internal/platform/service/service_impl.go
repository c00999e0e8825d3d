package service

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pullpaylabs/pullpay/internal/clock"
	eventdomain "github.com/pullpaylabs/pullpay/internal/event/domain"
	"github.com/pullpaylabs/pullpay/internal/fee"
	"github.com/pullpaylabs/pullpay/internal/platform/domain"
	"github.com/pullpaylabs/pullpay/pkg/db"
	"github.com/pullpaylabs/pullpay/pkg/safemath"
)

type ServiceParam struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Repo   domain.Repository
	Events eventdomain.Recorder
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	clock  clock.Clock
	repo   domain.Repository
	events eventdomain.Recorder
}

func NewService(p ServiceParam) *Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("platform.service"),
		clock:  p.Clock,
		repo:   p.Repo,
		events: p.Events,
	}
}

var (
	_ domain.Service = (*Service)(nil)
	_ domain.Gate    = (*Service)(nil)
)

// entityID is the singleton row's identity in the event stream.
const entityID = "1"

func validateFeeBasisPoints(bp int) error {
	if bp < fee.MinBasisPoints {
		return domain.ErrFeeTooLow
	}
	if bp > fee.MaxBasisPoints {
		return domain.ErrFeeTooHigh
	}
	return nil
}

func (s *Service) Initialize(ctx context.Context, req domain.InitializeRequest) (*domain.State, error) {
	if err := validateFeeBasisPoints(req.FeeBasisPoints); err != nil {
		return nil, err
	}
	if req.MinFee < 0 || req.MinFee > req.MaxFee {
		return nil, domain.ErrInvalidFeeRange
	}
	if req.DailyVolumeLimit <= 0 {
		return nil, domain.ErrInvalidVolumeLimit
	}

	now := s.clock.Now(ctx)
	state := &domain.State{
		ID:               domain.SingletonID,
		AdminAccount:     req.AdminAccount,
		FeeAccountID:     req.FeeAccountID,
		FeeBasisPoints:   req.FeeBasisPoints,
		MinFee:           req.MinFee,
		MaxFee:           req.MaxFee,
		DailyVolumeLimit: req.DailyVolumeLimit,
		LastVolumeReset:  now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.Find(ctx, tx)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrAlreadyInitialized
		}
		if err := s.repo.Create(ctx, tx, state); err != nil {
			if db.IsDuplicate(err) {
				return domain.ErrAlreadyInitialized
			}
			return err
		}
		return s.events.Record(ctx, tx, eventdomain.NewEvent{
			Type:       "platform.initialized",
			EntityType: "platform",
			EntityID:   entityID,
			Payload: map[string]any{
				"admin_account":      state.AdminAccount,
				"fee_basis_points":   state.FeeBasisPoints,
				"daily_volume_limit": state.DailyVolumeLimit,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("platform initialized",
		zap.String("admin_account", state.AdminAccount),
		zap.Int("fee_basis_points", state.FeeBasisPoints))
	return state, nil
}

func (s *Service) UpdateConfig(ctx context.Context, actor string, req domain.UpdateConfigRequest) (*domain.State, error) {
	if req.Empty() {
		return nil, domain.ErrNoUpdateProvided
	}

	var state *domain.State
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		state, err = s.loadForAdmin(ctx, tx, actor)
		if err != nil {
			return err
		}

		if req.FeeBasisPoints != nil {
			if err := validateFeeBasisPoints(*req.FeeBasisPoints); err != nil {
				return err
			}
			state.FeeBasisPoints = *req.FeeBasisPoints
		}

		minFee, maxFee := state.MinFee, state.MaxFee
		if req.MinFee != nil {
			minFee = *req.MinFee
		}
		if req.MaxFee != nil {
			maxFee = *req.MaxFee
		}
		if minFee < 0 || minFee > maxFee {
			return domain.ErrInvalidFeeRange
		}
		state.MinFee, state.MaxFee = minFee, maxFee

		if req.DailyVolumeLimit != nil {
			if *req.DailyVolumeLimit <= 0 {
				return domain.ErrInvalidVolumeLimit
			}
			state.DailyVolumeLimit = *req.DailyVolumeLimit
		}
		if req.NewAdminAccount != nil {
			state.AdminAccount = *req.NewAdminAccount
		}

		state.UpdatedAt = s.clock.Now(ctx)
		if err := s.repo.Save(ctx, tx, state); err != nil {
			return err
		}
		return s.events.Record(ctx, tx, eventdomain.NewEvent{
			Type:       "platform.config_updated",
			EntityType: "platform",
			EntityID:   entityID,
			Payload: map[string]any{
				"fee_basis_points":   state.FeeBasisPoints,
				"min_fee":            state.MinFee,
				"max_fee":            state.MaxFee,
				"daily_volume_limit": state.DailyVolumeLimit,
				"admin_account":      state.AdminAccount,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("platform config updated", zap.String("actor", actor))
	return state, nil
}

func (s *Service) SetEmergencyPause(ctx context.Context, actor string, paused bool) (*domain.State, error) {
	var state *domain.State
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		state, err = s.loadForAdmin(ctx, tx, actor)
		if err != nil {
			return err
		}

		now := s.clock.Now(ctx)
		state.EmergencyPause = paused
		if !paused {
			// Unpausing opens a fresh volume window and forgives the
			// failures accumulated while halted.
			state.TotalVolume24h = 0
			state.LastVolumeReset = now
			state.FailedTxCount = 0
		}
		state.UpdatedAt = now
		if err := s.repo.Save(ctx, tx, state); err != nil {
			return err
		}

		eventType := "platform.paused"
		if !paused {
			eventType = "platform.unpaused"
		}
		return s.events.Record(ctx, tx, eventdomain.NewEvent{
			Type:       eventType,
			EntityType: "platform",
			EntityID:   entityID,
			Payload: map[string]any{
				"emergency_pause": paused,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Warn("emergency pause toggled",
		zap.Bool("paused", paused),
		zap.String("actor", actor))
	return state, nil
}

func (s *Service) Get(ctx context.Context) (*domain.State, error) {
	state, err := s.repo.Find(ctx, nil)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, domain.ErrNotInitialized
	}
	return state, nil
}

func (s *Service) loadForAdmin(ctx context.Context, tx *gorm.DB, actor string) (*domain.State, error) {
	state, err := s.repo.Find(ctx, tx)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, domain.ErrNotInitialized
	}
	if actor != state.AdminAccount {
		return nil, domain.ErrUnauthorizedAdmin
	}
	return state, nil
}

// BillingState implements domain.Gate.
func (s *Service) BillingState(ctx context.Context, tx *gorm.DB) (*domain.State, error) {
	state, err := s.repo.Find(ctx, tx)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, domain.ErrNotInitialized
	}
	if state.EmergencyPause {
		return nil, domain.ErrSystemPaused
	}

	now := s.clock.Now(ctx)
	if now.Sub(state.LastVolumeReset) >= domain.VolumeWindow {
		// Reset in memory only; CommitPayment persists it together with
		// the payment so a failed payment leaves the stored window intact.
		state.TotalVolume24h = 0
		state.LastVolumeReset = now
	}
	return state, nil
}

// CommitPayment implements domain.Gate.
func (s *Service) CommitPayment(ctx context.Context, tx *gorm.DB, state *domain.State, amount int64) error {
	newVolume, err := safemath.CheckedAdd(state.TotalVolume24h, amount)
	if err != nil {
		return err
	}
	if newVolume > state.DailyVolumeLimit {
		return domain.ErrVelocityExceeded
	}
	newTotal, err := safemath.CheckedAdd(state.TotalTransactions, 1)
	if err != nil {
		return err
	}

	state.TotalVolume24h = newVolume
	state.TotalTransactions = newTotal
	return s.repo.UpdateColumns(ctx, tx, map[string]any{
		"total_volume_24h":   newVolume,
		"last_volume_reset":  state.LastVolumeReset,
		"total_transactions": newTotal,
		"updated_at":         s.clock.Now(ctx),
	})
}

// AddSubscription implements domain.Gate.
func (s *Service) AddSubscription(ctx context.Context, tx *gorm.DB) error {
	state, err := s.repo.Find(ctx, tx)
	if err != nil {
		return err
	}
	if state == nil {
		return domain.ErrNotInitialized
	}
	total, err := safemath.CheckedAdd(state.TotalSubscriptions, 1)
	if err != nil {
		return err
	}
	return s.repo.UpdateColumns(ctx, tx, map[string]any{
		"total_subscriptions": total,
		"updated_at":          s.clock.Now(ctx),
	})
}

// RemoveSubscription implements domain.Gate.
func (s *Service) RemoveSubscription(ctx context.Context, tx *gorm.DB) error {
	state, err := s.repo.Find(ctx, tx)
	if err != nil {
		return err
	}
	if state == nil {
		return domain.ErrNotInitialized
	}
	total := state.TotalSubscriptions
	if total > 0 {
		total--
	}
	return s.repo.UpdateColumns(ctx, tx, map[string]any{
		"total_subscriptions": total,
		"updated_at":          s.clock.Now(ctx),
	})
}

// RecordFailedTransaction implements domain.Gate.
func (s *Service) RecordFailedTransaction(ctx context.Context, tx *gorm.DB) error {
	state, err := s.repo.Find(ctx, tx)
	if err != nil {
		return err
	}
	if state == nil {
		return domain.ErrNotInitialized
	}
	count, err := safemath.CheckedAdd(state.FailedTxCount, 1)
	if err != nil {
		return err
	}
	return s.repo.UpdateColumns(ctx, tx, map[string]any{
		"failed_tx_count": count,
		"updated_at":      s.clock.Now(ctx),
	})
}
