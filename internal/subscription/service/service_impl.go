package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pullpaylabs/pullpay/internal/clock"
	"github.com/pullpaylabs/pullpay/internal/config"
	eventdomain "github.com/pullpaylabs/pullpay/internal/event/domain"
	"github.com/pullpaylabs/pullpay/internal/fee"
	ledgerdomain "github.com/pullpaylabs/pullpay/internal/ledger/domain"
	merchantdomain "github.com/pullpaylabs/pullpay/internal/merchant/domain"
	"github.com/pullpaylabs/pullpay/internal/observability"
	platformdomain "github.com/pullpaylabs/pullpay/internal/platform/domain"
	"github.com/pullpaylabs/pullpay/internal/subscription/domain"
	testclockctx "github.com/pullpaylabs/pullpay/internal/testclock/context"
	"github.com/pullpaylabs/pullpay/pkg/db/pagination"
	"github.com/pullpaylabs/pullpay/pkg/safemath"
)

type ServiceParam struct {
	fx.In

	Config config.Config
	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Tracer trace.Tracer
	Repo   domain.Repository

	Merchants merchantdomain.Repository
	Ledger    ledgerdomain.Adapter
	Accounts  ledgerdomain.Service
	Gate      platformdomain.Gate
	Reporter  merchantdomain.TransactionReporter
	Events    eventdomain.Recorder
	Metrics   *observability.Metrics
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	tracer trace.Tracer
	repo   domain.Repository

	merchants merchantdomain.Repository
	ledger    ledgerdomain.Adapter
	accounts  ledgerdomain.Service
	gate      platformdomain.Gate
	reporter  merchantdomain.TransactionReporter
	events    eventdomain.Recorder
	metrics   *observability.Metrics

	asset string
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("subscription.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		tracer: p.Tracer,
		repo:   p.Repo,

		merchants: p.Merchants,
		ledger:    p.Ledger,
		accounts:  p.Accounts,
		gate:      p.Gate,
		reporter:  p.Reporter,
		events:    p.Events,
		metrics:   p.Metrics,

		asset: p.Config.Platform.Asset,
	}
}

func (s *Service) Create(ctx context.Context, payer string, req domain.CreateRequest) (*domain.Subscription, error) {
	var sub *domain.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.gate.BillingState(ctx, tx); err != nil {
			return err
		}
		if req.FrequencySeconds < domain.MinFrequencySeconds {
			return domain.ErrFrequencyTooShort
		}
		if req.FrequencySeconds > domain.MaxFrequencySeconds {
			return domain.ErrFrequencyTooLong
		}
		if req.MerchantName == "" || len(req.MerchantName) > domain.MaxMerchantNameLen {
			return domain.ErrInvalidMerchantName
		}
		if req.Amount <= 0 {
			return domain.ErrAmountTooLow
		}
		if req.Amount > req.MaxPerTransaction {
			return domain.ErrExceedsTransactionCap
		}
		if req.Amount > req.LifetimeCap {
			return domain.ErrExceedsLifetimeCap
		}

		merchant, err := s.merchants.FindMerchant(ctx, tx, req.MerchantID)
		if err != nil {
			return err
		}
		if merchant == nil {
			return merchantdomain.ErrMerchantNotFound
		}

		payerAccount, err := s.accounts.GetAccountByOwner(ctx, payer, s.asset)
		if err != nil {
			return err
		}
		merchantAccount, err := s.accounts.GetAccountByOwner(ctx, merchant.OwnerAccount, s.asset)
		if err != nil {
			return err
		}

		now := s.clock.Now(ctx)
		sub = &domain.Subscription{
			ID:                s.genID.Generate(),
			PayerAccount:      payer,
			PayerLedgerID:     payerAccount.ID,
			MerchantID:        merchant.ID,
			MerchantLedgerID:  merchantAccount.ID,
			MerchantName:      req.MerchantName,
			Amount:            req.Amount,
			OriginalAmount:    req.Amount,
			FrequencySeconds:  req.FrequencySeconds,
			NextPayment:       now.Add(time.Duration(req.FrequencySeconds) * time.Second),
			IsActive:          true,
			MaxPerTransaction: req.MaxPerTransaction,
			LifetimeCap:       req.LifetimeCap,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if clockID, ok := testclockctx.TestClockIDFromContext(ctx); ok {
			sub.TestClockID = &clockID
		}

		if err := s.ledger.Authorize(ctx, tx, payerAccount.ID, domain.Spender(sub.ID), req.LifetimeCap); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, tx, sub); err != nil {
			return err
		}
		if err := s.gate.AddSubscription(ctx, tx); err != nil {
			return err
		}
		return s.events.Record(ctx, tx, eventdomain.NewEvent{
			Type:       "subscription.created",
			EntityType: "subscription",
			EntityID:   sub.ID.String(),
			Payload: map[string]any{
				"payer_account":     payer,
				"merchant_id":       merchant.ID.String(),
				"amount":            req.Amount,
				"frequency_seconds": req.FrequencySeconds,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("subscription created",
		zap.Int64("subscription_id", sub.ID.Int64()),
		zap.Int64("merchant_id", sub.MerchantID.Int64()),
		zap.Int64("amount", sub.Amount))
	return sub, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Subscription, error) {
	sub, err := s.repo.Find(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, domain.ErrSubscriptionNotFound
	}
	return sub, nil
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter, page pagination.Params) ([]domain.Subscription, int64, error) {
	return s.repo.List(ctx, filter, page)
}

// ExecutePayment runs the full precondition ladder and the value movement in
// one transaction. A ledger refusal aborts the payment and commits a failure
// outcome separately; precondition rejections record nothing.
func (s *Service) ExecutePayment(ctx context.Context, id snowflake.ID) (*domain.PaymentResult, error) {
	ctx, span := s.tracer.Start(ctx, "subscription.ExecutePayment",
		trace.WithAttributes(attribute.Int64("subscription.id", id.Int64())))
	defer span.End()

	var (
		result    *domain.PaymentResult
		failedSub *domain.Subscription
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state, err := s.gate.BillingState(ctx, tx)
		if err != nil {
			return err
		}

		sub, err := s.repo.Find(ctx, tx, id)
		if err != nil {
			return err
		}
		if sub == nil {
			return domain.ErrSubscriptionNotFound
		}
		if !sub.IsActive {
			return domain.ErrSubscriptionInactive
		}
		if sub.IsPaused {
			return domain.ErrSubscriptionPaused
		}
		now := s.clock.Now(ctx)
		if now.Before(sub.NextPayment) {
			return domain.ErrPaymentNotDue
		}
		newTotalPaid, err := safemath.CheckedAdd(sub.TotalPaid, sub.Amount)
		if err != nil {
			return err
		}
		if newTotalPaid > sub.LifetimeCap {
			return domain.ErrExceedsLifetimeCap
		}
		windowVolume, err := safemath.CheckedAdd(state.TotalVolume24h, sub.Amount)
		if err != nil {
			return err
		}
		if windowVolume > state.DailyVolumeLimit {
			return platformdomain.ErrVelocityExceeded
		}
		if sub.PaymentCount > 0 {
			tolerance := sub.OriginalAmount / domain.PriceVarianceDivisor
			diff := sub.Amount - sub.OriginalAmount
			if diff < 0 {
				diff = -diff
			}
			if diff > tolerance {
				return domain.ErrPriceVarianceExceeded
			}
		}

		feeAmount, err := fee.Calculate(sub.Amount, state.FeeBasisPoints, state.MinFee, state.MaxFee)
		if err != nil {
			return err
		}
		merchantAmount := sub.Amount - feeAmount
		if merchantAmount < 0 {
			return domain.ErrInsufficientAmount
		}

		spender := domain.Spender(sub.ID)
		if merchantAmount > 0 {
			if _, err := s.ledger.Transfer(ctx, tx, ledgerdomain.TransferRequest{
				FromAccountID: sub.PayerLedgerID,
				ToAccountID:   sub.MerchantLedgerID,
				Amount:        merchantAmount,
				Spender:       spender,
				Kind:          ledgerdomain.EntryKindPayment,
				Memo:          "subscription " + sub.ID.String(),
			}); err != nil {
				if isTransferRefusal(err) {
					failedSub = sub
				}
				return err
			}
		}
		if feeAmount > 0 {
			if _, err := s.ledger.Transfer(ctx, tx, ledgerdomain.TransferRequest{
				FromAccountID: sub.PayerLedgerID,
				ToAccountID:   state.FeeAccountID,
				Amount:        feeAmount,
				Spender:       spender,
				Kind:          ledgerdomain.EntryKindFee,
				Memo:          "platform fee",
			}); err != nil {
				if isTransferRefusal(err) {
					failedSub = sub
				}
				return err
			}
		}

		sub.LastPayment = &now
		sub.NextPayment = now.Add(sub.Frequency())
		sub.TotalPaid = newTotalPaid
		if sub.PaymentCount, err = safemath.CheckedAdd(sub.PaymentCount, 1); err != nil {
			return err
		}
		sub.UpdatedAt = now
		if err := s.repo.Save(ctx, tx, sub); err != nil {
			return err
		}
		if err := s.gate.CommitPayment(ctx, tx, state, sub.Amount); err != nil {
			return err
		}
		if err := s.reporter.Record(ctx, tx, merchantdomain.TransactionReport{
			SubscriptionID: sub.ID,
			MerchantID:     sub.MerchantID,
			Amount:         sub.Amount,
			Success:        true,
		}); err != nil {
			return err
		}
		if err := s.events.Record(ctx, tx, eventdomain.NewEvent{
			Type:       "payment.executed",
			EntityType: "subscription",
			EntityID:   sub.ID.String(),
			Payload: map[string]any{
				"amount":          sub.Amount,
				"fee":             feeAmount,
				"merchant_amount": merchantAmount,
				"payment_count":   sub.PaymentCount,
			},
		}); err != nil {
			return err
		}

		result = &domain.PaymentResult{
			Subscription:   sub,
			Amount:         sub.Amount,
			Fee:            feeAmount,
			MerchantAmount: merchantAmount,
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		if failedSub != nil {
			s.recordFailureOutcome(ctx, failedSub, err)
			s.metrics.PaymentsExecuted.WithLabelValues("failed").Inc()
		} else {
			s.metrics.PaymentsExecuted.WithLabelValues("rejected").Inc()
		}
		return nil, err
	}

	s.metrics.PaymentsExecuted.WithLabelValues("success").Inc()
	s.metrics.PaymentVolume.Add(float64(result.Amount))
	s.metrics.FeesCollected.Add(float64(result.Fee))
	s.log.Info("payment executed",
		zap.Int64("subscription_id", id.Int64()),
		zap.Int64("amount", result.Amount),
		zap.Int64("fee", result.Fee))
	return result, nil
}

func isTransferRefusal(err error) bool {
	return errors.Is(err, ledgerdomain.ErrInsufficientBalance) ||
		errors.Is(err, ledgerdomain.ErrInsufficientAuthorization)
}

// recordFailureOutcome commits the reputational and counter consequences of a
// refused transfer after the payment transaction has rolled back.
func (s *Service) recordFailureOutcome(ctx context.Context, sub *domain.Subscription, cause error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.reporter.Record(ctx, tx, merchantdomain.TransactionReport{
			SubscriptionID: sub.ID,
			MerchantID:     sub.MerchantID,
			Amount:         sub.Amount,
			Success:        false,
		}); err != nil {
			return err
		}
		if err := s.gate.RecordFailedTransaction(ctx, tx); err != nil {
			return err
		}
		return s.events.Record(ctx, tx, eventdomain.NewEvent{
			Type:       "payment.failed",
			EntityType: "subscription",
			EntityID:   sub.ID.String(),
			Payload: map[string]any{
				"amount": sub.Amount,
				"error":  cause.Error(),
			},
		})
	})
	if err != nil {
		s.log.Error("failure outcome not recorded",
			zap.Int64("subscription_id", sub.ID.Int64()),
			zap.Error(err))
		return
	}
	s.log.Warn("payment failed",
		zap.Int64("subscription_id", sub.ID.Int64()),
		zap.NamedError("cause", cause))
}

func (s *Service) Pause(ctx context.Context, payer string, id snowflake.ID) (*domain.Subscription, error) {
	var sub *domain.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		sub, err = s.loadOwned(ctx, tx, payer, id)
		if err != nil {
			return err
		}
		if !sub.IsActive {
			return domain.ErrSubscriptionInactive
		}
		if sub.IsPaused {
			return domain.ErrAlreadyPaused
		}
		sub.IsPaused = true
		sub.UpdatedAt = s.clock.Now(ctx)
		if err := s.repo.Save(ctx, tx, sub); err != nil {
			return err
		}
		return s.events.Record(ctx, tx, eventdomain.NewEvent{
			Type:       "subscription.paused",
			EntityType: "subscription",
			EntityID:   sub.ID.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *Service) Resume(ctx context.Context, payer string, id snowflake.ID) (*domain.Subscription, error) {
	var sub *domain.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		sub, err = s.loadOwned(ctx, tx, payer, id)
		if err != nil {
			return err
		}
		if !sub.IsActive {
			return domain.ErrSubscriptionInactive
		}
		if !sub.IsPaused {
			return domain.ErrNotPaused
		}
		now := s.clock.Now(ctx)
		sub.IsPaused = false
		// Missed cycles are dropped: billing restarts one full period out.
		sub.NextPayment = now.Add(sub.Frequency())
		sub.UpdatedAt = now
		if err := s.repo.Save(ctx, tx, sub); err != nil {
			return err
		}
		return s.events.Record(ctx, tx, eventdomain.NewEvent{
			Type:       "subscription.resumed",
			EntityType: "subscription",
			EntityID:   sub.ID.String(),
			Payload:    map[string]any{"next_payment": sub.NextPayment},
		})
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *Service) Cancel(ctx context.Context, payer string, id snowflake.ID) (*domain.Subscription, error) {
	var sub *domain.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		sub, err = s.loadOwned(ctx, tx, payer, id)
		if err != nil {
			return err
		}
		if !sub.IsActive {
			return domain.ErrSubscriptionInactive
		}
		if err := s.ledger.Revoke(ctx, tx, sub.PayerLedgerID, domain.Spender(sub.ID)); err != nil {
			return err
		}
		sub.IsActive = false
		sub.IsPaused = false
		sub.UpdatedAt = s.clock.Now(ctx)
		if err := s.repo.Save(ctx, tx, sub); err != nil {
			return err
		}
		if err := s.gate.RemoveSubscription(ctx, tx); err != nil {
			return err
		}
		return s.events.Record(ctx, tx, eventdomain.NewEvent{
			Type:       "subscription.cancelled",
			EntityType: "subscription",
			EntityID:   sub.ID.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("subscription cancelled", zap.Int64("subscription_id", id.Int64()))
	return sub, nil
}

func (s *Service) Close(ctx context.Context, payer string, id snowflake.ID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.loadOwned(ctx, tx, payer, id)
		if err != nil {
			return err
		}
		if sub.IsActive {
			return domain.ErrSubscriptionStillActive
		}
		if err := s.repo.Delete(ctx, tx, id); err != nil {
			return err
		}
		return s.events.Record(ctx, tx, eventdomain.NewEvent{
			Type:       "subscription.closed",
			EntityType: "subscription",
			EntityID:   id.String(),
		})
	})
	if err != nil {
		return err
	}

	s.log.Info("subscription closed", zap.Int64("subscription_id", id.Int64()))
	return nil
}

func (s *Service) UpdateLimits(ctx context.Context, payer string, id snowflake.ID, req domain.UpdateLimitsRequest) (*domain.Subscription, error) {
	if req.Empty() {
		return nil, domain.ErrNoUpdateProvided
	}

	var sub *domain.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		sub, err = s.loadOwned(ctx, tx, payer, id)
		if err != nil {
			return err
		}
		if !sub.IsActive {
			return domain.ErrSubscriptionInactive
		}
		if sub.IsPaused {
			return domain.ErrSubscriptionPaused
		}

		if req.MaxPerTransaction != nil {
			if sub.Amount > *req.MaxPerTransaction {
				return domain.ErrExceedsTransactionCap
			}
			sub.MaxPerTransaction = *req.MaxPerTransaction
		}
		if req.LifetimeCap != nil {
			if sub.TotalPaid > *req.LifetimeCap {
				return domain.ErrExceedsLifetimeCap
			}
			if *req.LifetimeCap > sub.LifetimeCap {
				// A raised ceiling needs a fresh delegated authorization.
				if err := s.ledger.Authorize(ctx, tx, sub.PayerLedgerID, domain.Spender(sub.ID), *req.LifetimeCap); err != nil {
					return err
				}
			}
			sub.LifetimeCap = *req.LifetimeCap
		}

		sub.UpdatedAt = s.clock.Now(ctx)
		if err := s.repo.Save(ctx, tx, sub); err != nil {
			return err
		}
		return s.events.Record(ctx, tx, eventdomain.NewEvent{
			Type:       "subscription.limits_updated",
			EntityType: "subscription",
			EntityID:   sub.ID.String(),
			Payload: map[string]any{
				"max_per_transaction": sub.MaxPerTransaction,
				"lifetime_cap":        sub.LifetimeCap,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *Service) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Subscription, error) {
	return s.repo.ListDue(ctx, now, nil, limit)
}

func (s *Service) ListDueForClock(ctx context.Context, clockID snowflake.ID, now time.Time, limit int) ([]domain.Subscription, error) {
	return s.repo.ListDue(ctx, now, &clockID, limit)
}

func (s *Service) loadOwned(ctx context.Context, tx *gorm.DB, payer string, id snowflake.ID) (*domain.Subscription, error) {
	sub, err := s.repo.Find(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, domain.ErrSubscriptionNotFound
	}
	if sub.PayerAccount != payer {
		return nil, domain.ErrUnauthorizedSubscription
	}
	return sub, nil
}
